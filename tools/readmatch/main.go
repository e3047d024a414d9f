// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// readmatch decodes files of a data directory, which may be encrypted, and
// prints them as JSON.
//
//	VS_MASTER_KEY=... go run ./tools/readmatch -data-dir data <match id | file>...
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	"github.com/google/uuid"

	"github.com/ttbt-io/volleysheet/backend"
	"github.com/ttbt-io/volleysheet/sheet"
)

var (
	dataDir = flag.String("data-dir", "data", "Directory for match data")
	all     = flag.Bool("all", false, "Print a summary of every stored match")
	analyze = flag.Bool("analyze", false, "Print the match analysis instead of the raw match")
)

func main() {
	flag.Parse()
	var masterKey crypto.MasterKey
	keyFile := filepath.Join(*dataDir, "master.key")
	if passphrase := os.Getenv("VS_MASTER_KEY"); passphrase != "" {
		mk, err := crypto.ReadMasterKey([]byte(passphrase), keyFile)
		if err != nil {
			log.Fatalf("Failed to read master key: %v", err)
		}
		masterKey = mk
	} else if _, err := os.Stat(keyFile); err == nil {
		log.Fatalf("%s exists but VS_MASTER_KEY is not set", keyFile)
	}
	store := storage.New(*dataDir, masterKey)
	matches := backend.NewMatchStore(*dataDir, store)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *all {
		for meta, err := range matches.ListAllMatchMetadata() {
			if err != nil {
				log.Printf("%v", err)
				continue
			}
			fmt.Printf("%s  %-7s  %s  %s %d-%d %s  (%s)\n", meta.ID, meta.Status, meta.Date, meta.Home, meta.SetsWon[0], meta.SetsWon[1], meta.Away, meta.OwnerID)
		}
		return
	}

	for _, arg := range flag.Args() {
		obj, err := read(store, matches, arg)
		if err != nil {
			log.Printf("%s: %v", arg, err)
			continue
		}
		fmt.Printf("=========== %s ===========\n", arg)
		if err := enc.Encode(obj); err != nil {
			log.Printf("JSON: %s: %v", arg, err)
		}
	}
}

func read(store *storage.Storage, matches *backend.MatchStore, arg string) (any, error) {
	if _, err := uuid.Parse(arg); err == nil {
		rec, err := matches.LoadMatch(arg)
		if err != nil {
			return nil, err
		}
		if *analyze && rec.Match != nil {
			return sheet.Analyze(rec.Match), nil
		}
		return rec, nil
	}
	name := strings.TrimPrefix(strings.TrimPrefix(arg, *dataDir), "/")
	var obj any
	switch {
	case strings.HasSuffix(name, ".meta.json"):
		obj = new(backend.MatchMetadata)
	case strings.Contains(name, "access_policy"):
		obj = new(backend.AccessPolicy)
	default:
		obj = new(backend.MatchRecord)
	}
	if err := store.ReadDataFile(name, obj); err != nil {
		return nil, err
	}
	return obj, nil
}
