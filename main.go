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

package main

import (
	"context"
	"crypto/tls"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"

	"github.com/ttbt-io/volleysheet/backend"
	"github.com/ttbt-io/volleysheet/sheet"
)

var (
	addr           = flag.String("addr", ":8080", "The TCP address to listen to")
	useMockAuth    = flag.Bool("use-mock-auth", false, "Use Mock Authentication. For testing purposes only.")
	debugMode      = flag.Bool("debug", false, "Enable debug mode")
	dataDir        = flag.String("data-dir", "data", "Directory for match data")
	tlsCert        = flag.String("tls-cert", "", "Path to HTTP TLS certificate")
	tlsKey         = flag.String("tls-key", "", "Path to HTTP TLS key")
	authCookieName = flag.String("auth-cookie-name", backend.DefaultAuthCookie, "Name of the cookie containing the JWT")
	authJWKSURL    = flag.String("auth-jwks-url", "", "URL of the JWKS used to verify JWTs")
	bootstrapAdmin = flag.String("admin", "", "Email of temporary admin user for bootstrapping access policy")
	layoutFile     = flag.String("layout", "", "JSON file with the score sheet layout (default: built-in FFvolley layout)")
	statsDSN       = flag.String("stats-dsn", "", "Statistics database: empty for <data-dir>/stats.db, a SQLite path, a postgres:// URL, or \"off\"")
	cacheSize      = flag.Int("cache-size", backend.DefaultCacheSize, "Number of extraction results to memoize (0 disables)")
	maxUploadMB    = flag.Int("max-upload-mb", backend.DefaultMaxUploadMB, "Maximum PDF upload size in MB")
)

// readMasterKey loads or creates the master key protecting the data
// directory. It returns nil when VS_MASTER_KEY is not set.
func readMasterKey() crypto.MasterKey {
	keyFile := filepath.Join(*dataDir, "master.key")
	passphrase := os.Getenv("VS_MASTER_KEY")
	if passphrase == "" {
		if _, err := os.Stat(keyFile); err == nil {
			log.Fatalf("Critical Security Error: %s exists but VS_MASTER_KEY is not set. Refusing to start in unencrypted mode.", keyFile)
		}
		log.Println("Warning: No VS_MASTER_KEY provided. Data will be stored UNENCRYPTED.")
		return nil
	}
	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	masterKey, err := crypto.ReadMasterKey([]byte(passphrase), keyFile)
	if err == nil {
		log.Println("Loaded master encryption key.")
		return masterKey
	}
	if !os.IsNotExist(err) {
		log.Fatalf("Failed to read master key: %v", err)
	}
	log.Println("Initializing new master encryption key...")
	if masterKey, err = crypto.CreateMasterKey(); err != nil {
		log.Fatalf("Failed to create master key: %v", err)
	}
	if err := masterKey.Save([]byte(passphrase), keyFile); err != nil {
		log.Fatalf("Failed to save master key: %v", err)
	}
	return masterKey
}

// main starts the web server and registers the API handlers.
func main() {
	flag.Parse()

	var mainTLSCert *tls.Certificate
	if *tlsCert != "" && *tlsKey != "" {
		cert, err := tls.LoadX509KeyPair(*tlsCert, *tlsKey)
		if err != nil {
			log.Fatalf("Failed to load TLS cert/key: %v", err)
		}
		mainTLSCert = &cert
	}

	layout := sheet.DefaultLayout()
	if *layoutFile != "" {
		l, err := sheet.LoadLayout(*layoutFile)
		if err != nil {
			log.Fatalf("Failed to load layout: %v", err)
		}
		layout = l
		log.Printf("Using layout %q from %s", layout.Name, *layoutFile)
	}

	masterKey := readMasterKey()
	store := storage.New(*dataDir, masterKey)
	store.EnableCompression(true)

	server, err := backend.StartServer(backend.Options{
		Addr:           *addr,
		Cert:           mainTLSCert,
		DataDir:        *dataDir,
		Debug:          *debugMode,
		Storage:        store,
		Layout:         layout,
		CacheSize:      *cacheSize,
		MaxUploadMB:    *maxUploadMB,
		StatsDSN:       *statsDSN,
		UseMockAuth:    *useMockAuth,
		AuthCookieName: *authCookieName,
		AuthJWKSURL:    *authJWKSURL,
		BootstrapAdmin: *bootstrapAdmin,
	})
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	} else {
		log.Println("Gracefully stopped.")
	}
}
