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

// Package frontend embeds the dashboard served at the site root.
package frontend

import (
	"embed"
	"io/fs"
)

//go:embed static
var content embed.FS

// FS holds index.html, app.js and style.css at its root.
var FS fs.FS

func init() {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	FS = sub
}
