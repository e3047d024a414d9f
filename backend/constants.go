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

package backend

import "time"

// CurrentSchemaVersion is the version written to every stored match.
const CurrentSchemaVersion = 1

// AppVersion is reported by /api/version.
const AppVersion = "0.1.0"

// Match status values.
const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

// Websocket notification types.
const (
	MsgTypeMatchImported = "MATCH_IMPORTED"
	MsgTypeMatchUpdated  = "MATCH_UPDATED"
	MsgTypeMatchDeleted  = "MATCH_DELETED"
	MsgTypeError         = "ERROR"
)

// Defaults for the server options.
const (
	DefaultCacheSize    = 128
	DefaultMaxUploadMB  = 20
	DefaultAuthCookie   = "volleysheet_auth"
	mockAuthCookie      = "mock_auth_user"
	accessPolicyFile    = "sys_access_policy"
	matchesDir          = "matches"
	tombstoneTTL        = 30 * 24 * time.Hour
	gcInterval          = 12 * time.Hour
	defaultMetadataSize = 5000
)
