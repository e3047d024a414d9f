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

import (
	"testing"

	"github.com/c2FmZQ/storage"
)

func TestAccessControl(t *testing.T) {
	tmpDir := t.TempDir()
	s := storage.New(tmpDir, nil)
	ac := NewAccessControl(s, "bootstrap@admin.com")

	// Test 1: No Policy (Default Allow)
	if allowed, msg := ac.IsAllowed("user@example.com"); !allowed {
		t.Errorf("Expected allowed when no policy set, got %s", msg)
	}
	if allowed, _ := ac.IsAllowed(""); allowed {
		t.Error("Expected anonymous user to be refused")
	}

	// Test 2: Bootstrap Admin
	if !ac.IsAdmin("Bootstrap@Admin.com") {
		t.Error("Bootstrap admin should be admin")
	}
	if ac.IsAdmin("user@example.com") {
		t.Error("Regular user should not be admin")
	}

	// Test 3: Apply Policy (Default Deny)
	policy := AccessPolicy{
		DefaultPolicy:      "deny",
		DefaultDenyMessage: "Invite Only",
		DefaultMaxMatches:  2,
		Admins:             []string{"Perm@Admin.com"},
		Users: map[string]UserOverride{
			"Allowed@User.com": {Access: "allow", MaxMatches: 5},
			"banned@user.com":  {Access: "deny"},
			"quota@user.com":   {MaxMatches: -1},
		},
	}
	if err := ac.SetPolicy(policy); err != nil {
		t.Fatalf("SetPolicy failed: %v", err)
	}

	tests := []struct {
		name    string
		email   string
		allowed bool
		admin   bool
		quota   int
	}{
		{"Default deny", "random@user.com", false, false, 2},
		{"Allowed override", "allowed@user.com", true, false, 5},
		{"Denied override", "banned@user.com", false, false, 2},
		{"Policy admin", "perm@admin.com", true, true, 2},
		{"Bootstrap admin", "bootstrap@admin.com", true, true, 2},
		{"Quota only override", "quota@user.com", false, false, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, msg := ac.IsAllowed(tt.email)
			if allowed != tt.allowed {
				t.Errorf("IsAllowed(%s) = %v, want %v", tt.email, allowed, tt.allowed)
			}
			if !allowed && msg != "Invite Only" {
				t.Errorf("Expected deny message 'Invite Only', got %q", msg)
			}
			if got := ac.IsAdmin(tt.email); got != tt.admin {
				t.Errorf("IsAdmin(%s) = %v, want %v", tt.email, got, tt.admin)
			}
			if got := ac.MatchQuota(tt.email); got != tt.quota {
				t.Errorf("MatchQuota(%s) = %d, want %d", tt.email, got, tt.quota)
			}
		})
	}

	// Test 4: Quotas
	if err := ac.CheckMatchQuota("allowed@user.com", 4); err != nil {
		t.Errorf("Expected room for a fifth match, got %v", err)
	}
	if err := ac.CheckMatchQuota("allowed@user.com", 5); err == nil {
		t.Error("Expected quota error at the limit")
	}
	if err := ac.CheckMatchQuota("quota@user.com", 0); err == nil {
		t.Error("Expected a negative quota to forbid any import")
	}
	if err := ac.CheckMatchQuota("perm@admin.com", 1000); err != nil {
		t.Errorf("Admins have no quota, got %v", err)
	}

	// Test 5: Invalid policy
	if err := ac.SetPolicy(AccessPolicy{DefaultPolicy: "maybe"}); err == nil {
		t.Error("Expected invalid default policy to be rejected")
	}
	if err := ac.SetPolicy(AccessPolicy{Users: map[string]UserOverride{"x@y.com": {Access: "sometimes"}}}); err == nil {
		t.Error("Expected invalid user access to be rejected")
	}
	if got := ac.Policy().DefaultPolicy; got != "deny" {
		t.Errorf("Rejected policy replaced the current one: %q", got)
	}
}

func TestAccessPolicy_Persistence(t *testing.T) {
	tmpDir := t.TempDir()
	s := storage.New(tmpDir, nil)

	ac := NewAccessControl(s, "")
	if got := ac.Policy(); got.DefaultPolicy != "allow" || got.Users == nil {
		t.Errorf("Expected default allow policy, got %+v", got)
	}
	if err := ac.SetPolicy(AccessPolicy{DefaultPolicy: "deny", Admins: []string{"admin@example.com"}}); err != nil {
		t.Fatalf("SetPolicy failed: %v", err)
	}

	// A new instance loads the saved policy.
	loaded := NewAccessControl(storage.New(tmpDir, nil), "")
	if got := loaded.Policy(); got.DefaultPolicy != "deny" {
		t.Errorf("Expected DefaultPolicy='deny', got '%s'", got.DefaultPolicy)
	}
	if !loaded.IsAdmin("admin@example.com") {
		t.Error("Expected admin to be loaded from storage")
	}
}
