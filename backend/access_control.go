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
	"fmt"
	"slices"
	"sync"

	"github.com/c2FmZQ/storage"
)

// AccessPolicy restricts who may import matches and how many.
type AccessPolicy struct {
	DefaultPolicy      string                  `json:"defaultPolicy"` // "allow" or "deny"
	DefaultMaxMatches  int                     `json:"defaultMaxMatches"`
	DefaultDenyMessage string                  `json:"defaultDenyMessage"`
	Admins             []string                `json:"admins"`
	Users              map[string]UserOverride `json:"users"`
}

// UserOverride is the policy of a single user.
type UserOverride struct {
	Access     string `json:"access"` // "allow" or "deny"
	MaxMatches int    `json:"maxMatches"`
}

// normalize lower-cases emails and checks the default policy.
func (p *AccessPolicy) normalize() error {
	if p.DefaultPolicy == "" {
		p.DefaultPolicy = "allow"
	}
	if p.DefaultPolicy != "allow" && p.DefaultPolicy != "deny" {
		return fmt.Errorf("invalid default policy %q", p.DefaultPolicy)
	}
	users := make(map[string]UserOverride, len(p.Users))
	for email, o := range p.Users {
		if o.Access != "" && o.Access != "allow" && o.Access != "deny" {
			return fmt.Errorf("invalid access %q for %s", o.Access, maskEmail(email))
		}
		users[normalizeEmail(email)] = o
	}
	p.Users = users
	admins := make([]string, 0, len(p.Admins))
	for _, a := range p.Admins {
		admins = append(admins, normalizeEmail(a))
	}
	p.Admins = admins
	return nil
}

// AccessControl answers policy questions. With no policy every signed in
// user may import without limit.
type AccessControl struct {
	storage        *storage.Storage
	bootstrapAdmin string

	mu     sync.RWMutex
	policy *AccessPolicy
}

// NewAccessControl loads the persisted policy, if any.
func NewAccessControl(s *storage.Storage, bootstrapAdmin string) *AccessControl {
	ac := &AccessControl{
		storage:        s,
		bootstrapAdmin: normalizeEmail(bootstrapAdmin),
	}
	if s != nil {
		var p AccessPolicy
		if err := s.ReadDataFile(accessPolicyFile, &p); err == nil && p.normalize() == nil {
			ac.policy = &p
		}
	}
	return ac
}

// Policy returns a copy of the current policy, or the default one.
func (ac *AccessControl) Policy() AccessPolicy {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	if ac.policy == nil {
		return AccessPolicy{
			DefaultPolicy: "allow",
			Admins:        []string{},
			Users:         map[string]UserOverride{},
		}
	}
	return *ac.policy
}

// SetPolicy validates, persists and applies p.
func (ac *AccessControl) SetPolicy(p AccessPolicy) error {
	if err := p.normalize(); err != nil {
		return err
	}
	if ac.storage != nil {
		if err := ac.storage.SaveDataFile(accessPolicyFile, &p); err != nil {
			return fmt.Errorf("storage.SaveDataFile: %w", err)
		}
	}
	ac.mu.Lock()
	ac.policy = &p
	ac.mu.Unlock()
	return nil
}

// IsAllowed reports whether email may use the service, with the denial
// message when it may not.
func (ac *AccessControl) IsAllowed(email string) (bool, string) {
	if email == "" {
		return false, "Authentication required"
	}
	email = normalizeEmail(email)
	if ac.IsAdmin(email) {
		return true, ""
	}

	ac.mu.RLock()
	defer ac.mu.RUnlock()
	if ac.policy == nil {
		return true, ""
	}
	if o, ok := ac.policy.Users[email]; ok && o.Access != "" {
		if o.Access == "deny" {
			return false, ac.policy.DefaultDenyMessage
		}
		return true, ""
	}
	if ac.policy.DefaultPolicy == "deny" {
		return false, ac.policy.DefaultDenyMessage
	}
	return true, ""
}

// IsAdmin reports whether email is the bootstrap admin or listed in the
// policy.
func (ac *AccessControl) IsAdmin(email string) bool {
	if email == "" {
		return false
	}
	email = normalizeEmail(email)
	if ac.bootstrapAdmin != "" && email == ac.bootstrapAdmin {
		return true
	}
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return ac.policy != nil && slices.Contains(ac.policy.Admins, email)
}

// MatchQuota returns the maximum number of matches email may own. Zero
// means unlimited.
func (ac *AccessControl) MatchQuota(email string) int {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	if ac.policy == nil {
		return 0
	}
	limit := ac.policy.DefaultMaxMatches
	if o, ok := ac.policy.Users[normalizeEmail(email)]; ok && o.MaxMatches != 0 {
		limit = o.MaxMatches
	}
	return limit
}

// CheckMatchQuota fails when a user owning currentCount matches may not
// import another one.
func (ac *AccessControl) CheckMatchQuota(email string, currentCount int) error {
	if ac.IsAdmin(email) {
		return nil
	}
	// A negative limit means none.
	if limit := ac.MatchQuota(email); limit != 0 && currentCount >= limit {
		return fmt.Errorf("match limit reached (%d)", max(limit, 0))
	}
	return nil
}
