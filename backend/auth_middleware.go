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
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// jwksRefreshInterval bounds how often an unknown kid triggers a fetch.
const jwksRefreshInterval = time.Minute

// keyring caches the JWKS of the identity provider.
type keyring struct {
	url string

	mu          sync.RWMutex
	keys        jwk.Set
	lastRefresh time.Time
}

func (k *keyring) refresh() error {
	if k.url == "" {
		return errors.New("no JWKS URL provided")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	set, err := jwk.Fetch(ctx, k.url)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	k.mu.Lock()
	k.keys = set
	k.lastRefresh = time.Now()
	k.mu.Unlock()
	return nil
}

func (k *keyring) lookup(kid string) (any, error) {
	k.mu.RLock()
	set := k.keys
	k.mu.RUnlock()
	if set == nil {
		return nil, errors.New("JWKS not initialized")
	}
	key, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, fmt.Errorf("key %s not found in JWKS", kid)
	}
	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("failed to materialize key: %w", err)
	}
	return raw, nil
}

// keyFunc resolves the verification key of token, refetching the JWKS at
// most once per jwksRefreshInterval when the kid is unknown.
func (k *keyring) keyFunc(token *jwt.Token) (any, error) {
	kid, ok := token.Header["kid"].(string)
	if !ok {
		return nil, errors.New("token missing 'kid' header")
	}
	key, err := k.lookup(kid)
	if err == nil {
		return key, nil
	}
	k.mu.RLock()
	stale := time.Since(k.lastRefresh) > jwksRefreshInterval
	k.mu.RUnlock()
	if !stale {
		return nil, err
	}
	if err := k.refresh(); err != nil {
		log.Printf("Error refreshing JWKS: %v", err)
		return nil, err
	}
	return k.lookup(kid)
}

// bearerToken returns the token from the auth cookie, or from an
// Authorization header for command line clients.
func bearerToken(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(h)
	}
	return ""
}

// jwtAuthMiddleware sets the user ID from a JWT signed by a key of the
// configured JWKS. Requests without a valid token proceed anonymously.
func jwtAuthMiddleware(opts Options, next http.Handler) http.Handler {
	kr := &keyring{url: opts.AuthJWKSURL}
	if kr.url != "" {
		if err := kr.refresh(); err != nil {
			log.Printf("Warning: Failed to fetch JWKS on startup: %v", err)
		}
	} else {
		log.Println("Warning: No AuthJWKSURL provided. JWT validation will fail unless MockAuth is used.")
	}
	cookieName := opts.AuthCookieName
	if cookieName == "" {
		cookieName = DefaultAuthCookie
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{
		"RS256", "RS384", "RS512", "ES256", "ES384", "ES512", "EdDSA",
	}))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r, cookieName)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims := jwt.MapClaims{}
		token, err := parser.ParseWithClaims(raw, claims, kr.keyFunc)
		if err != nil || !token.Valid {
			if opts.Debug {
				log.Printf("JWT Validation failed: %v", err)
			}
			next.ServeHTTP(w, r)
			return
		}
		if email, ok := claims["email"].(string); ok && email != "" {
			ctx := context.WithValue(r.Context(), userIDKey, normalizeEmail(email))
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// mockAuthMiddleware trusts the mock_auth_user cookie. Tests and local
// development only.
func mockAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(mockAuthCookie); err == nil && c.Value != "" {
			ctx := context.WithValue(r.Context(), userIDKey, normalizeEmail(c.Value))
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}
