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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

func TestGetMatchAccess(t *testing.T) {
	owner := "owner@example.com"
	private := MatchMetadata{ID: "m1", OwnerID: owner, Status: StatusActive}
	public := MatchMetadata{ID: "m2", OwnerID: owner, Status: StatusActive, Public: true}
	deleted := MatchMetadata{ID: "m3", OwnerID: owner, Status: StatusDeleted, Public: true}

	tests := []struct {
		name    string
		userId  string
		meta    MatchMetadata
		isAdmin bool
		want    AccessLevel
	}{
		{"Owner", owner, private, false, AccessAdmin},
		{"Owner mixed case", "Owner@Example.com", private, false, AccessAdmin},
		{"Stranger private", "stranger@example.com", private, false, AccessNone},
		{"Anonymous private", "", private, false, AccessNone},
		{"Site admin", "admin@example.com", private, true, AccessAdmin},
		{"Stranger public", "stranger@example.com", public, false, AccessRead},
		{"Anonymous public", "", public, false, AccessRead},
		{"Anonymous flagged admin", "", private, true, AccessNone},
		{"Owner of tombstone", owner, deleted, false, AccessNone},
		{"Admin on tombstone", "admin@example.com", deleted, true, AccessNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetMatchAccess(tt.userId, tt.meta, tt.isAdmin); got != tt.want {
				t.Errorf("GetMatchAccess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMaskEmail(t *testing.T) {
	tests := map[string]string{
		"":                 "<empty>",
		"user@example.com": "u***@example.com",
		"noatsign":         "****",
		"@example.com":     "****",
	}
	for in, want := range tests {
		if got := maskEmail(in); got != want {
			t.Errorf("maskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func userEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(getUserID(r)))
	})
}

func TestMockAuthMiddleware(t *testing.T) {
	h := mockAuthMiddleware(userEcho())

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: mockAuthCookie, Value: " User@Example.COM "})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Body.String(); got != "user@example.com" {
		t.Errorf("Expected user@example.com, got %q", got)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/me", nil))
	if got := w.Body.String(); got != "" {
		t.Errorf("Expected anonymous request, got %q", got)
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	if got := bearerToken(req, DefaultAuthCookie); got != "abc.def.ghi" {
		t.Errorf("Expected header token, got %q", got)
	}
	req.AddCookie(&http.Cookie{Name: DefaultAuthCookie, Value: "cookie.token"})
	if got := bearerToken(req, DefaultAuthCookie); got != "cookie.token" {
		t.Errorf("Expected the cookie to win, got %q", got)
	}
	if got := bearerToken(httptest.NewRequest("GET", "/", nil), DefaultAuthCookie); got != "" {
		t.Errorf("Expected no token, got %q", got)
	}
}

func TestKeyring(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pub, err := jwk.Import(&priv.PublicKey)
	if err != nil {
		t.Fatalf("jwk.Import: %v", err)
	}
	if err := pub.Set(jwk.KeyIDKey, "key-1"); err != nil {
		t.Fatalf("Set kid: %v", err)
	}
	set := jwk.NewSet()
	if err := set.AddKey(pub); err != nil {
		t.Fatalf("AddKey: %v", err)
	}
	kr := &keyring{keys: set, lastRefresh: time.Now()}

	sign := func(kid string, claims jwt.MapClaims) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
		tok.Header["kid"] = kid
		s, err := tok.SignedString(priv)
		if err != nil {
			t.Fatalf("SignedString: %v", err)
		}
		return s
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"ES256"}))

	t.Run("Valid", func(t *testing.T) {
		claims := jwt.MapClaims{}
		raw := sign("key-1", jwt.MapClaims{"email": "a@example.com", "exp": time.Now().Add(time.Hour).Unix()})
		token, err := parser.ParseWithClaims(raw, claims, kr.keyFunc)
		if err != nil || !token.Valid {
			t.Fatalf("Expected valid token, got %v", err)
		}
		if claims["email"] != "a@example.com" {
			t.Errorf("Unexpected claims %v", claims)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		raw := sign("key-1", jwt.MapClaims{"email": "a@example.com", "exp": time.Now().Add(-time.Hour).Unix()})
		if _, err := parser.ParseWithClaims(raw, jwt.MapClaims{}, kr.keyFunc); err == nil {
			t.Error("Expected expired token to fail")
		}
	})

	t.Run("UnknownKid", func(t *testing.T) {
		// The keyring was refreshed recently, so no fetch is attempted.
		raw := sign("key-2", jwt.MapClaims{"email": "a@example.com"})
		if _, err := parser.ParseWithClaims(raw, jwt.MapClaims{}, kr.keyFunc); err == nil {
			t.Error("Expected unknown kid to fail")
		}
	})
}

func TestJWTAuthMiddleware_NoKeys(t *testing.T) {
	h := jwtAuthMiddleware(Options{}, userEcho())

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "" {
		t.Errorf("Expected anonymous pass-through, got %d %q", w.Code, w.Body.String())
	}
}
