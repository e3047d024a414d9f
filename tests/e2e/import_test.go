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

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/ttbt-io/volleysheet/backend"
	"github.com/ttbt-io/volleysheet/sheet"
)

func call(t *testing.T, ts *testServer, method, path, user, body string, want int) []byte {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.LocalURL+path, r)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if user != "" {
		req.AddCookie(&http.Cookie{Name: "mock_auth_user", Value: user})
	}
	resp, err := insecureClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, want, resp.StatusCode, data)
	}
	return data
}

func signed(n int) string {
	if n > 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprint(n)
}

// rotationText formats rows the way the dashboard table shows them.
func rotationText(rows []sheet.RotationRow) string {
	var sb strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&sb, "R%d\t%d\t%d\t%s\t%s\n", r.Rotation, r.Scored, r.Conceded, signed(r.Diff), signed(r.Running))
	}
	return sb.String()
}

type matchList struct {
	Data []backend.MatchMetadata `json:"data"`
	Meta struct {
		Total int `json:"total"`
	} `json:"meta"`
}

func TestImportWorkflow(t *testing.T) {
	ts := startTestServer(t, "")
	const coach = "coach@example.com"

	call(t, ts, "POST", "/api/matches?name=notes.txt", coach, "just some notes", http.StatusUnsupportedMediaType)

	var rec backend.MatchRecord
	data := call(t, ts, "POST", "/api/matches?name=lyon-mulhouse.pdf&public=true", coach, "%PDF-1.7 sample", http.StatusCreated)
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(rec.Match.Warnings) != 0 {
		t.Errorf("Unexpected warnings %v", rec.Match.Warnings)
	}

	for q, want := range map[string]int{
		"asptt":           1,
		"MULHOUSÉ":         1,
		"home:lyon":       1,
		"away:lyon":       0,
		"date:2025-10-12": 1,
		"date:<2025-01-01": 0,
	} {
		var list matchList
		if err := json.Unmarshal(call(t, ts, "GET", "/api/matches?q="+url.QueryEscape(q), "", "", http.StatusOK), &list); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if list.Meta.Total != want {
			t.Errorf("q=%q: expected %d matches, got %+v", q, want, list)
		}
	}

	var rt struct {
		Rows []sheet.RotationRow `json:"rows"`
	}
	if err := json.Unmarshal(call(t, ts, "GET", "/api/matches/"+rec.ID+"/rotations?set=1&team=home", "", "", http.StatusOK), &rt); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	VerifyGolden(t, "rotations-set1-home.txt", rotationText(rt.Rows))

	img := call(t, ts, "GET", "/api/matches/"+rec.ID+"/court.png?set=1&team=home&rotation=2&serving=1", "", "", http.StatusOK)
	if cfg, err := png.DecodeConfig(bytes.NewReader(img)); err != nil || cfg.Width == 0 {
		t.Errorf("Invalid court PNG: %v", err)
	}

	call(t, ts, "DELETE", "/api/matches/"+rec.ID, "someone@example.com", "", http.StatusForbidden)
	call(t, ts, "DELETE", "/api/matches/"+rec.ID, coach, "", http.StatusNoContent)

	var list matchList
	if err := json.Unmarshal(call(t, ts, "GET", "/api/matches", coach, "", http.StatusOK), &list); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if list.Meta.Total != 0 {
		t.Errorf("Deleted match still listed: %+v", list)
	}
}

func TestAccessPolicyWorkflow(t *testing.T) {
	const admin = "admin@example.com"
	ts := startTestServer(t, admin)

	policy := `{"defaultPolicy":"deny","defaultDenyMessage":"Ask the club","users":{"coach@example.com":{"access":"allow","maxMatches":1}}}`
	call(t, ts, "POST", "/api/admin/policy", "coach@example.com", policy, http.StatusForbidden)
	call(t, ts, "POST", "/api/admin/policy", admin, policy, http.StatusOK)

	body := call(t, ts, "POST", "/api/matches", "visitor@example.com", "%PDF-1.7", http.StatusForbidden)
	if !strings.Contains(string(body), "Ask the club") {
		t.Errorf("Expected deny message, got %q", body)
	}
	call(t, ts, "POST", "/api/matches", "coach@example.com", "%PDF-1.7", http.StatusCreated)
	call(t, ts, "POST", "/api/matches", "coach@example.com", "%PDF-1.7 again", http.StatusForbidden)

	var me struct {
		Allowed bool           `json:"allowed"`
		Quotas  map[string]int `json:"quotas"`
	}
	if err := json.Unmarshal(call(t, ts, "GET", "/api/me", "coach@example.com", "", http.StatusOK), &me); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !me.Allowed || me.Quotas["matchesUsed"] != 1 || me.Quotas["maxMatches"] != 1 {
		t.Errorf("Unexpected user info %+v", me)
	}
}
