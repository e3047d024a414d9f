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

// Package e2ehelpers drives the VolleySheet dashboard in a headless
// browser.
package e2ehelpers

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Logger interface allows passing *testing.T or log.Printf
type Logger interface {
	Logf(format string, args ...any)
}

// CaptureScreenshot captures a screenshot and saves it to filename.
func CaptureScreenshot(ctx context.Context, filename string) error {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory for screenshot: %w", err)
	}
	if err := os.WriteFile(filename, buf, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot to file: %w", err)
	}
	log.Printf("Saved screenshot to %s", filename)
	return nil
}

func DisableCSSAnimations() chromedp.ActionFunc {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.Evaluate(`
			const style = document.createElement('style');
			style.innerHTML = '*{transition-duration:0s!important;animation-duration:0s!important;}';
			document.head.appendChild(style);
		`, nil).Do(ctx)
	})
}

// WaitText polls until the text of sel contains want.
func WaitText(sel, want string, timeout time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()

		timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var text string
		for {
			select {
			case <-ticker.C:
				err := chromedp.Evaluate(fmt.Sprintf(`(document.querySelector(%q) || {}).innerText || ''`, sel), &text).Do(ctx)
				if err == nil && strings.Contains(text, want) {
					return nil
				}
			case <-timeoutCtx.Done():
				return fmt.Errorf("timeout waiting for %q in %s (last %q): %w", want, sel, text, timeoutCtx.Err())
			}
		}
	})
}

// --- Auth ---

// LoginWithUser sets the mock user cookie and opens the dashboard.
func LoginWithUser(ctx context.Context, baseURL, email string) error {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return fmt.Errorf("invalid baseURL format: %s", baseURL)
	}
	return chromedp.Run(ctx,
		network.ClearBrowserCookies(),
		network.SetCookie("mock_auth_user", email).
			WithDomain(u.Hostname()).
			WithPath("/").
			WithSecure(u.Scheme == "https"),
		chromedp.Navigate(baseURL+"/"),
		WaitText(`#user`, email, 10*time.Second),
	)
}

// Logout clears the mock user cookie.
func Logout(ctx context.Context, baseURL string) error {
	return chromedp.Run(ctx,
		chromedp.Navigate(baseURL+"/api/logout"),
		WaitText(`#user`, "Not signed in", 10*time.Second),
	)
}

// --- Matches ---

// UploadSheet imports the PDF at path through the import form and waits
// for the confirmation.
func UploadSheet(ctx context.Context, path string, public bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	actions := []chromedp.Action{
		chromedp.WaitEnabled(`#upload`, chromedp.ByID),
		chromedp.SetUploadFiles(`#file`, []string{abs}, chromedp.ByID),
	}
	if public {
		actions = append(actions, chromedp.Click(`#public`, chromedp.ByID))
	}
	actions = append(actions,
		chromedp.Click(`#upload`, chromedp.ByID),
		WaitText(`#status`, "Imported", 30*time.Second),
	)
	return chromedp.Run(ctx, actions...)
}

// OpenMatch opens the detail view of the n-th listed match, starting at 1.
func OpenMatch(ctx context.Context, n int) error {
	row := fmt.Sprintf(`#match-list tbody tr:nth-child(%d)`, n)
	return chromedp.Run(ctx,
		chromedp.WaitVisible(row, chromedp.ByQuery),
		chromedp.Click(row, chromedp.ByQuery),
		chromedp.WaitVisible(`#detail`, chromedp.ByID),
		chromedp.WaitVisible(`#rotation-table tbody tr`, chromedp.ByQuery),
	)
}

// SelectRotationView chooses the set and team shown in the rotation table.
func SelectRotationView(ctx context.Context, set int, team string) error {
	return chromedp.Run(ctx,
		chromedp.SetValue(`#set`, fmt.Sprint(set), chromedp.ByID),
		chromedp.SetValue(`#team`, team, chromedp.ByID),
		chromedp.Evaluate(`document.getElementById('team').dispatchEvent(new Event('change'))`, nil),
		chromedp.Sleep(500*time.Millisecond),
	)
}

// RotationTableText returns the rows of the rotation table, one line per
// rotation with tab separated cells.
func RotationTableText(ctx context.Context) (string, error) {
	var text string
	err := chromedp.Run(ctx, chromedp.Evaluate(`
		Array.from(document.querySelectorAll('#rotation-table tbody tr'))
			.map((tr) => Array.from(tr.cells).map((td) => td.textContent.trim()).join('\t'))
			.join('\n')
	`, &text))
	return text, err
}

// ListedMatches returns the text of every row of the match list.
func ListedMatches(ctx context.Context) ([]string, error) {
	var rows []string
	err := chromedp.Run(ctx, chromedp.Evaluate(`
		Array.from(document.querySelectorAll('#match-list tbody tr')).map((tr) => tr.innerText.trim())
	`, &rows))
	return rows, err
}

// Search types query in the search box and waits for the list to settle.
func Search(ctx context.Context, query string) error {
	return chromedp.Run(ctx,
		chromedp.SetValue(`#search`, "", chromedp.ByID),
		chromedp.SendKeys(`#search`, query, chromedp.ByID),
		chromedp.Sleep(1*time.Second),
	)
}
