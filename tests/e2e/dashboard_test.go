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
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/ttbt-io/volleysheet/tools/e2ehelpers"
)

func TestDashboardWorkflow(t *testing.T) {
	ctx := newBrowser(t)
	ts := startTestServer(t, "")

	chromedp.ListenTarget(ctx, func(ev any) {
		if ev, ok := ev.(*runtime.EventExceptionThrown); ok {
			t.Errorf("JS exception: %s", ev.ExceptionDetails.Error())
		}
	})

	pdf := filepath.Join(t.TempDir(), "lyon-mulhouse.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF-1.7 sample"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	runStep(t, ctx, "Login",
		chromedp.ActionFunc(func(ctx context.Context) error {
			return e2ehelpers.LoginWithUser(ctx, ts.BrowserURL, "coach@example.com")
		}),
		e2ehelpers.WaitText(`#live`, "live", 10*time.Second),
	)

	runStep(t, ctx, "Import",
		chromedp.ActionFunc(func(ctx context.Context) error {
			return e2ehelpers.UploadSheet(ctx, pdf, false)
		}),
		e2ehelpers.WaitText(`#page-info`, "1-1 of 1", 10*time.Second),
	)

	rows, err := e2ehelpers.ListedMatches(ctx)
	if err != nil {
		t.Fatalf("ListedMatches: %v", err)
	}
	if len(rows) != 1 || !strings.Contains(rows[0], "Volley Club Lyon") || !strings.Contains(rows[0], "3-1") {
		t.Errorf("Unexpected match list %q", rows)
	}

	runStep(t, ctx, "Open match",
		chromedp.ActionFunc(func(ctx context.Context) error { return e2ehelpers.OpenMatch(ctx, 1) }),
		e2ehelpers.WaitText(`#detail-title`, "ASPTT Mulhouse", 5*time.Second),
	)

	text, err := e2ehelpers.RotationTableText(ctx)
	if err != nil {
		t.Fatalf("RotationTableText: %v", err)
	}
	VerifyGolden(t, "rotations-set1-home.txt", text)

	var courtWidth int
	runStep(t, ctx, "Court diagram",
		chromedp.Poll(`document.getElementById('court').complete && document.getElementById('court').naturalWidth`, &courtWidth, chromedp.WithPollingTimeout(10*time.Second)),
	)
	if courtWidth == 0 {
		t.Error("Court diagram not loaded")
	}

	runStep(t, ctx, "Search",
		chromedp.ActionFunc(func(ctx context.Context) error { return e2ehelpers.Search(ctx, "away:lyon") }),
		e2ehelpers.WaitText(`#page-info`, "No matches", 5*time.Second),
		chromedp.ActionFunc(func(ctx context.Context) error { return e2ehelpers.Search(ctx, "mulhousé") }),
		e2ehelpers.WaitText(`#page-info`, "1-1 of 1", 5*time.Second),
	)

	runStep(t, ctx, "Delete",
		chromedp.WaitVisible(`#delete`, chromedp.ByID),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// Accept the confirmation dialog.
			chromedp.ListenTarget(ctx, func(ev any) {
				if _, ok := ev.(*page.EventJavascriptDialogOpening); ok {
					go chromedp.Run(ctx, page.HandleJavaScriptDialog(true))
				}
			})
			return nil
		}),
		chromedp.Click(`#delete`, chromedp.ByID),
		e2ehelpers.WaitText(`#page-info`, "No matches", 10*time.Second),
	)
}
