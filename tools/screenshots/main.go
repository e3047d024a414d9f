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

// screenshots captures the dashboard views used in the documentation. It
// runs a mock-auth server whose imports always yield the sample match, so
// no real score sheet is needed.
package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/chromedp/chromedp"

	"github.com/ttbt-io/volleysheet/backend"
	"github.com/ttbt-io/volleysheet/sheet"
	"github.com/ttbt-io/volleysheet/sheet/sheettest"
	"github.com/ttbt-io/volleysheet/tools/e2ehelpers"
)

var (
	chromeURL = flag.String("chrome-url", "", "The url of the remote debugging port")
	outputDir = flag.String("output-dir", "/screenshots", "Directory to save screenshots")
	host      = flag.String("host", "devtest.local", "Host name the browser uses to reach this process")
)

const user = "coach@example.com"

func main() {
	flag.Parse()
	if *chromeURL == "" {
		log.Fatal("--chrome-url must be set")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}

	baseURL, stop := startServer()
	defer stop()
	log.Printf("Server started at %s", baseURL)

	ctx, cancel := chromedp.NewRemoteAllocator(context.Background(), *chromeURL)
	defer cancel()
	ctx, cancel = chromedp.NewContext(ctx, chromedp.WithLogf(log.Printf))
	defer cancel()
	ctx, cancel = context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.EmulateViewport(1280, 900)); err != nil {
		log.Fatalf("Viewport: %v", err)
	}
	if err := generateScreenshots(ctx, baseURL); err != nil {
		log.Fatalf("Failed to generate screenshots: %v", err)
	}
	log.Println("Screenshots generated successfully.")
}

func generateScreenshots(ctx context.Context, baseURL string) error {
	pdf := filepath.Join(os.TempDir(), "sample-sheet.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF-1.7 sample"), 0644); err != nil {
		return err
	}
	defer os.Remove(pdf)

	steps := []struct {
		name   string
		action chromedp.ActionFunc
		shot   string
	}{
		{"login", func(ctx context.Context) error { return e2ehelpers.LoginWithUser(ctx, baseURL, user) }, ""},
		{"import", func(ctx context.Context) error { return e2ehelpers.UploadSheet(ctx, pdf, true) }, "dashboard.png"},
		{"open", func(ctx context.Context) error { return e2ehelpers.OpenMatch(ctx, 1) }, "match.png"},
		{"away", func(ctx context.Context) error { return e2ehelpers.SelectRotationView(ctx, 2, "away") }, "rotations-away.png"},
	}
	for _, s := range steps {
		if err := runAction(ctx, s.name, chromedp.Tasks{e2ehelpers.DisableCSSAnimations(), s.action}, 30*time.Second); err != nil {
			return err
		}
		if s.shot == "" {
			continue
		}
		if err := e2ehelpers.CaptureScreenshot(ctx, filepath.Join(*outputDir, s.shot)); err != nil {
			return err
		}
	}
	return nil
}

func runAction(ctx context.Context, name string, action chromedp.Action, timeout time.Duration) error {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := chromedp.Run(stepCtx, action); err != nil {
		log.Printf("Action '%s' failed: %v", name, err)
		var html string
		if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html)); err == nil {
			log.Printf("DEBUG: HTML Dump for %s:\n%s", name, html)
		}
		e2ehelpers.CaptureScreenshot(ctx, filepath.Join(*outputDir, "debug-"+name+".png"))
		return err
	}
	return nil
}

func startServer() (string, func()) {
	cert, err := generateSelfSignedCert()
	if err != nil {
		log.Fatalf("Failed to generate cert: %v", err)
	}
	dataDir, err := os.MkdirTemp("", "screenshots")
	if err != nil {
		log.Fatalf("MkdirTemp: %v", err)
	}
	l, err := net.Listen("tcp", "0.0.0.0:0")
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	layout := sheet.DefaultLayout()
	server, err := backend.StartServer(backend.Options{
		Listener:    l,
		Cert:        cert,
		DataDir:     dataDir,
		Storage:     storage.New(dataDir, nil),
		Layout:      layout,
		UseMockAuth: true,
		Opener: func([]byte) (sheet.TableReader, error) {
			return sheettest.SampleReader(layout), nil
		},
	})
	if err != nil {
		log.Fatalf("StartServer: %v", err)
	}
	_, port, _ := net.SplitHostPort(l.Addr().String())
	return fmt.Sprintf("https://%s:%s", *host, port), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
		os.RemoveAll(dataDir)
	}
}

func generateSelfSignedCert() (*tls.Certificate, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{Organization: []string{"VolleySheet Test"}},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost", *host},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return nil, err
	}
	return &tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}, nil
}
