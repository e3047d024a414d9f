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
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/c2FmZQ/storage"

	"github.com/ttbt-io/volleysheet/frontend"
	"github.com/ttbt-io/volleysheet/pdfsheet"
	"github.com/ttbt-io/volleysheet/render"
	"github.com/ttbt-io/volleysheet/sheet"
	"github.com/ttbt-io/volleysheet/statsdb"
)

// StatsDisabled as Options.StatsDSN turns the statistics database off.
const StatsDisabled = "off"

func generateETag(data []byte) string {
	return fmt.Sprintf("\"%x\"", sha256.Sum256(data))
}

func parsePagination(r *http.Request) (int, int, string, string, string) {
	limit := 50
	offset := 0
	sortBy := r.URL.Query().Get("sortBy")
	order := r.URL.Query().Get("order")
	query := r.URL.Query().Get("q")

	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if val, err := strconv.Atoi(o); err == nil {
			offset = val
		}
	}

	if limit < 1 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	return limit, offset, sortBy, order, query
}

// writeJSON encodes v with an ETag. A matching If-None-Match gets a 304.
func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Internal Server Error during JSON Marshal: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if code == http.StatusOK {
		etag := generateETag(data)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
	w.Write([]byte("\n"))
}

// Options represent server options.
type Options struct {
	Addr     string
	Cert     *tls.Certificate
	DataDir  string
	Debug    bool
	Storage  *storage.Storage
	Listener net.Listener

	// Extraction Options
	Layout      *sheet.Layout // nil means sheet.DefaultLayout()
	Opener      Opener        // nil means OpenPDF
	CacheSize   int
	MaxUploadMB int

	// Statistics. Stats wins over StatsDSN; an empty StatsDSN opens
	// stats.db in DataDir.
	StatsDSN string
	Stats    *statsdb.DB

	// Auth Options
	UseMockAuth    bool
	AuthCookieName string
	AuthJWKSURL    string

	// Access Control Options
	BootstrapAdmin string
}

// Backend holds the components behind the HTTP handler.
type Backend struct {
	Store    *MatchStore
	Registry *Registry
	Access   *AccessControl
	Importer *Importer
	Hub      *Hub
	Metrics  *Metrics
	Cache    *ExtractCache
	Stats    *statsdb.DB
	Layout   *sheet.Layout

	ownsStats bool
}

// Close stops the background work and closes the statistics database when
// the backend opened it.
func (b *Backend) Close() error {
	b.Registry.StopGC()
	b.Hub.Close()
	if b.ownsStats && b.Stats != nil {
		return b.Stats.Close()
	}
	return nil
}

// Server represents the running server instance.
type Server struct {
	httpServer *http.Server
	backend    *Backend
}

// Backend returns the components of the server.
func (s *Server) Backend() *Backend {
	return s.backend
}

// Shutdown gracefully shuts down the HTTP server and the backend.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	if err := s.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("backend: %w", err))
	}
	return errors.Join(errs...)
}

// StartServer starts the web server and registers the API handlers.
func StartServer(opts Options) (*Server, error) {
	b, handler, err := NewServerHandler(opts)
	if err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if opts.Cert != nil {
		httpServer.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*opts.Cert},
		}
	}

	go func() {
		var err error
		switch {
		case opts.Listener != nil && opts.Cert != nil:
			log.Printf("Starting HTTPS server on provided listener %s...", opts.Listener.Addr())
			err = httpServer.ServeTLS(opts.Listener, "", "")
		case opts.Listener != nil:
			log.Printf("Starting HTTP server on provided listener %s...", opts.Listener.Addr())
			err = httpServer.Serve(opts.Listener)
		case opts.Cert != nil:
			log.Printf("Starting HTTPS server on %s...", opts.Addr)
			err = httpServer.ListenAndServeTLS("", "")
		default:
			log.Printf("Starting HTTP server on %s...", opts.Addr)
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, net.ErrClosed) && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return &Server{httpServer: httpServer, backend: b}, nil
}

// NewServerHandler creates the backend components and the HTTP handler
// serving them.
func NewServerHandler(opts Options) (*Backend, http.Handler, error) {
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}
	if opts.Storage == nil {
		opts.Storage = storage.New(opts.DataDir, nil)
	}
	if opts.Layout == nil {
		opts.Layout = sheet.DefaultLayout()
	}
	if err := opts.Layout.Validate(); err != nil {
		return nil, nil, fmt.Errorf("layout %q: %w", opts.Layout.Name, err)
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = DefaultMaxUploadMB
	}
	maxUpload := int64(opts.MaxUploadMB) << 20

	debugf := func(string, ...any) {}
	if opts.Debug {
		debugf = func(f string, a ...any) {
			log.Printf("[DEBUG BACKEND] "+f, a...)
		}
	}

	b := &Backend{
		Stats:  opts.Stats,
		Layout: opts.Layout,
	}
	if b.Stats == nil && opts.StatsDSN != StatsDisabled {
		db, err := statsdb.Open(context.Background(), opts.StatsDSN, opts.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("stats: %w", err)
		}
		b.Stats = db
		b.ownsStats = true
		log.Printf("Stats database ready (%s)", db.Dialect())
	}

	b.Store = NewMatchStore(opts.DataDir, opts.Storage)
	b.Store.Debug = opts.Debug
	b.Registry = NewRegistry(b.Store)
	b.Access = NewAccessControl(opts.Storage, opts.BootstrapAdmin)
	b.Hub = NewHub(b.Access.IsAdmin)
	b.Metrics = NewMetrics()
	b.Cache = NewExtractCache(opts.CacheSize)
	b.Importer = &Importer{
		Layout:   opts.Layout,
		Open:     opts.Opener,
		Store:    b.Store,
		Registry: b.Registry,
		Cache:    b.Cache,
		Stats:    b.Stats,
		Metrics:  b.Metrics,
		Hub:      b.Hub,
		Quota:    b.Access.CheckMatchQuota,
		debugf:   debugf,
	}

	store, registry, accessControl, importer := b.Store, b.Registry, b.Access, b.Importer

	// checkAllowed rejects signed in users that the policy denies.
	checkAllowed := func(w http.ResponseWriter, userId string) bool {
		if userId == "" {
			return true
		}
		if allowed, msg := accessControl.IsAllowed(userId); !allowed {
			http.Error(w, "Forbidden: "+msg, http.StatusForbidden)
			return false
		}
		return true
	}

	// loadMatch returns the match named by the path if the user has at
	// least access level need.
	loadMatch := func(w http.ResponseWriter, r *http.Request, need AccessLevel) (*MatchRecord, bool) {
		userId := getUserID(r)
		if !checkAllowed(w, userId) {
			return nil, false
		}
		id := r.PathValue("id")
		if !isValidUUID(id) {
			http.Error(w, "Bad Request: match id is missing or invalid", http.StatusBadRequest)
			return nil, false
		}
		if _, ok := registry.GetMetadata(id); !ok || registry.IsDeleted(id) {
			http.Error(w, "Not Found: Match not found", http.StatusNotFound)
			return nil, false
		}
		if registry.AccessLevel(userId, id, accessControl.IsAdmin(userId)) < need {
			http.Error(w, "Forbidden: You do not have access to this match", http.StatusForbidden)
			return nil, false
		}
		rec, err := store.LoadMatch(id)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				http.Error(w, "Not Found: Match not found", http.StatusNotFound)
			} else {
				log.Printf("Error loading match %s: %v", id, err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
			return nil, false
		}
		if rec.Status == StatusDeleted || rec.Match == nil {
			http.Error(w, "Not Found: Match not found", http.StatusNotFound)
			return nil, false
		}
		return rec, true
	}

	// setAndTeam reads the set and team query parameters.
	setAndTeam := func(w http.ResponseWriter, r *http.Request, m *sheet.Match) (*sheet.SetData, sheet.Team, bool) {
		set := 1
		if v := r.URL.Query().Get("set"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > sheet.MaxSets {
				http.Error(w, "Bad Request: set must be 1 to 5", http.StatusBadRequest)
				return nil, 0, false
			}
			set = n
		}
		team, err := sheet.ParseTeam(r.URL.Query().Get("team"))
		if err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return nil, 0, false
		}
		sd := m.Set(set)
		if sd == nil {
			http.Error(w, fmt.Sprintf("Not Found: set %d was not read", set), http.StatusNotFound)
			return nil, 0, false
		}
		return sd, team, true
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/matches", func(w http.ResponseWriter, r *http.Request) {
		userId := getUserID(r)
		if userId == "" || !isValidEmail(userId) {
			http.Error(w, "Forbidden: Sign in to import matches", http.StatusForbidden)
			return
		}
		if !checkAllowed(w, userId) {
			return
		}
		if err := accessControl.CheckMatchQuota(userId, registry.CountOwned(userId)); err != nil {
			http.Error(w, "Forbidden: "+err.Error(), http.StatusForbidden)
			return
		}

		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUpload))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, fmt.Sprintf("Request Entity Too Large: limit is %d MB", opts.MaxUploadMB), http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		if len(data) == 0 {
			http.Error(w, "Bad Request: empty body", http.StatusBadRequest)
			return
		}
		fileName := r.URL.Query().Get("name")
		if fileName == "" {
			fileName = r.Header.Get("X-File-Name")
		}
		public := r.URL.Query().Get("public") == "true"

		rec, err := importer.Import(r.Context(), userId, fileName, public, data)
		switch {
		case err == nil:
		case errors.Is(err, pdfsheet.ErrNotPDF):
			http.Error(w, "Unsupported Media Type: not a PDF document", http.StatusUnsupportedMediaType)
			return
		case errors.Is(err, ErrUnreadable):
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, ErrInvalidMatch):
			http.Error(w, "Unprocessable Entity: "+err.Error(), http.StatusUnprocessableEntity)
			return
		case errors.Is(err, ErrQuotaExceeded):
			http.Error(w, "Forbidden: "+err.Error(), http.StatusForbidden)
			return
		default:
			log.Printf("Error importing %q for %s: %v", fileName, maskEmail(userId), err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Location", "/api/matches/"+rec.ID)
		writeJSON(w, r, http.StatusCreated, rec)
	})

	mux.HandleFunc("GET /api/matches", func(w http.ResponseWriter, r *http.Request) {
		userId := getUserID(r)
		if !checkAllowed(w, userId) {
			return
		}
		limit, offset, sortBy, order, query := parsePagination(r)
		ids := registry.ListMatches(userId, accessControl.IsAdmin(userId), sortBy, order, query)
		total := len(ids)

		var pageIds []string
		if offset < total {
			pageIds = ids[offset:min(offset+limit, total)]
		}
		matches := make([]MatchMetadata, 0, len(pageIds))
		for _, id := range pageIds {
			if m, ok := registry.GetMetadata(id); ok {
				matches = append(matches, m)
			}
		}

		resp := struct {
			Data []MatchMetadata `json:"data"`
			Meta struct {
				Total  int `json:"total"`
				Offset int `json:"offset"`
				Limit  int `json:"limit"`
			} `json:"meta"`
		}{Data: matches}
		resp.Meta.Total = total
		resp.Meta.Offset = offset
		resp.Meta.Limit = limit
		writeJSON(w, r, http.StatusOK, resp)
	})

	mux.HandleFunc("GET /api/matches/{id}", func(w http.ResponseWriter, r *http.Request) {
		rec, ok := loadMatch(w, r, AccessRead)
		if !ok {
			return
		}
		userId := getUserID(r)
		level := GetMatchAccess(userId, rec.Metadata(), accessControl.IsAdmin(userId))
		writeJSON(w, r, http.StatusOK, struct {
			*MatchRecord
			Access string `json:"access"`
		}{rec, level.String()})
	})

	mux.HandleFunc("DELETE /api/matches/{id}", func(w http.ResponseWriter, r *http.Request) {
		rec, ok := loadMatch(w, r, AccessAdmin)
		if !ok {
			return
		}
		if err := importer.Delete(r.Context(), rec.ID); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				http.Error(w, "Not Found: Match not found", http.StatusNotFound)
				return
			}
			log.Printf("Error deleting match %s: %v", rec.ID, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /api/matches/{id}/visibility", func(w http.ResponseWriter, r *http.Request) {
		rec, ok := loadMatch(w, r, AccessAdmin)
		if !ok {
			return
		}
		var body struct {
			Public *bool `json:"public"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&body); err != nil || body.Public == nil {
			http.Error(w, "Bad Request: expected {\"public\": true|false}", http.StatusBadRequest)
			return
		}
		updated, err := importer.SetVisibility(rec.ID, *body.Public)
		if err != nil {
			log.Printf("Error updating match %s: %v", rec.ID, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, r, http.StatusOK, updated.Metadata())
	})

	mux.HandleFunc("GET /api/matches/{id}/rotations", func(w http.ResponseWriter, r *http.Request) {
		rec, ok := loadMatch(w, r, AccessRead)
		if !ok {
			return
		}
		sd, team, ok := setAndTeam(w, r, rec.Match)
		if !ok {
			return
		}
		writeJSON(w, r, http.StatusOK, struct {
			Set      int                 `json:"set"`
			Team     sheet.Team          `json:"team"`
			TeamName string              `json:"teamName"`
			Lineup   sheet.Lineup        `json:"lineup"`
			Rows     []sheet.RotationRow `json:"rows"`
		}{
			Set:      sd.Set,
			Team:     team,
			TeamName: rec.Match.TeamName(team),
			Lineup:   rec.Match.Lineup(sd.Set, team),
			Rows:     sheet.RotationTable(sd.Grids[team], sd.Grids[team.Other()]),
		})
	})

	mux.HandleFunc("GET /api/matches/{id}/court.png", func(w http.ResponseWriter, r *http.Request) {
		rec, ok := loadMatch(w, r, AccessRead)
		if !ok {
			return
		}
		sd, team, ok := setAndTeam(w, r, rec.Match)
		if !ok {
			return
		}
		rotation := 1
		if v := r.URL.Query().Get("rotation"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > sheet.GridCols {
				http.Error(w, "Bad Request: rotation must be 1 to 6", http.StatusBadRequest)
				return
			}
			rotation = n
		}
		serving, _ := strconv.ParseBool(r.URL.Query().Get("serving"))

		courtOpts := render.CourtOptions{
			Title:   fmt.Sprintf("%s - Set %d - Rotation %d", rec.Match.TeamName(team), sd.Set, rotation),
			Lineup:  sheet.Rotate(rec.Match.Lineup(sd.Set, team), rotation-1),
			Serving: serving,
		}
		if rows := sheet.RotationTable(sd.Grids[team], sd.Grids[team.Other()]); rotation <= len(rows) {
			courtOpts.Stats = &rows[rotation-1]
		}
		var buf bytes.Buffer
		if err := render.Court(&buf, courtOpts); err != nil {
			log.Printf("Error rendering court for %s: %v", rec.ID, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		etag := generateETag(buf.Bytes())
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	})

	mux.HandleFunc("GET /api/matches/{id}/analysis", func(w http.ResponseWriter, r *http.Request) {
		rec, ok := loadMatch(w, r, AccessRead)
		if !ok {
			return
		}
		writeJSON(w, r, http.StatusOK, sheet.Analyze(rec.Match))
	})

	statsHandler := func(needTeam bool, query func(ctx context.Context, team string) (any, error)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			userId := getUserID(r)
			if userId == "" || !isValidEmail(userId) {
				http.Error(w, "Forbidden: Invalid User ID", http.StatusForbidden)
				return
			}
			if !checkAllowed(w, userId) {
				return
			}
			if b.Stats == nil {
				http.Error(w, "Service Unavailable: statistics are disabled", http.StatusServiceUnavailable)
				return
			}
			team := strings.TrimSpace(r.URL.Query().Get("team"))
			if needTeam && team == "" {
				http.Error(w, "Bad Request: team is required", http.StatusBadRequest)
				return
			}
			v, err := query(r.Context(), team)
			if err != nil {
				log.Printf("Stats query error: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			writeJSON(w, r, http.StatusOK, v)
		}
	}
	mux.HandleFunc("GET /api/players", statsHandler(false, func(ctx context.Context, team string) (any, error) {
		return b.Stats.PlayerTotals(ctx, team)
	}))
	mux.HandleFunc("GET /api/rotations", statsHandler(true, func(ctx context.Context, team string) (any, error) {
		return b.Stats.RotationTotals(ctx, team)
	}))

	mux.HandleFunc("GET /api/layout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, opts.Layout)
	})

	mux.HandleFunc("GET /api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]any{
			"version":       AppVersion,
			"schemaVersion": CurrentSchemaVersion,
			"layout":        opts.Layout.Name,
		})
	})

	mux.HandleFunc("GET /api/metrics", func(w http.ResponseWriter, r *http.Request) {
		if !accessControl.IsAdmin(getUserID(r)) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if res := r.URL.Query().Get("latency"); res != "" {
			points := b.Metrics.LatencySeries(res)
			if points == nil {
				http.Error(w, "Bad Request: unknown resolution", http.StatusBadRequest)
				return
			}
			writeJSON(w, r, http.StatusOK, points)
			return
		}
		snap := b.Metrics.Snapshot()
		snap.Cache = b.Cache.Stats()
		snap.Matches = registry.Count()
		writeJSON(w, r, http.StatusOK, snap)
	})

	// User Status & Quota Endpoint
	mux.HandleFunc("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		userId := getUserID(r)
		if userId == "" || !isValidEmail(userId) {
			http.Error(w, "Unauthenticated", http.StatusForbidden)
			return
		}
		allowed, msg := accessControl.IsAllowed(userId)
		writeJSON(w, r, http.StatusOK, map[string]any{
			"id":      userId,
			"allowed": allowed,
			"message": msg,
			"admin":   accessControl.IsAdmin(userId),
			"quotas": map[string]int{
				"maxMatches":  accessControl.MatchQuota(userId),
				"matchesUsed": registry.CountOwned(userId),
			},
		})
	})

	mux.HandleFunc("/api/admin/policy", func(w http.ResponseWriter, r *http.Request) {
		if !accessControl.IsAdmin(getUserID(r)) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, r, http.StatusOK, accessControl.Policy())
		case http.MethodPost:
			var p AccessPolicy
			if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1048576)).Decode(&p); err != nil {
				http.Error(w, "Bad Request", http.StatusBadRequest)
				return
			}
			if err := accessControl.SetPolicy(p); err != nil {
				http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("POST /api/admin/stats/rebuild", func(w http.ResponseWriter, r *http.Request) {
		if !accessControl.IsAdmin(getUserID(r)) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if b.Stats == nil {
			http.Error(w, "Service Unavailable: statistics are disabled", http.StatusServiceUnavailable)
			return
		}
		n, err := importer.RebuildStats(r.Context())
		if err != nil {
			log.Printf("Stats rebuild error after %d matches: %v", n, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]int{"matches": n})
	})

	mux.HandleFunc("GET /api/ws", func(w http.ResponseWriter, r *http.Request) {
		if !checkAllowed(w, getUserID(r)) {
			return
		}
		ServeWS(b.Hub, w, r, debugf)
	})

	// Mock login endpoints for local development
	if opts.UseMockAuth {
		mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
			user := r.URL.Query().Get("user")
			if user == "" {
				user = "test@example.com"
			}
			if !isValidEmail(user) {
				http.Error(w, "Bad Request: invalid user", http.StatusBadRequest)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:  mockAuthCookie,
				Value: normalizeEmail(user),
				Path:  "/",
			})
			http.Redirect(w, r, "/", http.StatusSeeOther)
		})
		mux.HandleFunc("/api/logout", func(w http.ResponseWriter, r *http.Request) {
			http.SetCookie(w, &http.Cookie{
				Name:    mockAuthCookie,
				Value:   "",
				Path:    "/",
				Expires: time.Unix(0, 0),
				MaxAge:  -1,
			})
			http.Redirect(w, r, "/", http.StatusSeeOther)
		})
	}

	// Serve embedded frontend
	contentStatic, err := fs.Sub(frontend.FS, ".")
	if err != nil {
		b.Close()
		return nil, nil, err
	}
	mux.Handle("/", contentTypeMiddleware(http.FileServerFS(contentStatic)))

	handler := http.Handler(mux)
	if opts.UseMockAuth {
		handler = mockAuthMiddleware(handler)
	} else {
		handler = jwtAuthMiddleware(opts, handler)
	}
	handler = loggingMiddleware(handler, debugf)
	handler = securityMiddleware(handler)
	handler = cacheControlMiddleware(handler)

	return b, handler, nil
}

// cacheControlMiddleware keeps API answers out of shared caches.
func cacheControlMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Cache-Control", "private, no-cache, no-transform")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=300, proxy-revalidate, no-transform")
		}
		next.ServeHTTP(w, r)
	})
}

// securityMiddleware adds HTTP security headers to responses.
func securityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: blob:")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// contentTypeMiddleware ensures that files are served with the correct MIME type.
func contentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch filepath.Ext(r.URL.Path) {
		case ".js", ".mjs":
			w.Header().Set("Content-Type", "application/javascript")
		case ".css":
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
		case ".html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		case ".png":
			w.Header().Set("Content-Type", "image/png")
		case ".json":
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs the method and URL path of every incoming HTTP
// request in debug mode.
func loggingMiddleware(next http.Handler, debugf func(string, ...any)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		debugf("Received request: %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
