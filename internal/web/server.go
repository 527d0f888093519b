// Package web provides the HTTP server and handlers for the PII preview UI.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/JonMunkholm/piipreview/internal/config"
	"github.com/JonMunkholm/piipreview/internal/extractor"
	"github.com/JonMunkholm/piipreview/internal/pii"
	webmw "github.com/JonMunkholm/piipreview/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed static
var staticFiles embed.FS

// errRateLimited is mapped to RATE001.
var errRateLimited = errors.New("rate limit exceeded")

// pageTimeout bounds every route except extraction.
const pageTimeout = 60 * time.Second

// Server is the HTTP server for the preview UI.
type Server struct {
	cfg       *config.Config
	extractor pii.Extractor
	limiter   *extractor.Limiter
	sessions  *SessionStore
	rate      *rateLimiter
	router    *chi.Mux
	server    *http.Server
}

// NewServer creates a Server that extracts through ext. limiter is only
// read for health reporting and shutdown draining and may be nil.
func NewServer(cfg *config.Config, ext pii.Extractor, limiter *extractor.Limiter) *Server {
	s := &Server{
		cfg:       cfg,
		extractor: ext,
		limiter:   limiter,
		router:    chi.NewRouter(),
	}
	s.sessions = NewSessionStore(cfg.Session.IdleTimeout, cfg.Session.MaxSessions, func() *pii.Coordinator {
		return pii.NewCoordinator(s.extractor, nil)
	})
	if cfg.Rate.Enabled {
		s.rate = newRateLimiter(cfg.Rate.RequestsPerMinute, time.Minute)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(webmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(webmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.rate != nil {
		s.router.Use(s.rateLimit)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.Get("/healthz", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		// Extraction runs until the service answers; no page timeout.
		r.Post("/extract", s.handleExtract)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(pageTimeout))

			r.Get("/", s.handleUpload)
			r.Post("/files", s.handleAddFiles)
			r.Post("/files/{index}/remove", s.handleRemoveFile)
			r.Get("/results", s.handleResults)
			r.Get("/results/export", s.handleExport)
		})
	})
}

// Start runs the session janitor and the rate limiter cleanup until ctx is
// done, and listens for HTTP requests on the configured address.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	go s.sessions.Run(ctx, s.cfg.Session.SweepInterval)
	if s.rate != nil {
		go s.rate.run(ctx)
	}

	slog.Info("starting server",
		"addr", s.server.Addr,
		"extractor", s.cfg.Extractor.URL,
	)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight extractions.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if s.limiter != nil {
		if derr := s.limiter.WaitForDrain(ctx); derr != nil && err == nil {
			err = derr
		}
	}
	return err
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			// Pages may hold extracted PII
			w.Header().Set("Cache-Control", "no-store")

			if enableCSP {
				// Inline scripts drive the busy label and the modal alert
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'")
			}

			w.Header().Set("Referrer-Policy", "no-referrer")

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimit rejects requests from clients over their per-window budget.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// RemoteAddr is already rewritten by TrustedRealIP
		if !s.rate.allow(webmw.ClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a fixed-window rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	now      func() time.Time
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
	}
}

// run removes stale visitor entries every window until ctx is done.
func (rl *rateLimiter) run(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastReset) > rl.window*2 {
			delete(rl.visitors, ip)
		}
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{
			tokens:    rl.rate - 1, // consume one token
			lastReset: now,
		}
		return true
	}

	// Reset tokens if window has passed
	if now.Sub(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = now
		return true
	}

	if v.tokens <= 0 {
		return false
	}

	v.tokens--
	return true
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
