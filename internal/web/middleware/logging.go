// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/piipreview/internal/logging"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Logger writes one access-log entry per request and makes a request-scoped
// logger (request_id, method, path) available through logging.FromContext.
// Query strings are never logged.
//
// Entries are logged at error for 5xx, warn for 4xx and info otherwise.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		logger := logging.FromContext(r.Context()).With(
			"method", r.Method,
			"path", r.URL.Path,
		)
		r = r.WithContext(logging.WithLogger(r.Context(), logger))

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		logger.Log(r.Context(), accessLevel(status), "request",
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", ClientIP(r),
			"user_agent", r.UserAgent(),
		)
	})
}

func accessLevel(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
