package web

import (
	"context"
	"net/http"
)

type ctxKey int

const sessionKey ctxKey = iota

// withSession returns ctx carrying the request's view session.
func withSession(ctx context.Context, s *session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// sessionFrom returns the view session attached by the session middleware.
func sessionFrom(ctx context.Context) *session {
	s, _ := ctx.Value(sessionKey).(*session)
	return s
}

// sessionMiddleware attaches the caller's session to the request context,
// creating one (and its cookie) on first visit.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *session
		if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
			sess = s.sessions.Get(c.Value)
		}

		if sess == nil {
			created, err := s.sessions.Create()
			if err != nil {
				s.respondError(w, r, err, http.StatusServiceUnavailable)
				return
			}
			sess = created
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.Session.CookieName,
				Value:    sess.id,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.cfg.Security.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
	})
}
