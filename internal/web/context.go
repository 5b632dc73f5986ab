package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/ledgerdesk/internal/core"
	"github.com/JonMunkholm/ledgerdesk/internal/logging"
)

// WithRequestMetadata adds IP and User-Agent to context for audit logging.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr // already rewritten by TrustedRealIP
	ua := r.Header.Get("User-Agent")
	ctx = core.ContextWithIPAddress(ctx, ip)
	ctx = core.ContextWithUserAgent(ctx, ua)
	return ctx
}

// clientIP returns the request's address without the port.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// sessions resolves the browser session from its cookie, starting a new one
// when the cookie is missing or the session has expired, and stores the id
// in the request context.
func (s *Server) sessions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := s.cfg.Session.CookieName
		var id string
		if c, err := r.Cookie(name); err == nil {
			if _, err := s.service.Sessions().Get(c.Value); err == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = s.service.StartSession()
			http.SetCookie(w, &http.Cookie{
				Name:     name,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.cfg.Session.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
			logging.FromContext(r.Context()).Debug("session started", "session", id)
		}

		ctx := core.ContextWithSessionID(r.Context(), id)
		ctx = logging.ContextWithAttrs(ctx, "session", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionID returns the session resolved by the sessions middleware.
func sessionID(r *http.Request) string {
	return core.GetSessionIDFromContext(r.Context())
}
