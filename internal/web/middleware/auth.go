package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/ledgerdesk/internal/config"
	"github.com/JonMunkholm/ledgerdesk/internal/core"
	"github.com/JonMunkholm/ledgerdesk/internal/listing"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "X-API-Key"

// role is what an API key is allowed to do.
type role int

const (
	roleNone role = iota
	roleReadOnly
	roleFull
)

// APIKeyAuth returns middleware that validates X-API-Key header against configured keys.
// If RequireAPIKey is false, all requests pass through.
// If RequireAPIKey is true but no keys are configured, all requests are rejected.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip validation if auth is disabled
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get(APIKeyHeader)
			if apiKey == "" {
				slog.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"missing API key","code":"AUTH_MISSING_KEY"}`, http.StatusUnauthorized)
				return
			}

			if keyRole(apiKey, cfg) == roleNone {
				slog.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"invalid API key","code":"AUTH_INVALID_KEY"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Permissions resolves what the caller may do and stores it in the request
// context together with an actor name for the audit trail. It runs after
// APIKeyAuth.
func Permissions(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	configured := listing.Permissions{
		CanCreate: cfg.CanCreate,
		CanEdit:   cfg.CanEdit,
		CanDelete: cfg.CanDelete,
		CanExport: cfg.CanExport,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			perms := configured
			actor := "anonymous"

			if apiKey := r.Header.Get(APIKeyHeader); apiKey != "" {
				switch keyRole(apiKey, cfg) {
				case roleFull:
					actor = "key:" + fingerprint(apiKey)
				case roleReadOnly:
					actor = "key:" + fingerprint(apiKey)
					perms = listing.Permissions{CanExport: configured.CanExport}
				case roleNone:
					if cfg.RequireAPIKey {
						perms = listing.Permissions{}
					}
				}
			}

			ctx := listing.WithPermissions(r.Context(), perms)
			ctx = core.ContextWithActor(ctx, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// keyRole returns the role of key. Read-only keys are checked first so a key
// listed in both sets is never granted writes.
func keyRole(key string, cfg *config.SecurityConfig) role {
	if isValidAPIKey(key, cfg.ReadOnlyKeys) {
		return roleReadOnly
	}
	if isValidAPIKey(key, cfg.APIKeys) {
		return roleFull
	}
	return roleNone
}

// isValidAPIKey checks if the provided key matches any configured key.
// Uses constant-time comparison and checks ALL keys to prevent timing attacks.
// The comparison time is constant regardless of which key matches (or none).
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}

// fingerprint identifies a key in logs without revealing it.
func fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:4])
}
