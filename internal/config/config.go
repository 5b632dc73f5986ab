// Package config provides centralized configuration management for the console.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Remote   RemoteConfig
	Cache    CacheConfig
	List     ListConfig
	Database DatabaseConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Session  SessionConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// RemoteConfig holds settings for the back-office API the console lists from.
type RemoteConfig struct {
	// BaseURL is the API root (default: http://127.0.0.1:8081)
	BaseURL string `env:"API_BASE_URL" envAlt:"REMOTE_BASE_URL" default:"http://127.0.0.1:8081"`

	// Token is sent as a bearer token when set
	Token string `env:"API_TOKEN"`

	// Timeout bounds one remote request (default: 15s)
	Timeout time.Duration `env:"API_TIMEOUT" default:"15s"`

	// MaxConcurrent is the maximum number of parallel remote fetches (default: 8)
	MaxConcurrent int `env:"API_MAX_CONCURRENT" default:"8"`

	// MaxWaitTime is how long a fetch waits for a free slot (default: 10s)
	MaxWaitTime time.Duration `env:"API_MAX_WAIT_TIME" default:"10s"`

	// CatalogPath points to a TOML or YAML collection catalog. Empty uses the
	// built-in catalog.
	CatalogPath string `env:"CATALOG_PATH"`
}

// CacheConfig holds query cache settings.
type CacheConfig struct {
	// IdleTTL drops entries nobody has read for this long (default: 30m)
	IdleTTL time.Duration `env:"CACHE_IDLE_TTL" default:"30m"`

	// SweepInterval is how often idle entries and sessions are collected (default: 1m)
	SweepInterval time.Duration `env:"CACHE_SWEEP_INTERVAL" default:"1m"`
}

// ListConfig holds list screen settings.
type ListConfig struct {
	// SearchDebounce is the quiet period before typed search is applied (default: 300ms)
	SearchDebounce time.Duration `env:"LIST_SEARCH_DEBOUNCE" default:"300ms"`

	// MaxPageSize caps the page size a user can pick (default: 100)
	MaxPageSize int `env:"LIST_MAX_PAGE_SIZE" default:"100"`
}

// DatabaseConfig holds the optional audit database settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Without it mutations are
	// audited to the log only.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether an audit database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey rejects requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys are keys with full permissions
	APIKeys []string `env:"API_KEYS"`

	// ReadOnlyKeys are keys that may list and export but not write
	ReadOnlyKeys []string `env:"READ_ONLY_API_KEYS"`

	// CanCreate, CanEdit, CanDelete and CanExport are the permissions of
	// full API keys and of every request when authentication is disabled.
	// Read-only keys get CanExport at most (default: true)
	CanCreate bool `env:"PERMIT_CREATE" default:"true"`
	CanEdit   bool `env:"PERMIT_EDIT" default:"true"`
	CanDelete bool `env:"PERMIT_DELETE" default:"true"`
	CanExport bool `env:"PERMIT_EXPORT" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	// IdleTimeout expires screen state nobody has touched for this long (default: 30m)
	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" default:"30m"`

	// CookieName is the session cookie (default: ledgerdesk_session)
	CookieName string `env:"SESSION_COOKIE" default:"ledgerdesk_session"`

	// CookieSecure marks the cookie Secure (default: false)
	CookieSecure bool `env:"SESSION_COOKIE_SECURE" default:"false"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
