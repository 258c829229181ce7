// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Bulk     BulkConfig
	Lookup   LookupConfig
	Geocode  GeocodeConfig
	Cache    CacheConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
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

	// RequestTimeout is the middleware timeout for non-streaming requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
// Run history is only persisted when URL is set.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (optional)
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

	// HistoryRetention is how long run summaries are kept (default: 720h)
	HistoryRetention time.Duration `env:"HISTORY_RETENTION" default:"720h"`

	// HistoryPruneInterval is how often old summaries are deleted (default: 24h)
	HistoryPruneInterval time.Duration `env:"HISTORY_PRUNE_INTERVAL" default:"24h"`
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// BulkConfig holds bulk CSV processing settings.
type BulkConfig struct {
	// MaxFileSize is the maximum allowed upload size in bytes (default: 10MB)
	MaxFileSize int64 `env:"BULK_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of bulk runs processed at once (default: 3)
	MaxConcurrent int `env:"BULK_MAX_CONCURRENT" default:"3"`

	// MaxWaitTime is how long to wait for a run slot (default: 10s)
	MaxWaitTime time.Duration `env:"BULK_MAX_WAIT_TIME" default:"10s"`

	// RetryAttempts is the total number of lookup attempts per row (default: 3)
	RetryAttempts int `env:"BULK_RETRY_ATTEMPTS" default:"3"`

	// RetryDelay is the fixed pause between lookup attempts (default: 1s)
	RetryDelay time.Duration `env:"BULK_RETRY_DELAY" default:"1s"`

	// RunTimeout bounds a whole bulk run (default: 2h)
	RunTimeout time.Duration `env:"BULK_RUN_TIMEOUT" default:"2h"`

	// ResultRetention is how long finished runs stay downloadable (default: 1h)
	ResultRetention time.Duration `env:"BULK_RESULT_RETENTION" default:"1h"`

	// Encoding is the default input charset: utf-8, windows-1252 or windows-1251 (default: utf-8)
	Encoding string `env:"BULK_INPUT_ENCODING" default:"utf-8"`
}

// LookupConfig holds settings for the remote toll and fuel price API.
type LookupConfig struct {
	// TollURL is the toll endpoint
	TollURL string `env:"LOOKUP_TOLL_URL" default:"https://api.leptonmaps.com/v1/toll"`

	// FuelURL is the fuel price endpoint
	FuelURL string `env:"LOOKUP_FUEL_URL" default:"https://api.leptonmaps.com/v1/fuel/prices"`

	// APIKey is sent as x-api-key; when empty the built-in sample data is served
	APIKey string `env:"LEPTON_API_KEY" envAlt:"LOOKUP_API_KEY"`

	// Timeout is the per-request HTTP timeout (default: 10s)
	Timeout time.Duration `env:"LOOKUP_TIMEOUT" default:"10s"`

	// RequestsPerSecond limits outbound calls (default: 5)
	RequestsPerSecond float64 `env:"LOOKUP_REQUESTS_PER_SECOND" default:"5"`

	// Burst is the limiter burst size (default: 1)
	Burst int `env:"LOOKUP_BURST" default:"1"`
}

// GeocodeConfig holds settings for resolving free-text fuel locations.
type GeocodeConfig struct {
	// APIKey is the Google Maps key; geocoding is unavailable when empty
	APIKey string `env:"GOOGLE_MAPS_API_KEY"`

	// Region biases results (default: in)
	Region string `env:"GEOCODE_REGION" default:"in"`

	// Country restricts results to one country (default: IN)
	Country string `env:"GEOCODE_COUNTRY" default:"IN"`
}

// CacheConfig holds settings for the lookup cache.
type CacheConfig struct {
	// RedisAddr is host:port of the Redis server; empty disables caching
	RedisAddr string `env:"CACHE_REDIS_ADDR"`

	// TTL is how long lookup results are cached (default: 6h)
	TTL time.Duration `env:"CACHE_TTL" default:"6h"`
}

// RateLimitConfig holds inbound rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey gates the bulk routes behind X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
