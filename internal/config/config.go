// Package config provides centralized configuration management for the application.
// It loads configuration from tag defaults, an optional YAML file and
// environment variables (in that order of precedence, lowest first), and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Upload    UploadConfig    `yaml:"upload"`
	Session   SessionConfig   `yaml:"session"`
	Rate      RateLimitConfig `yaml:"rate_limit"`
	Security  SecurityConfig  `yaml:"security"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" yaml:"host" default:"127.0.0.1"`

	// Port is the port to listen on (default: 5173)
	Port int `env:"SERVER_PORT" yaml:"port" default:"5173"`

	// ReadTimeout is the maximum duration for reading a request including the body (default: 60s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" yaml:"read_timeout" default:"60s"`

	// WriteTimeout is the maximum duration for writing a response (default: 0, none;
	// extraction has no timeout of its own)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" yaml:"write_timeout" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" yaml:"idle_timeout" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" default:"30s"`
}

// ExtractorConfig holds settings for the remote extraction service.
type ExtractorConfig struct {
	// URL is the extraction endpoint (default: http://127.0.0.1:8000/extract)
	URL string `env:"EXTRACTOR_URL" envAlt:"PII_API_URL" yaml:"url" default:"http://127.0.0.1:8000/extract"`

	// FieldName is the multipart field every file is sent under (default: files)
	FieldName string `env:"EXTRACTOR_FIELD" yaml:"field" default:"files"`

	// Timeout bounds one extraction call; 0 means no timeout (default: 0s)
	Timeout time.Duration `env:"EXTRACTOR_TIMEOUT" yaml:"timeout" default:"0s"`

	// MaxConcurrent is the process-wide limit on in-flight extraction calls (default: 4)
	MaxConcurrent int `env:"EXTRACTOR_MAX_CONCURRENT" yaml:"max_concurrent" default:"4"`

	// MaxWaitTime is how long a call waits for a free slot (default: 30s)
	MaxWaitTime time.Duration `env:"EXTRACTOR_MAX_WAIT_TIME" yaml:"max_wait_time" default:"30s"`
}

// UploadConfig holds file selection limits.
type UploadConfig struct {
	// MaxFileSize is the maximum size of one add-files request in bytes (default: 50MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" yaml:"max_file_size" default:"52428800"`

	// MaxSelectionSize is the maximum combined size of a selection in bytes (default: 200MB)
	MaxSelectionSize int64 `env:"UPLOAD_MAX_SELECTION_SIZE" yaml:"max_selection_size" default:"209715200"`
}

// SessionConfig holds in-memory view session settings.
type SessionConfig struct {
	// CookieName is the name of the session cookie (default: pii_session)
	CookieName string `env:"SESSION_COOKIE_NAME" yaml:"cookie_name" default:"pii_session"`

	// IdleTimeout is how long an unused session is kept (default: 30m)
	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" yaml:"idle_timeout" default:"30m"`

	// MaxSessions caps the number of live sessions (default: 100)
	MaxSessions int `env:"SESSION_MAX" yaml:"max_sessions" default:"100"`

	// SweepInterval is how often expired sessions are removed (default: 1m)
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" yaml:"sweep_interval" default:"1m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" yaml:"enabled" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" yaml:"requests_per_minute" default:"120"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES" yaml:"trusted_proxies"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" yaml:"enable_csp" default:"true"`

	// SecureCookies marks the session cookie Secure (default: false, local http)
	SecureCookies bool `env:"SECURITY_SECURE_COOKIES" yaml:"secure_cookies" default:"false"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" yaml:"level" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" yaml:"format" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
