// Package config provides configuration management for the article search aggregator.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Blob store backend identifiers.
const (
	// BackendFile stores blobs as JSON files in a local directory.
	BackendFile = "file"
	// BackendPostgres stores blobs in a single JSONB table.
	BackendPostgres = "postgres"
)

// Config holds all configuration for the article search aggregator.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// BlobStore contains blob storage backend settings.
	BlobStore BlobStoreConfig `mapstructure:"blobstore"`
	// Crossref contains Crossref API client settings.
	Crossref CrossrefConfig `mapstructure:"crossref"`
	// Jufo contains JUFO ranking API client settings.
	Jufo JufoConfig `mapstructure:"jufo"`
	// Search contains pipeline tuning settings.
	Search SearchConfig `mapstructure:"search"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// ReadTimeout is the maximum duration for reading the request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the maximum duration to keep idle connections open.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// BlobStoreConfig holds blob storage settings. The backend decides which of
// the remaining fields apply.
type BlobStoreConfig struct {
	// Backend selects the storage implementation: "file" or "postgres".
	Backend string `mapstructure:"backend"`
	// FileRoot is the directory for the file backend.
	FileRoot string `mapstructure:"file_root"`
	// Database contains connection settings for the postgres backend.
	Database DatabaseConfig `mapstructure:"database"`
}

// DatabaseConfig holds PostgreSQL connection configuration for the
// postgres blob backend.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (use an environment variable in production).
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool.
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open.
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files.
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup.
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// CrossrefConfig holds Crossref API client settings.
type CrossrefConfig struct {
	// BaseURL is the Crossref API base URL.
	BaseURL string `mapstructure:"base_url"`
	// MailTo is the contact email for the Crossref polite pool.
	MailTo string `mapstructure:"mail_to"`
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the maximum burst of requests allowed.
	BurstSize int `mapstructure:"burst_size"`
}

// JufoConfig holds JUFO ranking API client settings.
type JufoConfig struct {
	// BaseURL is the JUFO REST API base URL.
	BaseURL string `mapstructure:"base_url"`
	// SearchTimeout is the per-request timeout for name/ISSN lookups.
	SearchTimeout time.Duration `mapstructure:"search_timeout"`
	// DetailTimeout is the per-request timeout for channel detail fetches.
	DetailTimeout time.Duration `mapstructure:"detail_timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the maximum burst of requests allowed.
	BurstSize int `mapstructure:"burst_size"`
}

// SearchConfig holds pipeline tuning settings.
type SearchConfig struct {
	// SearchTimeout is the soft deadline for one bibliographic page fetch.
	// A page that misses it yields an empty result, not an error.
	SearchTimeout time.Duration `mapstructure:"search_timeout"`
	// EnrichBatchSize is the number of articles ranked concurrently.
	EnrichBatchSize int `mapstructure:"enrich_batch_size"`
	// EnrichItemTimeout is the per-article deadline for a ranking lookup.
	EnrichItemTimeout time.Duration `mapstructure:"enrich_item_timeout"`
	// InitialPageSize is the page size for the first request of a search.
	InitialPageSize int `mapstructure:"initial_page_size"`
	// MorePageSize is the maximum page size for follow-up requests.
	MorePageSize int `mapstructure:"more_page_size"`
	// RequestBudget is the deadline for a whole search request; past it the
	// handler returns a partial response.
	RequestBudget time.Duration `mapstructure:"request_budget"`
	// CacheWriteQueue is the capacity of the background ranking-cache
	// write queue.
	CacheWriteQueue int `mapstructure:"cache_write_queue"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/scholarscout")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Blob store defaults
	v.SetDefault("blobstore.backend", BackendFile)
	v.SetDefault("blobstore.file_root", "local_storage")
	v.SetDefault("blobstore.database.host", "localhost")
	v.SetDefault("blobstore.database.port", 5432)
	v.SetDefault("blobstore.database.user", "scholarscout")
	v.SetDefault("blobstore.database.password", "")
	v.SetDefault("blobstore.database.name", "scholarscout")
	v.SetDefault("blobstore.database.ssl_mode", "require")
	v.SetDefault("blobstore.database.max_conns", 20)
	v.SetDefault("blobstore.database.min_conns", 2)
	v.SetDefault("blobstore.database.max_conn_lifetime", "1h")
	v.SetDefault("blobstore.database.max_conn_idle_time", "30m")
	v.SetDefault("blobstore.database.connect_timeout", "10s")
	v.SetDefault("blobstore.database.migration_path", "migrations")
	v.SetDefault("blobstore.database.migration_auto_run", false)

	// Crossref defaults
	v.SetDefault("crossref.base_url", "https://api.crossref.org")
	v.SetDefault("crossref.mail_to", "")
	v.SetDefault("crossref.timeout", "5s")
	v.SetDefault("crossref.rate_limit", 10.0)
	v.SetDefault("crossref.burst_size", 10)

	// JUFO defaults
	v.SetDefault("jufo.base_url", "https://jufo-rest.csc.fi/v1.1")
	v.SetDefault("jufo.search_timeout", "3s")
	v.SetDefault("jufo.detail_timeout", "2s")
	v.SetDefault("jufo.rate_limit", 5.0)
	v.SetDefault("jufo.burst_size", 5)

	// Search pipeline defaults
	v.SetDefault("search.search_timeout", "6s")
	v.SetDefault("search.enrich_batch_size", 5)
	v.SetDefault("search.enrich_item_timeout", "3s")
	v.SetDefault("search.initial_page_size", 10)
	v.SetDefault("search.more_page_size", 10)
	v.SetDefault("search.request_budget", "8s")
	v.SetDefault("search.cache_write_queue", 256)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}

	switch c.BlobStore.Backend {
	case BackendFile:
		if c.BlobStore.FileRoot == "" {
			return fmt.Errorf("blobstore file_root is required for the file backend")
		}
	case BackendPostgres:
		if c.BlobStore.Database.Host == "" {
			return fmt.Errorf("blobstore database host is required")
		}
		if c.BlobStore.Database.Port <= 0 || c.BlobStore.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.BlobStore.Database.Port)
		}
		if c.BlobStore.Database.Name == "" {
			return fmt.Errorf("blobstore database name is required")
		}
		if c.BlobStore.Database.MaxConns < c.BlobStore.Database.MinConns {
			return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)",
				c.BlobStore.Database.MaxConns, c.BlobStore.Database.MinConns)
		}
	default:
		return fmt.Errorf("unknown blobstore backend: %q", c.BlobStore.Backend)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Crossref.BaseURL == "" {
		return fmt.Errorf("crossref base_url is required")
	}
	if c.Jufo.BaseURL == "" {
		return fmt.Errorf("jufo base_url is required")
	}

	if c.Search.EnrichBatchSize <= 0 {
		return fmt.Errorf("search enrich_batch_size must be positive")
	}
	if c.Search.InitialPageSize <= 0 || c.Search.MorePageSize <= 0 {
		return fmt.Errorf("search page sizes must be positive")
	}
	if c.Search.CacheWriteQueue <= 0 {
		return fmt.Errorf("search cache_write_queue must be positive")
	}

	return nil
}
