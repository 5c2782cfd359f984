// Package config loads the relay configuration from environment variables,
// applies defaults and validates everything at startup.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	CRM        CRMConfig
	Boards     BoardsConfig
	Submission SubmissionConfig
	Capacity   CapacityConfig
	Audit      AuditConfig
	Prune      PruneConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"90s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxBodyBytes caps submission request bodies (default: 1MB)
	MaxBodyBytes int64 `env:"SERVER_MAX_BODY_BYTES" default:"1048576"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	URL             string        `env:"DATABASE_URL" envAlt:"DB_URL" required:"true" secret:"true"`
	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Migrate runs embedded migrations on startup (default: true)
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// CRMConfig holds remote board API settings.
type CRMConfig struct {
	URL     string        `env:"CRM_API_URL" default:"https://api.monday.com/v2"`
	FileURL string        `env:"CRM_FILE_URL" default:"https://api.monday.com/v2/file"`
	Token   string        `env:"CRM_API_TOKEN" envAlt:"MONDAY_TOKEN" secret:"true"`
	Timeout time.Duration `env:"CRM_TIMEOUT" default:"20s"`

	// Version is sent as the API-Version header when set
	Version string `env:"CRM_API_VERSION" default:"2024-10"`

	// DefaultBoard receives submissions of forms without a mapping
	DefaultBoard string `env:"CRM_DEFAULT_BOARD"`
	DefaultGroup string `env:"CRM_DEFAULT_GROUP"`

	// FileHosts limits where file URLs in submissions are fetched from.
	// Empty allows any host with a public address.
	FileHosts []string `env:"CRM_FILE_HOSTS"`
}

// BoardsConfig holds the board ids used by the form mappings.
type BoardsConfig struct {
	Campaigns     string `env:"BOARD_CAMPAIGNS"`
	CampaignGroup string `env:"BOARD_CAMPAIGNS_GROUP" default:"topics"`
	Sends         string `env:"BOARD_SENDS"`
	SendsGroup    string `env:"BOARD_SENDS_GROUP" default:"topics"`
	Leads         string `env:"BOARD_LEADS"`
	LeadsGroup    string `env:"BOARD_LEADS_GROUP" default:"topics"`
	Clients       string `env:"BOARD_CLIENTS"`
	Channels      string `env:"BOARD_CHANNELS"`
	Formats       string `env:"BOARD_FORMATS"`
	Objectives    string `env:"BOARD_OBJECTIVES"`
	Personas      string `env:"BOARD_PERSONAS"`
	Areas         string `env:"BOARD_AREAS"`
	Products      string `env:"BOARD_PRODUCTS"`
}

// SubmissionConfig bounds submission processing.
type SubmissionConfig struct {
	MaxConcurrent int           `env:"SUBMISSION_MAX_CONCURRENT" default:"8"`
	MaxWaitTime   time.Duration `env:"SUBMISSION_MAX_WAIT_TIME" default:"10s"`
	Timeout       time.Duration `env:"SUBMISSION_TIMEOUT" default:"60s"`
}

// CapacityConfig holds slot allocation settings.
type CapacityConfig struct {
	// DefaultTimeslots is used for channels without their own slot list
	DefaultTimeslots []string `env:"CAPACITY_DEFAULT_TIMESLOTS" default:"08:00,09:00,10:00,11:00,12:00,13:00,14:00,15:00,16:00,17:00,18:00"`

	// PairedSlots lists slots treated as adjacent, as from=to entries
	PairedSlots []string `env:"CAPACITY_PAIRED_SLOTS"`
}

// AuditConfig holds local audit dump settings.
type AuditConfig struct {
	// Debug enables JSON dumps of every processed submission
	Debug bool   `env:"AUDIT_DEBUG" envAlt:"DEBUG" default:"false"`
	Dir   string `env:"AUDIT_DIR" default:"./audit"`
}

// PruneConfig holds reservation pruning settings.
type PruneConfig struct {
	Enabled       bool          `env:"PRUNE_ENABLED" default:"true"`
	RetentionDays int           `env:"PRUNE_RETENTION_DAYS" default:"180"`
	BatchSize     int           `env:"PRUNE_BATCH_SIZE" default:"1000"`
	CheckInterval time.Duration `env:"PRUNE_CHECK_INTERVAL" default:"24h"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`
	SubmissionLimit   int  `env:"RATE_LIMIT_SUBMISSIONS" default:"30"`
}

// SecurityConfig holds admin authentication and proxy trust settings.
type SecurityConfig struct {
	// RequireAPIKey guards the admin routes with X-API-Key (default: true)
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"true"`
	APIKeys       []string `env:"API_KEYS" secret:"true"`

	// TrustedProxies lists CIDRs allowed to set X-Real-IP / X-Forwarded-For
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
