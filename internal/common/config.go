package common

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/medreports/internal/logging"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	OCR      OCRConfig
	Storage  StorageConfig
	Ingest   IngestConfig
	Log      logging.Config

	// RangesFile optionally overrides or extends the default reference ranges.
	RangesFile string `mapstructure:"RANGES_FILE"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `mapstructure:"DB_DRIVER"` // postgres|sqlite
	DSN              string        `mapstructure:"DB_URL"`
	MaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	MinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	MaxConnLifetime  time.Duration `mapstructure:"DB_MAX_CONN_LIFETIME"`
	MaxConnIdleTime  time.Duration `mapstructure:"DB_MAX_CONN_IDLE_TIME"`
	DialTimeout      time.Duration `mapstructure:"DB_DIAL_TIMEOUT"`
	StatementTimeout time.Duration `mapstructure:"DB_STATEMENT_TIMEOUT"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Env      string `mapstructure:"ENV"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
}

type AuthConfig struct {
	Mode       string `mapstructure:"AUTH_MODE"` // development|jwt
	SigningKey string `mapstructure:"AUTH_SIGNING_KEY"`
	Issuer     string `mapstructure:"AUTH_ISSUER"`
	Audience   string `mapstructure:"AUTH_AUDIENCE"`
	DevOwner   string `mapstructure:"AUTH_DEV_OWNER"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Pdftoppm    string `mapstructure:"OCR_PDFTOPPM"`
	Tesseract   string `mapstructure:"OCR_TESSERACT"`
	Language    string `mapstructure:"OCR_LANG"`
	TessdataDir string `mapstructure:"TESSDATA_PREFIX"`
	DPI         int    `mapstructure:"OCR_DPI"`
	MaxPages    int    `mapstructure:"OCR_MAX_PAGES"`
	Threshold   int    `mapstructure:"OCR_THRESHOLD"`
	TempDir     string `mapstructure:"OCR_TEMP_DIR"`
	Confidence  bool   `mapstructure:"OCR_TSV_CONFIDENCE"`
}

type StorageConfig struct {
	UploadDir   string `mapstructure:"UPLOAD_DIR"`
	KeepReports int    `mapstructure:"KEEP_REPORTS"`
}

type IngestConfig struct {
	InboxDir       string        `mapstructure:"INGEST_INBOX_DIR"`
	Owner          string        `mapstructure:"INGEST_OWNER"`
	Debounce       time.Duration `mapstructure:"INGEST_DEBOUNCE"`
	Workers        int           `mapstructure:"INGEST_WORKERS"`
	QueueSize      int           `mapstructure:"INGEST_QUEUE_SIZE"`
	ProcessTimeout time.Duration `mapstructure:"INGEST_PROCESS_TIMEOUT"`
}

var defaults = map[string]any{
	"DB_DRIVER":             "sqlite",
	"DB_URL":                "medreports.db",
	"DB_MAX_CONNS":          20,
	"DB_MIN_CONNS":          5,
	"DB_MAX_CONN_LIFETIME":  30 * time.Minute,
	"DB_MAX_CONN_IDLE_TIME": 5 * time.Minute,
	"DB_DIAL_TIMEOUT":       3 * time.Second,
	"DB_STATEMENT_TIMEOUT":  time.Duration(0),

	"ENV":       "development",
	"HTTP_ADDR": ":8000",
	"GRPC_ADDR": ":8080",

	"AUTH_MODE":      "",
	"AUTH_DEV_OWNER": "dev-user",

	"OCR_PDFTOPPM":       "pdftoppm",
	"OCR_TESSERACT":      "tesseract",
	"OCR_LANG":           "eng",
	"OCR_DPI":            300,
	"OCR_MAX_PAGES":      0,
	"OCR_THRESHOLD":      150,
	"OCR_TSV_CONFIDENCE": false,

	"UPLOAD_DIR":   "./uploads",
	"KEEP_REPORTS": 6,

	"INGEST_OWNER":           "dev-user",
	"INGEST_DEBOUNCE":        500 * time.Millisecond,
	"INGEST_WORKERS":         2,
	"INGEST_QUEUE_SIZE":      64,
	"INGEST_PROCESS_TIMEOUT": 2 * time.Minute,

	"LOG_LEVEL":  "info",
	"LOG_FORMAT": "json",
}

// envOnly keys have no default but still need binding for Unmarshal.
var envOnly = []string{
	"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"TESSDATA_PREFIX", "OCR_TEMP_DIR", "INGEST_INBOX_DIR", "RANGES_FILE",
	"LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS", "LOG_DEVELOPMENT",
}

// LoadConfig loads configuration from the environment after applying any .env
// files. Missing .env files are ignored; variables already set win.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
		_ = v.BindEnv(k)
	}
	for _, k := range envOnly {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	sections := []any{&cfg.Database, &cfg.Server, &cfg.Auth, &cfg.OCR, &cfg.Storage, &cfg.Ingest, &cfg.Log, cfg}
	for _, s := range sections {
		if err := v.Unmarshal(s); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Server.Env == "development"
}

// ResolvedAuthMode returns AUTH_MODE, or infers it from ENV when unset.
func (c *Config) ResolvedAuthMode() string {
	if c.Auth.Mode != "" {
		return c.Auth.Mode
	}
	if c.IsDev() {
		return "development"
	}
	return "jwt"
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver), ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" && c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR or GRPC_ADDR is required", ErrInvalidInput)
	}
	switch c.ResolvedAuthMode() {
	case "development":
		if !c.IsDev() {
			return NewAppError("CONFIG_ERROR", "AUTH_MODE=development is only allowed with ENV=development", ErrInvalidInput)
		}
	case "jwt":
		if len(c.Auth.SigningKey) < 32 {
			return NewAppError("CONFIG_ERROR", "AUTH_SIGNING_KEY must be at least 32 bytes", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("AUTH_MODE must be development or jwt, got %q", c.Auth.Mode), ErrInvalidInput)
	}
	if c.Storage.UploadDir == "" {
		return NewAppError("CONFIG_ERROR", "UPLOAD_DIR is required", ErrInvalidInput)
	}
	if c.Storage.KeepReports < 1 {
		return NewAppError("CONFIG_ERROR", "KEEP_REPORTS must be positive", ErrInvalidInput)
	}
	if c.OCR.Threshold < 0 || c.OCR.Threshold > 255 {
		return NewAppError("CONFIG_ERROR", "OCR_THRESHOLD must be within 0..255", ErrInvalidInput)
	}
	if c.Ingest.Workers < 1 || c.Ingest.QueueSize < 1 {
		return NewAppError("CONFIG_ERROR", "INGEST_WORKERS and INGEST_QUEUE_SIZE must be positive", ErrInvalidInput)
	}
	return nil
}
