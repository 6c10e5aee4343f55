// Package logging builds the process-wide zap logger.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects level, encoding and optional rotated file output.
type Config struct {
	Level       string `mapstructure:"LOG_LEVEL"`    // debug|info|warn|error
	Format      string `mapstructure:"LOG_FORMAT"`   // json|console
	File        string `mapstructure:"LOG_FILE"`     // empty disables file output
	MaxSizeMB   int    `mapstructure:"LOG_MAX_SIZE_MB"`
	MaxBackups  int    `mapstructure:"LOG_MAX_BACKUPS"`
	MaxAgeDays  int    `mapstructure:"LOG_MAX_AGE_DAYS"`
	Development bool   `mapstructure:"LOG_DEVELOPMENT"`
}

const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 5
	defaultMaxAgeDays = 30
)

// New returns a logger writing to stderr and, when cfg.File is set, to a
// lumberjack-rotated file as JSON.
func New(cfg Config) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var consoleEnc zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		consoleEnc = zapcore.NewJSONEncoder(encCfg)
	case "console":
		consoleEnc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), level),
	}
	if cfg.File != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			FileWriter(cfg),
			level,
		))
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

// FileWriter wraps a lumberjack logger; zero rotation limits take defaults.
func FileWriter(cfg Config) zapcore.WriteSyncer {
	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	if lj.MaxSize <= 0 {
		lj.MaxSize = defaultMaxSizeMB
	}
	if lj.MaxBackups <= 0 {
		lj.MaxBackups = defaultMaxBackups
	}
	if lj.MaxAge <= 0 {
		lj.MaxAge = defaultMaxAgeDays
	}
	return zapcore.AddSync(lj)
}

// ParseLevel maps a level name to a zap level; "" means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return l, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}
