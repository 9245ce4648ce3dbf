// Package logger provides structured logging on top of zerolog.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logging surface handed to every component.
type Logger interface {
	Trace() *zerolog.Event
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	With() zerolog.Context
	WithComponent(component string) Logger
	WithField(key string, value interface{}) Logger
}

type Config struct {
	Level      string `json:"level"`
	Debug      bool   `json:"debug"`
	Output     string `json:"output"`
	TimeFormat string `json:"time_format"`
}

// DefaultConfig reads LOG_LEVEL, DEBUG, LOG_OUTPUT and LOG_TIME_FORMAT.
func DefaultConfig() *Config {
	return &Config{
		Level:      getEnvOrDefault("LOG_LEVEL", "info"),
		Debug:      getEnvBoolOrDefault("DEBUG", false),
		Output:     getEnvOrDefault("LOG_OUTPUT", "stderr"),
		TimeFormat: getEnvOrDefault("LOG_TIME_FORMAT", ""),
	}
}

type zlogger struct {
	zl zerolog.Logger
}

// New builds a Logger from cfg. A nil cfg means DefaultConfig.
func New(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var output io.Writer = os.Stderr
	if cfg.Output == "stdout" {
		output = os.Stdout
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if cfg.Level != "" {
		var err error

		level, err = zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	if cfg.Output == "console" {
		output = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	zl := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &zlogger{zl: zl}, nil
}

// NewTestLogger creates a no-op logger for testing that discards all output
func NewTestLogger() Logger {
	return &zlogger{zl: zerolog.New(io.Discard).Level(zerolog.Disabled)}
}

func (l *zlogger) Trace() *zerolog.Event { return l.zl.Trace() }
func (l *zlogger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *zlogger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *zlogger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *zlogger) Error() *zerolog.Event { return l.zl.Error() }
func (l *zlogger) With() zerolog.Context { return l.zl.With() }

func (l *zlogger) WithComponent(component string) Logger {
	return &zlogger{zl: l.zl.With().Str("component", component).Logger()}
}

func (l *zlogger) WithField(key string, value interface{}) Logger {
	return &zlogger{zl: l.zl.With().Interface(key, value).Logger()}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	value = strings.ToLower(value)

	return value == "true" || value == "1" || value == "yes" || value == "on"
}
