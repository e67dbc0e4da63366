// Package logging configures the process-wide zerolog logger and hands out
// component loggers.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Component names used across the module.
const (
	ComponentCache      = "cache"
	ComponentRateLimit  = "ratelimit"
	ComponentRetry      = "retry"
	ComponentResolver   = "resolver"
	ComponentEnrichment = "enrichment"
	ComponentServer     = "server"
	ComponentScheduler  = "scheduler"
	ComponentBatch      = "batch"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer

	// Service, when set, is attached to every line as "service".
	Service string
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:   LevelInfo,
		Pretty:  false,
		Output:  os.Stderr,
		Service: "vocab-enricher",
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.DurationFieldUnit = time.Millisecond

	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger
	return logger
}

// ParseLevel validates a level name from configuration.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: per-lookup flow
//   - cache hit/miss/store (key, provider, ttl)
//   - provider skipped (not configured) or succeeded
//   - retry succeeded after backoff
//
// Info: lifecycle and bulk work
//   - batch start, progress and completion
//   - expired cache entries purged
//   - server and scheduler startup/shutdown
//
// Warn: degraded but recovered
//   - provider failed, response unusable, breaker state change
//   - retry attempts and exhaustion
//   - rate limit rejections
//   - cache read/write failures (absorbed)
//   - enrichment category failed
//
// Error: operator attention
//   - purge job failed
//   - server failures, configuration errors
//
// Context Fields:
//   - component: emitting package
//   - term: normalized term being enriched
//   - provider: provider name (also the rate limit key)
//   - category: definition, audio, translation, images
//   - key: cache or rate limit key
//   - attempt, backoff, error_class: retry flow
//   - retry_after: rate limit wait
//   - batch_id: one batch run
