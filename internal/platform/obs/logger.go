package obs

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger = zerolog.Nop()
)

// LogConfig selects level, format (json/console) and output stream.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json console"`
	Output string `mapstructure:"output" validate:"omitempty,oneof=stdout stderr"`
}

func DefaultLogConfig() LogConfig {
	return LogConfig{Level: "info", Format: "json", Output: "stdout"}
}

// InitLogger configures the process logger once; later calls are no-ops.
func InitLogger(cfg LogConfig) {
	once.Do(func() {
		zerolog.SetGlobalLevel(parseLevel(cfg.Level))

		var out io.Writer = os.Stdout
		if cfg.Output == "stderr" {
			out = os.Stderr
		}
		if cfg.Format == "console" {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		}

		logger = zerolog.New(out).With().Timestamp().Logger()
	})
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the process logger. Before InitLogger it discards output,
// which keeps tests quiet.
func Logger() *zerolog.Logger {
	return &logger
}

// Component returns a child logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// WithContext returns a logger carrying the request id stored in ctx.
func WithContext(ctx context.Context) *zerolog.Logger {
	l := logger.With().Logger()
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok && reqID != "" {
		l = l.With().Str("req_id", reqID).Logger()
	}
	return &l
}
