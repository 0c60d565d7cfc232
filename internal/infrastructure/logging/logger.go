package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/luxbridge/internal/infrastructure/config"
)

// Logger is the bridge-wide structured logger. It embeds slog.Logger,
// so the usual Debug/Info/Warn/Error methods are available and satisfy
// the small consumer Logger interfaces the other packages declare.
//
// Thread Safety:
//   - Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the logging section of config.yaml.
//
// Every record carries service and version attributes so log lines
// from several bridges aggregating into one sink stay attributable.
// Format defaults to JSON; "text" is for watching a terminal during
// commissioning.
//
// Parameters:
//   - cfg: Logging configuration
//   - version: Build version stamped on every record
//
// Returns:
//   - *Logger: Ready to use
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "luxbridge"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// parseLevel maps a config string to a slog level. Unrecognised values
// fall back to info rather than failing startup.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying extra default attributes,
// typically a component name:
//
//	sacnLog := logger.With("component", "sacn")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the bootstrap logger used before config.yaml has been
// read: JSON to stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
