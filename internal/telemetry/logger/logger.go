package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the logging interface used throughout Keyforge. Both
// binaries log through it; the server configures a JSON instance at
// startup and installs it with SetDefault.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level to emit: debug, info, warn or error.
	Level string
	// Format selects the encoding: json (default) or text.
	Format string
	// Output is the destination writer. Defaults to os.Stderr.
	Output io.Writer
	// AddSource stamps entries with the calling file and line.
	AddSource bool
}

// DefaultConfig returns the configuration used before the server has
// parsed its own: info-level JSON on stderr.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Output: os.Stderr}
}

// New builds a Logger from cfg. All attribute values pass through the
// redaction filter, so secrets handed to a log call never reach the
// output unmasked.
func New(cfg Config) (Logger, error) {
	minLevel.Set(levelFromString(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     minLevel,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	var h slog.Handler
	if f := strings.ToLower(cfg.Format); f == "text" || f == "console" {
		h = slog.NewTextHandler(out, opts)
	} else {
		h = slog.NewJSONHandler(out, opts)
	}

	return &entryLogger{slog: slog.New(h), ctx: context.Background()}, nil
}

// minLevel is shared by every handler built with New so a later call
// (config reload) retunes loggers already handed out.
var minLevel = new(slog.LevelVar)

// SetLevel retunes the shared minimum level. The server calls this when
// the config file changes on disk.
func SetLevel(level string) {
	minLevel.Set(levelFromString(level))
}

func levelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
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

// entryLogger adapts slog.Logger to the Logger interface, carrying the
// context handed to WithContext into every emit.
type entryLogger struct {
	slog *slog.Logger
	ctx  context.Context
}

func (l *entryLogger) Debug(msg string, args ...any) { l.slog.DebugContext(l.ctx, msg, args...) }
func (l *entryLogger) Info(msg string, args ...any)  { l.slog.InfoContext(l.ctx, msg, args...) }
func (l *entryLogger) Warn(msg string, args ...any)  { l.slog.WarnContext(l.ctx, msg, args...) }
func (l *entryLogger) Error(msg string, args ...any) { l.slog.ErrorContext(l.ctx, msg, args...) }

func (l *entryLogger) With(args ...any) Logger {
	return &entryLogger{slog: l.slog.With(args...), ctx: l.ctx}
}

func (l *entryLogger) WithContext(ctx context.Context) Logger {
	return &entryLogger{slog: l.slog, ctx: ctx}
}

var defaultLogger atomic.Pointer[entryLogger]

func init() {
	l, _ := New(DefaultConfig())
	defaultLogger.Store(l.(*entryLogger))
}

// SetDefault installs l as the process-wide logger returned by Default.
// Loggers not built by New are ignored.
func SetDefault(l Logger) {
	if el, ok := l.(*entryLogger); ok {
		defaultLogger.Store(el)
	}
}

// Default returns the process-wide logger.
func Default() Logger {
	return defaultLogger.Load()
}
