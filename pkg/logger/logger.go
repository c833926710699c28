// Package logger provides structured logging utilities.
package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a wrapper around zap.Logger.
type Logger struct {
	*zap.Logger
}

// Options controls how Build assembles a logger.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Console switches from JSON lines to colored human output.
	Console bool
	// Output defaults to stdout.
	Output io.Writer
}

// Build creates a logger from opts.
func Build(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var enc zapcore.Encoder
	if opts.Console {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	} else {
		enc = zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		})
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(out)), level)
	zl := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if opts.Console {
		zl = zl.WithOptions(zap.Development())
	}
	return &Logger{Logger: zl}, nil
}

// New creates a JSON logger at the given level.
func New(level string) (*Logger, error) {
	return Build(Options{Level: level})
}

// NewDevelopment creates a console logger at debug level.
func NewDevelopment() (*Logger, error) {
	return Build(Options{Level: "debug", Console: true})
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Named creates a child logger for a component.
func (l *Logger) Named(component string) *Logger {
	return &Logger{Logger: l.Logger.Named(component)}
}

// With creates a child logger with additional fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// WithChat creates a child logger tagged with a chat location.
func (l *Logger) WithChat(chatID int64, scope, project string) *Logger {
	fields := []zap.Field{
		zap.Int64("chat_id", chatID),
		zap.String("scope", scope),
	}
	if project != "" {
		fields = append(fields, zap.String("project", project))
	}
	return l.With(fields...)
}

// Sync flushes buffered entries. Terminals and pipes reject fsync, which
// is not worth reporting.
func (l *Logger) Sync() error {
	err := l.Logger.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}

// ParseLevel maps a LOG_LEVEL value to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// SetGlobal installs l as zap's global logger and routes the standard
// library log package through it.
func SetGlobal(l *Logger) (restore func()) {
	undoGlobals := zap.ReplaceGlobals(l.Logger)
	undoStdLog := zap.RedirectStdLog(l.Logger)
	return func() {
		undoStdLog()
		undoGlobals()
	}
}
