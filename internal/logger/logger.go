package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

var log *slog.Logger

// Init sets up the global logger.
// env: "development" gives a debug-level text handler, "test" a warn-level
// text handler, anything else JSON at info level.
func Init(env string) {
	InitWithWriter(env, os.Stdout)
}

func InitWithWriter(env string, w io.Writer) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
	}

	switch strings.ToLower(env) {
	case "development", "dev", "":
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	case "test":
		opts.Level = slog.LevelWarn
		opts.AddSource = false
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	log = slog.New(handler)
	slog.SetDefault(log)
}

func GetLogger() *slog.Logger {
	if log == nil {
		Init("development")
	}
	return log
}

// ============================================
// Convenience wrappers
// ============================================

func Debug(msg string, args ...any) {
	logAt(context.Background(), GetLogger(), slog.LevelDebug, msg, args...)
}

func Info(msg string, args ...any) {
	logAt(context.Background(), GetLogger(), slog.LevelInfo, msg, args...)
}

func Warn(msg string, args ...any) {
	logAt(context.Background(), GetLogger(), slog.LevelWarn, msg, args...)
}

func Error(msg string, args ...any) {
	logAt(context.Background(), GetLogger(), slog.LevelError, msg, args...)
}

// logAt emits a record whose source is the caller of the exported wrapper,
// not the wrapper itself. Every wrapper must call it directly.
func logAt(ctx context.Context, l *slog.Logger, level slog.Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:]) // skip Callers, logAt and the wrapper
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.Handler().Handle(ctx, r)
}

// Fatal logs at error level and exits the process.
func Fatal(msg string, args ...any) {
	logAt(context.Background(), GetLogger(), slog.LevelError, msg, args...)
	os.Exit(1)
}

func With(args ...any) *slog.Logger {
	return GetLogger().With(args...)
}

func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}

// ============================================
// Specialised loggers
// ============================================

// EventLog records one fan-out publish and how many local sockets got it.
func EventLog(audience, eventType string, delivered int) {
	if delivered == 0 {
		logAt(context.Background(), GetLogger(), slog.LevelDebug, "realtime event dropped: empty audience",
			"audience", audience,
			"event", eventType,
		)
		return
	}
	logAt(context.Background(), GetLogger(), slog.LevelDebug, "realtime event published",
		"audience", audience,
		"event", eventType,
		"delivered", delivered,
	)
}

// TxLog records the outcome of a retried database transaction.
func TxLog(operation string, attempts int, err error) {
	fields := []any{
		"operation", operation,
		"attempts", attempts,
	}

	if err != nil {
		fields = append(fields, "error", err.Error())
		logAt(context.Background(), GetLogger(), slog.LevelError, "database transaction failed", fields...)
		return
	}
	if attempts > 1 {
		logAt(context.Background(), GetLogger(), slog.LevelWarn, "database transaction succeeded after retry", fields...)
	}
}
