package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-logr/logr"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/pokemnky/catalog-sync/internal/config"
)

// LogLevel resolves the log level. --debug wins, then CATALOG_SYNC_LOG_LEVEL, then
// LOG_LEVEL, then the configured level. Unknown values fall back to INFO.
func LogLevel(configured string) slog.Level {
	if viper.GetBool("debug") {
		return slog.LevelDebug
	}

	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	levelStr := v.GetString("LOG_LEVEL")
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}
	if levelStr == "" {
		levelStr = configured
	}

	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("Invalid LOG_LEVEL, using INFO", "value", levelStr)
		return slog.LevelInfo
	}
}

// traceHandler wraps an slog.Handler to automatically inject OpenTelemetry
// trace_id and span_id into every log record, enabling log-trace correlation.
type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}

// SetupLogging installs the default logger: JSON to w, plus JSON to file when set.
// The OpenTelemetry SDK logs through the same handler.
func SetupLogging(w io.Writer, level slog.Level, file io.Writer) {
	opts := &slog.HandlerOptions{Level: level}
	var base slog.Handler = slog.NewJSONHandler(w, opts)
	if file != nil {
		base = slogmulti.Fanout(base, slog.NewJSONHandler(file, opts))
	}

	handler := &traceHandler{Handler: base}
	slog.SetDefault(slog.New(handler))
	otel.SetLogger(logr.FromSlogHandler(handler))
}

// configureLogging applies the logging section of cfg. The returned function closes the
// log file, if one was opened.
func configureLogging(cfg *config.Config) (func(), error) {
	level := LogLevel(cfg.Logging.Level)
	if cfg.Logging.File == "" {
		SetupLogging(os.Stderr, level, nil)
		return func() {}, nil
	}

	file, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", cfg.Logging.File, err)
	}
	SetupLogging(os.Stderr, level, file)

	return func() {
		if err := file.Close(); err != nil {
			slog.Error("Failed to close log file", "error", err)
		}
	}, nil
}
