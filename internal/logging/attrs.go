package logging

import (
	"context"
	"log/slog"
	"time"
)

type Attr = slog.Attr

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

// Workspace tags a record with a workspace path.
func Workspace(path string) Attr { return slog.String(FieldWorkspace, path) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

func toArgs(attrs []Attr) []any {
	out := make([]any, len(attrs))
	for i, attr := range attrs {
		out[i] = attr
	}
	return out
}

func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger tags logger with a component name. A nil logger
// discards output.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

const defaultHint = "run mvspipe logs for details"

// Event is an operator-facing condition. Every warning and failure is logged
// through one so the record carries event_type, error_hint and, when known,
// impact.
type Event struct {
	Type   string
	Hint   string
	Impact string
}

func (e Event) args(attrs []Attr) []any {
	hint := e.Hint
	if hint == "" {
		hint = defaultHint
	}
	out := toArgs(attrs)
	out = append(out, String(FieldEventType, e.Type), String(FieldErrorHint, hint))
	if e.Impact != "" {
		out = append(out, String(FieldImpact, e.Impact))
	}
	return out
}

// Warn logs msg at warn level.
func (e Event) Warn(logger *slog.Logger, msg string, attrs ...Attr) {
	if logger != nil {
		logger.Warn(msg, e.args(attrs)...)
	}
}

// Error logs msg at error level.
func (e Event) Error(logger *slog.Logger, msg string, attrs ...Attr) {
	if logger != nil {
		logger.Error(msg, e.args(attrs)...)
	}
}

// NoopHandler discards all log output.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }

func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler { return NoopHandler{} }

func (NoopHandler) WithGroup(string) slog.Handler { return NoopHandler{} }
