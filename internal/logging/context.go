package logging

import (
	"context"
	"log/slog"

	"mvspipe/internal/services"
)

// Structured field keys shared by every mvspipe component.
const (
	FieldComponent = "component"
	FieldJobID     = "job_id"
	FieldStage     = "stage"
	FieldWorkspace = "workspace"
	FieldEventType = "event_type"
	// FieldErrorHint is the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact is what is lost if the condition is ignored.
	FieldImpact = "impact"
)

// ContextFields returns the job id, stage and workspace stamped on ctx by
// the services helpers, in that order.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if ws, ok := services.WorkspaceFromContext(ctx); ok {
		fields = append(fields, Workspace(ws))
	}
	return fields
}

// WithContext binds the fields from ContextFields to logger. A nil logger
// discards output.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(toArgs(fields)...)
	}
	return logger
}
