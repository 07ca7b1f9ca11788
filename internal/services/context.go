package services

import "context"

type contextKey int

const (
	jobIDKey contextKey = iota
	stageKey
	workspaceKey
)

// JobScope stamps the job id, stage and workspace of one stage job onto ctx.
// Empty values are skipped.
func JobScope(ctx context.Context, jobID, stage, workspace string) context.Context {
	return WithWorkspace(WithStage(WithJobID(ctx, jobID), stage), workspace)
}

func WithJobID(ctx context.Context, id string) context.Context {
	return withValue(ctx, jobIDKey, id)
}

func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

func WithWorkspace(ctx context.Context, path string) context.Context {
	return withValue(ctx, workspaceKey, path)
}

func JobIDFromContext(ctx context.Context) (string, bool) { return valueOf(ctx, jobIDKey) }

func StageFromContext(ctx context.Context) (string, bool) { return valueOf(ctx, stageKey) }

func WorkspaceFromContext(ctx context.Context) (string, bool) { return valueOf(ctx, workspaceKey) }

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func valueOf(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}
