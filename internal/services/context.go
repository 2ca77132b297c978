package services

import "context"

type contextKey string

const (
	jobIDKey   contextKey = "job_id"
	stageKey   contextKey = "stage"
	segmentKey contextKey = "segment"
)

// WithJobID annotates context with the compression job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	return withString(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, jobIDKey)
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, stageKey)
}

// WithSegment annotates context with the segment label (A or B).
func WithSegment(ctx context.Context, segment string) context.Context {
	return withString(ctx, segmentKey, segment)
}

func SegmentFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, segmentKey)
}

// Empty values leave ctx untouched so an outer annotation survives.
func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}
