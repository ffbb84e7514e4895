package services

import "context"

type contextKey string

const (
	entryIDKey   contextKey = "entry_id"
	stageKey     contextKey = "stage"
	basketIDKey  contextKey = "basket_id"
	requestIDKey contextKey = "request_id"
)

// WithEntryID annotates context with the queue entry identifier.
func WithEntryID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, entryIDKey, id)
}

// EntryIDFromContext extracts the queue entry identifier if present.
func EntryIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(entryIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(stageKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithBasketID annotates context with the basket identifier.
func WithBasketID(ctx context.Context, basketID string) context.Context {
	if basketID == "" {
		return ctx
	}
	return context.WithValue(ctx, basketIDKey, basketID)
}

// BasketIDFromContext returns the basket identifier if present.
func BasketIDFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(basketIDKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
