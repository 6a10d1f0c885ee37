package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for queue job identifiers.
	FieldJobID = "job_id"
	// FieldJobName is the standardized structured logging key for job display names.
	FieldJobName = "job_name"
	// FieldDispatchID is the standardized structured logging key for dispatch correlation tokens.
	FieldDispatchID = "dispatch_id"
	// FieldEventType tags log lines with a machine-searchable event identifier.
	FieldEventType = "event_type"
	// FieldErrorHint suggests an operator next step on warnings and errors.
	FieldErrorHint = "error_hint"
)

type contextKey int

const (
	jobIDKey contextKey = iota
	dispatchIDKey
)

// WithJobID stamps a job identifier onto the context for downstream log enrichment.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDKey, jobID)
}

// JobIDFromContext extracts a job identifier previously stored via WithJobID.
func JobIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(jobIDKey).(string)
	return value, ok && value != ""
}

// WithDispatchID stamps a dispatch correlation token onto the context.
func WithDispatchID(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, dispatchIDKey, token)
}

// DispatchIDFromContext extracts a dispatch token previously stored via WithDispatchID.
func DispatchIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(dispatchIDKey).(string)
	return value, ok && value != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, id))
	}
	if token, ok := DispatchIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldDispatchID, token))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
