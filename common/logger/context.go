package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Handlers set the user once and every store, engine and LLM call below inherits it.
type LogFields struct {
	UserID       *string // Forest user the request acts for
	TaskID       *string // Task being generated or completed
	ReflectionID *string // Reflection being processed
	SnapshotID   *int64  // Memory snapshot row
	MessageID    *string // Redis stream message ID
	JobType      *string // Queue job type (e.g., "hta_rebalance")
	Component    string  // Component name, e.g. "forest.brain.orchestrator"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.UserID != nil {
		result.UserID = new.UserID
	}
	if new.TaskID != nil {
		result.TaskID = new.TaskID
	}
	if new.ReflectionID != nil {
		result.ReflectionID = new.ReflectionID
	}
	if new.SnapshotID != nil {
		result.SnapshotID = new.SnapshotID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.JobType != nil {
		result.JobType = new.JobType
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
