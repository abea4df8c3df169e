package logging

import (
	"context"
	"log/slog"

	"mediafetch/internal/services"
)

// Standard structured logging keys.
const (
	FieldComponent     = "component"
	FieldJobID         = "job_id"
	FieldPhase         = "phase"
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type"
	FieldPath          = "path"
	FieldURL           = "url"
	// FieldErrorHint suggests the next step to an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags records that should stand out, such as job failures.
	FieldAlert = "alert"
)

// contextKeys pairs each context lookup with the key its value is logged under.
var contextKeys = []struct {
	key    string
	lookup func(context.Context) (string, bool)
}{
	{FieldJobID, services.JobIDFromContext},
	{FieldPhase, services.PhaseFromContext},
	{FieldCorrelationID, services.RequestIDFromContext},
}

// ContextFields extracts the job, phase and request identifiers carried by ctx.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	var fields []Attr
	for _, ck := range contextKeys {
		if value, ok := ck.lookup(ctx); ok {
			fields = append(fields, slog.String(ck.key, value))
		}
	}
	return fields
}

// WithContext returns logger annotated with ContextFields(ctx).
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(Args(fields...)...)
	}
	return logger
}
