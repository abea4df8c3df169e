package process

import (
	"context"
	"errors"
	"fmt"

	"mediafetch/internal/services"
)

// Kind classifies a phase failure.
type Kind string

const (
	KindSpawnFailed      Kind = "spawn_failed"
	KindProcessFailed    Kind = "process_failed"
	KindArtifactNotFound Kind = "artifact_not_found"
	KindCanceled         Kind = "canceled"
)

// Error describes why a subprocess phase did not yield an artifact.
type Error struct {
	Kind     Kind
	Binary   string
	ExitCode int
	// Detail is the summary suitable for the job record.
	Detail string
	// Stderr holds the bounded tail of the error stream for logging.
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KindSpawnFailed:
		return fmt.Sprintf("%s could not be started: %s", e.Binary, e.Detail)
	case KindArtifactNotFound:
		return fmt.Sprintf("%s finished but produced no media file", e.Binary)
	case KindCanceled:
		return fmt.Sprintf("%s %s", e.Binary, e.Detail)
	default:
		return fmt.Sprintf("%s failed: %s", e.Binary, e.Detail)
	}
}

// Unwrap exposes both the services marker for the kind and the cause.
func (e *Error) Unwrap() []error {
	errs := []error{e.marker()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *Error) marker() error {
	switch e.Kind {
	case KindArtifactNotFound:
		return services.ErrNotFound
	case KindCanceled:
		if errors.Is(e.Err, context.DeadlineExceeded) {
			return services.ErrTimeout
		}
		return services.ErrCanceled
	default:
		return services.ErrExternalTool
	}
}

// IsKind reports whether err is a process *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == kind
}
