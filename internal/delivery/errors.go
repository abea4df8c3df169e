package delivery

import (
	"errors"
	"net/http"

	"mediafetch/internal/services"
)

// Kind classifies why an artifact cannot be served.
type Kind string

const (
	KindInvalidRequest   Kind = "invalid_request"
	KindNotFound         Kind = "not_found"
	KindProcessingFailed Kind = "processing_failed"
	KindNotReady         Kind = "not_ready"
	KindFileMissing      Kind = "file_missing"
)

// Error is returned by Prepare.
type Error struct {
	Kind    Kind
	Message string
	// JobError carries the job's own failure summary for KindProcessingFailed.
	JobError string
}

func (e *Error) Error() string {
	if e.JobError != "" {
		return e.Message + ": " + e.JobError
	}
	return e.Message
}

// StatusCode maps the failure to an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindInvalidRequest, KindNotReady:
		return http.StatusBadRequest
	case KindNotFound, KindFileMissing:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindInvalidRequest, KindNotReady:
		return services.ErrValidation
	case KindNotFound, KindFileMissing:
		return services.ErrNotFound
	default:
		return services.ErrExternalTool
	}
}

// IsKind reports whether err is a delivery *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var derr *Error
	return errors.As(err, &derr) && derr.Kind == kind
}
