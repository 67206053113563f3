package catalog

import (
	"context"
	"errors"

	"darkroom/internal/services"
)

// Generic failure kinds used when an error carries no adapter classification.
const (
	KindValidation    = "validation"
	KindConfiguration = "configuration"
	KindNotFound      = "not_found"
	KindTimeout       = "timeout"
	KindExternalTool  = "external_tool"
	KindTransient     = "transient"
	KindCancelled     = "cancelled"
	KindInterrupted   = "interrupted"
)

// ErrorClassifier allows errors to declare their classification for failure
// records. Adapter error types implement this so the pipeline can map a
// failure to a retry decision and operators can read the kind off the record.
type ErrorClassifier interface {
	// ErrorKind returns a short snake_case classification of the error.
	ErrorKind() string
}

// FailureKind extracts the failure classification from an error chain.
//
// Typed adapter errors win; otherwise the services sentinel markers and
// context errors decide, and anything unrecognized counts as transient.
func FailureKind(err error) string {
	if err == nil {
		return KindTransient
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		if kind := classifier.ErrorKind(); kind != "" {
			return kind
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, services.ErrTimeout):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, services.ErrValidation):
		return KindValidation
	case errors.Is(err, services.ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, services.ErrNotFound):
		return KindNotFound
	case errors.Is(err, services.ErrExternalTool):
		return KindExternalTool
	default:
		return KindTransient
	}
}
