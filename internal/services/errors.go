package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for failure classification. Adapters wrap their errors
// with exactly one of these so the pipeline can decide between retry and
// permanent failure without knowing adapter internals.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap tags err with a sentinel marker and prefixes stage/operation context.
// A nil marker defaults to ErrTransient, the conservative classification.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}

	var detail strings.Builder
	for _, part := range []string{stage, operation, message} {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		if detail.Len() > 0 {
			detail.WriteString(": ")
		}
		detail.WriteString(part)
	}
	if detail.Len() == 0 {
		detail.WriteString("service failure")
	}

	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail.String(), err)
	}
	return fmt.Errorf("%w: %s", marker, detail.String())
}
