package daemon

import "errors"

// Operation errors the control surface maps to precise client messages.
// Callers match them with errors.Is; each wrapped instance carries the
// record's actual status.
var (
	// ErrNotEditable rejects edits and reanalysis on records outside review.
	ErrNotEditable = errors.New("record is not editable")
	// ErrNotReady rejects finalize on records that are not awaiting review.
	ErrNotReady = errors.New("record is not ready to finalize")
	// ErrNotFailed rejects retry on records that have not failed.
	ErrNotFailed = errors.New("record is not failed")
)
