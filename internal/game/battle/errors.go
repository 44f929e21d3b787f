package battle

import "errors"

// Error kinds returned by battle operations. Callers match them with errors.Is;
// the wrapped message carries the detail. None of them leave state modified.
var (
	// ErrValidation reports a malformed or disallowed request.
	ErrValidation = errors.New("validation error")
	// ErrConflict reports a duplicate or stale submission.
	ErrConflict = errors.New("conflict")
	// ErrNotFound reports an unknown battle or a requester who is not a participant.
	ErrNotFound = errors.New("not found")
	// ErrState reports an operation that the battle's current status does not allow.
	ErrState = errors.New("invalid state")
)
