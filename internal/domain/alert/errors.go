package alert

import "errors"

var (
	// ErrNotFound is returned for an unknown alert id.
	ErrNotFound = errors.New("alert not found")
	// ErrValidation is returned for empty notes, empty message text and
	// malformed action payloads. No state is changed.
	ErrValidation = errors.New("validation failed")
	// ErrUnsupportedAction is returned for an unrecognized action tag.
	ErrUnsupportedAction = errors.New("unsupported action")
	// ErrDuplicate is returned when ingesting an alert whose id already exists.
	ErrDuplicate = errors.New("alert already exists")
)
