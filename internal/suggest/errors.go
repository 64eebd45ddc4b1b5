package suggest

import "errors"

var (
	ErrFormClosed      = errors.New("form session is closed")
	ErrSessionNotFound = errors.New("field session not found")
	ErrDraining        = errors.New("engine is draining")
)
