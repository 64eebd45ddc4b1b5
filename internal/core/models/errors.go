package models

import "errors"

var (
	ErrSessionClosed    = errors.New("field session is closed")
	ErrEmptyKey         = errors.New("suggestion key is empty")
	ErrEmptyValue       = errors.New("suggestion value is empty")
	ErrJournalLocked    = errors.New("journal is locked by another process")
	ErrStoreUnavailable = errors.New("suggestion store unavailable")
	ErrConflictRetries  = errors.New("too many concurrent updates")
)
