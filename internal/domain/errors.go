package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidImage  = errors.New("invalid image")
	ErrEmptyPrompt   = errors.New("edit instruction is empty")
	ErrNoImage       = errors.New("no image uploaded")
	ErrHistoryIndex  = errors.New("history index out of range")
	ErrBusy          = errors.New("an edit is already in progress")
	ErrStaleSession  = errors.New("session was replaced while the edit was running")
	ErrSessionClosed = errors.New("session closed")
)
