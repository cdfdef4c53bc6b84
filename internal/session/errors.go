package session

import "errors"

// Common errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownView     = errors.New("unknown view")
	ErrUnknownMove     = errors.New("unknown carousel move")
)
