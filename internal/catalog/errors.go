package catalog

import "errors"

var (
	// ErrInvalidContent is returned when a content file is malformed or inconsistent
	ErrInvalidContent = errors.New("invalid catalog content")
	// ErrUnknownKind is returned for a category kind other than services or portfolio
	ErrUnknownKind = errors.New("unknown category kind")
)
