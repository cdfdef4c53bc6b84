package contact

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid consultation request")
	ErrUnknownType    = errors.New("unknown consultation type")
)
