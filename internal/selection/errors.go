package selection

import "errors"

var (
	// ErrItemNotFound is returned when opening an id the view does not know
	ErrItemNotFound = errors.New("item not found")
	// ErrNothingOpen is returned when cycling images with no item open
	ErrNothingOpen = errors.New("no item is open")
)
