package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// View names a browsing view that owns its own selection state
type View string

const (
	ViewServices  View = "services"
	ViewPortfolio View = "portfolio"
)

// Valid reports whether v is a known browsing view
func (v View) Valid() bool {
	return v == ViewServices || v == ViewPortfolio
}

// Direction is a gallery or carousel move
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// SelectionState is the per-view filter, open item and gallery position
type SelectionState struct {
	View         View   `json:"view"`
	Category     string `json:"category"`
	OpenItemID   string `json:"open_item_id,omitempty"`
	ImageIndex   int    `json:"image_index"`
	ScrollLocked bool   `json:"scroll_locked"`
}

// NewSelectionState returns a fresh state with the "all" filter
func NewSelectionState(view View) SelectionState {
	return SelectionState{
		View:     view,
		Category: CategoryAll,
	}
}

// HasOpenItem returns true when an item is shown in detail
func (s *SelectionState) HasOpenItem() bool {
	return s.OpenItemID != ""
}

// CarouselState is a wrapping position over a fixed-length sequence
type CarouselState struct {
	Index  int `json:"index"`
	Length int `json:"length"`
}

// Session is one visitor's interaction state.
// Created when the site is opened, discarded on expiry or explicit delete.
type Session struct {
	ID           string         `json:"id"`
	Token        string         `json:"token"`
	Services     SelectionState `json:"services"`
	Portfolio    SelectionState `json:"portfolio"`
	Testimonials CarouselState  `json:"testimonials"`
	Booking      BookingDraft   `json:"booking"`
	CreatedAt    time.Time      `json:"created_at"`
	ExpiresAt    time.Time      `json:"expires_at"`
}

// Selection returns the state of the given view, or nil for an unknown view
func (s *Session) Selection(view View) *SelectionState {
	switch view {
	case ViewServices:
		return &s.Services
	case ViewPortfolio:
		return &s.Portfolio
	default:
		return nil
	}
}

// IsExpired checks if the session TTL has elapsed
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// TimeRemaining returns the duration until expiry (0 if expired)
func (s *Session) TimeRemaining() time.Duration {
	remaining := time.Until(s.ExpiresAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GenerateSessionToken creates a cryptographically random 48-char hex token
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, 24)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// CreateSessionResponse is returned after creating a session
type CreateSessionResponse struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryRequest replaces a view's filter
type CategoryRequest struct {
	Category string `json:"category"`
}

// OpenRequest opens an item in a view
type OpenRequest struct {
	ItemID string `json:"item_id"`
}

// CycleRequest moves through the open item's gallery
type CycleRequest struct {
	Direction Direction `json:"direction"`
}

// IndexRequest jumps to a gallery image or testimonial
type IndexRequest struct {
	Index int `json:"index"`
}
