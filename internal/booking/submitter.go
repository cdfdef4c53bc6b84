package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/studio-engine/internal/models"
)

// DemoMessage is the canned confirmation of the simulated submitter
const DemoMessage = "This is a demo booking page for presentation purposes only. No actual booking has been made."

// RecordedMessage confirms a booking stored for the studio to follow up
const RecordedMessage = "Thank you! Your booking request has been received and our team will confirm within 24 hours."

const defaultSubmitDelay = 2 * time.Second

// Submitter delivers a completed draft
type Submitter interface {
	// Submit sends the request, honoring ctx for cancellation.
	Submit(ctx context.Context, req models.BookingRequest) (models.Confirmation, error)
}

// SubmitterFunc adapts a function to Submitter
type SubmitterFunc func(ctx context.Context, req models.BookingRequest) (models.Confirmation, error)

// Submit calls f
func (f SubmitterFunc) Submit(ctx context.Context, req models.BookingRequest) (models.Confirmation, error) {
	return f(ctx, req)
}

// SimulatedOption configures a SimulatedSubmitter
type SimulatedOption func(*SimulatedSubmitter)

// WithDelay sets the simulated latency. Zero completes immediately.
func WithDelay(d time.Duration) SimulatedOption {
	return func(s *SimulatedSubmitter) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithFailure makes every submission fail with err after the delay
func WithFailure(err error) SimulatedOption {
	return func(s *SimulatedSubmitter) {
		s.failWith = err
	}
}

// WithMessage replaces the confirmation message
func WithMessage(msg string) SimulatedOption {
	return func(s *SimulatedSubmitter) {
		if msg != "" {
			s.message = msg
		}
	}
}

// SimulatedSubmitter waits a fixed delay and confirms with a demo message
type SimulatedSubmitter struct {
	delay    time.Duration
	message  string
	failWith error
}

// NewSimulatedSubmitter returns a submitter with a 2s delay
func NewSimulatedSubmitter(opts ...SimulatedOption) *SimulatedSubmitter {
	s := &SimulatedSubmitter{
		delay:   defaultSubmitDelay,
		message: DemoMessage,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit waits for the delay and returns the demo confirmation
func (s *SimulatedSubmitter) Submit(ctx context.Context, req models.BookingRequest) (models.Confirmation, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return models.Confirmation{}, fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	if s.failWith != nil {
		return models.Confirmation{}, s.failWith
	}

	return models.Confirmation{
		Message:     s.message,
		SubmittedAt: time.Now(),
	}, nil
}

// BookingStore persists submitted bookings
type BookingStore interface {
	CreateBooking(ctx context.Context, rec *models.BookingRecord) error
}

// RepositorySubmitter stores each booking for the studio to confirm
type RepositorySubmitter struct {
	store BookingStore
	now   func() time.Time
}

// NewRepositorySubmitter creates a submitter backed by store
func NewRepositorySubmitter(store BookingStore) *RepositorySubmitter {
	return &RepositorySubmitter{store: store, now: time.Now}
}

// Submit persists the request and returns its reference
func (s *RepositorySubmitter) Submit(ctx context.Context, req models.BookingRequest) (models.Confirmation, error) {
	id := uuid.New()
	rec := &models.BookingRecord{
		ID:        id.String(),
		Reference: Reference(id),
		SessionID: req.SessionID,
		ServiceID: req.ServiceID,
		Date:      req.Date,
		TimeSlot:  req.TimeSlot,
		Contact:   req.Contact,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.CreateBooking(ctx, rec); err != nil {
		return models.Confirmation{}, fmt.Errorf("failed to store booking: %w", err)
	}

	return models.Confirmation{
		Reference:   rec.Reference,
		Message:     RecordedMessage,
		SubmittedAt: rec.CreatedAt,
	}, nil
}

// Reference derives a short human-readable booking reference from an id
func Reference(id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return "BK-" + strings.ToUpper(hex[:8])
}
