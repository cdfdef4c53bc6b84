// Package session owns each visitor's browsing and booking state and applies
// intents to it one at a time per session.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/studio-engine/internal/booking"
	"github.com/terra-clan/studio-engine/internal/carousel"
	"github.com/terra-clan/studio-engine/internal/events"
	"github.com/terra-clan/studio-engine/internal/metrics"
	"github.com/terra-clan/studio-engine/internal/models"
	"github.com/terra-clan/studio-engine/internal/selection"
)

const (
	defaultTTL           = 2 * time.Hour
	defaultSubmitTimeout = 30 * time.Second
	saveTimeout          = 5 * time.Second
)

// Testimonial carousel moves
const (
	MoveNext = "next"
	MovePrev = "prev"
	MoveJump = "jump"
)

// Catalog is the content the manager validates intents against
type Catalog interface {
	selection.Catalog
	booking.Catalog
	Testimonials() []models.Testimonial
}

// Option configures a Manager
type Option func(*Manager)

// WithTTL sets how long a session lives after creation
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithSubmitter sets the booking submitter
func WithSubmitter(s booking.Submitter) Option {
	return func(m *Manager) {
		if s != nil {
			m.submitter = s
		}
	}
}

// WithSubmitTimeout bounds each background submission
func WithSubmitTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.submitTimeout = d
		}
	}
}

// WithPublisher receives booking status events on the session topic
func WithPublisher(pub events.Publisher) Option {
	return func(m *Manager) {
		m.pub = pub
	}
}

// WithScrollLock replaces the process-wide scroll lock
func WithScrollLock(lock selection.ScrollLock) Option {
	return func(m *Manager) {
		if lock != nil {
			m.scrollLock = lock
		}
	}
}

// WithClock sets the time source for expiry and booking dates
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager applies visitor intents to stored sessions
type Manager struct {
	store         Store
	catalog       Catalog
	submitter     booking.Submitter
	pub           events.Publisher
	scrollLock    selection.ScrollLock
	ttl           time.Duration
	submitTimeout time.Duration
	now           func() time.Time

	locks    *keyedMutex
	inflight sync.WaitGroup
}

// NewManager creates a manager. Without WithSubmitter, bookings use the
// simulated submitter.
func NewManager(store Store, catalog Catalog, opts ...Option) *Manager {
	m := &Manager{
		store:         store,
		catalog:       catalog,
		submitter:     booking.NewSimulatedSubmitter(),
		scrollLock:    &selection.CountingLock{OnChange: metrics.UpdateScrollLocksHeld},
		ttl:           defaultTTL,
		submitTimeout: defaultSubmitTimeout,
		now:           time.Now,
		locks:         newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new visitor session
func (m *Manager) Create(ctx context.Context) (*models.Session, error) {
	token, err := models.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := m.now()
	s := &models.Session{
		ID:        uuid.New().String(),
		Token:     token,
		Services:  models.NewSelectionState(models.ViewServices),
		Portfolio: models.NewSelectionState(models.ViewPortfolio),
		Testimonials: models.CarouselState{
			Length: len(m.catalog.Testimonials()),
		},
		Booking:   models.NewBookingDraft(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}

	metrics.IncActiveSessions()
	slog.Info("session created", "session_id", s.ID, "expires_at", s.ExpiresAt)

	return s, nil
}

// Get returns a live session
func (m *Manager) Get(ctx context.Context, token string) (*models.Session, error) {
	return m.load(ctx, token)
}

// Delete discards a session, releasing any scroll lock its views hold
func (m *Manager) Delete(ctx context.Context, token string) error {
	unlock := m.locks.Lock(token)
	defer unlock()

	s, err := m.store.Load(ctx, token)
	if err != nil {
		return err
	}
	if s == nil {
		return ErrSessionNotFound
	}

	if err := m.discard(ctx, s); err != nil {
		return err
	}
	metrics.DecActiveSessions()

	slog.Info("session deleted", "session_id", s.ID)
	return nil
}

// PurgeExpired deletes every expired session and returns how many were removed
func (m *Manager) PurgeExpired(ctx context.Context) (int, error) {
	tokens, err := m.store.Expired(ctx, m.now())
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, token := range tokens {
		ok, err := m.purge(ctx, token)
		if err != nil {
			slog.Error("failed to purge session", "error", err)
			continue
		}
		if ok {
			purged++
		}
	}

	if purged > 0 {
		metrics.RecordSessionsPurged(purged)
	}
	return purged, nil
}

func (m *Manager) purge(ctx context.Context, token string) (bool, error) {
	unlock := m.locks.Lock(token)
	defer unlock()

	s, err := m.store.Load(ctx, token)
	if err != nil {
		return false, err
	}
	if s == nil {
		// value already gone, drop the index entry
		return false, m.store.Delete(ctx, token)
	}
	if !m.expired(s) {
		return false, nil
	}

	if err := m.discard(ctx, s); err != nil {
		return false, err
	}
	slog.Info("session expired", "session_id", s.ID)
	return true, nil
}

// discard deletes the session and then releases the holds its views had
func (m *Manager) discard(ctx context.Context, s *models.Session) error {
	held := heldViews(s)
	m.controller(s, models.ViewServices).Dispose()
	m.controller(s, models.ViewPortfolio).Dispose()
	if err := m.store.Delete(ctx, s.Token); err != nil {
		return err
	}
	m.applyHolds(held, 0)
	return nil
}

// --- Selection ---

// SetCategory replaces a view's filter, closing an item it hides
func (m *Manager) SetCategory(ctx context.Context, token string, view models.View, category string) (*models.SelectionState, error) {
	return m.updateView(ctx, token, view, func(c *selection.Controller) error {
		c.SetCategory(category)
		return nil
	})
}

// Open shows an item of a view in detail
func (m *Manager) Open(ctx context.Context, token string, view models.View, itemID string) (*models.SelectionState, error) {
	return m.updateView(ctx, token, view, func(c *selection.Controller) error {
		return c.Open(itemID)
	})
}

// Close closes the open item of a view
func (m *Manager) Close(ctx context.Context, token string, view models.View) (*models.SelectionState, error) {
	return m.updateView(ctx, token, view, func(c *selection.Controller) error {
		c.Close()
		return nil
	})
}

// CycleImage moves through the open item's gallery
func (m *Manager) CycleImage(ctx context.Context, token string, view models.View, dir models.Direction) (*models.SelectionState, error) {
	return m.updateView(ctx, token, view, func(c *selection.Controller) error {
		_, err := c.CycleImage(dir)
		return err
	})
}

// SelectImage jumps to a gallery image of the open item
func (m *Manager) SelectImage(ctx context.Context, token string, view models.View, index int) (*models.SelectionState, error) {
	return m.updateView(ctx, token, view, func(c *selection.Controller) error {
		_, err := c.SelectImage(index)
		return err
	})
}

func (m *Manager) updateView(ctx context.Context, token string, view models.View, fn func(c *selection.Controller) error) (*models.SelectionState, error) {
	if !view.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownView, view)
	}

	var state models.SelectionState
	err := m.update(ctx, token, func(s *models.Session) error {
		c := m.controller(s, view)
		if err := fn(c); err != nil {
			return err
		}
		state = *c.State()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// controller wraps a view of s. Its lock calls are dropped; update and
// discard reconcile the scroll lock once the store accepts the change.
func (m *Manager) controller(s *models.Session, view models.View) *selection.Controller {
	return selection.NewController(s.Selection(view), m.catalog, selection.WithScrollLock(nopLock{}))
}

type nopLock struct{}

func (nopLock) Acquire() {}
func (nopLock) Release() {}

// heldViews counts the views of s that hold the scroll lock
func heldViews(s *models.Session) int {
	n := 0
	for _, view := range []models.View{models.ViewServices, models.ViewPortfolio} {
		if s.Selection(view).ScrollLocked {
			n++
		}
	}
	return n
}

func (m *Manager) applyHolds(before, after int) {
	for ; before < after; before++ {
		m.scrollLock.Acquire()
	}
	for ; before > after; before-- {
		m.scrollLock.Release()
	}
}

// --- Testimonials ---

// Testimonial moves the testimonial carousel: next, prev, or jump to index
func (m *Manager) Testimonial(ctx context.Context, token, move string, index int) (*models.CarouselState, error) {
	var state models.CarouselState
	err := m.update(ctx, token, func(s *models.Session) error {
		c := carousel.Attach(&s.Testimonials)
		c.Resize(len(m.catalog.Testimonials()))

		switch move {
		case MoveNext:
			c.Next()
		case MovePrev:
			c.Prev()
		case MoveJump:
			c.Jump(index)
		default:
			return fmt.Errorf("%w: %s", ErrUnknownMove, move)
		}
		state = s.Testimonials
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// --- Booking ---

// Booking returns the draft and its derived state
func (m *Manager) Booking(ctx context.Context, token string) (*models.BookingResponse, error) {
	s, err := m.load(ctx, token)
	if err != nil {
		return nil, err
	}
	resp := m.bookingResponse(m.flow(s))
	return &resp, nil
}

// SelectService chooses the service at the first step
func (m *Manager) SelectService(ctx context.Context, token, serviceID string) (*models.BookingResponse, error) {
	return m.updateBooking(ctx, token, func(f *booking.Flow) error {
		return f.SelectService(serviceID)
	})
}

// SetDate selects the session date
func (m *Manager) SetDate(ctx context.Context, token, date string) (*models.BookingResponse, error) {
	return m.updateBooking(ctx, token, func(f *booking.Flow) error {
		return f.SetDate(date)
	})
}

// SetTime selects the time slot
func (m *Manager) SetTime(ctx context.Context, token, slot string) (*models.BookingResponse, error) {
	return m.updateBooking(ctx, token, func(f *booking.Flow) error {
		return f.SetTime(slot)
	})
}

// SetContact records the contact details
func (m *Manager) SetContact(ctx context.Context, token string, contact models.ContactDetails) (*models.BookingResponse, error) {
	return m.updateBooking(ctx, token, func(f *booking.Flow) error {
		return f.SetContact(contact)
	})
}

// Next advances the wizard
func (m *Manager) Next(ctx context.Context, token string) (*models.BookingResponse, error) {
	return m.updateBooking(ctx, token, func(f *booking.Flow) error {
		return f.Next()
	})
}

// Back returns to the previous step
func (m *Manager) Back(ctx context.Context, token string) (*models.BookingResponse, error) {
	return m.updateBooking(ctx, token, func(f *booking.Flow) error {
		return f.Back()
	})
}

// Reset discards the draft
func (m *Manager) Reset(ctx context.Context, token string) (*models.BookingResponse, error) {
	return m.updateBooking(ctx, token, func(f *booking.Flow) error {
		return f.Reset()
	})
}

// Submit enters Submitting and hands the request to the submitter in the
// background. The outcome is saved to the draft and published on the
// session topic; request cancellation does not abort it.
func (m *Manager) Submit(ctx context.Context, token string) (*models.BookingResponse, error) {
	var req models.BookingRequest
	resp, err := m.updateSessionBooking(ctx, token, func(s *models.Session, f *booking.Flow) error {
		var err error
		req, err = f.BeginSubmit(s.ID)
		return err
	})
	if err != nil {
		return resp, err
	}

	m.inflight.Add(1)
	go m.complete(token, req)

	return resp, nil
}

// Wait blocks until background submissions finish
func (m *Manager) Wait() {
	m.inflight.Wait()
}

// WaitContext is Wait bounded by ctx. Submissions still running when ctx
// ends keep going; their outcome may not be stored.
func (m *Manager) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) complete(token string, req models.BookingRequest) {
	defer m.inflight.Done()

	submitCtx, cancel := context.WithTimeout(context.Background(), m.submitTimeout)
	defer cancel()

	start := time.Now()
	conf, submitErr := m.submitter.Submit(submitCtx, req)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000

	if submitErr != nil {
		metrics.RecordBookingSubmission(metrics.ResultFailure, latencyMs)
		slog.Warn("booking submission failed", "service_id", req.ServiceID, "error", submitErr)
	} else {
		metrics.RecordBookingSubmission(metrics.ResultSuccess, latencyMs)
		slog.Info("booking submitted", "service_id", req.ServiceID, "reference", conf.Reference)
	}

	ctx, cancelSave := context.WithTimeout(context.Background(), saveTimeout)
	defer cancelSave()

	resp, err := m.updateBooking(ctx, token, func(f *booking.Flow) error {
		return f.CompleteSubmit(conf, submitErr)
	})
	if err != nil {
		slog.Warn("dropping submission result", "error", err)
		return
	}

	m.publish(token, resp)
}

func (m *Manager) publish(token string, resp *models.BookingResponse) {
	if m.pub == nil {
		return
	}
	ev, err := events.New(events.TypeBookingStatus, resp)
	if err != nil {
		slog.Warn("failed to build event", "error", err)
		return
	}
	m.pub.Publish(events.SessionTopic(token), ev)
}

// updateBooking applies fn to the draft. The current draft is returned
// alongside flow errors.
func (m *Manager) updateBooking(ctx context.Context, token string, fn func(f *booking.Flow) error) (*models.BookingResponse, error) {
	return m.updateSessionBooking(ctx, token, func(_ *models.Session, f *booking.Flow) error {
		return fn(f)
	})
}

func (m *Manager) updateSessionBooking(ctx context.Context, token string, fn func(s *models.Session, f *booking.Flow) error) (*models.BookingResponse, error) {
	var resp models.BookingResponse
	var flowErr error

	err := m.update(ctx, token, func(s *models.Session) error {
		f := m.flow(s)
		flowErr = fn(s, f)
		resp = m.bookingResponse(f)
		return flowErr
	})
	if err != nil {
		if flowErr != nil {
			return &resp, err
		}
		return nil, err
	}
	return &resp, nil
}

func (m *Manager) flow(s *models.Session) *booking.Flow {
	return booking.NewFlow(&s.Booking, m.catalog,
		booking.WithClock(m.now),
		booking.WithTransitionHook(func(from, to models.BookingState) {
			metrics.RecordBookingTransition(string(from), string(to))
		}),
	)
}

func (m *Manager) bookingResponse(f *booking.Flow) models.BookingResponse {
	return models.BookingResponse{
		State:      f.State(),
		CanAdvance: f.CanAdvance(),
		CanSubmit:  f.CanSubmit(),
		Draft:      *f.Draft(),
	}
}

// --- Storage ---

// update loads the session under its lock, applies fn, and saves on success
func (m *Manager) update(ctx context.Context, token string, fn func(s *models.Session) error) error {
	unlock := m.locks.Lock(token)
	defer unlock()

	s, err := m.load(ctx, token)
	if err != nil {
		return err
	}

	held := heldViews(s)
	if err := fn(s); err != nil {
		return err
	}

	if err := m.store.Save(ctx, s); err != nil {
		return err
	}
	m.applyHolds(held, heldViews(s))
	return nil
}

func (m *Manager) load(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	s, err := m.store.Load(ctx, token)
	if err != nil {
		return nil, err
	}
	if s == nil || m.expired(s) {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) expired(s *models.Session) bool {
	return m.now().After(s.ExpiresAt)
}

// HealthCheck checks the session store
func (m *Manager) HealthCheck(ctx context.Context) error {
	if err := m.store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("session store unavailable: %w", err)
	}
	return nil
}
