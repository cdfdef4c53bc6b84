// Package booking implements the three-step booking wizard and its submitters.
//
// The wizard moves Step1 (service) -> Step2 (date/time) -> Step3 (contact)
// -> Submitting -> Submitted. Steps change by exactly one; a failed
// submission returns to Step3 with the draft intact.
package booking

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/terra-clan/studio-engine/internal/models"
)

// Catalog validates the identifiers a draft refers to
type Catalog interface {
	HasService(id string) bool
	HasTimeSlot(slot string) bool
}

// TransitionFunc observes wizard state changes
type TransitionFunc func(from, to models.BookingState)

// Option configures a Flow
type Option func(*Flow)

// WithClock sets the time source used for past-date checks
func WithClock(now func() time.Time) Option {
	return func(f *Flow) {
		if now != nil {
			f.now = now
		}
	}
}

// WithTransitionHook registers a callback for state changes
func WithTransitionHook(fn TransitionFunc) Option {
	return func(f *Flow) {
		f.onTransition = fn
	}
}

// Flow applies wizard intents to a draft
type Flow struct {
	draft        *models.BookingDraft
	catalog      Catalog
	now          func() time.Time
	onTransition TransitionFunc
}

// NewFlow wraps draft. A zero draft is treated as a new one.
func NewFlow(draft *models.BookingDraft, catalog Catalog, opts ...Option) *Flow {
	f := &Flow{
		draft:   draft,
		catalog: catalog,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.draft.Step == 0 {
		*f.draft = models.NewBookingDraft()
	}
	return f
}

// Draft returns the wrapped draft
func (f *Flow) Draft() *models.BookingDraft {
	return f.draft
}

// State returns the current wizard state
func (f *Flow) State() models.BookingState {
	return f.draft.State()
}

// SelectService chooses the service and advances to the date/time step
func (f *Flow) SelectService(id string) error {
	if err := f.editable(models.FirstBookingStep); err != nil {
		return err
	}
	if !f.catalog.HasService(id) {
		return fmt.Errorf("%w: %s", ErrUnknownService, id)
	}

	f.apply(func(d *models.BookingDraft) {
		d.ServiceID = id
		d.Step = 2
	})
	return nil
}

// SetDate selects the session date. Dates before today are refused.
func (f *Flow) SetDate(date string) error {
	if err := f.editable(2); err != nil {
		return err
	}

	day, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(date), f.location())
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if day.Before(f.today()) {
		return fmt.Errorf("%w: %s", ErrPastDate, day.Format(models.DateLayout))
	}

	f.apply(func(d *models.BookingDraft) {
		d.Date = day.Format(models.DateLayout)
	})
	return nil
}

// SetTime selects one of the bookable time slots
func (f *Flow) SetTime(slot string) error {
	if err := f.editable(2); err != nil {
		return err
	}
	if !f.catalog.HasTimeSlot(slot) {
		return fmt.Errorf("%w: %s", ErrUnknownTimeSlot, slot)
	}

	f.apply(func(d *models.BookingDraft) {
		d.TimeSlot = slot
	})
	return nil
}

// SetContact records the contact fields. They are validated on submit.
func (f *Flow) SetContact(contact models.ContactDetails) error {
	if err := f.editable(3); err != nil {
		return err
	}

	f.apply(func(d *models.BookingDraft) {
		d.Contact = contact
	})
	return nil
}

// CanAdvance reports whether Next would move forward
func (f *Flow) CanAdvance() bool {
	d := f.draft
	if d.Status != models.BookingIdle {
		return false
	}
	switch d.Step {
	case 1:
		return d.ServiceID != ""
	case 2:
		return d.Date != "" && d.TimeSlot != ""
	default:
		return false
	}
}

// Next moves one step forward when the current step is complete
func (f *Flow) Next() error {
	if err := f.guard(); err != nil {
		return err
	}
	if !f.CanAdvance() {
		return fmt.Errorf("%w: step %d", ErrStepIncomplete, f.draft.Step)
	}

	f.apply(func(d *models.BookingDraft) {
		d.Step++
	})
	return nil
}

// Back moves one step backward keeping every entered value. No-op on the first step.
func (f *Flow) Back() error {
	if err := f.guard(); err != nil {
		return err
	}
	if f.draft.Step <= models.FirstBookingStep {
		return nil
	}

	f.apply(func(d *models.BookingDraft) {
		d.Step--
	})
	return nil
}

// CanSubmit reports whether BeginSubmit would succeed
func (f *Flow) CanSubmit() bool {
	return f.draft.Status == models.BookingIdle &&
		f.draft.Step == models.LastBookingStep &&
		ValidateContact(f.draft.Contact) == nil
}

// BeginSubmit validates the contact step and enters Submitting
func (f *Flow) BeginSubmit(sessionID string) (models.BookingRequest, error) {
	if err := f.editable(models.LastBookingStep); err != nil {
		return models.BookingRequest{}, err
	}
	if err := ValidateContact(f.draft.Contact); err != nil {
		return models.BookingRequest{}, err
	}

	f.apply(func(d *models.BookingDraft) {
		d.Status = models.BookingSubmitting
		d.LastError = ""
	})

	d := f.draft
	return models.BookingRequest{
		SessionID: sessionID,
		ServiceID: d.ServiceID,
		Date:      d.Date,
		TimeSlot:  d.TimeSlot,
		Contact:   d.Contact,
	}, nil
}

// CompleteSubmit finishes a submission. On failure the draft returns to the
// contact step with its data and the error message; the visitor may retry.
func (f *Flow) CompleteSubmit(conf models.Confirmation, submitErr error) error {
	if !f.draft.InFlight() {
		return ErrNotSubmitting
	}

	if submitErr != nil {
		f.apply(func(d *models.BookingDraft) {
			d.Status = models.BookingIdle
			d.Step = models.LastBookingStep
			d.LastError = submitErr.Error()
		})
		return nil
	}

	if conf.SubmittedAt.IsZero() {
		conf.SubmittedAt = f.now()
	}
	f.apply(func(d *models.BookingDraft) {
		d.Status = models.BookingSubmitted
		d.Confirmation = &conf
	})
	return nil
}

// Submit runs a whole submission synchronously
func (f *Flow) Submit(ctx context.Context, submitter Submitter, sessionID string) error {
	req, err := f.BeginSubmit(sessionID)
	if err != nil {
		return err
	}

	conf, submitErr := submitter.Submit(ctx, req)
	if err := f.CompleteSubmit(conf, submitErr); err != nil {
		return err
	}
	if submitErr != nil {
		return fmt.Errorf("%w: %v", ErrSubmissionFailed, submitErr)
	}
	return nil
}

// Reset discards the draft and starts over at the first step
func (f *Flow) Reset() error {
	if f.draft.InFlight() {
		return ErrSubmissionInFlight
	}

	f.apply(func(d *models.BookingDraft) {
		*d = models.NewBookingDraft()
	})
	return nil
}

// ValidateContact requires a name and a well-formed email
func ValidateContact(c models.ContactDetails) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidContact)
	}
	if !ValidEmail(c.Email) {
		return fmt.Errorf("%w: email is not valid", ErrInvalidContact)
	}

	for _, field := range []struct {
		name  string
		value string
		max   int
	}{
		{"name", c.Name, models.MaxFieldLength},
		{"email", c.Email, models.MaxFieldLength},
		{"phone", c.Phone, models.MaxFieldLength},
		{"location", c.Location, models.MaxFieldLength},
		{"message", c.Message, models.MaxMessageLength},
	} {
		if utf8.RuneCountInString(field.value) > field.max {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidContact, field.name, field.max)
		}
	}
	return nil
}

// ValidEmail accepts a bare address such as "jane@example.com"
func ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}

// guard refuses changes while submitting or after submission
func (f *Flow) guard() error {
	switch f.draft.Status {
	case models.BookingSubmitting:
		return ErrSubmissionInFlight
	case models.BookingSubmitted:
		return ErrAlreadySubmitted
	}
	return nil
}

// editable requires an idle draft at the given step
func (f *Flow) editable(step int) error {
	if err := f.guard(); err != nil {
		return err
	}
	if f.draft.Step != step {
		return fmt.Errorf("%w: at step %d, need step %d", ErrWrongStep, f.draft.Step, step)
	}
	return nil
}

func (f *Flow) apply(mutate func(d *models.BookingDraft)) {
	from := f.draft.State()
	mutate(f.draft)
	f.draft.UpdatedAt = f.now()
	if to := f.draft.State(); to != from && f.onTransition != nil {
		f.onTransition(from, to)
	}
}

func (f *Flow) location() *time.Location {
	return f.now().Location()
}

func (f *Flow) today() time.Time {
	now := f.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
