package models

import (
	"time"
)

// BookingStatus represents the submission state of a booking draft
type BookingStatus string

const (
	BookingIdle       BookingStatus = "idle"
	BookingSubmitting BookingStatus = "submitting"
	BookingSubmitted  BookingStatus = "submitted"
)

// BookingState is the wizard state derived from step and status
type BookingState string

const (
	StateSelectService  BookingState = "select_service"
	StateSelectDateTime BookingState = "select_date_time"
	StateContactInfo    BookingState = "contact_info"
	StateSubmitting     BookingState = "submitting"
	StateSubmitted      BookingState = "submitted"
)

// Wizard step bounds
const (
	FirstBookingStep = 1
	LastBookingStep  = 3
)

// DateLayout is the wire format of booking and event dates
const DateLayout = "2006-01-02"

// ContactDetails are the visitor's details collected at the last step
type ContactDetails struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Confirmation is returned by a successful submission
type Confirmation struct {
	Reference   string    `json:"reference,omitempty"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// BookingDraft is the in-progress booking collected across the wizard
type BookingDraft struct {
	Step         int            `json:"step"`
	Status       BookingStatus  `json:"status"`
	ServiceID    string         `json:"service_id,omitempty"`
	Date         string         `json:"date,omitempty"`
	TimeSlot     string         `json:"time_slot,omitempty"`
	Contact      ContactDetails `json:"contact"`
	LastError    string         `json:"last_error,omitempty"`
	Confirmation *Confirmation  `json:"confirmation,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewBookingDraft returns an empty draft at the first step
func NewBookingDraft() BookingDraft {
	return BookingDraft{
		Step:   FirstBookingStep,
		Status: BookingIdle,
	}
}

// State returns the wizard state of the draft
func (d *BookingDraft) State() BookingState {
	switch d.Status {
	case BookingSubmitting:
		return StateSubmitting
	case BookingSubmitted:
		return StateSubmitted
	}

	switch d.Step {
	case 2:
		return StateSelectDateTime
	case 3:
		return StateContactInfo
	default:
		return StateSelectService
	}
}

// IsTerminal returns true once the draft has been submitted
func (d *BookingDraft) IsTerminal() bool {
	return d.Status == BookingSubmitted
}

// InFlight returns true while a submission is running
func (d *BookingDraft) InFlight() bool {
	return d.Status == BookingSubmitting
}

// BookingRequest is what a submitter receives
type BookingRequest struct {
	SessionID string         `json:"session_id"`
	ServiceID string         `json:"service_id"`
	Date      string         `json:"date"`
	TimeSlot  string         `json:"time_slot"`
	Contact   ContactDetails `json:"contact"`
}

// BookingRecord is a persisted booking request
type BookingRecord struct {
	ID        string         `json:"id"`
	Reference string         `json:"reference"`
	SessionID string         `json:"session_id,omitempty"`
	ServiceID string         `json:"service_id"`
	Date      string         `json:"date"`
	TimeSlot  string         `json:"time_slot"`
	Contact   ContactDetails `json:"contact"`
	CreatedAt time.Time      `json:"created_at"`
}

// Notice is the staff feed summary of a booking. Free text stays in the
// stored record.
func (r *BookingRecord) Notice() BookingNotice {
	return BookingNotice{
		ID:        r.ID,
		Reference: r.Reference,
		ServiceID: r.ServiceID,
		Date:      r.Date,
		TimeSlot:  r.TimeSlot,
		Name:      r.Contact.Name,
		CreatedAt: r.CreatedAt,
	}
}

// BookingNotice announces a stored booking
type BookingNotice struct {
	ID        string    `json:"id"`
	Reference string    `json:"reference"`
	ServiceID string    `json:"service_id"`
	Date      string    `json:"date"`
	TimeSlot  string    `json:"time_slot"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Length limits for visitor-supplied text, in characters
const (
	MaxFieldLength   = 200
	MaxMessageLength = 2000
)

// ListFilters defines filters for listing persisted records
type ListFilters struct {
	ServiceID string
	Limit     int
	Offset    int
}

// SelectServiceRequest selects the service at step one
type SelectServiceRequest struct {
	ServiceID string `json:"service_id"`
}

// SetDateRequest selects the session date
type SetDateRequest struct {
	Date string `json:"date"`
}

// SetTimeRequest selects the time slot
type SetTimeRequest struct {
	TimeSlot string `json:"time_slot"`
}

// BookingResponse wraps a draft with the derived wizard state
type BookingResponse struct {
	State      BookingState `json:"state"`
	CanAdvance bool         `json:"can_advance"`
	CanSubmit  bool         `json:"can_submit"`
	Draft      BookingDraft `json:"draft"`
}
