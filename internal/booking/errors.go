package booking

import "errors"

var (
	ErrUnknownService     = errors.New("unknown service")
	ErrUnknownTimeSlot    = errors.New("unknown time slot")
	ErrInvalidDate        = errors.New("invalid date")
	ErrPastDate           = errors.New("date is in the past")
	ErrWrongStep          = errors.New("not allowed at the current step")
	ErrStepIncomplete     = errors.New("current step is incomplete")
	ErrInvalidContact     = errors.New("invalid contact details")
	ErrSubmissionInFlight = errors.New("submission in progress")
	ErrAlreadySubmitted   = errors.New("booking already submitted")
	ErrNotSubmitting      = errors.New("no submission in progress")
	ErrSubmissionFailed   = errors.New("submission failed")
)
