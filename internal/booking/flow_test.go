package booking_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/terra-clan/studio-engine/internal/booking"
	"github.com/terra-clan/studio-engine/internal/models"
)

type fakeCatalog struct{}

func (fakeCatalog) HasService(id string) bool {
	return id == "portrait" || id == "wedding"
}

func (fakeCatalog) HasTimeSlot(slot string) bool {
	return slot == "10:00 AM" || slot == "11:00 AM"
}

func fixedClock() time.Time {
	return time.Date(2025, time.May, 20, 15, 30, 0, 0, time.UTC)
}

func newFlow(draft *models.BookingDraft, opts ...booking.Option) *booking.Flow {
	opts = append([]booking.Option{booking.WithClock(fixedClock)}, opts...)
	return booking.NewFlow(draft, fakeCatalog{}, opts...)
}

func TestBookingFlow(t *testing.T) {
	Convey("Given a new booking draft", t, func() {
		draft := &models.BookingDraft{}
		var transitions []models.BookingState
		flow := newFlow(draft, booking.WithTransitionHook(func(_, to models.BookingState) {
			transitions = append(transitions, to)
		}))

		So(flow.State(), ShouldEqual, models.StateSelectService)
		So(draft.Step, ShouldEqual, 1)
		So(flow.CanAdvance(), ShouldBeFalse)

		Convey("When next is pressed without a service", func() {
			err := flow.Next()

			Convey("Then it stays on the first step", func() {
				So(errors.Is(err, booking.ErrStepIncomplete), ShouldBeTrue)
				So(draft.Step, ShouldEqual, 1)
			})
		})

		Convey("When an unknown service is chosen", func() {
			err := flow.SelectService("astronaut")

			Convey("Then it is refused", func() {
				So(errors.Is(err, booking.ErrUnknownService), ShouldBeTrue)
				So(draft.ServiceID, ShouldBeEmpty)
				So(draft.Step, ShouldEqual, 1)
			})
		})

		Convey("When the portrait service is chosen", func() {
			So(flow.SelectService("portrait"), ShouldBeNil)

			Convey("Then it advances to the date and time step", func() {
				So(draft.Step, ShouldEqual, 2)
				So(flow.State(), ShouldEqual, models.StateSelectDateTime)
				So(transitions, ShouldResemble, []models.BookingState{models.StateSelectDateTime})
			})

			Convey("And only a date is selected", func() {
				So(flow.SetDate("2025-06-01"), ShouldBeNil)
				err := flow.Next()

				Convey("Then next is a no-op", func() {
					So(errors.Is(err, booking.ErrStepIncomplete), ShouldBeTrue)
					So(draft.Step, ShouldEqual, 2)
					So(flow.CanAdvance(), ShouldBeFalse)
				})
			})

			Convey("And a past date is selected", func() {
				err := flow.SetDate("2025-05-19")

				Convey("Then the date is refused", func() {
					So(errors.Is(err, booking.ErrPastDate), ShouldBeTrue)
					So(draft.Date, ShouldBeEmpty)
				})
			})

			Convey("And today's date is selected", func() {
				So(flow.SetDate("2025-05-20"), ShouldBeNil)
				So(draft.Date, ShouldEqual, "2025-05-20")
			})

			Convey("And a malformed date is selected", func() {
				So(errors.Is(flow.SetDate("June 1st"), booking.ErrInvalidDate), ShouldBeTrue)
			})

			Convey("And an unknown time slot is selected", func() {
				So(errors.Is(flow.SetTime("01:00 AM"), booking.ErrUnknownTimeSlot), ShouldBeTrue)
				So(draft.TimeSlot, ShouldBeEmpty)
			})

			Convey("And contact details are sent early", func() {
				err := flow.SetContact(models.ContactDetails{Name: "Jane"})

				Convey("Then they are refused at this step", func() {
					So(errors.Is(err, booking.ErrWrongStep), ShouldBeTrue)
				})
			})

			Convey("And a date and time are selected", func() {
				So(flow.SetDate("2025-06-01"), ShouldBeNil)
				So(flow.SetTime("10:00 AM"), ShouldBeNil)
				So(flow.CanAdvance(), ShouldBeTrue)
				So(flow.Next(), ShouldBeNil)

				Convey("Then it reaches the contact step", func() {
					So(draft.Step, ShouldEqual, 3)
					So(flow.State(), ShouldEqual, models.StateContactInfo)
				})

				Convey("Then going back twice keeps every value", func() {
					So(flow.Back(), ShouldBeNil)
					So(flow.Back(), ShouldBeNil)
					So(flow.Back(), ShouldBeNil)

					So(draft.Step, ShouldEqual, 1)
					So(draft.ServiceID, ShouldEqual, "portrait")
					So(draft.Date, ShouldEqual, "2025-06-01")
					So(draft.TimeSlot, ShouldEqual, "10:00 AM")
				})

				Convey("Then next at the contact step does not skip ahead", func() {
					So(errors.Is(flow.Next(), booking.ErrStepIncomplete), ShouldBeTrue)
					So(draft.Step, ShouldEqual, 3)
				})

				Convey("And invalid contact details are submitted", func() {
					So(flow.SetContact(models.ContactDetails{Name: "Jane Doe", Email: "jane@"}), ShouldBeNil)
					_, err := flow.BeginSubmit("s1")

					Convey("Then the submission does not start", func() {
						So(errors.Is(err, booking.ErrInvalidContact), ShouldBeTrue)
						So(flow.State(), ShouldEqual, models.StateContactInfo)
						So(flow.CanSubmit(), ShouldBeFalse)
					})
				})

				Convey("And valid contact details are submitted", func() {
					So(flow.SetContact(models.ContactDetails{Name: "Jane Doe", Email: "jane@example.com"}), ShouldBeNil)
					So(flow.CanSubmit(), ShouldBeTrue)

					var during models.BookingState
					var got models.BookingRequest
					submitter := booking.SubmitterFunc(func(_ context.Context, req models.BookingRequest) (models.Confirmation, error) {
						during = flow.State()
						got = req
						return models.Confirmation{Message: booking.DemoMessage}, nil
					})

					So(flow.Submit(context.Background(), submitter, "s1"), ShouldBeNil)

					Convey("Then it passes through submitting to submitted", func() {
						So(during, ShouldEqual, models.StateSubmitting)
						So(flow.State(), ShouldEqual, models.StateSubmitted)
						So(draft.Confirmation, ShouldNotBeNil)
						So(draft.Confirmation.Message, ShouldEqual, booking.DemoMessage)
						So(draft.Confirmation.SubmittedAt, ShouldEqual, fixedClock())
						So(got.ServiceID, ShouldEqual, "portrait")
						So(got.Contact.Email, ShouldEqual, "jane@example.com")
						So(got.SessionID, ShouldEqual, "s1")
					})

					Convey("Then further edits are refused", func() {
						So(errors.Is(flow.Back(), booking.ErrAlreadySubmitted), ShouldBeTrue)
						So(errors.Is(flow.SetTime("11:00 AM"), booking.ErrAlreadySubmitted), ShouldBeTrue)
					})

					Convey("Then reset returns an empty draft at step one", func() {
						So(flow.Reset(), ShouldBeNil)
						So(*draft, ShouldResemble, models.BookingDraft{
							Step:      1,
							Status:    models.BookingIdle,
							UpdatedAt: fixedClock(),
						})
						So(flow.State(), ShouldEqual, models.StateSelectService)
					})
				})

				Convey("And the submission is in flight", func() {
					So(flow.SetContact(models.ContactDetails{Name: "Jane Doe", Email: "jane@example.com"}), ShouldBeNil)
					_, err := flow.BeginSubmit("s1")
					So(err, ShouldBeNil)

					Convey("Then every other intent is refused", func() {
						So(flow.State(), ShouldEqual, models.StateSubmitting)
						So(errors.Is(flow.Back(), booking.ErrSubmissionInFlight), ShouldBeTrue)
						So(errors.Is(flow.Reset(), booking.ErrSubmissionInFlight), ShouldBeTrue)
						_, err := flow.BeginSubmit("s1")
						So(errors.Is(err, booking.ErrSubmissionInFlight), ShouldBeTrue)
					})

					Convey("And it fails", func() {
						So(flow.CompleteSubmit(models.Confirmation{}, errors.New("studio offline")), ShouldBeNil)

						Convey("Then the draft returns to the contact step intact", func() {
							So(flow.State(), ShouldEqual, models.StateContactInfo)
							So(draft.LastError, ShouldEqual, "studio offline")
							So(draft.Contact.Name, ShouldEqual, "Jane Doe")
							So(draft.Date, ShouldEqual, "2025-06-01")
						})

						Convey("Then a retry can succeed", func() {
							_, err := flow.BeginSubmit("s1")
							So(err, ShouldBeNil)
							So(draft.LastError, ShouldBeEmpty)
							So(flow.CompleteSubmit(models.Confirmation{Reference: "BK-1"}, nil), ShouldBeNil)
							So(flow.State(), ShouldEqual, models.StateSubmitted)
						})
					})
				})
			})
		})

		Convey("When completing without a submission", func() {
			So(flow.CompleteSubmit(models.Confirmation{}, nil), ShouldEqual, booking.ErrNotSubmitting)
		})

		Convey("When back is pressed on the first step", func() {
			So(flow.Back(), ShouldBeNil)
			So(draft.Step, ShouldEqual, 1)
			So(transitions, ShouldBeEmpty)
		})
	})

	Convey("Given a submitter that fails", t, func() {
		draft := &models.BookingDraft{
			Step:      3,
			Status:    models.BookingIdle,
			ServiceID: "wedding",
			Date:      "2025-06-01",
			TimeSlot:  "11:00 AM",
			Contact:   models.ContactDetails{Name: "Jane Doe", Email: "jane@example.com"},
		}
		flow := newFlow(draft)
		failing := booking.NewSimulatedSubmitter(booking.WithDelay(0), booking.WithFailure(errors.New("boom")))

		err := flow.Submit(context.Background(), failing, "s2")

		So(errors.Is(err, booking.ErrSubmissionFailed), ShouldBeTrue)
		So(flow.State(), ShouldEqual, models.StateContactInfo)
		So(draft.LastError, ShouldEqual, "boom")
	})
}

func TestValidEmail(t *testing.T) {
	Convey("Given candidate email addresses", t, func() {
		So(booking.ValidEmail("jane@example.com"), ShouldBeTrue)
		So(booking.ValidEmail(" jane@example.com "), ShouldBeTrue)
		So(booking.ValidEmail("jane.doe+studio@mail.example.co.in"), ShouldBeTrue)
		So(booking.ValidEmail(""), ShouldBeFalse)
		So(booking.ValidEmail("jane"), ShouldBeFalse)
		So(booking.ValidEmail("jane@localhost"), ShouldBeFalse)
		So(booking.ValidEmail("Jane <jane@example.com>"), ShouldBeFalse)
		So(booking.ValidEmail("@example.com"), ShouldBeFalse)
	})

	Convey("Given contact details", t, func() {
		So(booking.ValidateContact(models.ContactDetails{Name: "Jane", Email: "jane@example.com"}), ShouldBeNil)
		So(errors.Is(booking.ValidateContact(models.ContactDetails{Name: " ", Email: "jane@example.com"}), booking.ErrInvalidContact), ShouldBeTrue)

		atLimit := models.ContactDetails{Name: "Jane", Email: "jane@example.com", Message: strings.Repeat("ś", models.MaxMessageLength)}
		So(booking.ValidateContact(atLimit), ShouldBeNil)

		overLimit := atLimit
		overLimit.Message += "!"
		So(errors.Is(booking.ValidateContact(overLimit), booking.ErrInvalidContact), ShouldBeTrue)
	})
}
