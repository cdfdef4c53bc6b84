package booking_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/terra-clan/studio-engine/internal/booking"
	"github.com/terra-clan/studio-engine/internal/models"
)

type memoryBookings struct {
	records []*models.BookingRecord
	err     error
}

func (m *memoryBookings) CreateBooking(_ context.Context, rec *models.BookingRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

var request = models.BookingRequest{
	SessionID: "sess-1",
	ServiceID: "portrait",
	Date:      "2025-06-01",
	TimeSlot:  "10:00 AM",
	Contact:   models.ContactDetails{Name: "Jane Doe", Email: "jane@example.com"},
}

func TestSimulatedSubmitter(t *testing.T) {
	Convey("Given a simulated submitter with a short delay", t, func() {
		s := booking.NewSimulatedSubmitter(booking.WithDelay(20 * time.Millisecond))

		Convey("When a booking is submitted", func() {
			start := time.Now()
			conf, err := s.Submit(context.Background(), request)

			Convey("Then it waits and returns the demo message", func() {
				So(err, ShouldBeNil)
				So(time.Since(start), ShouldBeGreaterThanOrEqualTo, 20*time.Millisecond)
				So(conf.Message, ShouldEqual, booking.DemoMessage)
				So(conf.SubmittedAt.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := booking.NewSimulatedSubmitter(booking.WithDelay(time.Hour)).Submit(ctx, request)

			Convey("Then it returns the cancellation", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})

	Convey("Given a simulated submitter with a custom message and no delay", t, func() {
		s := booking.NewSimulatedSubmitter(booking.WithDelay(0), booking.WithMessage("see you soon"))
		conf, err := s.Submit(context.Background(), request)

		So(err, ShouldBeNil)
		So(conf.Message, ShouldEqual, "see you soon")
	})
}

func TestRepositorySubmitter(t *testing.T) {
	Convey("Given a repository submitter", t, func() {
		store := &memoryBookings{}
		s := booking.NewRepositorySubmitter(store)

		Convey("When a booking is submitted", func() {
			conf, err := s.Submit(context.Background(), request)

			Convey("Then a record is stored with a reference", func() {
				So(err, ShouldBeNil)
				So(store.records, ShouldHaveLength, 1)

				rec := store.records[0]
				So(rec.Reference, ShouldEqual, conf.Reference)
				So(rec.ServiceID, ShouldEqual, "portrait")
				So(rec.SessionID, ShouldEqual, "sess-1")
				So(rec.Contact.Name, ShouldEqual, "Jane Doe")
				So(conf.Message, ShouldEqual, booking.RecordedMessage)
				So(regexp.MustCompile(`^BK-[0-9A-F]{8}$`).MatchString(conf.Reference), ShouldBeTrue)
			})
		})

		Convey("When the store fails", func() {
			store.err = errors.New("disk full")
			_, err := s.Submit(context.Background(), request)

			Convey("Then the failure is returned", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "disk full")
			})
		})
	})
}

func TestReference(t *testing.T) {
	Convey("Given a fixed id", t, func() {
		id := uuid.MustParse("7f3a9c21-0000-4000-8000-000000000000")
		So(booking.Reference(id), ShouldEqual, "BK-7F3A9C21")
	})
}
