// Package contact accepts consultation requests from the contact page.
package contact

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/terra-clan/studio-engine/internal/booking"
	"github.com/terra-clan/studio-engine/internal/metrics"
	"github.com/terra-clan/studio-engine/internal/models"
)

// ThankYouMessage is returned after a request is stored
const ThankYouMessage = "Thank you for reaching out! We'll get back to you within 24 hours to schedule your consultation."

// Types resolves consultation kinds
type Types interface {
	ConsultationType(id string) (models.ConsultationType, bool)
}

// Store persists consultation requests
type Store interface {
	CreateConsultation(ctx context.Context, req *models.ConsultationRequest) error
	ListConsultations(ctx context.Context, limit, offset int) ([]*models.ConsultationRequest, error)
}

// Service validates and stores consultation requests
type Service struct {
	types Types
	store Store
	now   func() time.Time
}

// NewService creates a contact service
func NewService(types Types, store Store) *Service {
	return &Service{types: types, store: store, now: time.Now}
}

// Submit validates and stores a request
func (s *Service) Submit(ctx context.Context, in models.CreateConsultationRequest) (*models.ConsultationResponse, error) {
	req := models.ConsultationRequest{
		ID:         uuid.New().String(),
		Type:       strings.TrimSpace(in.Type),
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Email:      strings.TrimSpace(in.Email),
		Phone:      strings.TrimSpace(in.Phone),
		EventDate:  strings.TrimSpace(in.EventDate),
		Message:    strings.TrimSpace(in.Message),
		Newsletter: in.Newsletter,
		CreatedAt:  s.now().UTC(),
	}

	kind, err := s.validate(&req)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateConsultation(ctx, &req); err != nil {
		return nil, fmt.Errorf("failed to store consultation: %w", err)
	}

	metrics.RecordConsultation(req.Type)
	slog.Info("consultation requested", "id", req.ID, "type", req.Type)

	return &models.ConsultationResponse{
		ID:        req.ID,
		Type:      kind.Label,
		Duration:  kind.Duration,
		Message:   ThankYouMessage,
		CreatedAt: req.CreatedAt,
	}, nil
}

// List returns stored requests newest first
func (s *Service) List(ctx context.Context, limit, offset int) ([]*models.ConsultationRequest, error) {
	return s.store.ListConsultations(ctx, limit, offset)
}

func (s *Service) validate(req *models.ConsultationRequest) (models.ConsultationType, error) {
	required := []struct {
		field string
		value string
	}{
		{"first_name", req.FirstName},
		{"last_name", req.LastName},
		{"email", req.Email},
		{"message", req.Message},
	}
	for _, r := range required {
		if r.value == "" {
			return models.ConsultationType{}, fmt.Errorf("%w: %s is required", ErrInvalidRequest, r.field)
		}
	}

	if !booking.ValidEmail(req.Email) {
		return models.ConsultationType{}, fmt.Errorf("%w: email is not valid", ErrInvalidRequest)
	}

	limits := []struct {
		field string
		value string
		max   int
	}{
		{"first_name", req.FirstName, models.MaxFieldLength},
		{"last_name", req.LastName, models.MaxFieldLength},
		{"email", req.Email, models.MaxFieldLength},
		{"phone", req.Phone, models.MaxFieldLength},
		{"message", req.Message, models.MaxMessageLength},
	}
	for _, l := range limits {
		if utf8.RuneCountInString(l.value) > l.max {
			return models.ConsultationType{}, fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidRequest, l.field, l.max)
		}
	}

	if req.EventDate != "" {
		if _, err := time.Parse(models.DateLayout, req.EventDate); err != nil {
			return models.ConsultationType{}, fmt.Errorf("%w: event_date must be YYYY-MM-DD", ErrInvalidRequest)
		}
	}

	kind, ok := s.types.ConsultationType(req.Type)
	if !ok {
		return models.ConsultationType{}, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
	}
	return kind, nil
}
