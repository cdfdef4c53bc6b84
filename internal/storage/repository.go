package storage

import (
	"context"

	"github.com/terra-clan/studio-engine/internal/models"
)

// Repository defines the interface for booking and consultation persistence
type Repository interface {
	// Bookings
	CreateBooking(ctx context.Context, rec *models.BookingRecord) error
	GetBooking(ctx context.Context, id string) (*models.BookingRecord, error)
	ListBookings(ctx context.Context, filters models.ListFilters) ([]*models.BookingRecord, error)

	// Consultations
	CreateConsultation(ctx context.Context, req *models.ConsultationRequest) error
	ListConsultations(ctx context.Context, limit, offset int) ([]*models.ConsultationRequest, error)

	// API Clients
	GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error)
	UpdateClientLastUsed(ctx context.Context, apiKey string) error
	CreateClient(ctx context.Context, client *models.ApiClient) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
