package contact

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/terra-clan/studio-engine/internal/catalog"
	"github.com/terra-clan/studio-engine/internal/models"
	"github.com/terra-clan/studio-engine/internal/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cat, err := catalog.LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded() error: %v", err)
	}
	repo, err := storage.OpenSQLiteMemory()
	if err != nil {
		t.Fatalf("OpenSQLiteMemory() error: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewService(cat, repo)
}

func validRequest() models.CreateConsultationRequest {
	return models.CreateConsultationRequest{
		Type:      "commercial",
		FirstName: "Nikhil",
		LastName:  "Shah",
		Email:     "nikhil@example.com",
		Message:   "Product shoot for our spring catalogue.",
	}
}

func TestSubmit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Submit(ctx, validRequest())
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if resp.ID == "" || resp.Duration != "60 mins" || resp.Message != ThankYouMessage {
		t.Errorf("Submit() = %+v", resp)
	}

	list, err := svc.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(list) != 1 || list[0].ID != resp.ID || list[0].FullName() != "Nikhil Shah" {
		t.Errorf("List() = %v", list)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name   string
		mutate func(r *models.CreateConsultationRequest)
		want   error
	}{
		{"missing first name", func(r *models.CreateConsultationRequest) { r.FirstName = " " }, ErrInvalidRequest},
		{"missing last name", func(r *models.CreateConsultationRequest) { r.LastName = "" }, ErrInvalidRequest},
		{"missing message", func(r *models.CreateConsultationRequest) { r.Message = "" }, ErrInvalidRequest},
		{"bad email", func(r *models.CreateConsultationRequest) { r.Email = "nikhil@" }, ErrInvalidRequest},
		{"bad event date", func(r *models.CreateConsultationRequest) { r.EventDate = "next june" }, ErrInvalidRequest},
		{"overlong message", func(r *models.CreateConsultationRequest) {
			r.Message = strings.Repeat("ś", models.MaxMessageLength+1)
		}, ErrInvalidRequest},
		{"overlong phone", func(r *models.CreateConsultationRequest) {
			r.Phone = strings.Repeat("9", models.MaxFieldLength+1)
		}, ErrInvalidRequest},
		{"unknown type", func(r *models.CreateConsultationRequest) { r.Type = "astrology" }, ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := svc.Submit(context.Background(), req)
			if !errors.Is(err, tt.want) {
				t.Errorf("Submit() error = %v, want %v", err, tt.want)
			}
		})
	}
}
