package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/studio-engine/internal/models"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func pagination(r *http.Request) (limit, offset int) {
	limit = queryInt(r, "limit", defaultPageSize)
	if limit == 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return limit, queryInt(r, "offset", 0)
}

// --- Contact page ---

func (s *Server) handleCreateConsultation(w http.ResponseWriter, r *http.Request) {
	var req models.CreateConsultationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.contact.Submit(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "submit consultation", nil)
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}

// --- Admin handlers (API key auth) ---

func (s *Server) handleAdminListBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	filters := models.ListFilters{
		ServiceID: r.URL.Query().Get("service"),
		Limit:     limit,
		Offset:    offset,
	}

	bookings, err := s.repo.ListBookings(r.Context(), filters)
	if err != nil {
		slog.Error("failed to list bookings", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list bookings")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"bookings": bookings,
		"total":    len(bookings),
		"limit":    limit,
		"offset":   offset,
	})
}

func (s *Server) handleAdminGetBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.repo.GetBooking(r.Context(), id)
	if err != nil {
		slog.Error("failed to get booking", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get booking")
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "not_found", "booking not found")
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAdminListConsultations(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	consultations, err := s.contact.List(r.Context(), limit, offset)
	if err != nil {
		slog.Error("failed to list consultations", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list consultations")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"consultations": consultations,
		"total":         len(consultations),
		"limit":         limit,
		"offset":        offset,
	})
}
