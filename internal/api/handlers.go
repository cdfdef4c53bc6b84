package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/terra-clan/studio-engine/internal/booking"
	"github.com/terra-clan/studio-engine/internal/contact"
	"github.com/terra-clan/studio-engine/internal/health"
	"github.com/terra-clan/studio-engine/internal/selection"
	"github.com/terra-clan/studio-engine/internal/session"
)

// Response helpers

type apiResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondErrorDetails(w, status, code, message, nil)
}

func respondErrorDetails(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// errorStatus maps a domain error to an HTTP status and error code
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, session.ErrUnknownView):
		return http.StatusNotFound, "unknown_view"
	case errors.Is(err, session.ErrUnknownMove):
		return http.StatusNotFound, "unknown_move"
	case errors.Is(err, selection.ErrItemNotFound):
		return http.StatusNotFound, "item_not_found"

	case errors.Is(err, booking.ErrSubmissionInFlight):
		return http.StatusConflict, "submission_in_flight"

	case errors.Is(err, selection.ErrNothingOpen):
		return http.StatusUnprocessableEntity, "nothing_open"
	case errors.Is(err, booking.ErrUnknownService):
		return http.StatusUnprocessableEntity, "unknown_service"
	case errors.Is(err, booking.ErrUnknownTimeSlot):
		return http.StatusUnprocessableEntity, "unknown_time_slot"
	case errors.Is(err, booking.ErrInvalidDate):
		return http.StatusUnprocessableEntity, "invalid_date"
	case errors.Is(err, booking.ErrPastDate):
		return http.StatusUnprocessableEntity, "past_date"
	case errors.Is(err, booking.ErrWrongStep):
		return http.StatusUnprocessableEntity, "wrong_step"
	case errors.Is(err, booking.ErrStepIncomplete):
		return http.StatusUnprocessableEntity, "step_incomplete"
	case errors.Is(err, booking.ErrInvalidContact):
		return http.StatusUnprocessableEntity, "invalid_contact"
	case errors.Is(err, booking.ErrAlreadySubmitted):
		return http.StatusUnprocessableEntity, "already_submitted"
	case errors.Is(err, contact.ErrUnknownType):
		return http.StatusUnprocessableEntity, "unknown_consultation_type"
	case errors.Is(err, contact.ErrInvalidRequest):
		return http.StatusUnprocessableEntity, "validation_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

// respondServiceError writes the mapped error. details, when set, travel with
// client errors only.
func respondServiceError(w http.ResponseWriter, err error, action string, details any) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "action", action, "error", err)
		respondError(w, status, code, "failed to "+action)
		return
	}
	respondErrorDetails(w, status, code, err.Error(), details)
}

// decodeJSON reads the request body into v, answering 400 on failure
// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 64 << 10

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body is too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	results := s.health.CheckAll(r.Context())

	checks := make(map[string]string, len(results))
	for name, err := range results {
		if err != nil {
			slog.Warn("readiness check failed", "checker", name, "error", err)
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	if !health.Healthy(results) {
		respondErrorDetails(w, http.StatusServiceUnavailable, "not_ready", "service not ready", checks)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": checks,
	})
}
