package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/studio-engine/internal/models"
	"github.com/terra-clan/studio-engine/internal/session"
)

// --- Visitor sessions ---

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		respondServiceError(w, err, "create session", nil)
		return
	}

	respondJSON(w, http.StatusCreated, models.CreateSessionResponse{
		ID:        sess.ID,
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		CreatedAt: sess.CreatedAt,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respondServiceError(w, err, "get session", nil)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "token")); err != nil {
		respondServiceError(w, err, "delete session", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
	})
}

// --- Selection views ---

func viewParam(r *http.Request) models.View {
	return models.View(chi.URLParam(r, "view"))
}

func (s *Server) respondSelection(w http.ResponseWriter, state *models.SelectionState, err error, action string) {
	if err != nil {
		respondServiceError(w, err, action, nil)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleSetCategory(w http.ResponseWriter, r *http.Request) {
	var req models.CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	state, err := s.sessions.SetCategory(r.Context(), chi.URLParam(r, "token"), viewParam(r), req.Category)
	s.respondSelection(w, state, err, "set category")
}

func (s *Server) handleOpenItem(w http.ResponseWriter, r *http.Request) {
	var req models.OpenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ItemID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "item_id is required")
		return
	}
	state, err := s.sessions.Open(r.Context(), chi.URLParam(r, "token"), viewParam(r), req.ItemID)
	s.respondSelection(w, state, err, "open item")
}

func (s *Server) handleCloseItem(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.Close(r.Context(), chi.URLParam(r, "token"), viewParam(r))
	s.respondSelection(w, state, err, "close item")
}

func (s *Server) handleCycleImage(w http.ResponseWriter, r *http.Request) {
	var req models.CycleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Direction != models.Forward && req.Direction != models.Backward {
		respondError(w, http.StatusBadRequest, "validation_error", "direction must be forward or backward")
		return
	}
	state, err := s.sessions.CycleImage(r.Context(), chi.URLParam(r, "token"), viewParam(r), req.Direction)
	s.respondSelection(w, state, err, "cycle image")
}

func (s *Server) handleSelectImage(w http.ResponseWriter, r *http.Request) {
	var req models.IndexRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	state, err := s.sessions.SelectImage(r.Context(), chi.URLParam(r, "token"), viewParam(r), req.Index)
	s.respondSelection(w, state, err, "select image")
}

// --- Testimonials ---

func (s *Server) handleTestimonialMove(w http.ResponseWriter, r *http.Request) {
	move := chi.URLParam(r, "move")

	var req models.IndexRequest
	if move == session.MoveJump && !decodeJSON(w, r, &req) {
		return
	}

	state, err := s.sessions.Testimonial(r.Context(), chi.URLParam(r, "token"), move, req.Index)
	if err != nil {
		respondServiceError(w, err, "move testimonial", nil)
		return
	}

	result := map[string]any{"carousel": state}
	if list := s.catalog.Testimonials(); state.Index < len(list) {
		result["testimonial"] = list[state.Index]
	}
	respondJSON(w, http.StatusOK, result)
}

// --- Booking wizard ---

// respondBooking answers with the draft, or with the mapped error carrying the
// draft as it stands after the rejected intent
func (s *Server) respondBooking(w http.ResponseWriter, resp *models.BookingResponse, err error, action string) {
	if err != nil {
		var details any
		if resp != nil {
			details = resp
		}
		respondServiceError(w, err, action, details)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	resp, err := s.sessions.Booking(r.Context(), chi.URLParam(r, "token"))
	s.respondBooking(w, resp, err, "get booking")
}

func (s *Server) handleSelectService(w http.ResponseWriter, r *http.Request) {
	var req models.SelectServiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.sessions.SelectService(r.Context(), chi.URLParam(r, "token"), req.ServiceID)
	s.respondBooking(w, resp, err, "select service")
}

func (s *Server) handleSetDate(w http.ResponseWriter, r *http.Request) {
	var req models.SetDateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.sessions.SetDate(r.Context(), chi.URLParam(r, "token"), req.Date)
	s.respondBooking(w, resp, err, "set date")
}

func (s *Server) handleSetTime(w http.ResponseWriter, r *http.Request) {
	var req models.SetTimeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.sessions.SetTime(r.Context(), chi.URLParam(r, "token"), req.TimeSlot)
	s.respondBooking(w, resp, err, "set time")
}

func (s *Server) handleSetContact(w http.ResponseWriter, r *http.Request) {
	var req models.ContactDetails
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.sessions.SetContact(r.Context(), chi.URLParam(r, "token"), req)
	s.respondBooking(w, resp, err, "set contact")
}

func (s *Server) handleBookingNext(w http.ResponseWriter, r *http.Request) {
	resp, err := s.sessions.Next(r.Context(), chi.URLParam(r, "token"))
	s.respondBooking(w, resp, err, "advance booking")
}

func (s *Server) handleBookingBack(w http.ResponseWriter, r *http.Request) {
	resp, err := s.sessions.Back(r.Context(), chi.URLParam(r, "token"))
	s.respondBooking(w, resp, err, "go back")
}

func (s *Server) handleBookingReset(w http.ResponseWriter, r *http.Request) {
	resp, err := s.sessions.Reset(r.Context(), chi.URLParam(r, "token"))
	s.respondBooking(w, resp, err, "reset booking")
}

func (s *Server) handleBookingSubmit(w http.ResponseWriter, r *http.Request) {
	resp, err := s.sessions.Submit(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.respondBooking(w, resp, err, "submit booking")
		return
	}
	// Outcome arrives on the session websocket or a later GET
	respondJSON(w, http.StatusAccepted, resp)
}
