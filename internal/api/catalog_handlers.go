package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/studio-engine/internal/models"
)

// Catalog handlers. Read-only studio content, no session required.

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	services := s.catalog.ListServices(category)
	categories, _ := s.catalog.Categories(models.ViewServices)

	respondJSON(w, http.StatusOK, map[string]any{
		"services":   services,
		"categories": categories,
		"total":      len(services),
	})
}

func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request) {
	service, ok := s.catalog.GetService(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "service not found")
		return
	}
	respondJSON(w, http.StatusOK, service)
}

func (s *Server) handleListAddOns(w http.ResponseWriter, r *http.Request) {
	addOns := s.catalog.AddOns()
	respondJSON(w, http.StatusOK, map[string]any{
		"addons": addOns,
		"total":  len(addOns),
	})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	projects := s.catalog.ListProjects(category)
	categories, _ := s.catalog.Categories(models.ViewPortfolio)

	respondJSON(w, http.StatusOK, map[string]any{
		"projects":   projects,
		"categories": categories,
		"total":      len(projects),
	})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, ok := s.catalog.GetProject(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "project not found")
		return
	}
	respondJSON(w, http.StatusOK, project)
}

func (s *Server) handleFeaturedProjects(w http.ResponseWriter, r *http.Request) {
	projects := s.catalog.FeaturedProjects()
	respondJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
		"total":    len(projects),
	})
}

func (s *Server) handlePortfolioStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.catalog.PortfolioStats())
}

func (s *Server) handleAwards(w http.ResponseWriter, r *http.Request) {
	awards := s.catalog.Awards()
	respondJSON(w, http.StatusOK, map[string]any{
		"awards": awards,
		"total":  len(awards),
	})
}

func (s *Server) handleListTestimonials(w http.ResponseWriter, r *http.Request) {
	testimonials := s.catalog.Testimonials()
	respondJSON(w, http.StatusOK, map[string]any{
		"testimonials": testimonials,
		"total":        len(testimonials),
	})
}

func (s *Server) handleListTeam(w http.ResponseWriter, r *http.Request) {
	team := s.catalog.Team()
	respondJSON(w, http.StatusOK, map[string]any{
		"team":  team,
		"total": len(team),
	})
}

func (s *Server) handleTimeSlots(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"time_slots": s.catalog.TimeSlots(),
	})
}

func (s *Server) handleConsultationTypes(w http.ResponseWriter, r *http.Request) {
	types := s.catalog.ConsultationTypes()
	respondJSON(w, http.StatusOK, map[string]any{
		"consultation_types": types,
		"total":              len(types),
	})
}
