package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/terra-clan/studio-engine/internal/catalog"
	"github.com/terra-clan/studio-engine/internal/config"
	"github.com/terra-clan/studio-engine/internal/contact"
	"github.com/terra-clan/studio-engine/internal/events"
	"github.com/terra-clan/studio-engine/internal/health"
	"github.com/terra-clan/studio-engine/internal/metrics"
	"github.com/terra-clan/studio-engine/internal/models"
	"github.com/terra-clan/studio-engine/internal/session"
	"github.com/terra-clan/studio-engine/internal/storage"
)

// Deps are the services the HTTP layer serves
type Deps struct {
	Catalog  *catalog.Catalog
	Sessions *session.Manager
	Contact  *contact.Service
	Repo     storage.Repository
	Hub      *events.Hub
	Health   *health.Registry
}

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	catalog        *catalog.Catalog
	sessions       *session.Manager
	contact        *contact.Service
	repo           storage.Repository
	hub            *events.Hub
	health         *health.Registry
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{
		config:         cfg,
		catalog:        deps.Catalog,
		sessions:       deps.Sessions,
		contact:        deps.Contact,
		repo:           deps.Repo,
		hub:            deps.Hub,
		health:         deps.Health,
		authMiddleware: NewAuthMiddleware(deps.Repo),
	}
	if s.health == nil {
		s.health = health.NewRegistry()
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(metricsMiddleware)
	r.Use(middleware.Recoverer)

	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	requestTimeout := s.config.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// Live streams stay open past the request timeout
		r.Get("/sessions/{token}/ws", s.handleSessionWS)
		r.With(
			s.authMiddleware.Authenticate,
			s.authMiddleware.RequirePermission(models.PermFeedRead),
		).Get("/admin/feed", s.handleStaffFeedWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			// Catalog (public)
			r.Get("/services", s.handleListServices)
			r.Get("/services/{id}", s.handleGetService)
			r.Get("/addons", s.handleListAddOns)
			r.Route("/portfolio", func(r chi.Router) {
				r.Get("/projects", s.handleListProjects)
				r.Get("/projects/{id}", s.handleGetProject)
				r.Get("/featured", s.handleFeaturedProjects)
				r.Get("/stats", s.handlePortfolioStats)
				r.Get("/awards", s.handleAwards)
			})
			r.Get("/testimonials", s.handleListTestimonials)
			r.Get("/team", s.handleListTeam)
			r.Get("/booking/time-slots", s.handleTimeSlots)
			r.Get("/consultation-types", s.handleConsultationTypes)

			// Visitor sessions (token in path)
			r.Post("/sessions", s.handleCreateSession)
			r.Route("/sessions/{token}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)

				r.Route("/views/{view}", func(r chi.Router) {
					r.Post("/category", s.handleSetCategory)
					r.Post("/open", s.handleOpenItem)
					r.Post("/close", s.handleCloseItem)
					r.Post("/cycle", s.handleCycleImage)
					r.Post("/image", s.handleSelectImage)
				})

				r.Post("/testimonials/{move}", s.handleTestimonialMove)

				r.Route("/booking", func(r chi.Router) {
					r.Get("/", s.handleGetBooking)
					r.Post("/service", s.handleSelectService)
					r.Post("/date", s.handleSetDate)
					r.Post("/time", s.handleSetTime)
					r.Post("/contact", s.handleSetContact)
					r.Post("/next", s.handleBookingNext)
					r.Post("/back", s.handleBookingBack)
					r.Post("/submit", s.handleBookingSubmit)
					r.Post("/reset", s.handleBookingReset)
				})
			})

			r.Post("/consultations", s.handleCreateConsultation)

			// Staff (API key auth)
			r.Route("/admin", func(r chi.Router) {
				r.Use(s.authMiddleware.Authenticate)

				r.With(s.authMiddleware.RequirePermission(models.PermBookingsRead)).Get("/bookings", s.handleAdminListBookings)
				r.With(s.authMiddleware.RequirePermission(models.PermBookingsRead)).Get("/bookings/{id}", s.handleAdminGetBooking)
				r.With(s.authMiddleware.RequirePermission(models.PermConsultationsRead)).Get("/consultations", s.handleAdminListConsultations)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// metricsMiddleware records request counts and latency by route pattern
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		statusCode := strconv.Itoa(status)
		durationMs := float64(time.Since(start).Microseconds()) / 1000

		metrics.RecordHTTPRequest(endpoint, r.Method, statusCode)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCode, durationMs)
	})
}
