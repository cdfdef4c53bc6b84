package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/terra-clan/studio-engine/internal/models"
)

// Client is a Go SDK for the studio-engine API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithAPIKey sets the staff key sent on every request
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// NewClient creates a new studio-engine client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is an error envelope returned by the server
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	// Details holds the raw error details, e.g. the booking draft of a refused intent
	Details json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s - %s", e.StatusCode, e.Code, e.Message)
}

// Draft decodes the booking draft attached to a refused booking intent
func (e *APIError) Draft() (*models.BookingResponse, bool) {
	if len(e.Details) == 0 {
		return nil, false
	}
	var resp models.BookingResponse
	if err := json.Unmarshal(e.Details, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

// --- Catalog ---

// ListServices returns services, optionally filtered by category
func (c *Client) ListServices(ctx context.Context, category string) ([]models.ServiceOffering, error) {
	var data struct {
		Services []models.ServiceOffering `json:"services"`
	}
	if err := c.call(ctx, http.MethodGet, withQuery("/api/v1/services", "category", category), nil, &data); err != nil {
		return nil, err
	}
	return data.Services, nil
}

// GetService retrieves a service by ID
func (c *Client) GetService(ctx context.Context, id string) (*models.ServiceOffering, error) {
	var data models.ServiceOffering
	if err := c.call(ctx, http.MethodGet, "/api/v1/services/"+url.PathEscape(id), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ListAddOns returns the optional extras
func (c *Client) ListAddOns(ctx context.Context) ([]models.AddOn, error) {
	var data struct {
		AddOns []models.AddOn `json:"addons"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/addons", nil, &data); err != nil {
		return nil, err
	}
	return data.AddOns, nil
}

// ListProjects returns portfolio projects, optionally filtered by category
func (c *Client) ListProjects(ctx context.Context, category string) ([]models.PortfolioProject, error) {
	var data struct {
		Projects []models.PortfolioProject `json:"projects"`
	}
	if err := c.call(ctx, http.MethodGet, withQuery("/api/v1/portfolio/projects", "category", category), nil, &data); err != nil {
		return nil, err
	}
	return data.Projects, nil
}

// GetProject retrieves a portfolio project by ID
func (c *Client) GetProject(ctx context.Context, id string) (*models.PortfolioProject, error) {
	var data models.PortfolioProject
	if err := c.call(ctx, http.MethodGet, "/api/v1/portfolio/projects/"+url.PathEscape(id), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// FeaturedProjects returns the projects flagged for emphasis
func (c *Client) FeaturedProjects(ctx context.Context) ([]models.PortfolioProject, error) {
	var data struct {
		Projects []models.PortfolioProject `json:"projects"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/portfolio/featured", nil, &data); err != nil {
		return nil, err
	}
	return data.Projects, nil
}

// PortfolioStats returns the studio-wide numbers
func (c *Client) PortfolioStats(ctx context.Context) (*models.PortfolioStats, error) {
	var data models.PortfolioStats
	if err := c.call(ctx, http.MethodGet, "/api/v1/portfolio/stats", nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Awards returns the studio's awards
func (c *Client) Awards(ctx context.Context) ([]models.Award, error) {
	var data struct {
		Awards []models.Award `json:"awards"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/portfolio/awards", nil, &data); err != nil {
		return nil, err
	}
	return data.Awards, nil
}

// Testimonials returns client testimonials in carousel order
func (c *Client) Testimonials(ctx context.Context) ([]models.Testimonial, error) {
	var data struct {
		Testimonials []models.Testimonial `json:"testimonials"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/testimonials", nil, &data); err != nil {
		return nil, err
	}
	return data.Testimonials, nil
}

// Team returns the studio team
func (c *Client) Team(ctx context.Context) ([]models.TeamMember, error) {
	var data struct {
		Team []models.TeamMember `json:"team"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/team", nil, &data); err != nil {
		return nil, err
	}
	return data.Team, nil
}

// TimeSlots returns the bookable time slots
func (c *Client) TimeSlots(ctx context.Context) ([]string, error) {
	var data struct {
		TimeSlots []string `json:"time_slots"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/booking/time-slots", nil, &data); err != nil {
		return nil, err
	}
	return data.TimeSlots, nil
}

// ConsultationTypes returns the kinds of consultation offered
func (c *Client) ConsultationTypes(ctx context.Context) ([]models.ConsultationType, error) {
	var data struct {
		Types []models.ConsultationType `json:"consultation_types"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/consultation-types", nil, &data); err != nil {
		return nil, err
	}
	return data.Types, nil
}

// --- Sessions ---

// CreateSession starts a visitor session
func (c *Client) CreateSession(ctx context.Context) (*models.CreateSessionResponse, error) {
	var data models.CreateSessionResponse
	if err := c.call(ctx, http.MethodPost, "/api/v1/sessions", nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSession returns the full state of a session
func (c *Client) GetSession(ctx context.Context, token string) (*models.Session, error) {
	var data models.Session
	if err := c.call(ctx, http.MethodGet, sessionPath(token, ""), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DeleteSession discards a session
func (c *Client) DeleteSession(ctx context.Context, token string) error {
	return c.call(ctx, http.MethodDelete, sessionPath(token, ""), nil, nil)
}

// --- Booking ---

// Booking returns the session's booking draft
func (c *Client) Booking(ctx context.Context, token string) (*models.BookingResponse, error) {
	return c.bookingCall(ctx, http.MethodGet, token, "", nil)
}

// SelectService picks the service at step one
func (c *Client) SelectService(ctx context.Context, token, serviceID string) (*models.BookingResponse, error) {
	return c.bookingCall(ctx, http.MethodPost, token, "/service", models.SelectServiceRequest{ServiceID: serviceID})
}

// SetDate picks the session date (YYYY-MM-DD)
func (c *Client) SetDate(ctx context.Context, token, date string) (*models.BookingResponse, error) {
	return c.bookingCall(ctx, http.MethodPost, token, "/date", models.SetDateRequest{Date: date})
}

// SetTime picks the time slot
func (c *Client) SetTime(ctx context.Context, token, slot string) (*models.BookingResponse, error) {
	return c.bookingCall(ctx, http.MethodPost, token, "/time", models.SetTimeRequest{TimeSlot: slot})
}

// SetContact fills in the visitor's details
func (c *Client) SetContact(ctx context.Context, token string, contact models.ContactDetails) (*models.BookingResponse, error) {
	return c.bookingCall(ctx, http.MethodPost, token, "/contact", contact)
}

// Next advances the wizard
func (c *Client) Next(ctx context.Context, token string) (*models.BookingResponse, error) {
	return c.bookingCall(ctx, http.MethodPost, token, "/next", nil)
}

// Back returns to the previous step
func (c *Client) Back(ctx context.Context, token string) (*models.BookingResponse, error) {
	return c.bookingCall(ctx, http.MethodPost, token, "/back", nil)
}

// Submit starts the submission. The returned draft is in the submitting
// state; poll Booking or follow the session websocket for the outcome.
func (c *Client) Submit(ctx context.Context, token string) (*models.BookingResponse, error) {
	return c.bookingCall(ctx, http.MethodPost, token, "/submit", nil)
}

// Reset discards the draft
func (c *Client) Reset(ctx context.Context, token string) (*models.BookingResponse, error) {
	return c.bookingCall(ctx, http.MethodPost, token, "/reset", nil)
}

func (c *Client) bookingCall(ctx context.Context, method, token, action string, body any) (*models.BookingResponse, error) {
	var data models.BookingResponse
	if err := c.call(ctx, method, sessionPath(token, "/booking"+action), body, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// --- Consultations ---

// SubmitConsultation sends the contact form
func (c *Client) SubmitConsultation(ctx context.Context, req models.CreateConsultationRequest) (*models.ConsultationResponse, error) {
	var data models.ConsultationResponse
	if err := c.call(ctx, http.MethodPost, "/api/v1/consultations", req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// --- Staff (requires WithAPIKey) ---

// ListBookings returns stored bookings, newest first
func (c *Client) ListBookings(ctx context.Context, serviceID string, limit, offset int) ([]*models.BookingRecord, error) {
	q := url.Values{}
	if serviceID != "" {
		q.Set("service", serviceID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	path := "/api/v1/admin/bookings"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var data struct {
		Bookings []*models.BookingRecord `json:"bookings"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.Bookings, nil
}

// GetBooking retrieves a stored booking by id or reference
func (c *Client) GetBooking(ctx context.Context, idOrReference string) (*models.BookingRecord, error) {
	var data models.BookingRecord
	if err := c.call(ctx, http.MethodGet, "/api/v1/admin/bookings/"+url.PathEscape(idOrReference), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, nil)
}

func sessionPath(token, suffix string) string {
	return "/api/v1/sessions/" + url.PathEscape(token) + suffix
}

func withQuery(path, key, value string) string {
	if value == "" {
		return path
	}
	return path + "?" + url.Values{key: {value}}.Encode()
}

// call performs a request and unwraps the response envelope into out
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	status, respBody, err := c.doRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}

	var result envelope
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("failed to unmarshal response (HTTP %d): %w", status, err)
	}

	if !result.Success {
		apiErr := &APIError{StatusCode: status}
		if result.Error != nil {
			apiErr.Code = result.Error.Code
			apiErr.Message = result.Error.Message
			apiErr.Details = result.Error.Details
		}
		return apiErr
	}

	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
