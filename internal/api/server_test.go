package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/studio-engine/internal/booking"
	"github.com/terra-clan/studio-engine/internal/catalog"
	"github.com/terra-clan/studio-engine/internal/config"
	"github.com/terra-clan/studio-engine/internal/contact"
	"github.com/terra-clan/studio-engine/internal/events"
	"github.com/terra-clan/studio-engine/internal/health"
	"github.com/terra-clan/studio-engine/internal/models"
	"github.com/terra-clan/studio-engine/internal/session"
	"github.com/terra-clan/studio-engine/internal/storage"
)

const staffKey = "sk_test_front_desk"

type testEnv struct {
	server   *Server
	sessions *session.Manager
	repo     *storage.SQLiteRepository
	hub      *events.Hub
	health   *health.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cat, err := catalog.LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded() error: %v", err)
	}

	hub := events.NewHub()
	repo, err := storage.OpenSQLiteMemory(storage.WithPublisher(hub))
	if err != nil {
		t.Fatalf("OpenSQLiteMemory() error: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	now := func() time.Time { return time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC) }
	sessions := session.NewManager(session.NewMemoryStore(), cat,
		session.WithClock(now),
		session.WithTTL(time.Hour),
		session.WithPublisher(hub),
		session.WithSubmitter(booking.NewRepositorySubmitter(repo)),
	)
	t.Cleanup(sessions.Wait)

	err = repo.CreateClient(context.Background(), &models.ApiClient{
		Name:        "front-desk",
		ApiKey:      staffKey,
		IsActive:    true,
		Permissions: []string{models.PermBookingsRead, models.PermFeedRead},
	})
	if err != nil {
		t.Fatalf("CreateClient() error: %v", err)
	}

	registry := health.NewRegistry()
	registry.Register("repository", health.CheckerFunc(repo.Ping))

	server := NewServer(config.DefaultConfig().Server, Deps{
		Catalog:  cat,
		Sessions: sessions,
		Contact:  contact.NewService(cat, repo),
		Repo:     repo,
		Hub:      hub,
		Health:   registry,
	})

	return &testEnv{server: server, sessions: sessions, repo: repo, hub: hub, health: registry}
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

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid envelope %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func decodeData(t *testing.T, env envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	code, env := e.do(t, http.MethodPost, "/api/v1/sessions", nil)
	if code != http.StatusCreated {
		t.Fatalf("create session status = %d", code)
	}
	var resp models.CreateSessionResponse
	decodeData(t, env, &resp)
	if resp.Token == "" {
		t.Fatal("create session returned no token")
	}
	return resp.Token
}

func TestHealthAndReady(t *testing.T) {
	e := newTestEnv(t)

	code, env := e.do(t, http.MethodGet, "/health", nil)
	if code != http.StatusOK || !env.Success {
		t.Fatalf("health = %d %+v", code, env)
	}

	code, _ = e.do(t, http.MethodGet, "/ready", nil)
	if code != http.StatusOK {
		t.Fatalf("ready = %d, want 200", code)
	}

	e.health.Register("broken", health.CheckerFunc(func(context.Context) error {
		return errors.New("down")
	}))
	code, env = e.do(t, http.MethodGet, "/ready", nil)
	if code != http.StatusServiceUnavailable || env.Error == nil || env.Error.Code != "not_ready" {
		t.Fatalf("ready with failing check = %d %+v", code, env.Error)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodGet, "/api/v1/services", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "studio_engine_http_requests_total") {
		t.Error("metrics output lacks the http request counter")
	}
}

func TestCatalogRoutes(t *testing.T) {
	e := newTestEnv(t)

	code, env := e.do(t, http.MethodGet, "/api/v1/services?category=pre-wedding", nil)
	if code != http.StatusOK {
		t.Fatalf("list services = %d", code)
	}
	var services struct {
		Services []models.ServiceOffering `json:"services"`
		Total    int                      `json:"total"`
	}
	decodeData(t, env, &services)
	if services.Total != 1 || services.Services[0].ID != "prewedding" {
		t.Errorf("services filtered by pre-wedding = %+v", services)
	}

	code, env = e.do(t, http.MethodGet, "/api/v1/services/wedding", nil)
	if code != http.StatusOK {
		t.Fatalf("get service = %d", code)
	}
	var wire map[string]json.RawMessage
	decodeData(t, env, &wire)
	for _, key := range []string{"starting_price", "popular_for", "stats"} {
		if _, ok := wire[key]; !ok {
			t.Errorf("service payload missing %q: %v", key, wire)
		}
	}
	if !strings.Contains(string(wire["stats"]), `"events_captured"`) {
		t.Errorf("service stats = %s", wire["stats"])
	}

	code, env = e.do(t, http.MethodGet, "/api/v1/services/underwater", nil)
	if code != http.StatusNotFound || env.Error.Code != "not_found" {
		t.Errorf("unknown service = %d %+v", code, env.Error)
	}

	code, env = e.do(t, http.MethodGet, "/api/v1/portfolio/projects/sharma-family", nil)
	if code != http.StatusOK {
		t.Fatalf("get project = %d", code)
	}

	code, env = e.do(t, http.MethodGet, "/api/v1/booking/time-slots", nil)
	var slots struct {
		TimeSlots []string `json:"time_slots"`
	}
	decodeData(t, env, &slots)
	if code != http.StatusOK || len(slots.TimeSlots) == 0 || slots.TimeSlots[0] != "09:00 AM" {
		t.Errorf("time slots = %d %v", code, slots.TimeSlots)
	}

	for _, path := range []string{
		"/api/v1/addons",
		"/api/v1/portfolio/projects",
		"/api/v1/portfolio/featured",
		"/api/v1/portfolio/stats",
		"/api/v1/portfolio/awards",
		"/api/v1/testimonials",
		"/api/v1/team",
		"/api/v1/consultation-types",
	} {
		if code, _ := e.do(t, http.MethodGet, path, nil); code != http.StatusOK {
			t.Errorf("GET %s = %d", path, code)
		}
	}
}

func TestSelectionRoutes(t *testing.T) {
	e := newTestEnv(t)
	token := e.createSession(t)
	base := "/api/v1/sessions/" + token + "/views/portfolio"

	code, env := e.do(t, http.MethodPost, base+"/open", models.OpenRequest{ItemID: "sharma-family"})
	if code != http.StatusOK {
		t.Fatalf("open = %d %+v", code, env.Error)
	}
	var state models.SelectionState
	decodeData(t, env, &state)
	if state.OpenItemID != "sharma-family" || !state.ScrollLocked {
		t.Errorf("after open state = %+v", state)
	}

	code, env = e.do(t, http.MethodPost, base+"/cycle", models.CycleRequest{Direction: models.Backward})
	if code != http.StatusOK {
		t.Fatalf("cycle = %d %+v", code, env.Error)
	}
	decodeData(t, env, &state)
	if state.ImageIndex == 0 {
		t.Errorf("cycling backward from 0 should wrap, got %d", state.ImageIndex)
	}

	code, _ = e.do(t, http.MethodPost, base+"/cycle", models.CycleRequest{Direction: "sideways"})
	if code != http.StatusBadRequest {
		t.Errorf("bad direction = %d, want 400", code)
	}

	code, _ = e.do(t, http.MethodPost, base+"/close", nil)
	if code != http.StatusOK {
		t.Fatalf("close = %d", code)
	}

	code, env = e.do(t, http.MethodPost, base+"/cycle", models.CycleRequest{Direction: models.Forward})
	if code != http.StatusUnprocessableEntity || env.Error.Code != "nothing_open" {
		t.Errorf("cycle with nothing open = %d %+v", code, env.Error)
	}

	code, env = e.do(t, http.MethodPost, base+"/open", models.OpenRequest{ItemID: "missing"})
	if code != http.StatusNotFound || env.Error.Code != "item_not_found" {
		t.Errorf("open unknown item = %d %+v", code, env.Error)
	}

	code, env = e.do(t, http.MethodPost, "/api/v1/sessions/"+token+"/views/blog/close", nil)
	if code != http.StatusNotFound || env.Error.Code != "unknown_view" {
		t.Errorf("unknown view = %d %+v", code, env.Error)
	}

	code, env = e.do(t, http.MethodPost, "/api/v1/sessions/nope/views/portfolio/close", nil)
	if code != http.StatusNotFound || env.Error.Code != "session_not_found" {
		t.Errorf("unknown session = %d %+v", code, env.Error)
	}
}

func TestTestimonialRoutes(t *testing.T) {
	e := newTestEnv(t)
	token := e.createSession(t)
	base := "/api/v1/sessions/" + token + "/testimonials/"

	code, env := e.do(t, http.MethodPost, base+"prev", nil)
	if code != http.StatusOK {
		t.Fatalf("prev = %d", code)
	}
	var result struct {
		Carousel    models.CarouselState `json:"carousel"`
		Testimonial models.Testimonial   `json:"testimonial"`
	}
	decodeData(t, env, &result)
	if result.Carousel.Index != result.Carousel.Length-1 {
		t.Errorf("prev from 0 = %+v, want last", result.Carousel)
	}

	code, env = e.do(t, http.MethodPost, base+"jump", models.IndexRequest{Index: 1})
	if code != http.StatusOK {
		t.Fatalf("jump = %d", code)
	}
	decodeData(t, env, &result)
	if result.Carousel.Index != 1 || result.Testimonial.Name == "" {
		t.Errorf("jump = %+v", result)
	}

	code, _ = e.do(t, http.MethodPost, base+"shuffle", nil)
	if code != http.StatusNotFound {
		t.Errorf("unknown move = %d, want 404", code)
	}
}

func TestBookingFlowAndAdmin(t *testing.T) {
	e := newTestEnv(t)
	token := e.createSession(t)
	base := "/api/v1/sessions/" + token + "/booking"

	// Out-of-order intent is refused with the draft attached
	code, env := e.do(t, http.MethodPost, base+"/date", models.SetDateRequest{Date: "2025-06-01"})
	if code != http.StatusUnprocessableEntity || env.Error.Code != "wrong_step" {
		t.Fatalf("date at step one = %d %+v", code, env.Error)
	}
	var details models.BookingResponse
	if err := json.Unmarshal(env.Error.Details, &details); err != nil {
		t.Fatalf("error details: %v", err)
	}
	if details.Draft.Step != models.FirstBookingStep {
		t.Errorf("details draft step = %d", details.Draft.Step)
	}

	steps := []struct {
		path string
		body any
	}{
		{"/service", models.SelectServiceRequest{ServiceID: "wedding"}},
		{"/date", models.SetDateRequest{Date: "2025-06-01"}},
		{"/time", models.SetTimeRequest{TimeSlot: "10:00 AM"}},
		{"/next", nil},
		{"/contact", models.ContactDetails{Name: "Asha Rao", Email: "asha@example.com"}},
	}
	for _, step := range steps {
		if code, env := e.do(t, http.MethodPost, base+step.path, step.body); code != http.StatusOK {
			t.Fatalf("POST %s = %d %+v", step.path, code, env.Error)
		}
	}

	code, env = e.do(t, http.MethodPost, base+"/date", models.SetDateRequest{Date: "2025-05-01"})
	if code != http.StatusUnprocessableEntity {
		t.Errorf("date at contact step = %d", code)
	}

	code, env = e.do(t, http.MethodPost, base+"/submit", nil)
	if code != http.StatusAccepted {
		t.Fatalf("submit = %d %+v", code, env.Error)
	}
	e.sessions.Wait()

	code, env = e.do(t, http.MethodGet, base, nil)
	var resp models.BookingResponse
	decodeData(t, env, &resp)
	if code != http.StatusOK || resp.State != models.StateSubmitted || resp.Draft.Confirmation == nil {
		t.Fatalf("after submit = %d %+v", code, resp)
	}
	reference := resp.Draft.Confirmation.Reference

	// Staff can find the stored booking by reference
	code, env = e.do(t, http.MethodGet, "/api/v1/admin/bookings", nil)
	if code != http.StatusUnauthorized {
		t.Errorf("admin without key = %d", code)
	}

	code, env = e.do(t, http.MethodGet, "/api/v1/admin/bookings?service=wedding", nil, "Authorization", "Bearer "+staffKey)
	var list struct {
		Bookings []models.BookingRecord `json:"bookings"`
		Total    int                    `json:"total"`
	}
	decodeData(t, env, &list)
	if code != http.StatusOK || list.Total != 1 {
		t.Fatalf("admin bookings = %d %+v", code, list)
	}

	code, env = e.do(t, http.MethodGet, "/api/v1/admin/bookings/"+reference, nil, "X-API-Key", staffKey)
	var rec models.BookingRecord
	decodeData(t, env, &rec)
	if code != http.StatusOK || rec.Contact.Email != "asha@example.com" {
		t.Errorf("admin booking by reference = %d %+v", code, rec)
	}

	code, _ = e.do(t, http.MethodGet, "/api/v1/admin/bookings/BK-NOPE", nil, "X-API-Key", staffKey)
	if code != http.StatusNotFound {
		t.Errorf("unknown booking = %d", code)
	}

	code, env = e.do(t, http.MethodGet, "/api/v1/admin/consultations", nil, "X-API-Key", staffKey)
	if code != http.StatusForbidden || env.Error.Code != "permission_denied" {
		t.Errorf("consultations without permission = %d %+v", code, env.Error)
	}

	// Reset starts over
	code, env = e.do(t, http.MethodPost, base+"/reset", nil)
	decodeData(t, env, &resp)
	if code != http.StatusOK || resp.State != models.StateSelectService {
		t.Errorf("reset = %d %+v", code, resp)
	}
}

func TestConsultations(t *testing.T) {
	e := newTestEnv(t)

	code, env := e.do(t, http.MethodPost, "/api/v1/consultations", models.CreateConsultationRequest{
		Type:      "wedding",
		FirstName: "Meera",
		LastName:  "Iyer",
		Email:     "meera@example.com",
		Message:   "December wedding in Goa",
	})
	if code != http.StatusCreated {
		t.Fatalf("create consultation = %d %+v", code, env.Error)
	}
	var resp models.ConsultationResponse
	decodeData(t, env, &resp)
	if resp.Duration != "45 mins" || resp.ID == "" {
		t.Errorf("consultation response = %+v", resp)
	}

	code, env = e.do(t, http.MethodPost, "/api/v1/consultations", models.CreateConsultationRequest{Type: "wedding"})
	if code != http.StatusUnprocessableEntity || env.Error.Code != "validation_error" {
		t.Errorf("incomplete consultation = %d %+v", code, env.Error)
	}

	tooLong := models.CreateConsultationRequest{
		Type:      "wedding",
		FirstName: "Meera",
		LastName:  "Iyer",
		Email:     "meera@example.com",
		Message:   strings.Repeat("a", models.MaxMessageLength+1),
	}
	code, env = e.do(t, http.MethodPost, "/api/v1/consultations", tooLong)
	if code != http.StatusUnprocessableEntity || env.Error.Code != "validation_error" {
		t.Errorf("overlong message = %d %+v", code, env.Error)
	}

	tooLong.Message = strings.Repeat("a", maxBodyBytes)
	code, env = e.do(t, http.MethodPost, "/api/v1/consultations", tooLong)
	if code != http.StatusRequestEntityTooLarge || env.Error.Code != "request_too_large" {
		t.Errorf("oversized body = %d %+v", code, env.Error)
	}

	code, env = e.do(t, http.MethodPost, "/api/v1/consultations", models.CreateConsultationRequest{
		Type:      "astrology",
		FirstName: "Meera",
		LastName:  "Iyer",
		Email:     "meera@example.com",
		Message:   "hello",
	})
	if code != http.StatusUnprocessableEntity || env.Error.Code != "unknown_consultation_type" {
		t.Errorf("unknown type = %d %+v", code, env.Error)
	}

	err := e.repo.CreateClient(context.Background(), &models.ApiClient{
		Name:        "owner",
		ApiKey:      "sk_test_owner",
		IsActive:    true,
		Permissions: []string{"*"},
	})
	if err != nil {
		t.Fatalf("CreateClient() error: %v", err)
	}

	code, env = e.do(t, http.MethodGet, "/api/v1/admin/consultations", nil, "Authorization", "sk_test_owner")
	var list struct {
		Total int `json:"total"`
	}
	decodeData(t, env, &list)
	if code != http.StatusOK || list.Total != 1 {
		t.Errorf("admin consultations = %d %+v", code, list)
	}
}

func TestSessionWebsocket(t *testing.T) {
	e := newTestEnv(t)
	ts := httptest.NewServer(e.server.Router())
	defer ts.Close()

	token := e.createSession(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/sessions/" + token + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var ev events.Event
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read connected: %v", err)
	}
	if ev.Type != typeConnected {
		t.Fatalf("first message = %s, want %s", ev.Type, typeConnected)
	}

	base := "/api/v1/sessions/" + token + "/booking"
	for _, step := range []struct {
		path string
		body any
	}{
		{"/service", models.SelectServiceRequest{ServiceID: "portrait"}},
		{"/date", models.SetDateRequest{Date: "2025-06-10"}},
		{"/time", models.SetTimeRequest{TimeSlot: "09:00 AM"}},
		{"/next", nil},
		{"/contact", models.ContactDetails{Name: "Dev", Email: "dev@example.com"}},
		{"/submit", nil},
	} {
		if code, env := e.do(t, http.MethodPost, base+step.path, step.body); code >= 300 {
			t.Fatalf("POST %s = %d %+v", step.path, code, env.Error)
		}
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read status: %v", err)
	}
	if ev.Type != events.TypeBookingStatus {
		t.Fatalf("event type = %s", ev.Type)
	}
	var resp models.BookingResponse
	if err := json.Unmarshal(ev.Data, &resp); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if resp.State != models.StateSubmitted {
		t.Errorf("pushed state = %s", resp.State)
	}
}

func TestSessionWebsocketUnknownSession(t *testing.T) {
	e := newTestEnv(t)
	ts := httptest.NewServer(e.server.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/sessions/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("dial to unknown session succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("handshake response = %v", resp)
	}
	if e.hub.Subscribers(events.SessionTopic("missing")) != 0 {
		t.Error("refused stream left a subscription behind")
	}
}

func TestStaffFeedWebsocket(t *testing.T) {
	e := newTestEnv(t)
	ts := httptest.NewServer(e.server.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/admin/feed"

	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("feed without key: err=%v resp=%v", err, resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?api_key="+staffKey, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var ev events.Event
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&ev); err != nil || ev.Type != typeConnected {
		t.Fatalf("connected = %+v, %v", ev, err)
	}

	code, env := e.do(t, http.MethodPost, "/api/v1/consultations", models.CreateConsultationRequest{
		Type:      "portrait",
		FirstName: "Kabir",
		LastName:  "Shah",
		Email:     "kabir@example.com",
		Message:   "Headshots for the team",
	})
	if code != http.StatusCreated {
		t.Fatalf("create consultation = %d %+v", code, env.Error)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read feed: %v", err)
	}
	if ev.Type != events.TypeConsultationCreated {
		t.Errorf("feed event = %s, want %s", ev.Type, events.TypeConsultationCreated)
	}
}
