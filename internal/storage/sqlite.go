package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/terra-clan/studio-engine/internal/events"
	"github.com/terra-clan/studio-engine/internal/models"
)

// SQLiteRepository implements Repository on an embedded SQLite database.
// Inserts are published to the optional publisher after commit.
type SQLiteRepository struct {
	db  *sql.DB
	pub events.Publisher
}

// SQLiteOption configures a SQLiteRepository
type SQLiteOption func(*SQLiteRepository)

// WithPublisher publishes created bookings and consultations to the staff topic
func WithPublisher(pub events.Publisher) SQLiteOption {
	return func(r *SQLiteRepository) {
		r.pub = pub
	}
}

// OpenSQLite creates or opens a SQLite database at path
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return newSQLiteRepository(db, opts)
}

// OpenSQLiteMemory creates an in-memory database (useful for testing)
func OpenSQLiteMemory(opts ...SQLiteOption) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// every connection would get its own empty database
	db.SetMaxOpenConns(1)

	return newSQLiteRepository(db, opts)
}

func newSQLiteRepository(db *sql.DB, opts []SQLiteOption) (*SQLiteRepository, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	r := &SQLiteRepository{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Ping checks database connectivity
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// CreateBooking stores a submitted booking
func (r *SQLiteRepository) CreateBooking(ctx context.Context, rec *models.BookingRecord) error {
	contactJSON, err := json.Marshal(rec.Contact)
	if err != nil {
		return fmt.Errorf("failed to marshal contact: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO bookings (id, reference, session_id, service_id, booking_date, time_slot, contact, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Reference,
		nullString(rec.SessionID),
		rec.ServiceID,
		rec.Date,
		rec.TimeSlot,
		string(contactJSON),
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	r.publish(events.TypeBookingCreated, rec.Notice())
	return nil
}

// GetBooking retrieves a booking by id or reference
func (r *SQLiteRepository) GetBooking(ctx context.Context, id string) (*models.BookingRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, reference, session_id, service_id, booking_date, time_slot, contact, created_at
		FROM bookings
		WHERE id = ? OR reference = ?`, id, id)

	rec, err := scanSQLiteBooking(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return rec, nil
}

// ListBookings returns bookings newest first
func (r *SQLiteRepository) ListBookings(ctx context.Context, filters models.ListFilters) ([]*models.BookingRecord, error) {
	query := `
		SELECT id, reference, session_id, service_id, booking_date, time_slot, contact, created_at
		FROM bookings
		WHERE 1=1`
	var args []any

	if filters.ServiceID != "" {
		query += " AND service_id = ?"
		args = append(args, filters.ServiceID)
	}

	query += " ORDER BY created_at DESC"

	limit := filters.Limit
	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filters.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.BookingRecord
	for rows.Next() {
		rec, err := scanSQLiteBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, rec)
	}

	return bookings, rows.Err()
}

// CreateConsultation stores a contact form request
func (r *SQLiteRepository) CreateConsultation(ctx context.Context, req *models.ConsultationRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO consultations (id, type, first_name, last_name, email, phone, event_date, message, newsletter, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID,
		req.Type,
		req.FirstName,
		req.LastName,
		req.Email,
		nullString(req.Phone),
		nullString(req.EventDate),
		req.Message,
		req.Newsletter,
		formatTime(req.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert consultation: %w", err)
	}

	r.publish(events.TypeConsultationCreated, req.Notice())
	return nil
}

// ListConsultations returns consultation requests newest first
func (r *SQLiteRepository) ListConsultations(ctx context.Context, limit, offset int) ([]*models.ConsultationRequest, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, first_name, last_name, email, phone, event_date, message, newsletter, created_at
		FROM consultations
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	defer rows.Close()

	var requests []*models.ConsultationRequest
	for rows.Next() {
		var req models.ConsultationRequest
		var phone, eventDate sql.NullString
		var createdAt string

		err := rows.Scan(
			&req.ID,
			&req.Type,
			&req.FirstName,
			&req.LastName,
			&req.Email,
			&phone,
			&eventDate,
			&req.Message,
			&req.Newsletter,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consultation: %w", err)
		}

		req.Phone = phone.String
		req.EventDate = eventDate.String
		if req.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}

		requests = append(requests, &req)
	}

	return requests, rows.Err()
}

// GetClientByApiKey retrieves an API client by its key
func (r *SQLiteRepository) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	var client models.ApiClient
	var createdAt string
	var lastUsedAt sql.NullString
	var permissionsJSON, metadataJSON string

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, api_key, is_active, created_at, last_used_at, permissions, metadata
		FROM api_clients
		WHERE api_key = ?`, apiKey).Scan(
		&client.ID,
		&client.Name,
		&client.ApiKey,
		&client.IsActive,
		&createdAt,
		&lastUsedAt,
		&permissionsJSON,
		&metadataJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get api client: %w", err)
	}

	if client.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	if lastUsedAt.Valid {
		t, err := parseTime(lastUsedAt.String)
		if err != nil {
			return nil, err
		}
		client.LastUsedAt = &t
	}

	if err := decodeClientJSON(&client, []byte(permissionsJSON), []byte(metadataJSON)); err != nil {
		return nil, err
	}

	return &client, nil
}

// UpdateClientLastUsed updates the last_used_at timestamp for a client
func (r *SQLiteRepository) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE api_clients SET last_used_at = ? WHERE api_key = ?`,
		formatTime(time.Now()), apiKey)
	if err != nil {
		return fmt.Errorf("failed to update client last_used_at: %w", err)
	}
	return nil
}

// CreateClient registers a staff API client and fills in its id
func (r *SQLiteRepository) CreateClient(ctx context.Context, client *models.ApiClient) error {
	permissionsJSON, metadataJSON, err := encodeClientJSON(client)
	if err != nil {
		return err
	}

	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO api_clients (name, api_key, is_active, created_at, permissions, metadata)
		VALUES (?, ?, ?, ?, ?, ?)`,
		client.Name,
		client.ApiKey,
		client.IsActive,
		formatTime(client.CreatedAt),
		string(permissionsJSON),
		string(metadataJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to create api client: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read api client id: %w", err)
	}
	client.ID = int(id)

	return nil
}

func (r *SQLiteRepository) publish(eventType string, data any) {
	if r.pub == nil {
		return
	}

	ev, err := events.New(eventType, data)
	if err != nil {
		slog.Warn("failed to build event", "type", eventType, "error", err)
		return
	}
	r.pub.Publish(events.TopicStaff, ev)
}

func scanSQLiteBooking(row rowScanner) (*models.BookingRecord, error) {
	var rec models.BookingRecord
	var sessionID sql.NullString
	var contactJSON, createdAt string

	err := row.Scan(
		&rec.ID,
		&rec.Reference,
		&sessionID,
		&rec.ServiceID,
		&rec.Date,
		&rec.TimeSlot,
		&contactJSON,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	rec.SessionID = sessionID.String

	if err := json.Unmarshal([]byte(contactJSON), &rec.Contact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contact: %w", err)
	}

	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	return &rec, nil
}

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bookings (
    id TEXT PRIMARY KEY,
    reference TEXT NOT NULL UNIQUE,
    session_id TEXT,
    service_id TEXT NOT NULL,
    booking_date TEXT NOT NULL,
    time_slot TEXT NOT NULL,
    contact TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bookings_service_id ON bookings (service_id);
CREATE INDEX IF NOT EXISTS idx_bookings_created_at ON bookings (created_at);

CREATE TABLE IF NOT EXISTS consultations (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    email TEXT NOT NULL,
    phone TEXT,
    event_date TEXT,
    message TEXT NOT NULL,
    newsletter INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS api_clients (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    api_key TEXT NOT NULL UNIQUE,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    last_used_at TEXT,
    permissions TEXT NOT NULL DEFAULT '[]',
    metadata TEXT NOT NULL DEFAULT '{}'
);
`
