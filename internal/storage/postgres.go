package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/studio-engine/internal/events"
	"github.com/terra-clan/studio-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL.
// Inserts notify events.NotifyChannel in the same transaction.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the underlying pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// --- Bookings ---

// CreateBooking stores a submitted booking and notifies listeners
func (r *PostgresRepository) CreateBooking(ctx context.Context, rec *models.BookingRecord) error {
	contactJSON, err := json.Marshal(rec.Contact)
	if err != nil {
		return fmt.Errorf("failed to marshal contact: %w", err)
	}

	query := `
		INSERT INTO bookings (id, reference, session_id, service_id, booking_date, time_slot, contact, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	return r.insertAndNotify(ctx, events.TypeBookingCreated, rec.Notice(), query,
		rec.ID,
		rec.Reference,
		nullString(rec.SessionID),
		rec.ServiceID,
		rec.Date,
		rec.TimeSlot,
		contactJSON,
		rec.CreatedAt,
	)
}

// GetBooking retrieves a booking by id or reference
func (r *PostgresRepository) GetBooking(ctx context.Context, id string) (*models.BookingRecord, error) {
	query := `
		SELECT id, reference, session_id, service_id, booking_date, time_slot, contact, created_at
		FROM bookings
		WHERE id::text = $1 OR reference = $1
	`

	rec, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return rec, nil
}

// ListBookings returns bookings newest first
func (r *PostgresRepository) ListBookings(ctx context.Context, filters models.ListFilters) ([]*models.BookingRecord, error) {
	query := `
		SELECT id, reference, session_id, service_id, booking_date, time_slot, contact, created_at
		FROM bookings
		WHERE 1=1
	`
	args := make([]interface{}, 0)
	argNum := 1

	if filters.ServiceID != "" {
		query += fmt.Sprintf(" AND service_id = $%d", argNum)
		args = append(args, filters.ServiceID)
		argNum++
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.BookingRecord
	for rows.Next() {
		rec, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, rec)
	}

	return bookings, rows.Err()
}

// --- Consultations ---

// CreateConsultation stores a contact form request and notifies listeners
func (r *PostgresRepository) CreateConsultation(ctx context.Context, req *models.ConsultationRequest) error {
	query := `
		INSERT INTO consultations (id, type, first_name, last_name, email, phone, event_date, message, newsletter, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	return r.insertAndNotify(ctx, events.TypeConsultationCreated, req.Notice(), query,
		req.ID,
		req.Type,
		req.FirstName,
		req.LastName,
		req.Email,
		nullString(req.Phone),
		nullString(req.EventDate),
		req.Message,
		req.Newsletter,
		req.CreatedAt,
	)
}

// ListConsultations returns consultation requests newest first
func (r *PostgresRepository) ListConsultations(ctx context.Context, limit, offset int) ([]*models.ConsultationRequest, error) {
	query := `
		SELECT id, type, first_name, last_name, email, phone, event_date, message, newsletter, created_at
		FROM consultations
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	defer rows.Close()

	var requests []*models.ConsultationRequest
	for rows.Next() {
		req, err := scanConsultation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consultation: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

// --- API Clients ---

// GetClientByApiKey retrieves an API client by its key
func (r *PostgresRepository) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	query := `
		SELECT id, name, api_key, is_active, created_at, last_used_at, permissions, metadata
		FROM api_clients
		WHERE api_key = $1
	`

	var client models.ApiClient
	var lastUsedAt sql.NullTime
	var permissionsJSON, metadataJSON []byte

	err := r.pool.QueryRow(ctx, query, apiKey).Scan(
		&client.ID,
		&client.Name,
		&client.ApiKey,
		&client.IsActive,
		&client.CreatedAt,
		&lastUsedAt,
		&permissionsJSON,
		&metadataJSON,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get api client: %w", err)
	}

	if lastUsedAt.Valid {
		client.LastUsedAt = &lastUsedAt.Time
	}

	if err := decodeClientJSON(&client, permissionsJSON, metadataJSON); err != nil {
		return nil, err
	}

	return &client, nil
}

// UpdateClientLastUsed updates the last_used_at timestamp for a client
func (r *PostgresRepository) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	query := `UPDATE api_clients SET last_used_at = NOW() WHERE api_key = $1`

	_, err := r.pool.Exec(ctx, query, apiKey)
	if err != nil {
		return fmt.Errorf("failed to update client last_used_at: %w", err)
	}

	return nil
}

// CreateClient registers a staff API client and fills in its id
func (r *PostgresRepository) CreateClient(ctx context.Context, client *models.ApiClient) error {
	permissionsJSON, metadataJSON, err := encodeClientJSON(client)
	if err != nil {
		return err
	}

	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO api_clients (name, api_key, is_active, created_at, permissions, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err = r.pool.QueryRow(ctx, query,
		client.Name,
		client.ApiKey,
		client.IsActive,
		client.CreatedAt,
		permissionsJSON,
		metadataJSON,
	).Scan(&client.ID)
	if err != nil {
		return fmt.Errorf("failed to create api client: %w", err)
	}

	return nil
}

// insertAndNotify runs an insert and pg_notify in one transaction
func (r *PostgresRepository) insertAndNotify(ctx context.Context, eventType string, data any, query string, args ...any) error {
	payload, err := notifyPayload(eventType, data)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert %s: %w", eventType, err)
	}

	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, events.NotifyChannel, payload); err != nil {
		return fmt.Errorf("failed to notify %s: %w", eventType, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit %s: %w", eventType, err)
	}

	return nil
}

// maxNotifyPayload is the largest payload Postgres accepts in NOTIFY
const maxNotifyPayload = 7999

// notifyPayload encodes a staff feed event for pg_notify
func notifyPayload(eventType string, data any) (string, error) {
	ev, err := events.New(eventType, data)
	if err != nil {
		return "", fmt.Errorf("failed to build event: %w", err)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}
	if len(payload) > maxNotifyPayload {
		return "", fmt.Errorf("%s notification is %d bytes, limit is %d", eventType, len(payload), maxNotifyPayload)
	}
	return string(payload), nil
}

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.BookingRecord, error) {
	var rec models.BookingRecord
	var sessionID sql.NullString
	var contactJSON []byte

	err := row.Scan(
		&rec.ID,
		&rec.Reference,
		&sessionID,
		&rec.ServiceID,
		&rec.Date,
		&rec.TimeSlot,
		&contactJSON,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.SessionID = sessionID.String

	if len(contactJSON) > 0 {
		if err := json.Unmarshal(contactJSON, &rec.Contact); err != nil {
			return nil, fmt.Errorf("failed to unmarshal contact: %w", err)
		}
	}

	return &rec, nil
}

func scanConsultation(row rowScanner) (*models.ConsultationRequest, error) {
	var req models.ConsultationRequest
	var phone, eventDate sql.NullString

	err := row.Scan(
		&req.ID,
		&req.Type,
		&req.FirstName,
		&req.LastName,
		&req.Email,
		&phone,
		&eventDate,
		&req.Message,
		&req.Newsletter,
		&req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Phone = phone.String
	req.EventDate = eventDate.String

	return &req, nil
}

func encodeClientJSON(client *models.ApiClient) ([]byte, []byte, error) {
	perms := client.Permissions
	if perms == nil {
		perms = []string{}
	}
	permissionsJSON, err := json.Marshal(perms)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal permissions: %w", err)
	}

	meta := client.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	metadataJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	return permissionsJSON, metadataJSON, nil
}

func decodeClientJSON(client *models.ApiClient, permissionsJSON, metadataJSON []byte) error {
	if permissionsJSON != nil {
		if err := json.Unmarshal(permissionsJSON, &client.Permissions); err != nil {
			return fmt.Errorf("failed to unmarshal permissions: %w", err)
		}
	}

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &client.Metadata); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return nil
}

// Helper functions for nullable values

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
