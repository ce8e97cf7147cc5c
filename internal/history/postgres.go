package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL history store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL history store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string, maxOpen, maxIdle int, maxLifetime time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if maxOpen <= 0 {
		maxOpen = 25
	}
	if maxIdle <= 0 {
		maxIdle = 5
	}
	if maxLifetime <= 0 {
		maxLifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func postgresPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// Save stores a record, replacing any record with the same ID.
func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	encoded, err := encodeFeatures(rec.Features)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}
	features := sql.NullString{String: encoded, Valid: encoded != ""}

	query := `
		INSERT INTO assessments (
			id, condition, risk_percentage, risk_level, risk_color,
			confidence, model_used, source, assessed_at, features, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			condition = EXCLUDED.condition,
			risk_percentage = EXCLUDED.risk_percentage,
			risk_level = EXCLUDED.risk_level,
			risk_color = EXCLUDED.risk_color,
			confidence = EXCLUDED.confidence,
			model_used = EXCLUDED.model_used,
			source = EXCLUDED.source,
			assessed_at = EXCLUDED.assessed_at,
			features = EXCLUDED.features
		RETURNING created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		rec.ID,
		string(rec.Condition),
		rec.Result.RiskPercentage,
		string(rec.Result.RiskLevel),
		rec.Result.RiskColor,
		rec.Result.Confidence,
		rec.Result.ModelUsed,
		string(rec.Result.Source),
		rec.Result.Timestamp,
		features,
		rec.CreatedAt,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save assessment: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM assessments WHERE id = $1", id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return rec, nil
}

// List returns matching records, newest first.
func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	where, args := whereClause(filter, postgresPlaceholder)
	query := fmt.Sprintf("SELECT %s FROM assessments%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		selectColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Count returns the number of matching records.
func (s *PostgresStore) Count(ctx context.Context, filter Filter) (int64, error) {
	where, args := whereClause(filter, postgresPlaceholder)

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessments"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count assessments: %w", err)
	}
	return count, nil
}

// Delete removes a record by ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM assessments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
