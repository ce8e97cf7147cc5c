package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/neuro-risk-client/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite history store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		// each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a row into a Record.
func scanRecord(s scanner) (*Record, error) {
	rec := &Record{}
	var (
		condition, level, source string
		features                 sql.NullString
	)

	err := s.Scan(
		&rec.ID, &condition,
		&rec.Result.RiskPercentage, &level, &rec.Result.RiskColor,
		&rec.Result.Confidence, &rec.Result.ModelUsed, &source,
		&rec.Result.Timestamp, &features, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Condition = domain.ConditionKind(condition)
	rec.Result.RiskLevel = domain.RiskLevel(level)
	rec.Result.Source = domain.ResultSource(source)
	if features.Valid && features.String != "" {
		if err := json.Unmarshal([]byte(features.String), &rec.Features); err != nil {
			return nil, fmt.Errorf("failed to decode features: %w", err)
		}
	}
	return rec, nil
}

func encodeFeatures(f map[string]float64) (string, error) {
	if len(f) == 0 {
		return "", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS assessments (
		id TEXT PRIMARY KEY,
		condition TEXT NOT NULL,
		risk_percentage REAL NOT NULL,
		risk_level TEXT NOT NULL,
		risk_color TEXT NOT NULL,
		confidence REAL NOT NULL,
		model_used TEXT DEFAULT '',
		source TEXT NOT NULL,
		assessed_at TEXT NOT NULL,
		features TEXT DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assessments_condition ON assessments(condition);
	CREATE INDEX IF NOT EXISTS idx_assessments_created_at ON assessments(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

const selectColumns = `id, condition, risk_percentage, risk_level, risk_color,
	confidence, model_used, source, assessed_at, features, created_at`

// Save stores a record, replacing any record with the same ID.
func (s *SQLiteStore) Save(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	features, err := encodeFeatures(rec.Features)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessments (
			id, condition, risk_percentage, risk_level, risk_color,
			confidence, model_used, source, assessed_at, features, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			condition = excluded.condition,
			risk_percentage = excluded.risk_percentage,
			risk_level = excluded.risk_level,
			risk_color = excluded.risk_color,
			confidence = excluded.confidence,
			model_used = excluded.model_used,
			source = excluded.source,
			assessed_at = excluded.assessed_at,
			features = excluded.features
	`,
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
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM assessments WHERE id = ?", id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rec, nil
}

// whereClause renders the filter as SQL using the given placeholder style.
func whereClause(f Filter, placeholder func(n int) string) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if f.Condition != "" {
		args = append(args, string(f.Condition))
		conds = append(conds, "condition = "+placeholder(len(args)))
	}
	if f.Source != "" {
		args = append(args, string(f.Source))
		conds = append(conds, "source = "+placeholder(len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since.UTC())
		conds = append(conds, "created_at >= "+placeholder(len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func sqlitePlaceholder(int) string { return "?" }

// List returns matching records, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]*Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	where, args := whereClause(filter, sqlitePlaceholder)
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM assessments"+where+
			" ORDER BY created_at DESC LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Count returns the number of matching records.
func (s *SQLiteStore) Count(ctx context.Context, filter Filter) (int64, error) {
	where, args := whereClause(filter, sqlitePlaceholder)

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessments"+where, args...).Scan(&count)
	return count, err
}

// Delete removes a record by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM assessments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
