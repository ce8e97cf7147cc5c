// Package database opens the PostgreSQL connection pool used by the history
// store and applies schema migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/neuro-risk-client/internal/domain"
)

// DB wraps the sql.DB pool with additional functionality
type DB struct {
	*sql.DB
	log *logrus.Logger
}

// URL builds a postgres:// connection URL from the configuration. Both
// lib/pq and the migration driver accept this form.
func URL(config domain.DatabaseConfig) string {
	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(config.Username, config.Password),
		Host:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Path:     "/" + config.Database,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String()
}

// Open creates a new database connection pool and verifies it with a ping
func Open(ctx context.Context, config domain.DatabaseConfig, logger *logrus.Logger) (*DB, error) {
	if logger == nil {
		logger = logrus.New()
	}

	pool, err := sql.Open("postgres", URL(config))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxOpen := config.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := config.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := config.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}
	pool.SetMaxOpenConns(maxOpen)
	pool.SetMaxIdleConns(maxIdle)
	pool.SetConnMaxLifetime(lifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"host":           config.Host,
		"port":           config.Port,
		"database":       config.Database,
		"max_open_conns": maxOpen,
		"max_idle_conns": maxIdle,
	}).Info("Database connection pool established")

	return &DB{DB: pool, log: logger}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	err := db.DB.Close()
	db.log.Info("Database connection pool closed")
	return err
}

// Health checks the database connection health
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}
