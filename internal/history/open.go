package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/neuro-risk-client/internal/database"
	"github.com/neuro-risk-client/internal/domain"
)

// Open builds the store selected by cfg.History.Backend. The "none" backend
// returns a nil Store, which the recorder treats as history disabled.
func Open(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (Store, error) {
	if logger == nil {
		logger = logrus.New()
	}
	backend := cfg.History.Backend
	logger.WithField("backend", backend).Info("Opening assessment history")

	switch backend {
	case "", "none":
		return nil, nil

	case "memory":
		store, err := NewMemoryStore(cfg.History.MaxEntries)
		if err != nil {
			return nil, err
		}
		return store, nil

	case "sqlite":
		path := cfg.History.SQLitePath
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("resolving home directory: %w", err)
			}
			path = filepath.Join(home, ".neuro-risk", "history.db")
		}
		store, err := NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return store, nil

	case "postgres":
		db, err := database.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		store, err := NewPostgresStore(db.DB)
		if err != nil {
			db.Close()
			return nil, err
		}
		return store, nil

	case "redis":
		store, err := NewRedisStore(cfg.Cache.RedisURL, cfg.Cache.KeyPrefix, cfg.Cache.DefaultTTL, cfg.Cache.PoolSize)
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown history backend %q", backend)
	}
}
