package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuro-risk-client/internal/domain"
)

func TestOpen(t *testing.T) {
	logger, _ := test.NewNullLogger()
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		cfg     domain.Config
		want    interface{}
		wantNil bool
		wantErr bool
	}{
		{
			name:    "none",
			cfg:     domain.Config{History: domain.HistoryConfig{Backend: "none"}},
			wantNil: true,
		},
		{
			name: "memory",
			cfg:  domain.Config{History: domain.HistoryConfig{Backend: "memory", MaxEntries: 5}},
			want: &MemoryStore{},
		},
		{
			name: "sqlite",
			cfg: domain.Config{History: domain.HistoryConfig{
				Backend:    "sqlite",
				SQLitePath: filepath.Join(t.TempDir(), "nested", "history.db"),
			}},
			want: &SQLiteStore{},
		},
		{
			name: "redis",
			cfg: domain.Config{
				History: domain.HistoryConfig{Backend: "redis"},
				Cache:   domain.CacheConfig{RedisURL: "redis://" + mr.Addr(), KeyPrefix: "t:"},
			},
			want: &RedisStore{},
		},
		{
			name: "redis unreachable",
			cfg: domain.Config{
				History: domain.HistoryConfig{Backend: "redis"},
				Cache:   domain.CacheConfig{RedisURL: "redis://127.0.0.1:1"},
			},
			wantErr: true,
		},
		{
			name:    "unknown",
			cfg:     domain.Config{History: domain.HistoryConfig{Backend: "mongo"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(context.Background(), &tt.cfg, logger)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, store)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, store)
				return
			}
			require.NotNil(t, store)
			defer store.Close()
			assert.IsType(t, tt.want, store)

			rec := testRecord(1, domain.ConditionParkinson, domain.SourceRemote)
			require.NoError(t, store.Save(context.Background(), rec))
			_, err = store.Get(context.Background(), rec.ID)
			assert.NoError(t, err)
		})
	}
}
