package history

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/neuro-risk-client/internal/domain"
)

var assessmentColumns = []string{
	"id", "condition", "risk_percentage", "risk_level", "risk_color",
	"confidence", "model_used", "source", "assessed_at", "features", "created_at",
}

func setupMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return store, mock
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := setupMockStore(t)
	rec := testRecord(1, domain.ConditionParkinson, domain.SourceRemote)
	stored := rec.CreatedAt.Add(time.Second)

	mock.ExpectQuery(`INSERT INTO assessments`).
		WithArgs(
			rec.ID, "parkinson", rec.Result.RiskPercentage, "Low", domain.ColorLow,
			0.85, "xgb-v2", "remote", rec.Result.Timestamp,
			`{"updrs.npdtot":1}`, rec.CreatedAt,
		).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(stored))

	require.NoError(t, store.Save(context.Background(), rec))
	assert.True(t, stored.Equal(rec.CreatedAt), "created_at should come from the database")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveError(t *testing.T) {
	store, mock := setupMockStore(t)
	rec := testRecord(1, domain.ConditionParkinson, domain.SourceRemote)

	mock.ExpectQuery(`INSERT INTO assessments`).WillReturnError(errors.New("connection reset"))

	err := store.Save(context.Background(), rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := setupMockStore(t)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(assessmentColumns).AddRow(
		"rec-01", "alzheimer", 57.2, "Moderate", domain.ColorModerate,
		0.7, "", "fallback", "2026-03-01T09:00:00Z", `{"mmse_score":25}`, created,
	)
	mock.ExpectQuery(`SELECT (.+) FROM assessments WHERE id = \$1`).
		WithArgs("rec-01").
		WillReturnRows(rows)

	rec, err := store.Get(context.Background(), "rec-01")
	require.NoError(t, err)
	assert.Equal(t, domain.ConditionAlzheimer, rec.Condition)
	assert.Equal(t, 57.2, rec.Result.RiskPercentage)
	assert.Equal(t, domain.RiskModerate, rec.Result.RiskLevel)
	assert.Equal(t, domain.SourceFallback, rec.Result.Source)
	assert.Equal(t, map[string]float64{"mmse_score": 25}, rec.Features)
	assert.True(t, created.Equal(rec.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM assessments WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := setupMockStore(t)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(assessmentColumns).
		AddRow("rec-02", "parkinson", 20.0, "Low", domain.ColorLow, 0.85, "xgb", "remote", "t2", nil, created.Add(time.Minute)).
		AddRow("rec-01", "parkinson", 10.0, "Low", domain.ColorLow, 0.85, "xgb", "remote", "t1", nil, created)

	mock.ExpectQuery(`SELECT (.+) FROM assessments WHERE condition = \$1 AND source = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("parkinson", "remote", 10, 5).
		WillReturnRows(rows)

	got, err := store.List(context.Background(), Filter{
		Condition: domain.ConditionParkinson,
		Source:    domain.SourceRemote,
		Limit:     10,
		Offset:    5,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "rec-02", got[0].ID)
	assert.Nil(t, got[0].Features)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListDefaultLimit(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM assessments ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(DefaultListLimit, 0).
		WillReturnRows(sqlmock.NewRows(assessmentColumns))

	got, err := store.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock := setupMockStore(t)
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM assessments WHERE created_at >= \$1`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := store.Count(context.Background(), Filter{Since: since})
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectExec(`DELETE FROM assessments WHERE id = \$1`).
		WithArgs("rec-01").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM assessments WHERE id = \$1`).
		WithArgs("rec-01").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	assert.NoError(t, store.Delete(ctx, "rec-01"))
	assert.ErrorIs(t, store.Delete(ctx, "rec-01"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresStore_Container runs the store against a real database created
// from the project migrations.
func TestPostgresStore_Container(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	if os.Getenv("NEURO_RISK_CONTAINER_TESTS") == "" {
		t.Skip("NEURO_RISK_CONTAINER_TESTS not set, skipping PostgreSQL container test")
	}

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}()

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	schema, err := os.ReadFile("../../migrations/000001_create_assessments.up.sql")
	require.NoError(t, err)

	store, err := NewPostgresStoreFromURL(dsn, 5, 2, time.Minute)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.db.ExecContext(ctx, string(schema))
	require.NoError(t, err)

	seed(t, store)

	got, err := store.List(ctx, Filter{Condition: domain.ConditionAlzheimer})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "rec-05", got[0].ID)

	count, err := store.Count(ctx, Filter{Source: domain.SourceFallback})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, store.Delete(ctx, "rec-05"))
	_, err = store.Get(ctx, "rec-05")
	assert.ErrorIs(t, err, ErrNotFound)
}
