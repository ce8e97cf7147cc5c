package history

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuro-risk-client/internal/domain"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisStore) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewRedisStoreWithClient(client, "neuro-risk:", ttl)
}

func TestNewRedisStore_FromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedisStore("redis://"+mr.Addr()+"/0", "", 0, 4)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, "neuro-risk:", store.prefix)
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	_, err := NewRedisStore("not a url", "", 0, 0)
	assert.Error(t, err)
}

func TestRedisStore_Keys(t *testing.T) {
	mr, store := setupTestRedis(t, 0)
	rec := testRecord(1, domain.ConditionParkinson, domain.SourceRemote)

	require.NoError(t, store.Save(context.Background(), rec))

	assert.True(t, mr.Exists("neuro-risk:assessment:rec-01"))
	members, err := mr.ZMembers("neuro-risk:assessments")
	require.NoError(t, err)
	assert.Equal(t, []string{"rec-01"}, members)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	mr, store := setupTestRedis(t, time.Hour)
	ctx := context.Background()
	seed(t, store)

	assert.Equal(t, time.Hour, mr.TTL("neuro-risk:assessment:rec-01"))

	mr.FastForward(2 * time.Hour)

	got, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)

	// expired members are pruned from the index while listing
	members, _ := mr.ZMembers("neuro-risk:assessments")
	assert.Empty(t, members)

	_, err = store.Get(ctx, "rec-01")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_CorruptedEntry(t *testing.T) {
	mr, store := setupTestRedis(t, 0)
	ctx := context.Background()
	seed(t, store)

	require.NoError(t, mr.Set("neuro-risk:assessment:rec-03", "{not json"))

	_, err := store.Get(ctx, "rec-03")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists("neuro-risk:assessment:rec-03"))

	count, err := store.Count(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestRedisStore_ConnectionLost(t *testing.T) {
	mr, store := setupTestRedis(t, 0)
	mr.Close()

	_, err := store.Get(context.Background(), "rec-01")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
