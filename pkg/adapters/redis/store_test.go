package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/catchment/pkg/adapters/redis"
	"github.com/aretw0/catchment/pkg/domain"
	"github.com/aretw0/catchment/pkg/ports/tests"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	tests.RunResultStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("test:"))
	ctx := context.Background()

	d := &domain.Delineation{Kind: domain.KindBasin, Mask: &domain.Mask{}}
	require.NoError(t, store.Save(ctx, "basin-1", d, time.Second))
	assert.True(t, mr.Exists("test:basin-1"))

	_, err := store.Load(ctx, "basin-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "basin-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisStore_CorruptPayload(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)
	require.NoError(t, mr.Set(redis.DefaultPrefix+"bad", "{not json"))

	_, err := store.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
