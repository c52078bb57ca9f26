package cache_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerbook/ledgerbook/internal/platform/cache"
)

type counter struct {
	hits, misses int
}

func (c *counter) ObserveCache(_ string, hit bool) {
	if hit {
		c.hits++
		return
	}
	c.misses++
}

func TestVersionedFetchAndBump(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	obs := &counter{}
	c := cache.NewVersioned(client, "ledger", time.Minute).WithObserver(obs)
	ctx := context.Background()

	var calls atomic.Int32
	loader := func(context.Context) (any, error) {
		calls.Add(1)
		return map[string]string{"balance": "150.00"}, nil
	}

	key, err := c.Key(ctx, "period:1", "balances")
	require.NoError(t, err)
	assert.Equal(t, "ledger:period:1:balances:v1", key)

	var out map[string]string
	require.NoError(t, c.FetchJSON(ctx, key, &out, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &out, loader))
	assert.Equal(t, "150.00", out["balance"])
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.misses)

	require.NoError(t, c.Bump(ctx, "period:1"))
	key, err = c.Key(ctx, "period:1", "balances")
	require.NoError(t, err)
	assert.Equal(t, "ledger:period:1:balances:v2", key)
	require.NoError(t, c.FetchJSON(ctx, key, &out, loader))
	assert.EqualValues(t, 2, calls.Load())

	other, err := c.Key(ctx, "period:2", "balances")
	require.NoError(t, err)
	assert.Equal(t, "ledger:period:2:balances:v1", other)
}

func TestVersionedWithoutClientCallsLoader(t *testing.T) {
	c := cache.NewVersioned(nil, "ledger", time.Minute)
	var out []int
	err := c.FetchJSON(context.Background(), "k", &out, func(context.Context) (any, error) {
		return []int{1, 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, out)
	assert.NoError(t, c.Bump(context.Background(), "any"))
}
