package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCacheWithClient(client), mr
}

func TestRedisCache_GetMissIsEmpty(t *testing.T) {
	c, _ := setupRedis(t)

	val, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, "", val)
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	c, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	val, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	mr.FastForward(2 * time.Minute)
	val, _ = c.Get(ctx, "k")
	assert.Equal(t, "", val, "value should expire")

	require.NoError(t, c.Set(ctx, "k2", "v2", 0))
	require.NoError(t, c.Del(ctx, "k2"))
	assert.False(t, mr.Exists("k2"))
	assert.NoError(t, c.Del(ctx))
}

func TestRedisCache_Incr(t *testing.T) {
	c, _ := setupRedis(t)
	ctx := context.Background()

	n, err := c.Incr(ctx, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, _ = c.Incr(ctx, "gen")
	assert.Equal(t, int64(2), n)
	assert.NoError(t, c.Health(ctx))
}

func TestJSONHelpers(t *testing.T) {
	c, _ := setupRedis(t)
	ctx := context.Background()

	type entry struct {
		UserID uint    `json:"user_id"`
		Score  float64 `json:"score"`
	}

	var out []entry
	hit, err := GetJSON(ctx, c, "ranking", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, SetJSON(ctx, c, "ranking", []entry{{UserID: 7, Score: 620}}, time.Minute))

	hit, err = GetJSON(ctx, c, "ranking", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, out, 1)
	assert.Equal(t, uint(7), out[0].UserID)

	require.NoError(t, c.Set(ctx, "broken", "{not json", 0))
	_, err = GetJSON(ctx, c, "broken", &out)
	assert.Error(t, err)
}
