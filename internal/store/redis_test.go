package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	if testing.Short() {
		t.Skip("needs redis")
	}
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	s, err := NewRedisStore(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.InvalidateContract(context.Background())
		s.Close()
	})
	return s
}

func TestRedisNonces(t *testing.T) {
	ctx := context.Background()
	s := newTestRedis(t)

	caller := "test-" + time.Now().Format("150405.000000000")
	assert.False(t, s.IsNonceUsed(ctx, caller, "n1"))
	s.MarkNonceUsed(ctx, caller, "n1", time.Minute)
	assert.True(t, s.IsNonceUsed(ctx, caller, "n1"))
	assert.False(t, s.IsNonceUsed(ctx, caller+"x", "n1"))
}

func TestRedisContractCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	s := newTestRedis(t)

	s.InvalidateContract(ctx)
	data, err := s.CachedContract(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, s.CacheContract(ctx, []byte(`{"owner":"a"}`), time.Minute))
	data, err = s.CachedContract(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"owner":"a"}`, string(data))

	s.InvalidateContract(ctx)
	data, err = s.CachedContract(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)
}
