package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNonceStore(t *testing.T) *MemoryNonceStore {
	t.Helper()
	s, err := NewMemoryNonceStore()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMemoryNonceStoreScopesByCaller(t *testing.T) {
	ctx := context.Background()
	s := newTestNonceStore(t)

	assert.False(t, s.IsNonceUsed(ctx, "alice", "n1"))
	s.MarkNonceUsed(ctx, "alice", "n1", time.Minute)
	assert.True(t, s.IsNonceUsed(ctx, "alice", "n1"))
	assert.False(t, s.IsNonceUsed(ctx, "bob", "n1"))
	assert.False(t, s.IsNonceUsed(ctx, "alice", "n2"))
}

func TestMemoryNonceStoreExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a TTL to lapse")
	}
	ctx := context.Background()
	s := newTestNonceStore(t)

	s.MarkNonceUsed(ctx, "alice", "n1", time.Second)
	s.MarkNonceUsed(ctx, "alice", "n2", time.Hour)
	assert.True(t, s.IsNonceUsed(ctx, "alice", "n1"))

	// Badger TTLs have one second resolution.
	time.Sleep(2100 * time.Millisecond)
	assert.False(t, s.IsNonceUsed(ctx, "alice", "n1"))
	assert.True(t, s.IsNonceUsed(ctx, "alice", "n2"))
}

func TestMemoryNonceStoreClosed(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemoryNonceStore()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.True(t, s.IsNonceUsed(ctx, "alice", "n1"))
}
