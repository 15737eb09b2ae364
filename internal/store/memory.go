package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// MemoryNonceStore is a process-local NonceStore used when no Redis is configured.
// Nonces live in their own in-memory Badger instance and expire through entry TTLs.
type MemoryNonceStore struct {
	db *badger.DB
}

// NewMemoryNonceStore opens an empty in-memory nonce store.
func NewMemoryNonceStore() (*MemoryNonceStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open nonce store: %w", err)
	}
	return &MemoryNonceStore{db: db}, nil
}

// Close releases the underlying Badger instance.
func (s *MemoryNonceStore) Close() error {
	return s.db.Close()
}

// IsNonceUsed checks if a nonce has been used and has not expired.
// Read failures other than a miss count as used.
func (s *MemoryNonceStore) IsNonceUsed(_ context.Context, caller, nonce string) bool {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(nonceKey(caller, nonce)))
		return err
	})
	return !errors.Is(err, badger.ErrKeyNotFound)
}

// MarkNonceUsed marks a nonce as used with a TTL.
func (s *MemoryNonceStore) MarkNonceUsed(_ context.Context, caller, nonce string, ttl time.Duration) {
	_ = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(nonceKey(caller, nonce)), []byte{1}).WithTTL(ttl))
	})
}
