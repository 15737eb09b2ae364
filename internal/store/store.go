package store

import (
	"context"
	"errors"
	"time"

	"github.com/novastreamlab/FHE-AI/internal/models"
)

// ErrContractExists is returned when a node already holds a deployed contract.
var ErrContractExists = errors.New("contract already deployed")

// LedgerStore defines persistent storage for the message ledger.
// Both PostgresStore and SQLiteStore implement this interface.
//
// Getters return (nil, nil) when the record does not exist.
type LedgerStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Contract configuration (a node holds at most one contract)
	GetContract(ctx context.Context) (*models.Contract, error)
	SaveContract(ctx context.Context, c *models.Contract) error
	UpdateContract(ctx context.Context, c *models.Contract) error

	// Messages. AppendMessage assigns the next sequential id, starting at 0.
	AppendMessage(ctx context.Context, msg *models.Message) (uint64, error)
	GetMessage(ctx context.Context, id uint64) (*models.Message, error)
	ListMessageIDsBySender(ctx context.Context, sender models.Address) ([]uint64, error)
	CountMessages(ctx context.Context) (uint64, error)

	// Response gate state
	GetResponseState(ctx context.Context, messageID uint64) (*models.ResponseState, error)
	SaveResponseState(ctx context.Context, st *models.ResponseState) error
}

// NonceStore tracks request nonces for replay protection.
// RedisStore and MemoryNonceStore implement this interface.
type NonceStore interface {
	IsNonceUsed(ctx context.Context, caller, nonce string) bool
	MarkNonceUsed(ctx context.Context, caller, nonce string, ttl time.Duration)
}
