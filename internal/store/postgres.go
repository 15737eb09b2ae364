package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/novastreamlab/FHE-AI/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS contract (
	id SMALLINT PRIMARY KEY CHECK (id = 1),
	address TEXT NOT NULL,
	owner TEXT NOT NULL,
	bot_address TEXT NOT NULL,
	response_address TEXT NOT NULL,
	deployed_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id BIGINT PRIMARY KEY,
	sender TEXT NOT NULL,
	ciphertext BYTEA NOT NULL,
	key_handle TEXT NOT NULL,
	model_id BIGINT NOT NULL,
	created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS responses (
	message_id BIGINT PRIMARY KEY REFERENCES messages(id),
	handle TEXT NOT NULL,
	requested_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender, id);
`

// RunMigrations creates the ledger tables if they don't exist.
func RunMigrations(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, postgresSchema)
	return err
}

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetContract returns the deployed contract, or nil if none.
func (s *PostgresStore) GetContract(ctx context.Context) (*models.Contract, error) {
	var address, owner, bot, response string
	c := &models.Contract{}
	err := s.pool.QueryRow(ctx, `
		SELECT address, owner, bot_address, response_address, deployed_at
		FROM contract WHERE id = 1
	`).Scan(&address, &owner, &bot, &response, &c.DeployedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := parseContract(c, address, owner, bot, response); err != nil {
		return nil, err
	}
	return c, nil
}

// SaveContract stores the contract created by a deploy.
func (s *PostgresStore) SaveContract(ctx context.Context, c *models.Contract) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO contract (id, address, owner, bot_address, response_address, deployed_at)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, c.Address.Hex(), c.Owner.Hex(), c.BotAddress.Hex(), c.ResponsePlainAddress.Hex(), c.DeployedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrContractExists
	}
	return nil
}

// UpdateContract overwrites the mutable configuration fields.
func (s *PostgresStore) UpdateContract(ctx context.Context, c *models.Contract) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE contract SET owner = $1, bot_address = $2, response_address = $3
		WHERE id = 1
	`, c.Owner.Hex(), c.BotAddress.Hex(), c.ResponsePlainAddress.Hex())
	return err
}

// AppendMessage inserts msg under the next id and sets msg.ID.
// The table lock keeps ids gapless when several nodes share a database.
func (s *PostgresStore) AppendMessage(ctx context.Context, msg *models.Message) (uint64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `LOCK TABLE messages IN EXCLUSIVE MODE`); err != nil {
		return 0, err
	}

	var next int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(id) + 1, 0) FROM messages`).Scan(&next); err != nil {
		return 0, err
	}

	body := []byte(msg.Ciphertext)
	if body == nil {
		body = []byte{}
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO messages (id, sender, ciphertext, key_handle, model_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, next, msg.Sender.Hex(), body, msg.KeyHandle.Hex(), int64(msg.ModelID), msg.Timestamp)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	msg.ID = uint64(next)
	return msg.ID, nil
}

// GetMessage retrieves a message by id.
func (s *PostgresStore) GetMessage(ctx context.Context, id uint64) (*models.Message, error) {
	var (
		rowID     int64
		sender    string
		handle    string
		modelID   int64
		createdAt int64
		body      []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, sender, ciphertext, key_handle, model_id, created_at
		FROM messages WHERE id = $1
	`, int64(id)).Scan(&rowID, &sender, &body, &handle, &modelID, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return buildMessage(rowID, sender, body, handle, modelID, createdAt)
}

// ListMessageIDsBySender returns the ids submitted by sender in insertion order.
func (s *PostgresStore) ListMessageIDsBySender(ctx context.Context, sender models.Address) ([]uint64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM messages WHERE sender = $1 ORDER BY id ASC
	`, sender.Hex())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []uint64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, uint64(id))
	}
	return ids, rows.Err()
}

// CountMessages returns the number of stored messages.
func (s *PostgresStore) CountMessages(ctx context.Context) (uint64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return uint64(count), err
}

// GetResponseState returns the response state of a message, or nil if never requested.
func (s *PostgresStore) GetResponseState(ctx context.Context, messageID uint64) (*models.ResponseState, error) {
	var handle string
	st := &models.ResponseState{MessageID: messageID}
	err := s.pool.QueryRow(ctx, `
		SELECT handle, requested_at FROM responses WHERE message_id = $1
	`, int64(messageID)).Scan(&handle, &st.RequestedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if st.Handle, err = models.ParseHandle(handle); err != nil {
		return nil, err
	}
	return st, nil
}

// SaveResponseState records a response request. Existing state is kept.
func (s *PostgresStore) SaveResponseState(ctx context.Context, st *models.ResponseState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO responses (message_id, handle, requested_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_id) DO NOTHING
	`, int64(st.MessageID), st.Handle.Hex(), st.RequestedAt)
	return err
}
