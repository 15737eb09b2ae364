package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/novastreamlab/FHE-AI/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/fheai.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/fheai.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// A single connection keeps id assignment and writes strictly ordered.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS contract (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		address TEXT NOT NULL,
		owner TEXT NOT NULL,
		bot_address TEXT NOT NULL,
		response_address TEXT NOT NULL,
		deployed_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY,
		sender TEXT NOT NULL,
		ciphertext BLOB NOT NULL,
		key_handle TEXT NOT NULL,
		model_id INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS responses (
		message_id INTEGER PRIMARY KEY REFERENCES messages(id),
		handle TEXT NOT NULL,
		requested_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender, id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetContract returns the deployed contract, or nil if none.
func (s *SQLiteStore) GetContract(ctx context.Context) (*models.Contract, error) {
	var address, owner, bot, response string
	c := &models.Contract{}
	err := s.db.QueryRowContext(ctx, `
		SELECT address, owner, bot_address, response_address, deployed_at
		FROM contract WHERE id = 1
	`).Scan(&address, &owner, &bot, &response, &c.DeployedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
func (s *SQLiteStore) SaveContract(ctx context.Context, c *models.Contract) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO contract (id, address, owner, bot_address, response_address, deployed_at)
		VALUES (1, ?, ?, ?, ?, ?)
	`, c.Address.Hex(), c.Owner.Hex(), c.BotAddress.Hex(), c.ResponsePlainAddress.Hex(), c.DeployedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrContractExists
	}
	return nil
}

// UpdateContract overwrites the mutable configuration fields.
func (s *SQLiteStore) UpdateContract(ctx context.Context, c *models.Contract) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE contract SET owner = ?, bot_address = ?, response_address = ?
		WHERE id = 1
	`, c.Owner.Hex(), c.BotAddress.Hex(), c.ResponsePlainAddress.Hex())
	return err
}

// AppendMessage inserts msg under the next id and sets msg.ID.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *models.Message) (uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	body := []byte(msg.Ciphertext)
	if body == nil {
		body = []byte{}
	}

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id) + 1, 0) FROM messages`).Scan(&next); err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, sender, ciphertext, key_handle, model_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, next, msg.Sender.Hex(), body, msg.KeyHandle.Hex(), int64(msg.ModelID), msg.Timestamp)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	msg.ID = uint64(next)
	return msg.ID, nil
}

// GetMessage retrieves a message by id.
func (s *SQLiteStore) GetMessage(ctx context.Context, id uint64) (*models.Message, error) {
	var (
		rowID     int64
		sender    string
		handle    string
		modelID   int64
		createdAt int64
		body      []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sender, ciphertext, key_handle, model_id, created_at
		FROM messages WHERE id = ?
	`, int64(id)).Scan(&rowID, &sender, &body, &handle, &modelID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return buildMessage(rowID, sender, body, handle, modelID, createdAt)
}

// ListMessageIDsBySender returns the ids submitted by sender in insertion order.
func (s *SQLiteStore) ListMessageIDsBySender(ctx context.Context, sender models.Address) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM messages WHERE sender = ? ORDER BY id ASC
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
func (s *SQLiteStore) CountMessages(ctx context.Context) (uint64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return uint64(count), err
}

// GetResponseState returns the response state of a message, or nil if never requested.
func (s *SQLiteStore) GetResponseState(ctx context.Context, messageID uint64) (*models.ResponseState, error) {
	var handle string
	st := &models.ResponseState{MessageID: messageID}
	err := s.db.QueryRowContext(ctx, `
		SELECT handle, requested_at FROM responses WHERE message_id = ?
	`, int64(messageID)).Scan(&handle, &st.RequestedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
func (s *SQLiteStore) SaveResponseState(ctx context.Context, st *models.ResponseState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO responses (message_id, handle, requested_at)
		VALUES (?, ?, ?)
	`, int64(st.MessageID), st.Handle.Hex(), st.RequestedAt)
	return err
}
