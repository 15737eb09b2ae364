package gateway

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/novastreamlab/FHE-AI/internal/models"
)

// Key layout:
//
//	v/<handle>            plaintext value
//	in/<handle>           contract ‖ user the input was encrypted for
//	acl/<handle><account> present when account may decrypt handle
var (
	valuePrefix = []byte("v/")
	inputPrefix = []byte("in/")
	aclPrefix   = []byte("acl/")
)

// Vault holds handle plaintexts and their access lists.
type Vault struct {
	db *badger.DB
}

// OpenVault opens a Badger vault at path. An empty path keeps everything in memory.
func OpenVault(path string) (*Vault, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	return &Vault{db: db}, nil
}

// Close closes the vault.
func (v *Vault) Close() error {
	return v.db.Close()
}

// Ping reports whether the vault accepts reads.
func (v *Vault) Ping() error {
	if v.db.IsClosed() {
		return errors.New("vault closed")
	}
	return v.db.View(func(txn *badger.Txn) error { return nil })
}

func key(prefix []byte, parts ...[]byte) []byte {
	k := append([]byte(nil), prefix...)
	for _, p := range parts {
		k = append(k, p...)
	}
	return k
}

// StoreInput saves a freshly encrypted input and its provenance.
func (v *Vault) StoreInput(handle models.Handle, contract, user models.Address, value []byte) error {
	return v.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key(valuePrefix, handle[:]), value); err != nil {
			return err
		}
		return txn.Set(key(inputPrefix, handle[:]), key(contract[:], user[:]))
	})
}

// InputOrigin returns the contract and user an input was encrypted for.
func (v *Vault) InputOrigin(handle models.Handle) (models.Address, models.Address, error) {
	var contract, user models.Address
	err := v.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(inputPrefix, handle[:]))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 2*models.AddressLength {
				return fmt.Errorf("corrupt input origin for %s", handle)
			}
			copy(contract[:], val[:models.AddressLength])
			copy(user[:], val[models.AddressLength:])
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return contract, user, ErrUnknownHandle
	}
	return contract, user, err
}

// PutIfAbsent stores value under handle unless the handle already holds a
// value. It fails with ErrHandleConflict when the stored value differs.
func (v *Vault) PutIfAbsent(handle models.Handle, value []byte) error {
	return v.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key(valuePrefix, handle[:]))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return txn.Set(key(valuePrefix, handle[:]), value)
		}
		if err != nil {
			return err
		}
		return item.Value(func(existing []byte) error {
			if !bytes.Equal(existing, value) {
				return ErrHandleConflict
			}
			return nil
		})
	})
}

// Get returns the plaintext behind handle.
func (v *Vault) Get(handle models.Handle) ([]byte, error) {
	var out []byte
	err := v.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(valuePrefix, handle[:]))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrUnknownHandle
	}
	return out, err
}

// Has reports whether handle holds a value.
func (v *Vault) Has(handle models.Handle) (bool, error) {
	_, err := v.Get(handle)
	if errors.Is(err, ErrUnknownHandle) {
		return false, nil
	}
	return err == nil, err
}

// Allow grants account decrypt access to handle.
func (v *Vault) Allow(handle models.Handle, account models.Address) error {
	return v.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(aclPrefix, handle[:], account[:]), []byte{1})
	})
}

// IsAllowed reports whether account may decrypt handle.
func (v *Vault) IsAllowed(handle models.Handle, account models.Address) (bool, error) {
	err := v.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key(aclPrefix, handle[:], account[:]))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}
