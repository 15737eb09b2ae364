package fheai

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/novastreamlab/FHE-AI/internal/crypto"
	"github.com/novastreamlab/FHE-AI/internal/models"
)

const (
	accountFile = "account.json"
	keyFile     = "private.key"
)

// ErrNoAccount is returned by LoadAccount when dir holds no account.
var ErrNoAccount = errors.New("no account found")

// Account is the signing identity of a user.
type Account struct {
	PrivateKey ed25519.PrivateKey
}

type accountConfig struct {
	Address   models.Address `json:"address"`
	PublicKey string         `json:"public_key"`
}

// GenerateAccount creates a new random account.
func GenerateAccount() (*Account, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Account{PrivateKey: priv}, nil
}

// AccountFromSeed builds an account from a base64 seed or private key.
func AccountFromSeed(keyB64 string) (*Account, error) {
	priv, err := crypto.ParsePrivateKey(keyB64)
	if err != nil {
		return nil, err
	}
	return &Account{PrivateKey: priv}, nil
}

// PublicKey returns the account's signing key.
func (a *Account) PublicKey() ed25519.PublicKey {
	return a.PrivateKey.Public().(ed25519.PublicKey)
}

// Address is the ledger identity derived from the public key.
func (a *Account) Address() models.Address {
	return crypto.AddressOf(a.PublicKey())
}

// DefaultConfigDir returns $FHEAI_CONFIG or ~/.fheai.
func DefaultConfigDir() string {
	if dir := os.Getenv("FHEAI_CONFIG"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".fheai")
}

// LoadAccount loads account credentials from dir.
func LoadAccount(dir string) (*Account, error) {
	data, err := os.ReadFile(filepath.Join(dir, accountFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoAccount
		}
		return nil, err
	}

	var cfg accountConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	keyData, err := os.ReadFile(filepath.Join(dir, keyFile))
	if err != nil {
		return nil, err
	}

	account, err := AccountFromSeed(string(keyData))
	if err != nil {
		return nil, err
	}
	if account.Address() != cfg.Address {
		return nil, fmt.Errorf("%s does not match %s", keyFile, accountFile)
	}
	return account, nil
}

// SaveAccount writes account credentials to dir.
func SaveAccount(dir string, a *Account) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	cfg := accountConfig{
		Address:   a.Address(),
		PublicKey: crypto.EncodePublicKey(a.PublicKey()),
	}
	data, _ := json.MarshalIndent(cfg, "", "  ")
	if err := os.WriteFile(filepath.Join(dir, accountFile), data, 0600); err != nil {
		return err
	}

	seed := base64.StdEncoding.EncodeToString(a.PrivateKey.Seed())
	return os.WriteFile(filepath.Join(dir, keyFile), []byte(seed), 0600)
}
