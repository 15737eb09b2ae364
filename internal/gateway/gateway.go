// Package gateway is the node's encryption service: it issues handles for
// encrypted inputs, keeps per-handle access lists, and re-encrypts plaintexts
// to a user's ephemeral key on an authorized batch decrypt.
package gateway

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/novastreamlab/FHE-AI/internal/crypto"
	"github.com/novastreamlab/FHE-AI/internal/metrics"
	"github.com/novastreamlab/FHE-AI/internal/models"
)

const (
	MaxDurationDays = 365
	MaxPairs        = 100
	ClockSkew       = 5 * time.Minute
)

var (
	ErrUnknownHandle  = errors.New("unknown handle")
	ErrHandleConflict = errors.New("handle already holds another value")
	ErrInvalidProof   = errors.New("Invalid input proof")
	ErrUnauthorized   = errors.New("Unauthorized")
	ErrInvalidRequest = errors.New("invalid decrypt request")
)

// Gateway signs input proofs with its own Ed25519 key and serves decrypts from the vault.
type Gateway struct {
	vault  *Vault
	key    ed25519.PrivateKey
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a gateway over vault.
func New(vault *Vault, key ed25519.PrivateKey, logger zerolog.Logger) *Gateway {
	return &Gateway{
		vault:  vault,
		key:    key,
		logger: logger.With().Str("component", "gateway").Logger(),
		now:    time.Now,
	}
}

// PublicKey returns the base64 key input proofs are signed with.
func (g *Gateway) PublicKey() string {
	return crypto.EncodePublicKey(g.key.Public().(ed25519.PublicKey))
}

// Vault exposes the backing vault for health checks.
func (g *Gateway) Vault() *Vault {
	return g.vault
}

// EncryptInput stores value under a fresh handle bound to contract and user.
func (g *Gateway) EncryptInput(_ context.Context, contract, user, value models.Address) (*models.EncryptedInput, error) {
	handle, err := crypto.RandomHandle()
	if err != nil {
		return nil, err
	}
	if err := g.vault.StoreInput(handle, contract, user, value.Bytes()); err != nil {
		return nil, err
	}

	proof := ed25519.Sign(g.key, crypto.InputProofPayload(handle, contract, user))
	metrics.InputsEncrypted.Inc()

	g.logger.Debug().
		Str("handle", handle.Hex()).
		Str("contract", contract.Hex()).
		Str("user", user.Hex()).
		Msg("input encrypted")

	return &models.EncryptedInput{
		Handles:    []models.Handle{handle},
		InputProof: models.HexBytes(proof),
	}, nil
}

// VerifyInput checks that handle was encrypted by this gateway for contract and user.
func (g *Gateway) VerifyInput(_ context.Context, contract, user models.Address, handle models.Handle, proof models.HexBytes) error {
	pub := g.key.Public().(ed25519.PublicKey)
	if !ed25519.Verify(pub, crypto.InputProofPayload(handle, contract, user), proof) {
		return ErrInvalidProof
	}
	c, u, err := g.vault.InputOrigin(handle)
	if err != nil {
		if errors.Is(err, ErrUnknownHandle) {
			return ErrInvalidProof
		}
		return err
	}
	if c != contract || u != user {
		return ErrInvalidProof
	}
	return nil
}

// Allow grants account decrypt access to handle.
func (g *Gateway) Allow(_ context.Context, handle models.Handle, account models.Address) error {
	return g.vault.Allow(handle, account)
}

// IsAllowed reports whether account may decrypt handle.
func (g *Gateway) IsAllowed(_ context.Context, handle models.Handle, account models.Address) (bool, error) {
	return g.vault.IsAllowed(handle, account)
}

// TrivialEncrypt stores a public value under a caller-chosen handle.
// Repeating the call with the same value is a no-op.
func (g *Gateway) TrivialEncrypt(_ context.Context, handle models.Handle, value models.Address) error {
	if err := g.vault.PutIfAbsent(handle, value.Bytes()); err != nil {
		return fmt.Errorf("trivial encrypt %s: %w", handle, err)
	}
	return nil
}

// UserDecrypt re-encrypts the plaintexts of req.Pairs to the authorization's
// ephemeral key after checking the user's signature and every handle's ACL.
func (g *Gateway) UserDecrypt(_ context.Context, req *models.UserDecryptRequest) (*models.UserDecryptResponse, error) {
	requestID := crypto.NewUUIDv7().String()
	log := g.logger.With().
		Str("request_id", requestID).
		Str("user", req.UserAddress.Hex()).
		Int("pairs", len(req.Pairs)).
		Logger()

	if err := g.validateRequest(req); err != nil {
		log.Warn().Err(err).Msg("decrypt request rejected")
		metrics.DecryptRequests.WithLabelValues("rejected").Inc()
		return nil, err
	}

	results := make(map[string]string, len(req.Pairs))
	for _, p := range req.Pairs {
		hex := p.Handle.Hex()
		if _, done := results[hex]; done {
			continue
		}
		plain, err := g.vault.Get(p.Handle)
		if err != nil {
			metrics.DecryptRequests.WithLabelValues("rejected").Inc()
			return nil, fmt.Errorf("%w: %s", err, hex)
		}
		var value models.Address
		copy(value[:], plain)

		sealed, err := crypto.Seal([]byte(value.Hex()), req.Authorization.PublicKey)
		if err != nil {
			metrics.DecryptRequests.WithLabelValues("rejected").Inc()
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		results[hex] = sealed
	}

	metrics.DecryptRequests.WithLabelValues("ok").Inc()
	metrics.HandlesDecrypted.Add(float64(len(results)))
	log.Info().Int("handles", len(results)).Msg("handles re-encrypted")

	return &models.UserDecryptResponse{Results: results}, nil
}

func (g *Gateway) validateRequest(req *models.UserDecryptRequest) error {
	auth := req.Authorization

	if len(req.Pairs) == 0 || len(req.Pairs) > MaxPairs {
		return fmt.Errorf("%w: between 1 and %d handles required", ErrInvalidRequest, MaxPairs)
	}
	if auth.DurationDays < 1 || auth.DurationDays > MaxDurationDays {
		return fmt.Errorf("%w: duration must be between 1 and %d days", ErrInvalidRequest, MaxDurationDays)
	}
	if len(auth.ContractAddresses) == 0 {
		return fmt.Errorf("%w: no contract addresses", ErrInvalidRequest)
	}
	if _, err := crypto.ValidatePublicKey(auth.PublicKey); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	now := g.now()
	start := time.Unix(auth.StartTimestamp, 0)
	if start.After(now.Add(ClockSkew)) {
		return fmt.Errorf("%w: authorization starts in the future", ErrInvalidRequest)
	}
	if !now.Before(start.Add(time.Duration(auth.DurationDays) * 24 * time.Hour)) {
		return fmt.Errorf("%w: authorization expired", ErrInvalidRequest)
	}

	userKey, err := crypto.ValidatePublicKey(req.UserKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if crypto.AddressOf(userKey) != req.UserAddress {
		return fmt.Errorf("%w: key does not match user address", ErrUnauthorized)
	}
	if err := crypto.VerifySignature(userKey, crypto.AuthorizationDigest(auth), req.Signature); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	listed := make(map[models.Address]bool, len(auth.ContractAddresses))
	for _, c := range auth.ContractAddresses {
		listed[c] = true
	}
	for _, p := range req.Pairs {
		if !listed[p.ContractAddress] {
			return fmt.Errorf("%w: contract %s not authorized", ErrInvalidRequest, p.ContractAddress)
		}
		known, err := g.vault.Has(p.Handle)
		if err != nil {
			return err
		}
		if !known {
			return fmt.Errorf("%w: %s", ErrUnknownHandle, p.Handle)
		}
		for _, who := range []models.Address{req.UserAddress, p.ContractAddress} {
			ok, err := g.vault.IsAllowed(p.Handle, who)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s not allowed on %s", ErrUnauthorized, who, p.Handle)
			}
		}
	}
	return nil
}
