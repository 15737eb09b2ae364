package fheai

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/novastreamlab/FHE-AI/internal/crypto"
	"github.com/novastreamlab/FHE-AI/internal/models"
)

// Keypair is an ephemeral key the gateway re-encrypts plaintexts to.
type Keypair struct {
	PublicKey  string // base64
	PrivateKey ed25519.PrivateKey
}

// Encryptor is the encryption service used by a session.
type Encryptor interface {
	GenerateKeypair() (*Keypair, error)
	NewDecryptAuthorization(publicKey string, contracts []models.Address, start, durationDays int64) models.DecryptAuthorization
	UserDecrypt(ctx context.Context, pairs []models.HandleContractPair, kp *Keypair, signature string,
		contracts []models.Address, user models.Address, start, durationDays int64) (map[models.Handle]models.Address, error)
	EncryptAddress(ctx context.Context, contract, user, value models.Address) (*models.EncryptedInput, error)
}

// SignAuthorization signs a decrypt authorization with the account key.
func (a *Account) SignAuthorization(auth models.DecryptAuthorization) string {
	return crypto.Sign(a.PrivateKey, crypto.AuthorizationDigest(auth))
}

// GatewaySDK implements Encryptor against a node's gateway.
type GatewaySDK struct {
	client *Client
}

// NewGatewaySDK returns an Encryptor that talks to client's node.
func NewGatewaySDK(client *Client) *GatewaySDK {
	return &GatewaySDK{client: client}
}

// GenerateKeypair creates the ephemeral key the gateway seals results to.
func (g *GatewaySDK) GenerateKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Keypair{PublicKey: crypto.EncodePublicKey(pub), PrivateKey: priv}, nil
}

// NewDecryptAuthorization builds the authorization a user signs before a decrypt.
func (g *GatewaySDK) NewDecryptAuthorization(publicKey string, contracts []models.Address, start, durationDays int64) models.DecryptAuthorization {
	return models.DecryptAuthorization{
		PublicKey:         publicKey,
		ContractAddresses: append([]models.Address(nil), contracts...),
		StartTimestamp:    start,
		DurationDays:      durationDays,
	}
}

// UserDecrypt asks the gateway to re-encrypt the handles to kp and opens the results.
func (g *GatewaySDK) UserDecrypt(ctx context.Context, pairs []models.HandleContractPair, kp *Keypair, signature string,
	contracts []models.Address, user models.Address, start, durationDays int64) (map[models.Handle]models.Address, error) {
	if g.client.Account == nil || g.client.Address() != user {
		return nil, fmt.Errorf("%w: wallet signer unavailable", ErrServiceUnavailable)
	}

	req := &models.UserDecryptRequest{
		Pairs:         pairs,
		Authorization: g.NewDecryptAuthorization(kp.PublicKey, contracts, start, durationDays),
		Signature:     signature,
		UserAddress:   user,
		UserKey:       crypto.EncodePublicKey(g.client.Account.PublicKey()),
	}
	resp, err := g.client.UserDecrypt(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make(map[models.Handle]models.Address, len(resp.Results))
	for handleHex, sealed := range resp.Results {
		handle, err := models.ParseHandle(handleHex)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
		}
		plain, err := crypto.Open(sealed, kp.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
		}
		value, err := models.ParseAddress(string(plain))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
		}
		out[handle] = value
	}
	return out, nil
}

// EncryptAddress encrypts value as an input of contract. Only the signer may be the user.
func (g *GatewaySDK) EncryptAddress(ctx context.Context, contract, user, value models.Address) (*models.EncryptedInput, error) {
	if g.client.Account == nil {
		return nil, fmt.Errorf("%w: wallet signer unavailable", ErrServiceUnavailable)
	}
	if user != g.client.Address() {
		return nil, fmt.Errorf("%w: input user must be the signer", ErrInvalidArgument)
	}
	return g.client.EncryptInput(ctx, contract, value)
}
