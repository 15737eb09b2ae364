package gateway

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novastreamlab/FHE-AI/internal/crypto"
	"github.com/novastreamlab/FHE-AI/internal/models"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	vault, err := OpenVault("")
	require.NoError(t, err)
	t.Cleanup(func() { vault.Close() })

	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return New(vault, key, zerolog.Nop())
}

type testUser struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
	addr models.Address
}

func newTestUser(t *testing.T) testUser {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return testUser{pub: pub, priv: priv, addr: crypto.AddressOf(pub)}
}

func signedRequest(u testUser, eph ed25519.PublicKey, pairs []models.HandleContractPair, contracts []models.Address, start, days int64) *models.UserDecryptRequest {
	auth := models.DecryptAuthorization{
		PublicKey:         crypto.EncodePublicKey(eph),
		ContractAddresses: contracts,
		StartTimestamp:    start,
		DurationDays:      days,
	}
	return &models.UserDecryptRequest{
		Pairs:         pairs,
		Authorization: auth,
		Signature:     crypto.Sign(u.priv, crypto.AuthorizationDigest(auth)),
		UserAddress:   u.addr,
		UserKey:       crypto.EncodePublicKey(u.pub),
	}
}

func TestEncryptInputAndVerify(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)
	user := newTestUser(t)
	contract := models.Address{0xC0}

	in, err := g.EncryptInput(ctx, contract, user.addr, models.Address{0x42})
	require.NoError(t, err)
	require.Len(t, in.Handles, 1)

	assert.NoError(t, g.VerifyInput(ctx, contract, user.addr, in.Handles[0], in.InputProof))
	assert.ErrorIs(t, g.VerifyInput(ctx, models.Address{0xC1}, user.addr, in.Handles[0], in.InputProof), ErrInvalidProof)
	assert.ErrorIs(t, g.VerifyInput(ctx, contract, models.Address{0x01}, in.Handles[0], in.InputProof), ErrInvalidProof)
	assert.ErrorIs(t, g.VerifyInput(ctx, contract, user.addr, models.Handle{0x99}, in.InputProof), ErrInvalidProof)
	assert.ErrorIs(t, g.VerifyInput(ctx, contract, user.addr, in.Handles[0], models.HexBytes{1, 2, 3}), ErrInvalidProof)
}

func TestTrivialEncryptIsIdempotent(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)
	h := models.Handle{0x10}

	require.NoError(t, g.TrivialEncrypt(ctx, h, models.Address{1}))
	require.NoError(t, g.TrivialEncrypt(ctx, h, models.Address{1}))
	assert.ErrorIs(t, g.TrivialEncrypt(ctx, h, models.Address{2}), ErrHandleConflict)
}

func TestUserDecryptRoundTrip(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)
	user := newTestUser(t)
	contract := models.Address{0xC0}
	value := models.Address{0xAB, 0xCD}

	in, err := g.EncryptInput(ctx, contract, user.addr, value)
	require.NoError(t, err)
	h := in.Handles[0]
	require.NoError(t, g.Allow(ctx, h, contract))
	require.NoError(t, g.Allow(ctx, h, user.addr))

	ephPub, ephPriv, _ := ed25519.GenerateKey(rand.Reader)
	pairs := []models.HandleContractPair{{Handle: h, ContractAddress: contract}, {Handle: h, ContractAddress: contract}}
	req := signedRequest(user, ephPub, pairs, []models.Address{contract}, time.Now().Unix(), 5)

	resp, err := g.UserDecrypt(ctx, req)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	plain, err := crypto.Open(resp.Results[h.Hex()], ephPriv)
	require.NoError(t, err)
	assert.Equal(t, value.Hex(), string(plain))
}

func TestUserDecryptRejections(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)
	user := newTestUser(t)
	other := newTestUser(t)
	contract := models.Address{0xC0}

	in, err := g.EncryptInput(ctx, contract, user.addr, models.Address{7})
	require.NoError(t, err)
	h := in.Handles[0]
	require.NoError(t, g.Allow(ctx, h, contract))
	require.NoError(t, g.Allow(ctx, h, user.addr))

	ephPub, _, _ := ed25519.GenerateKey(rand.Reader)
	pairs := []models.HandleContractPair{{Handle: h, ContractAddress: contract}}
	now := time.Now().Unix()
	contracts := []models.Address{contract}

	tests := []struct {
		name string
		req  func() *models.UserDecryptRequest
		want error
	}{
		{"expired", func() *models.UserDecryptRequest {
			return signedRequest(user, ephPub, pairs, contracts, now-6*86400, 5)
		}, ErrInvalidRequest},
		{"future start", func() *models.UserDecryptRequest {
			return signedRequest(user, ephPub, pairs, contracts, now+3600, 5)
		}, ErrInvalidRequest},
		{"zero days", func() *models.UserDecryptRequest {
			return signedRequest(user, ephPub, pairs, contracts, now, 0)
		}, ErrInvalidRequest},
		{"too many days", func() *models.UserDecryptRequest {
			return signedRequest(user, ephPub, pairs, contracts, now, 366)
		}, ErrInvalidRequest},
		{"no pairs", func() *models.UserDecryptRequest {
			return signedRequest(user, ephPub, nil, contracts, now, 5)
		}, ErrInvalidRequest},
		{"contract not listed", func() *models.UserDecryptRequest {
			return signedRequest(user, ephPub, pairs, []models.Address{{0xC1}}, now, 5)
		}, ErrInvalidRequest},
		{"wrong signer", func() *models.UserDecryptRequest {
			req := signedRequest(other, ephPub, pairs, contracts, now, 5)
			req.UserAddress = user.addr
			return req
		}, ErrUnauthorized},
		{"tampered authorization", func() *models.UserDecryptRequest {
			req := signedRequest(user, ephPub, pairs, contracts, now, 5)
			req.Authorization.DurationDays = 6
			return req
		}, ErrUnauthorized},
		{"user not allowed", func() *models.UserDecryptRequest {
			return signedRequest(other, ephPub, pairs, contracts, now, 5)
		}, ErrUnauthorized},
		{"unknown handle", func() *models.UserDecryptRequest {
			return signedRequest(user, ephPub, []models.HandleContractPair{{Handle: models.Handle{0x77}, ContractAddress: contract}}, contracts, now, 5)
		}, ErrUnknownHandle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.UserDecrypt(ctx, tt.req())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVaultACLIsPerHandle(t *testing.T) {
	vault, err := OpenVault("")
	require.NoError(t, err)
	defer vault.Close()

	h := models.Handle{1}
	require.NoError(t, vault.Allow(h, models.Address{1}))
	require.NoError(t, vault.Allow(h, models.Address{2}))
	require.NoError(t, vault.Allow(models.Handle{2}, models.Address{3}))

	for _, tt := range []struct {
		handle  models.Handle
		account models.Address
		want    bool
	}{
		{h, models.Address{1}, true},
		{h, models.Address{2}, true},
		{h, models.Address{3}, false},
		{models.Handle{2}, models.Address{3}, true},
		{models.Handle{2}, models.Address{1}, false},
	} {
		ok, err := vault.IsAllowed(tt.handle, tt.account)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "%s %s", tt.handle, tt.account)
	}
	assert.NoError(t, vault.Ping())
}

func TestVaultPersistsOnDisk(t *testing.T) {
	dir := t.TempDir()
	vault, err := OpenVault(dir)
	require.NoError(t, err)
	require.NoError(t, vault.PutIfAbsent(models.Handle{5}, []byte("v")))
	require.NoError(t, vault.Close())

	vault, err = OpenVault(dir)
	require.NoError(t, err)
	defer vault.Close()
	got, err := vault.Get(models.Handle{5})
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}
