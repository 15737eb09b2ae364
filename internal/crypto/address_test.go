package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novastreamlab/FHE-AI/internal/models"
)

func TestAddressOfIsStable(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	a1 := AddressOf(pub)
	a2 := AddressOf(pub)
	assert.Equal(t, a1, a2)
	assert.False(t, a1.IsZero())

	other, _, _ := ed25519.GenerateKey(rand.Reader)
	assert.NotEqual(t, a1, AddressOf(other))
}

func TestKeccakKnownVector(t *testing.T) {
	// keccak256("") as used by Ethereum tooling.
	assert.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		models.HexBytes(Keccak256()).String()[2:],
	)
}

func TestResponseHandleDeterministic(t *testing.T) {
	contract := models.Address{1}
	value := models.Address{2}

	h1 := ResponseHandle(contract, 7, value)
	assert.Equal(t, h1, ResponseHandle(contract, 7, value))
	assert.NotEqual(t, h1, ResponseHandle(contract, 8, value))
	assert.NotEqual(t, h1, ResponseHandle(contract, 7, models.Address{3}))
	assert.False(t, h1.IsZero())
}

func TestContractAddressDependsOnTime(t *testing.T) {
	deployer := models.Address{9}
	assert.NotEqual(t, ContractAddress(deployer, 1), ContractAddress(deployer, 2))
}

func TestAuthorizationDigestCoversFields(t *testing.T) {
	base := models.DecryptAuthorization{
		PublicKey:         "pk",
		ContractAddresses: []models.Address{{1}},
		StartTimestamp:    100,
		DurationDays:      5,
	}
	d := AuthorizationDigest(base)

	changed := base
	changed.DurationDays = 6
	assert.NotEqual(t, d, AuthorizationDigest(changed))

	changed = base
	changed.ContractAddresses = []models.Address{{2}}
	assert.NotEqual(t, d, AuthorizationDigest(changed))

	changed = base
	changed.PublicKey = "pk2"
	assert.NotEqual(t, d, AuthorizationDigest(changed))
}

func TestSignAndVerify(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	payload := SignaturePayload("abc", "nonce", 42)
	sig := Sign(priv, payload)

	parsed, err := ValidatePublicKey(EncodePublicKey(pub))
	require.NoError(t, err)
	assert.NoError(t, VerifySignature(parsed, payload, sig))
	assert.ErrorIs(t, VerifySignature(parsed, SignaturePayload("abd", "nonce", 42), sig), ErrInvalidSignature)
}
