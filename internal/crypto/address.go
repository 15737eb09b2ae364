package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/novastreamlab/FHE-AI/internal/models"
)

// Keccak256 hashes the concatenation of parts.
func Keccak256(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// AddressOf derives the account address of an Ed25519 public key:
// the last 20 bytes of its Keccak-256 hash.
func AddressOf(pub ed25519.PublicKey) models.Address {
	var a models.Address
	copy(a[:], Keccak256(pub)[12:])
	return a
}

// ContractAddress derives the ledger address from its deployer and deploy time.
func ContractAddress(deployer models.Address, deployedAt int64) models.Address {
	var a models.Address
	copy(a[:], Keccak256(deployer[:], uint64Bytes(uint64(deployedAt)))[12:])
	return a
}

// ResponseHandle derives the response handle of a message. The same inputs
// always give the same handle, so a read-only preview can predict it.
func ResponseHandle(contract models.Address, messageID uint64, value models.Address) models.Handle {
	var h models.Handle
	copy(h[:], Keccak256([]byte("fheai/response"), contract[:], uint64Bytes(messageID), value[:]))
	return h
}

// InputProofPayload is what the gateway signs to attest an encrypted input
// was produced for contract by user.
func InputProofPayload(handle models.Handle, contract, user models.Address) []byte {
	return Keccak256([]byte("fheai/input"), handle[:], contract[:], user[:])
}

// RandomHandle returns a fresh random handle.
func RandomHandle() (models.Handle, error) {
	var h models.Handle
	if _, err := rand.Read(h[:]); err != nil {
		return h, err
	}
	return h, nil
}

// RandomAddress returns a fresh random address, used as a one-off obfuscation key.
func RandomAddress() (models.Address, error) {
	var a models.Address
	if _, err := rand.Read(a[:]); err != nil {
		return a, err
	}
	return a, nil
}

func uint64Bytes(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}
