package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

const (
	sealVersion     = "fheai-reencrypt-v1"
	ephemeralPKSize = 32
	nonceSize       = 12
	keySize         = 32
	tagSize         = 16
	minSealedLen    = ephemeralPKSize + nonceSize + tagSize
)

// CryptoError represents a sealing or opening failure.
type CryptoError struct {
	Message string
}

func (e *CryptoError) Error() string {
	return e.Message
}

// IsCryptoError checks if an error is a CryptoError.
func IsCryptoError(err error) bool {
	var ce *CryptoError
	return errors.As(err, &ce)
}

func ed25519PubToX25519(edPub ed25519.PublicKey) ([]byte, error) {
	p, err := new(edwards25519.Point).SetBytes(edPub)
	if err != nil {
		return nil, fmt.Errorf("invalid Ed25519 public key: %w", err)
	}
	return p.BytesMontgomery(), nil
}

func ed25519SeedToX25519Private(seed []byte) []byte {
	h := sha512.Sum512(seed)
	h[0] &= 248
	h[31] &= 127
	h[31] |= 64
	return h[:32]
}

func deriveKey(sharedSecret, ephemeralPK, recipientX25519PK []byte) ([]byte, error) {
	salt := make([]byte, 0, len(ephemeralPK)+len(recipientX25519PK))
	salt = append(salt, ephemeralPK...)
	salt = append(salt, recipientX25519PK...)

	r := hkdf.New(sha256.New, sharedSecret, salt, []byte(sealVersion))
	key := make([]byte, keySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Seal re-encrypts plaintext to the holder of the Ed25519 key recipientB64.
// Wire format (base64): ephemeral_pk[32] + nonce[12] + ciphertext[N+16].
func Seal(plaintext []byte, recipientB64 string) (string, error) {
	recipient, err := ValidatePublicKey(recipientB64)
	if err != nil {
		return "", &CryptoError{Message: err.Error()}
	}
	recipientX, err := ed25519PubToX25519(recipient)
	if err != nil {
		return "", &CryptoError{Message: fmt.Sprintf("failed to convert recipient key: %v", err)}
	}

	var ephPriv [32]byte
	if _, err := rand.Read(ephPriv[:]); err != nil {
		return "", err
	}
	ephPub, err := curve25519.X25519(ephPriv[:], curve25519.Basepoint)
	if err != nil {
		return "", err
	}
	shared, err := curve25519.X25519(ephPriv[:], recipientX)
	if err != nil {
		return "", &CryptoError{Message: "low order recipient key"}
	}

	key, err := deriveKey(shared, ephPub, recipientX)
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	wire := make([]byte, 0, ephemeralPKSize+nonceSize+len(plaintext)+tagSize)
	wire = append(wire, ephPub...)
	wire = append(wire, nonce...)
	wire = aead.Seal(wire, nonce, plaintext, nil)

	return base64.StdEncoding.EncodeToString(wire), nil
}

// Open reverses Seal with the recipient's private key.
func Open(sealedB64 string, priv ed25519.PrivateKey) ([]byte, error) {
	wire, err := base64.StdEncoding.DecodeString(sealedB64)
	if err != nil {
		return nil, &CryptoError{Message: fmt.Sprintf("invalid base64 ciphertext: %v", err)}
	}
	if len(wire) < minSealedLen {
		return nil, &CryptoError{Message: fmt.Sprintf("ciphertext too short: %d bytes, minimum %d", len(wire), minSealedLen)}
	}

	ephPK := wire[:ephemeralPKSize]
	nonce := wire[ephemeralPKSize : ephemeralPKSize+nonceSize]
	body := wire[ephemeralPKSize+nonceSize:]

	ownPriv := ed25519SeedToX25519Private(priv.Seed())
	ownPub, err := curve25519.X25519(ownPriv, curve25519.Basepoint)
	if err != nil {
		return nil, &CryptoError{Message: fmt.Sprintf("failed to derive X25519 public key: %v", err)}
	}
	shared, err := curve25519.X25519(ownPriv, ephPK)
	if err != nil {
		return nil, &CryptoError{Message: "decryption failed: invalid ephemeral key"}
	}

	key, err := deriveKey(shared, ephPK, ownPub)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, &CryptoError{Message: "decryption failed: wrong key or tampered ciphertext"}
	}
	return plaintext, nil
}
