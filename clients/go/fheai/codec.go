package fheai

import (
	"fmt"

	"github.com/novastreamlab/FHE-AI/internal/models"
)

// Encode obfuscates plaintext by XOR with the 20 key bytes, repeated.
func Encode(plaintext string, key models.Address) models.HexBytes {
	return xor([]byte(plaintext), key)
}

// Decode reverses Encode. An empty ciphertext decodes to "".
func Decode(ciphertext models.HexBytes, key models.Address) string {
	if len(ciphertext) == 0 {
		return ""
	}
	return string(xor(ciphertext, key))
}

// DecodeHex decodes a 0x-prefixed ciphertext as stored on the ledger.
func DecodeHex(s string, key models.Address) (string, error) {
	if s == "" || s == "0x" {
		return "", nil
	}
	ct, err := models.ParseHexBytes(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return Decode(ct, key), nil
}

func xor(in []byte, key models.Address) []byte {
	out := make([]byte, len(in))
	for i := range in {
		out[i] = in[i] ^ key[i%models.AddressLength]
	}
	return out
}
