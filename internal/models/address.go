package models

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	// AddressLength is the size of an account or contract address in bytes.
	AddressLength = 20
	// HandleLength is the size of an encrypted value handle in bytes.
	HandleLength = 32
)

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidHandle  = errors.New("invalid handle")
	ErrInvalidHex     = errors.New("invalid hex payload")
)

// Address identifies an account or a contract.
type Address [AddressLength]byte

// ZeroAddress is the null identity.
var ZeroAddress Address

// ParseAddress parses a 0x-prefixed, 40 hex digit address. Any letter case is accepted.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != AddressLength*2 {
		return a, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return a, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	copy(a[:], b)
	return a, nil
}

// IsAddress reports whether s parses as an address.
func IsAddress(s string) bool {
	_, err := ParseAddress(s)
	return err == nil
}

// IsZero reports whether a is the null address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	return append([]byte(nil), a[:]...)
}

// Hex returns the EIP-55 checksummed form.
func (a Address) Hex() string {
	lower := hex.EncodeToString(a[:])
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	sum := h.Sum(nil)

	out := []byte(lower)
	for i := range out {
		if out[i] < 'a' {
			continue
		}
		nibble := sum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] -= 'a' - 'A'
		}
	}
	return "0x" + string(out)
}

func (a Address) String() string {
	return a.Hex()
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Handle is an opaque reference to a value held by the encryption gateway.
type Handle [HandleLength]byte

// ZeroHandle means "no handle".
var ZeroHandle Handle

// ParseHandle parses a 0x-prefixed, 64 hex digit handle.
func ParseHandle(s string) (Handle, error) {
	var h Handle
	raw := strings.TrimPrefix(s, "0x")
	if len(raw) != HandleLength*2 {
		return h, fmt.Errorf("%w: %q", ErrInvalidHandle, s)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return h, fmt.Errorf("%w: %q", ErrInvalidHandle, s)
	}
	copy(h[:], b)
	return h, nil
}

func (h Handle) IsZero() bool {
	return h == ZeroHandle
}

func (h Handle) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Handle) String() string {
	return h.Hex()
}

func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *Handle) UnmarshalText(text []byte) error {
	parsed, err := ParseHandle(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HexBytes is an opaque byte payload carried as a 0x-prefixed hex string.
type HexBytes []byte

// ParseHexBytes parses "0x…" (or bare) hex. "" and "0x" yield an empty payload.
func ParseHexBytes(s string) (HexBytes, error) {
	raw := strings.TrimPrefix(s, "0x")
	if raw == "" {
		return HexBytes{}, nil
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length", ErrInvalidHex)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	return HexBytes(b), nil
}

func (b HexBytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

func (b HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseHexBytes(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
