package fheai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/novastreamlab/FHE-AI/internal/models"
)

func TestEncodeKnownVector(t *testing.T) {
	key, err := models.ParseAddress("0x0102030405060708090a0b0c0d0e0f1011121314")
	require.NoError(t, err)

	ct := Encode("AB", key)
	assert.Equal(t, "0x4040", ct.String())
	assert.Equal(t, "AB", Decode(ct, key))
}

func TestEncodeWrapsKey(t *testing.T) {
	key := models.Address{0xFF}
	msg := "0123456789abcdefghijklmnop" // longer than the key

	ct := Encode(msg, key)
	require.Len(t, ct, len(msg))
	assert.Equal(t, msg[0]^0xFF, ct[0])
	assert.Equal(t, msg[20]^0xFF, ct[20])
	assert.Equal(t, msg[1], ct[1])
}

func TestDecodeEmpty(t *testing.T) {
	key := models.Address{0x01}

	assert.Equal(t, "", Decode(nil, key))
	assert.Equal(t, "", Decode(models.HexBytes{}, key))

	for _, s := range []string{"", "0x"} {
		got, err := DecodeHex(s, key)
		require.NoError(t, err)
		assert.Equal(t, "", got)
	}
}

func TestDecodeHexRejectsMalformed(t *testing.T) {
	key := models.Address{0x01}
	for _, s := range []string{"0xabc", "0xzz", "not hex"} {
		_, err := DecodeHex(s, key)
		assert.ErrorIs(t, err, ErrInvalidArgument, s)
	}
}

func TestDecodeHexMatchesDecode(t *testing.T) {
	key := models.Address{0xDE, 0xAD}
	ct := Encode("what is FHE?", key)

	got, err := DecodeHex(ct.String(), key)
	require.NoError(t, err)
	assert.Equal(t, "what is FHE?", got)
}

func TestCodecRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		msg := rapid.String().Draw(t, "msg")
		var key models.Address
		copy(key[:], rapid.SliceOfN(rapid.Byte(), models.AddressLength, models.AddressLength).Draw(t, "key"))

		ct := Encode(msg, key)
		if len(ct) != len(msg) {
			t.Fatalf("ciphertext length %d, want %d", len(ct), len(msg))
		}
		if got := Decode(ct, key); got != msg {
			t.Fatalf("round trip: got %q, want %q", got, msg)
		}
	})
}
