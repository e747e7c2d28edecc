package framing

import (
	"testing"

	"github.com/orneryd/convergedb/pkg/hyberr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	payload := []byte("the quick brown fox")
	frame := Encode(payload, 1)

	got, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestEncodeDecode_EmptyPayload(t *testing.T) {
	frame := Encode(nil, 1)
	got, err := Decode(frame)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEncode_Alignment(t *testing.T) {
	for _, align := range []int{1, 4, 8, 16} {
		frame := Encode([]byte("payload"), align)
		if align > 1 {
			assert.True(t, IsAligned(0, align), "align=%d", align)
		}
		got, err := Decode(frame)
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), got)
	}
}

func TestDecode_BadMagic(t *testing.T) {
	frame := Encode([]byte("x"), 1)
	frame[0] = 'Z'
	_, err := Decode(frame)
	require.Error(t, err)
	assert.Equal(t, hyberr.Serialization, hyberr.KindOf(err))
}

func TestDecode_VersionMismatch(t *testing.T) {
	frame := Encode([]byte("x"), 1)
	frame[4] = Version + 1
	_, err := Decode(frame)
	require.Error(t, err)
	assert.Equal(t, hyberr.VersionMismatch, hyberr.KindOf(err))
}

func TestDecode_ChecksumMismatch(t *testing.T) {
	frame := Encode([]byte("hello"), 1)
	frame[len(frame)-1] ^= 0xFF
	_, err := Decode(frame)
	require.Error(t, err)
	assert.Equal(t, hyberr.CrcMismatch, hyberr.KindOf(err))
}

func TestDecode_ShortBuffer(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	require.Error(t, err)
	assert.Equal(t, hyberr.Serialization, hyberr.KindOf(err))
}

func TestDecode_DeclaredLengthExceedsFrame(t *testing.T) {
	frame := Encode([]byte("hello"), 1)
	// Corrupt the declared length to exceed the actual frame size.
	frame[8] = 0xFF
	frame[9] = 0xFF
	_, err := Decode(frame)
	require.Error(t, err)
}
