package invitecode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec, err := New("test-secret")
	require.NoError(t, err)

	for _, id := range []uint64{1, 42, 1<<32 + 7, 1<<63 - 1} {
		code := codec.Encode(id)
		require.Less(t, len(code), RequestCodeThreshold)

		decoded, err := codec.Decode(code)
		require.NoError(t, err)
		require.Equal(t, id, decoded)
	}
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	codec, err := New("test-secret")
	require.NoError(t, err)

	for _, code := range []string{
		"",
		"not-base32-???",
		"abc",
		strings.Repeat("a", 80),
	} {
		_, err := codec.Decode(code)
		require.ErrorIs(t, err, ErrInvalidCode, "code %q", code)
	}
}

func TestDecodeRejectsTamperedChecksum(t *testing.T) {
	codec, err := New("test-secret")
	require.NoError(t, err)

	code := codec.Encode(99)
	tampered := []byte(code)
	if tampered[0] == 'a' {
		tampered[0] = 'b'
	} else {
		tampered[0] = 'a'
	}

	_, err = codec.Decode(string(tampered))
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestDecodeRejectsForeignSecret(t *testing.T) {
	ours, err := New("ours")
	require.NoError(t, err)
	theirs, err := New("theirs")
	require.NoError(t, err)

	_, err = theirs.Decode(ours.Encode(7))
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New("  ")
	require.Error(t, err)
}
