package security

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, TokenBytes)
}

func TestHashToken(t *testing.T) {
	h := HashToken("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h)
	assert.True(t, EqualHash(h, HashToken("abc")))
	assert.False(t, EqualHash(h, HashToken("abd")))
}

func TestSealRoundTrip(t *testing.T) {
	binding := Binding{Username: "alice", DeviceFingerprint: "fp-1"}
	token, err := NewToken()
	require.NoError(t, err)

	for _, password := range []string{"", "s3cret", "a much longer password than the token itself, well past 32 bytes"} {
		sealed, err := SealPassword(password, token, binding)
		require.NoError(t, err)

		got, err := OpenPassword(sealed, token, binding)
		require.NoError(t, err)
		assert.Equal(t, password, got)
	}
}

func TestOpenWithOtherTokenFails(t *testing.T) {
	binding := Binding{Username: "alice", DeviceFingerprint: "fp-1"}
	token, _ := NewToken()
	other, _ := NewToken()

	sealed, err := SealPassword("s3cret", token, binding)
	require.NoError(t, err)

	got, err := OpenPassword(sealed, other, binding)
	assert.ErrorIs(t, err, ErrOpen)
	assert.NotEqual(t, "s3cret", got)
}

func TestOpenWithOtherBindingFails(t *testing.T) {
	token, _ := NewToken()
	sealed, err := SealPassword("s3cret", token, Binding{Username: "alice", DeviceFingerprint: "fp-1"})
	require.NoError(t, err)

	_, err = OpenPassword(sealed, token, Binding{Username: "alice", DeviceFingerprint: "fp-2"})
	assert.ErrorIs(t, err, ErrOpen)
	_, err = OpenPassword(sealed, token, Binding{Username: "bob", DeviceFingerprint: "fp-1"})
	assert.ErrorIs(t, err, ErrOpen)
}

func TestOpenRejectsGarbage(t *testing.T) {
	token, _ := NewToken()
	binding := Binding{Username: "alice"}
	for _, sealed := range []string{"", "not base64!", base64.StdEncoding.EncodeToString([]byte{1, 2, 3})} {
		_, err := OpenPassword(sealed, token, binding)
		assert.ErrorIs(t, err, ErrOpen)
	}
}

func TestSealIsRandomized(t *testing.T) {
	token, _ := NewToken()
	binding := Binding{Username: "alice", DeviceFingerprint: "fp"}
	a, err := SealPassword("same", token, binding)
	require.NoError(t, err)
	b, err := SealPassword("same", token, binding)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
