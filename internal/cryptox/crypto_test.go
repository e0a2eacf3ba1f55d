package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	key1 := DeriveKey([]byte("secret-passphrase"), []byte("fixed-salt"))
	key2 := DeriveKey([]byte("secret-passphrase"), []byte("fixed-salt"))

	require.Len(t, key1, KeySize)
	// same inputs -> same output
	assert.True(t, bytes.Equal(key1, key2))
}

func TestDeriveKey_DifferentSalts(t *testing.T) {
	key1 := DeriveKey([]byte("secret-passphrase"), SaltFor("session-1"))
	key2 := DeriveKey([]byte("secret-passphrase"), SaltFor("session-2"))

	assert.False(t, bytes.Equal(key1, key2))
}

func TestSaltFor_Length(t *testing.T) {
	assert.Len(t, SaltFor(""), 16)
	assert.Equal(t, SaltFor("abc"), SaltFor("abc"))
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := DeriveKey([]byte("pw"), SaltFor("s"))
	plain := []byte(`{"title":"Hello"}`)

	sealed, err := Seal(key, plain)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "Hello")

	got, err := Open(key, sealed)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestSeal_FreshNonceEachTime(t *testing.T) {
	key := DeriveKey([]byte("pw"), SaltFor("s"))

	a, err := Seal(key, []byte("same"))
	require.NoError(t, err)
	b, err := Seal(key, []byte("same"))
	require.NoError(t, err)

	assert.False(t, bytes.Equal(a, b))
}

func TestOpen_Failures(t *testing.T) {
	key := DeriveKey([]byte("pw"), SaltFor("s"))
	other := DeriveKey([]byte("other"), SaltFor("s"))

	sealed, err := Seal(key, []byte("payload"))
	require.NoError(t, err)

	_, err = Open(other, sealed)
	require.Error(t, err, "wrong key must fail")

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xff
	_, err = Open(key, tampered)
	require.Error(t, err, "tampered data must fail")

	_, err = Open(key, []byte{1, 2})
	require.ErrorIs(t, err, ErrCiphertextTooShort)

	_, err = Seal([]byte("short"), []byte("x"))
	require.Error(t, err, "invalid key size must fail")
}
