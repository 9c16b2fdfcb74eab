package crypt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCipher(t *testing.T) *Cipher {
	t.Helper()
	key := bytes.Repeat([]byte{0x42}, 32)
	c, err := NewCipher(key)
	require.NoError(t, err)
	return c
}

func TestNewCipher_KeySizes(t *testing.T) {
	for _, size := range []int{16, 24, 32} {
		_, err := NewCipher(make([]byte, size))
		assert.NoError(t, err, "key size %d", size)
	}
	for _, size := range []int{0, 8, 31, 33} {
		_, err := NewCipher(make([]byte, size))
		assert.ErrorIs(t, err, ErrKeySize, "key size %d", size)
	}
}

func TestCipher_RoundTrip(t *testing.T) {
	c := testCipher(t)

	plaintexts := [][]byte{
		nil,
		[]byte("a"),
		[]byte("exactly sixteen!"), // one full block
		bytes.Repeat([]byte{0xab}, 1000),
	}
	for _, plain := range plaintexts {
		ct := c.EncryptPad(plain)
		require.NotEmpty(t, ct)
		assert.Zero(t, len(ct)%16, "ciphertext must be block aligned")

		got, err := c.DecryptUnpad(ct)
		require.NoError(t, err)
		assert.Equal(t, len(plain), len(got))
		assert.True(t, bytes.Equal(plain, got))
	}
}

func TestCipher_Deterministic(t *testing.T) {
	c := testCipher(t)
	plain := []byte("fingerprint lookups need this")

	assert.Equal(t, c.EncryptPad(plain), c.EncryptPad(plain))
}

func TestCipher_CorruptCiphertext(t *testing.T) {
	c := testCipher(t)
	ct := c.EncryptPad([]byte("payload worth protecting"))

	// Flip a byte in the last block so the padding no longer verifies.
	corrupt := append([]byte(nil), ct...)
	corrupt[len(corrupt)-1] ^= 0xff
	_, err := c.DecryptUnpad(corrupt)
	assert.ErrorIs(t, err, ErrDecrypt)

	// Truncated and misaligned inputs fail too.
	_, err = c.DecryptUnpad(ct[:len(ct)-1])
	assert.ErrorIs(t, err, ErrDecrypt)
	_, err = c.DecryptUnpad(nil)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestCipher_WrongKey(t *testing.T) {
	c1 := testCipher(t)
	c2, err := NewCipher(bytes.Repeat([]byte{0x43}, 32))
	require.NoError(t, err)

	ct := c1.EncryptPad([]byte("some record payload, long enough for two blocks"))
	plain, err := c2.DecryptUnpad(ct)
	if err == nil {
		// A wrong key can decrypt to valid-looking padding by chance; it
		// must at least never return the original plaintext.
		assert.NotEqual(t, []byte("some record payload, long enough for two blocks"), plain)
	}
}
