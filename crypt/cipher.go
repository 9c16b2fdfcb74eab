package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// Cipher pad-encrypts record payloads under the session key.
//
// The scheme is AES-CBC with a zero IV and PKCS#7 padding. The zero IV makes
// encryption deterministic: equal plaintext under equal key always yields
// equal ciphertext. That is a deliberate trade-off — fingerprint lookups are
// an equality search over ciphertexts, which a randomized IV would break.
// The payloads protected here are cache records on local disk, not wire
// traffic; the threat model is casual inspection of the storage medium.
type Cipher struct {
	block cipher.Block
}

// NewCipher creates a Cipher from a 16-, 24- or 32-byte AES key.
func NewCipher(key []byte) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeySize, err)
	}
	return &Cipher{block: block}, nil
}

// EncryptPad pads the plaintext to a whole number of blocks and encrypts it.
// The result is always at least one block long, even for empty input.
func (c *Cipher) EncryptPad(plain []byte) []byte {
	bs := c.block.BlockSize()
	pad := bs - len(plain)%bs

	buf := make([]byte, len(plain)+pad)
	copy(buf, plain)
	for i := len(plain); i < len(buf); i++ {
		buf[i] = byte(pad)
	}

	iv := make([]byte, bs)
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(buf, buf)
	return buf
}

// DecryptUnpad decrypts a ciphertext produced by EncryptPad and strips the
// padding. It returns ErrDecrypt for anything that is not a well-formed
// ciphertext: wrong length, corrupt padding, or data written under a
// different key.
func (c *Cipher) DecryptUnpad(ct []byte) ([]byte, error) {
	bs := c.block.BlockSize()
	if len(ct) == 0 || len(ct)%bs != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d", ErrDecrypt, len(ct))
	}

	buf := make([]byte, len(ct))
	iv := make([]byte, bs)
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(buf, ct)

	pad := int(buf[len(buf)-1])
	if pad == 0 || pad > bs {
		return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
	}
	for _, b := range buf[len(buf)-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
		}
	}

	return buf[:len(buf)-pad], nil
}
