package crypt

import (
	"fmt"

	"github.com/go-crypt/x/blake2b"
)

// Key derivation context strings. Changing any of these invalidates every
// existing cache.
const (
	cipherContext       = "statecache.cipher.v1"
	ownHandleContext    = "statecache.handle.own.v1"
	parentHandleContext = "statecache.handle.parent.v1"
)

// Keys is the provisioned key bundle of one cache session: the payload
// cipher plus the two handle obfuscation subkeys. The table layer treats a
// nil *Keys as the unprovisioned state and refuses operations that need it.
type Keys struct {
	Cipher *Cipher
	Own    HandleKey
	Parent HandleKey
}

// DeriveKeys derives the session key bundle from a master secret using
// keyed BLAKE2b under distinct context strings. The master secret must be
// 16 to 64 bytes (the BLAKE2b key limit); it is borrowed, never retained.
func DeriveKeys(master []byte) (*Keys, error) {
	if len(master) < 16 || len(master) > 64 {
		return nil, fmt.Errorf("%w: master secret must be 16..64 bytes, got %d",
			ErrKeySize, len(master))
	}

	cipherKey, err := deriveBytes(master, cipherContext, 32)
	if err != nil {
		return nil, err
	}
	c, err := NewCipher(cipherKey)
	if err != nil {
		return nil, err
	}

	ownKey, err := deriveBytes(master, ownHandleContext, HandleKeyLen)
	if err != nil {
		return nil, err
	}
	own, err := NewHandleKey(ownKey)
	if err != nil {
		return nil, err
	}

	parentKey, err := deriveBytes(master, parentHandleContext, HandleKeyLen)
	if err != nil {
		return nil, err
	}
	parent, err := NewHandleKey(parentKey)
	if err != nil {
		return nil, err
	}

	return &Keys{Cipher: c, Own: own, Parent: parent}, nil
}

func deriveBytes(master []byte, context string, size int) ([]byte, error) {
	h, err := blake2b.New(size, master)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeySize, err)
	}
	h.Write([]byte(context))
	return h.Sum(nil), nil
}
