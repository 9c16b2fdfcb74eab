package crypt

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/statecache/core"
)

// HandleKeyLen is the width of a handle obfuscation subkey, matching the
// width of a handle.
const HandleKeyLen = 8

// HandleKey is a keyed, reversible transform for handles used as storage
// keys. Masking is a block XOR: applying the same key twice restores the
// original handle. It deters correlating identifiers across the raw store;
// it is not encryption and offers no resistance to adversarial analysis.
//
// Two independent subkeys are held per session — one for a record's own
// handle, one for its parent handle — so obfuscated own and parent columns
// do not reveal the XOR relationship between the two.
type HandleKey struct {
	mask uint64
}

// NewHandleKey creates a HandleKey from an 8-byte subkey.
func NewHandleKey(key []byte) (HandleKey, error) {
	if len(key) != HandleKeyLen {
		return HandleKey{}, fmt.Errorf("%w: handle subkey must be %d bytes, got %d",
			ErrKeySize, HandleKeyLen, len(key))
	}
	return HandleKey{mask: binary.BigEndian.Uint64(key)}, nil
}

// Mask obfuscates a plain handle, or restores a plain handle from an
// obfuscated one. The transform is its own inverse.
func (k HandleKey) Mask(h core.Handle) core.Handle {
	return h ^ core.Handle(k.mask)
}
