package storage

import "github.com/poiesic/statecache/core"

// NodeRow is the raw shape of a node record as the backend stores it. All
// identifying fields arrive already obfuscated or encrypted; the backend
// never sees plaintext handles or payloads.
type NodeRow struct {
	Key         []byte          // obfuscated own handle, KeyLen bytes
	ParentKey   []byte          // obfuscated parent handle, KeyLen bytes
	Fingerprint []byte          // pad-encrypted fingerprint, empty for non-files
	Attrs       string          // undecoded attribute string, empty once decoded
	ShareClass  core.ShareClass // derived share classification, used for filtering
	Blob        []byte          // pad-encrypted node payload
}

// KeyLen is the width of an obfuscated-handle storage key.
const KeyLen = 8

// Cursor is a forward-only iterator over raw rows of one record kind. Next
// returns (row, true, nil) for each row and (nil, false, nil) at the end of
// the set; end-of-set is not an error. Close releases the underlying
// snapshot and must always be called.
type Cursor interface {
	Next() ([]byte, bool, error)
	Close() error
}

// RecordCursor iterates generic type-tagged records, yielding the allocated
// id alongside the raw payload.
type RecordCursor interface {
	Next() (id uint64, blob []byte, ok bool, err error)
	Close() error
}

// Backend is the raw storage contract the encrypted access layer requires.
// Implementations must be safe for concurrent use and must treat all keys
// and payloads as opaque bytes.
type Backend interface {
	// PutRootSlot and GetRootSlot access the four fixed slots: slot 0 holds
	// the sequence token, slots 1..3 the root container handles.
	PutRootSlot(slot int, data []byte) error
	GetRootSlot(slot int) ([]byte, error)

	// PutNode upserts a node row by its key, replacing any secondary index
	// entries of a previous version atomically.
	PutNode(row *NodeRow) error
	GetNode(key []byte) ([]byte, error)
	GetNodeByFingerprint(fp []byte) ([]byte, error)
	DeleteNode(key []byte) error

	PutUser(key, blob []byte) error
	PutContactRequest(key, blob []byte) error
	DeleteContactRequest(key []byte) error

	// Users and ContactRequests open payload cursors over the respective
	// record kinds.
	Users() (Cursor, error)
	ContactRequests() (Cursor, error)

	// Handle cursors yield raw KeyLen-byte keys without touching payloads.
	// A nil parentKey on the share cursors scans the whole set.
	NodeHandles() (Cursor, error)
	EncryptedNodeHandles() (Cursor, error)
	ChildHandles(parentKey []byte) (Cursor, error)
	OutShareHandles(parentKey []byte) (Cursor, error)
	PendingShareHandles(parentKey []byte) (Cursor, error)

	CountChildren(parentKey []byte) (int, error)
	CountChildFiles(parentKey []byte) (int, error)
	CountChildFolders(parentKey []byte) (int, error)

	PutRecord(id uint64, blob []byte) error
	Records() (RecordCursor, error)

	Close() error
}

// Cacheable is a generic record whose persistence identity is allocated by
// the cache rather than supplied by the domain. A zero CacheID marks a
// record that has never been written.
type Cacheable interface {
	CacheID() uint64
	SetCacheID(id uint64)
	CacheSerialize() ([]byte, error)
}
