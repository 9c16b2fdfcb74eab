package storage

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/poiesic/statecache/core"
	"github.com/poiesic/statecache/crypt"
)

// rootSequenceSlot is reserved for the server-client sequence token; the
// three root container handles live in slots 1..3.
const (
	rootSequenceSlot = 0
	rootSlotCount    = 3
)

// Table is the encrypted record-access layer. Every payload is
// pad-encrypted under the session cipher before it reaches the backend, and
// every handle is obfuscated with the matching subkey before it is used as
// a storage key: own handles with the own-handle subkey, parent handles
// with the parent subkey.
//
// A Table built without keys is usable only after Provision; operations
// that touch key material fail with ErrNotProvisioned until then.
type Table struct {
	backend Backend
	keys    *crypt.Keys
	alloc   *Allocator
	logger  *slog.Logger

	userCur Cursor
	pcrCur  Cursor
	recCur  RecordCursor
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithKeys provisions the session key bundle at construction time.
func WithKeys(keys *crypt.Keys) TableOption {
	return func(t *Table) {
		t.keys = keys
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) TableOption {
	return func(t *Table) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTable creates a Table over the given backend.
func NewTable(backend Backend, opts ...TableOption) *Table {
	t := &Table{
		backend: backend,
		alloc:   NewAllocator(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Provision installs the session key bundle. It must happen before any
// operation that encrypts or obfuscates, and must not race with them.
func (t *Table) Provision(keys *crypt.Keys) {
	t.keys = keys
}

// Provisioned reports whether the session keys are installed.
func (t *Table) Provisioned() bool {
	return t.keys != nil
}

func (t *Table) provisioned() error {
	if t.keys == nil {
		return ErrNotProvisioned
	}
	return nil
}

// Close releases any open cursors. The backend is owned by the caller and
// stays open.
func (t *Table) Close() error {
	for _, c := range []interface{ Close() error }{t.userCur, t.pcrCur, t.recCur} {
		if c != nil {
			c.Close()
		}
	}
	t.userCur, t.pcrCur, t.recCur = nil, nil, nil
	return nil
}

// PutRoots encodes and stores the three root container handles in slots
// 1..3. The operation is all-or-nothing: the first slot failure aborts it.
func (t *Table) PutRoots(roots [rootSlotCount]core.Handle) error {
	if err := t.provisioned(); err != nil {
		return err
	}
	for i, h := range roots {
		if err := t.backend.PutRootSlot(i+1, t.encryptHandle(h)); err != nil {
			return fmt.Errorf("root slot %d: %w", i+1, err)
		}
	}
	return nil
}

// GetRoots reads the three root container handles back. Any missing or
// undecodable slot fails the whole read.
func (t *Table) GetRoots() ([rootSlotCount]core.Handle, error) {
	var roots [rootSlotCount]core.Handle
	if err := t.provisioned(); err != nil {
		return roots, err
	}
	for i := range roots {
		data, err := t.backend.GetRootSlot(i + 1)
		if err != nil {
			return roots, fmt.Errorf("root slot %d: %w", i+1, err)
		}
		roots[i], err = t.decryptHandle(data)
		if err != nil {
			return roots, fmt.Errorf("root slot %d: %w", i+1, err)
		}
	}
	return roots, nil
}

// PutSequenceToken stores the server-client sequence token in slot 0.
func (t *Table) PutSequenceToken(token []byte) error {
	if err := t.provisioned(); err != nil {
		return err
	}
	return t.backend.PutRootSlot(rootSequenceSlot, t.keys.Cipher.EncryptPad(token))
}

// GetSequenceToken reads the sequence token back from slot 0.
func (t *Table) GetSequenceToken() ([]byte, error) {
	if err := t.provisioned(); err != nil {
		return nil, err
	}
	data, err := t.backend.GetRootSlot(rootSequenceSlot)
	if err != nil {
		return nil, err
	}
	return t.keys.Cipher.DecryptUnpad(data)
}

// PutNode serializes, encrypts and upserts a node. File nodes additionally
// carry their pad-encrypted fingerprint so the row can be found again by
// fingerprint equality. Backend failures are logged and returned; they are
// not fatal to the caller's batch.
func (t *Table) PutNode(n *core.Node) error {
	if err := t.provisioned(); err != nil {
		return err
	}

	row := &NodeRow{
		Key:        t.ownKey(n.Handle),
		ParentKey:  t.parentKey(n.Parent),
		Attrs:      n.Attrs,
		ShareClass: n.ShareClass(),
		Blob:       t.keys.Cipher.EncryptPad(MarshalNode(n)),
	}
	if n.IsFile() && n.Fingerprint != nil {
		row.Fingerprint = t.keys.Cipher.EncryptPad(MarshalFingerprint(n.Fingerprint))
	}

	if err := t.backend.PutNode(row); err != nil {
		t.logger.Error("error recording node", "handle", uint64(n.Handle), "err", err)
		return err
	}
	return nil
}

// GetNode looks a node up by handle and returns its decrypted payload.
func (t *Table) GetNode(h core.Handle) ([]byte, error) {
	if err := t.provisioned(); err != nil {
		return nil, err
	}
	data, err := t.backend.GetNode(t.ownKey(h))
	if err != nil {
		return nil, err
	}
	return t.keys.Cipher.DecryptUnpad(data)
}

// GetNodeByFingerprint looks a node up by content fingerprint. The lookup
// is an equality search over the deterministic fingerprint ciphertext.
func (t *Table) GetNodeByFingerprint(fp *core.Fingerprint) ([]byte, error) {
	if err := t.provisioned(); err != nil {
		return nil, err
	}
	data, err := t.backend.GetNodeByFingerprint(t.keys.Cipher.EncryptPad(MarshalFingerprint(fp)))
	if err != nil {
		return nil, err
	}
	return t.keys.Cipher.DecryptUnpad(data)
}

// DeleteNode removes a node row by handle.
func (t *Table) DeleteNode(n *core.Node) error {
	if err := t.provisioned(); err != nil {
		return err
	}
	return t.backend.DeleteNode(t.ownKey(n.Handle))
}

// PutUser serializes, encrypts and upserts a user record. A user with an
// undefined handle is a transient placeholder created during share setup
// and is deliberately not persisted; the call succeeds without writing.
func (t *Table) PutUser(u *core.User) error {
	if err := t.provisioned(); err != nil {
		return err
	}
	if !u.Handle.Defined() {
		t.logger.Debug("skipping record of user without handle", "email", u.Email)
		return nil
	}
	return t.backend.PutUser(t.ownKey(u.Handle), t.keys.Cipher.EncryptPad(MarshalUser(u)))
}

// PutContactRequest serializes, encrypts and upserts a pending contact
// request.
func (t *Table) PutContactRequest(r *core.ContactRequest) error {
	if err := t.provisioned(); err != nil {
		return err
	}
	return t.backend.PutContactRequest(t.ownKey(r.ID), t.keys.Cipher.EncryptPad(MarshalContactRequest(r)))
}

// DeleteContactRequest removes a pending contact request by id.
func (t *Table) DeleteContactRequest(r *core.ContactRequest) error {
	if err := t.provisioned(); err != nil {
		return err
	}
	return t.backend.DeleteContactRequest(t.ownKey(r.ID))
}

// RewindUsers resets the user cursor to the start of the set.
func (t *Table) RewindUsers() error {
	if t.userCur != nil {
		t.userCur.Close()
		t.userCur = nil
	}
	cur, err := t.backend.Users()
	if err != nil {
		return err
	}
	t.userCur = cur
	return nil
}

// NextUser returns the next decrypted user payload. The second return is
// false at the end of the set, which is a normal result, not an error.
func (t *Table) NextUser() ([]byte, bool, error) {
	return t.nextBlob(&t.userCur, t.backend.Users)
}

// RewindContactRequests resets the contact-request cursor.
func (t *Table) RewindContactRequests() error {
	if t.pcrCur != nil {
		t.pcrCur.Close()
		t.pcrCur = nil
	}
	cur, err := t.backend.ContactRequests()
	if err != nil {
		return err
	}
	t.pcrCur = cur
	return nil
}

// NextContactRequest returns the next decrypted contact-request payload.
func (t *Table) NextContactRequest() ([]byte, bool, error) {
	return t.nextBlob(&t.pcrCur, t.backend.ContactRequests)
}

func (t *Table) nextBlob(cur *Cursor, open func() (Cursor, error)) ([]byte, bool, error) {
	if err := t.provisioned(); err != nil {
		return nil, false, err
	}
	if *cur == nil {
		c, err := open()
		if err != nil {
			return nil, false, err
		}
		*cur = c
	}
	raw, ok, err := (*cur).Next()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		(*cur).Close()
		*cur = nil
		return nil, false, nil
	}
	blob, err := t.keys.Cipher.DecryptUnpad(raw)
	if err != nil {
		return nil, false, err
	}
	return blob, true, nil
}

// ChildCount returns the number of nodes under the given parent.
func (t *Table) ChildCount(parent core.Handle) (int, error) {
	if err := t.provisioned(); err != nil {
		return 0, err
	}
	return t.backend.CountChildren(t.parentKey(parent))
}

// ChildFileCount returns the number of file nodes under the given parent.
func (t *Table) ChildFileCount(parent core.Handle) (int, error) {
	if err := t.provisioned(); err != nil {
		return 0, err
	}
	return t.backend.CountChildFiles(t.parentKey(parent))
}

// ChildFolderCount returns the number of folder nodes under the given
// parent.
func (t *Table) ChildFolderCount(parent core.Handle) (int, error) {
	if err := t.provisioned(); err != nil {
		return 0, err
	}
	return t.backend.CountChildFolders(t.parentKey(parent))
}

// ChildHandles lists the handles of all nodes under the given parent, in
// backend order.
func (t *Table) ChildHandles(parent core.Handle) ([]core.Handle, error) {
	if err := t.provisioned(); err != nil {
		return nil, err
	}
	cur, err := t.backend.ChildHandles(t.parentKey(parent))
	if err != nil {
		return nil, err
	}
	return t.collectHandles(cur)
}

// NodeHandles lists the handles of every cached node.
func (t *Table) NodeHandles() ([]core.Handle, error) {
	if err := t.provisioned(); err != nil {
		return nil, err
	}
	cur, err := t.backend.NodeHandles()
	if err != nil {
		return nil, err
	}
	return t.collectHandles(cur)
}

// EncryptedNodeHandles lists the handles of nodes whose attribute strings
// have not been decoded yet.
func (t *Table) EncryptedNodeHandles() ([]core.Handle, error) {
	if err := t.provisioned(); err != nil {
		return nil, err
	}
	cur, err := t.backend.EncryptedNodeHandles()
	if err != nil {
		return nil, err
	}
	return t.collectHandles(cur)
}

// OutShareHandles lists the handles of nodes with outgoing shares. When
// parent is defined the listing is restricted to its children; pass
// core.UndefHandle to scan the whole set.
func (t *Table) OutShareHandles(parent core.Handle) ([]core.Handle, error) {
	return t.shareHandles(parent, t.backend.OutShareHandles)
}

// PendingShareHandles lists the handles of nodes with pending outgoing
// shares, with the same parent scoping as OutShareHandles.
func (t *Table) PendingShareHandles(parent core.Handle) ([]core.Handle, error) {
	return t.shareHandles(parent, t.backend.PendingShareHandles)
}

func (t *Table) shareHandles(parent core.Handle, open func([]byte) (Cursor, error)) ([]core.Handle, error) {
	if err := t.provisioned(); err != nil {
		return nil, err
	}
	var scope []byte
	if parent.Defined() {
		scope = t.parentKey(parent)
	}
	cur, err := open(scope)
	if err != nil {
		return nil, err
	}
	return t.collectHandles(cur)
}

func (t *Table) collectHandles(cur Cursor) ([]core.Handle, error) {
	defer cur.Close()

	var handles []core.Handle
	for {
		key, ok, err := cur.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return handles, nil
		}
		if len(key) != KeyLen {
			return nil, fmt.Errorf("%w: handle key of %d bytes", ErrNotFound, len(key))
		}
		handles = append(handles, t.keys.Own.Mask(core.Handle(binary.BigEndian.Uint64(key))))
	}
}

// PutRecord serializes, encrypts and upserts a generic cacheable record
// under the given type tag, allocating an id on first write. A record that
// fails to serialize is skipped with success so one bad record never blocks
// the rest of a cache flush.
func (t *Table) PutRecord(tag uint32, rec Cacheable) error {
	if err := t.provisioned(); err != nil {
		return err
	}

	data, err := rec.CacheSerialize()
	if err != nil {
		t.logger.Debug("skipping record that failed to serialize", "tag", tag, "err", err)
		return nil
	}

	id := rec.CacheID()
	if id == 0 {
		id, err = t.alloc.Allocate(tag)
		if err != nil {
			return err
		}
		rec.SetCacheID(id)
	}

	return t.backend.PutRecord(id, t.keys.Cipher.EncryptPad(data))
}

// NextRecord returns the next generic record as (typeTag, decrypted blob).
// Rows with the reserved zero tag are passed through undecrypted and do not
// feed the id allocator; every other row raises the allocator watermark.
// When the cursor reaches the end of the set, recovery is complete and new
// ids may be allocated.
func (t *Table) NextRecord() (uint32, []byte, bool, error) {
	if err := t.provisioned(); err != nil {
		return 0, nil, false, err
	}
	if t.recCur == nil {
		cur, err := t.backend.Records()
		if err != nil {
			return 0, nil, false, err
		}
		t.recCur = cur
	}

	id, raw, ok, err := t.recCur.Next()
	if err != nil {
		return 0, nil, false, err
	}
	if !ok {
		t.recCur.Close()
		t.recCur = nil
		t.alloc.FinishRecovery()
		return 0, nil, false, nil
	}

	tag := uint32(id & (IDSpacing - 1))
	if tag == 0 {
		return 0, raw, true, nil
	}

	t.alloc.Observe(id)
	blob, err := t.keys.Cipher.DecryptUnpad(raw)
	if err != nil {
		return tag, nil, false, err
	}
	return tag, blob, true, nil
}

// encryptHandle encodes a handle as base64 text and pad-encrypts it, the
// storage form used for the root slots.
func (t *Table) encryptHandle(h core.Handle) []byte {
	var raw [KeyLen]byte
	binary.BigEndian.PutUint64(raw[:], uint64(h))
	text := base64.StdEncoding.EncodeToString(raw[:])
	return t.keys.Cipher.EncryptPad([]byte(text))
}

func (t *Table) decryptHandle(data []byte) (core.Handle, error) {
	text, err := t.keys.Cipher.DecryptUnpad(data)
	if err != nil {
		return core.UndefHandle, err
	}
	raw, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil || len(raw) != KeyLen {
		return core.UndefHandle, fmt.Errorf("%w: malformed handle text", crypt.ErrDecrypt)
	}
	return core.Handle(binary.BigEndian.Uint64(raw)), nil
}

func (t *Table) ownKey(h core.Handle) []byte {
	return maskKey(t.keys.Own, h)
}

func (t *Table) parentKey(h core.Handle) []byte {
	return maskKey(t.keys.Parent, h)
}

func maskKey(k crypt.HandleKey, h core.Handle) []byte {
	key := make([]byte, KeyLen)
	binary.BigEndian.PutUint64(key, uint64(k.Mask(h)))
	return key
}
