package storage_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/poiesic/statecache/core"
	"github.com/poiesic/statecache/crypt"
	"github.com/poiesic/statecache/storage"
	"github.com/poiesic/statecache/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys(t *testing.T) *crypt.Keys {
	t.Helper()
	keys, err := crypt.DeriveKeys(bytes.Repeat([]byte{0x5a}, 32))
	require.NoError(t, err)
	return keys
}

func newTestTable(t *testing.T) (*storage.Table, *badger.Backend) {
	t.Helper()
	backend, err := badger.NewMemoryBackend()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	table := storage.NewTable(backend, storage.WithKeys(testKeys(t)))
	t.Cleanup(func() { table.Close() })
	return table, backend
}

func folderNode(h, parent core.Handle) *core.Node {
	return &core.Node{Handle: h, Parent: parent, Type: core.TypeFolder}
}

func fileNode(h, parent core.Handle, fp *core.Fingerprint) *core.Node {
	return &core.Node{Handle: h, Parent: parent, Type: core.TypeFile, Fingerprint: fp}
}

func TestTable_NotProvisioned(t *testing.T) {
	backend, err := badger.NewMemoryBackend()
	require.NoError(t, err)
	defer backend.Close()

	table := storage.NewTable(backend)
	assert.False(t, table.Provisioned())

	assert.ErrorIs(t, table.PutNode(folderNode(1, 2)), storage.ErrNotProvisioned)
	_, err = table.GetNode(1)
	assert.ErrorIs(t, err, storage.ErrNotProvisioned)
	_, err = table.ChildCount(2)
	assert.ErrorIs(t, err, storage.ErrNotProvisioned)
	_, err = table.GetRoots()
	assert.ErrorIs(t, err, storage.ErrNotProvisioned)

	table.Provision(testKeys(t))
	assert.True(t, table.Provisioned())
	assert.NoError(t, table.PutNode(folderNode(1, 2)))
}

func TestTable_NodeRoundTrip(t *testing.T) {
	table, _ := newTestTable(t)

	want := folderNode(0x1001, 0x2002)
	want.Attrs = "enc:opaque"
	require.NoError(t, table.PutNode(want))

	blob, err := table.GetNode(want.Handle)
	require.NoError(t, err)

	got, err := storage.UnmarshalNode(blob)
	require.NoError(t, err)
	assert.Equal(t, want.Handle, got.Handle)
	assert.Equal(t, want.Parent, got.Parent)
	assert.Equal(t, want.Attrs, got.Attrs)
}

func TestTable_GetNode_Missing(t *testing.T) {
	table, _ := newTestTable(t)

	_, err := table.GetNode(0xbeef)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTable_GetNodeByFingerprint(t *testing.T) {
	table, _ := newTestTable(t)

	fp := &core.Fingerprint{Size: 512, MTime: 1700000000, CRC: [4]uint32{1, 2, 3, 4}}
	node := fileNode(0x10, 0x20, fp)
	require.NoError(t, table.PutNode(node))

	blob, err := table.GetNodeByFingerprint(fp)
	require.NoError(t, err)
	got, err := storage.UnmarshalNode(blob)
	require.NoError(t, err)
	assert.Equal(t, node.Handle, got.Handle)

	other := &core.Fingerprint{Size: 513, MTime: 1700000000, CRC: [4]uint32{1, 2, 3, 4}}
	_, err = table.GetNodeByFingerprint(other)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTable_DeleteNode(t *testing.T) {
	table, _ := newTestTable(t)

	node := folderNode(0x30, 0x20)
	require.NoError(t, table.PutNode(node))
	require.NoError(t, table.DeleteNode(node))

	_, err := table.GetNode(node.Handle)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	count, err := table.ChildCount(0x20)
	require.NoError(t, err)
	assert.Zero(t, count, "child index entry must go with the row")
}

func TestTable_PutUser_UndefinedHandleSkipped(t *testing.T) {
	table, _ := newTestTable(t)

	placeholder := &core.User{Handle: core.UndefHandle, Email: "notyet@example.com"}
	require.NoError(t, table.PutUser(placeholder), "placeholder write must report success")

	_, ok, err := table.NextUser()
	require.NoError(t, err)
	assert.False(t, ok, "placeholder must not produce a row")
}

func TestTable_UserRoundTrip(t *testing.T) {
	table, _ := newTestTable(t)

	want := &core.User{Handle: 0x77, Email: "peer@example.com", Since: 1700000000}
	require.NoError(t, table.PutUser(want))

	blob, ok, err := table.NextUser()
	require.NoError(t, err)
	require.True(t, ok)
	got, err := storage.UnmarshalUser(blob)
	require.NoError(t, err)
	assert.Equal(t, *want, *got)

	_, ok, err = table.NextUser()
	require.NoError(t, err)
	assert.False(t, ok, "end of set is a normal result")

	// The cursor reopens from the start after exhaustion.
	_, ok, err = table.NextUser()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, table.RewindUsers())
}

func TestTable_ContactRequests(t *testing.T) {
	table, _ := newTestTable(t)

	r1 := &core.ContactRequest{ID: 0x100, TargetEmail: "a@example.com", Outgoing: true}
	r2 := &core.ContactRequest{ID: 0x200, TargetEmail: "b@example.com"}
	require.NoError(t, table.PutContactRequest(r1))
	require.NoError(t, table.PutContactRequest(r2))

	seen := 0
	for {
		blob, ok, err := table.NextContactRequest()
		require.NoError(t, err)
		if !ok {
			break
		}
		_, err = storage.UnmarshalContactRequest(blob)
		require.NoError(t, err)
		seen++
	}
	assert.Equal(t, 2, seen)

	require.NoError(t, table.DeleteContactRequest(r1))
	assert.ErrorIs(t, table.DeleteContactRequest(r1), storage.ErrNotFound)

	seen = 0
	for {
		_, ok, err := table.NextContactRequest()
		require.NoError(t, err)
		if !ok {
			break
		}
		seen++
	}
	assert.Equal(t, 1, seen)
}

func TestTable_ChildCounts(t *testing.T) {
	table, _ := newTestTable(t)

	parent := core.Handle(0x500)
	fp1 := &core.Fingerprint{Size: 1, MTime: 1, CRC: [4]uint32{1, 0, 0, 0}}
	fp2 := &core.Fingerprint{Size: 2, MTime: 2, CRC: [4]uint32{2, 0, 0, 0}}
	require.NoError(t, table.PutNode(fileNode(0x501, parent, fp1)))
	require.NoError(t, table.PutNode(fileNode(0x502, parent, fp2)))
	require.NoError(t, table.PutNode(folderNode(0x503, parent)))

	// A sibling under a different parent must not leak into the counts.
	require.NoError(t, table.PutNode(folderNode(0x601, 0x600)))

	files, err := table.ChildFileCount(parent)
	require.NoError(t, err)
	assert.Equal(t, 2, files)

	folders, err := table.ChildFolderCount(parent)
	require.NoError(t, err)
	assert.Equal(t, 1, folders)

	total, err := table.ChildCount(parent)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestTable_ChildHandles(t *testing.T) {
	table, _ := newTestTable(t)

	parent := core.Handle(0x700)
	want := []core.Handle{0x701, 0x702, 0x703}
	for _, h := range want {
		require.NoError(t, table.PutNode(folderNode(h, parent)))
	}

	got, err := table.ChildHandles(parent)
	require.NoError(t, err)
	assert.ElementsMatch(t, want, got, "handles must come back deobfuscated")
}

func TestTable_EncryptedNodeHandles(t *testing.T) {
	table, _ := newTestTable(t)

	undecoded := folderNode(0x801, 0x800)
	undecoded.Attrs = "enc:pending"
	decoded := folderNode(0x802, 0x800)
	require.NoError(t, table.PutNode(undecoded))
	require.NoError(t, table.PutNode(decoded))

	got, err := table.EncryptedNodeHandles()
	require.NoError(t, err)
	assert.Equal(t, []core.Handle{undecoded.Handle}, got)

	all, err := table.NodeHandles()
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.Handle{undecoded.Handle, decoded.Handle}, all)
}

func TestTable_ShareHandles(t *testing.T) {
	table, _ := newTestTable(t)

	parentA := core.Handle(0x900)
	parentB := core.Handle(0xa00)

	out := folderNode(0x901, parentA)
	out.OutShares = true
	pending := folderNode(0x902, parentA)
	pending.PendingShares = true
	both := folderNode(0xa01, parentB)
	both.OutShares = true
	both.PendingShares = true
	plain := folderNode(0xa02, parentB)

	for _, n := range []*core.Node{out, pending, both, plain} {
		require.NoError(t, table.PutNode(n))
	}

	scoped, err := table.OutShareHandles(parentA)
	require.NoError(t, err)
	assert.Equal(t, []core.Handle{out.Handle}, scoped)

	// The undefined parent sentinel scans the whole set.
	all, err := table.OutShareHandles(core.UndefHandle)
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.Handle{out.Handle, both.Handle}, all)

	pendingAll, err := table.PendingShareHandles(core.UndefHandle)
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.Handle{pending.Handle, both.Handle}, pendingAll)

	pendingScoped, err := table.PendingShareHandles(parentB)
	require.NoError(t, err)
	assert.Equal(t, []core.Handle{both.Handle}, pendingScoped)
}

func TestTable_ShareIndexFollowsUpdate(t *testing.T) {
	table, _ := newTestTable(t)

	node := folderNode(0xb01, 0xb00)
	node.OutShares = true
	require.NoError(t, table.PutNode(node))

	// Share revoked: the upsert must drop the stale index entry.
	node.OutShares = false
	require.NoError(t, table.PutNode(node))

	all, err := table.OutShareHandles(core.UndefHandle)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTable_Roots(t *testing.T) {
	table, _ := newTestTable(t)

	_, err := table.GetRoots()
	assert.Error(t, err, "reading roots before writing them must fail")

	want := [3]core.Handle{0x111, 0x222, 0x333}
	require.NoError(t, table.PutRoots(want))

	got, err := table.GetRoots()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTable_SequenceToken(t *testing.T) {
	table, _ := newTestTable(t)

	want := []byte("seqtok:abcdef")
	require.NoError(t, table.PutSequenceToken(want))

	got, err := table.GetSequenceToken()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTable_CorruptPayload(t *testing.T) {
	table, backend := newTestTable(t)

	node := folderNode(0xc01, 0xc00)
	require.NoError(t, table.PutNode(node))

	// Corrupt the stored blob behind the table's back.
	handles, err := table.ChildHandles(0xc00)
	require.NoError(t, err)
	require.Len(t, handles, 1)

	keys := testKeys(t)
	raw := make([]byte, storage.KeyLen)
	binary.BigEndian.PutUint64(raw, uint64(keys.Own.Mask(node.Handle)))
	blob, err := backend.GetNode(raw)
	require.NoError(t, err)
	require.NoError(t, backend.PutNode(&storage.NodeRow{
		Key:       raw,
		ParentKey: make([]byte, storage.KeyLen),
		Blob:      blob[:len(blob)-1],
	}))

	_, err = table.GetNode(node.Handle)
	assert.ErrorIs(t, err, crypt.ErrDecrypt, "corruption must surface as a decode failure, not garbage")
}

type testRecord struct {
	id   uint64
	data []byte
	fail bool
}

func (r *testRecord) CacheID() uint64      { return r.id }
func (r *testRecord) SetCacheID(id uint64) { r.id = id }

func (r *testRecord) CacheSerialize() ([]byte, error) {
	if r.fail {
		return nil, errors.New("serialize failure")
	}
	return r.data, nil
}

func drainRecords(t *testing.T, table *storage.Table) map[uint32][][]byte {
	t.Helper()
	out := make(map[uint32][][]byte)
	for {
		tag, blob, ok, err := table.NextRecord()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out[tag] = append(out[tag], blob)
	}
}

func TestTable_Records(t *testing.T) {
	table, backend := newTestTable(t)

	// Allocation before the recovery replay is a refused, typed state.
	rec := &testRecord{data: []byte("payload-1")}
	assert.ErrorIs(t, table.PutRecord(2, rec), storage.ErrNotRecovered)

	// Draining an empty cache completes recovery.
	assert.Empty(t, drainRecords(t, table))

	require.NoError(t, table.PutRecord(2, rec))
	assert.NotZero(t, rec.id, "first write must allocate an id")
	assert.Equal(t, uint32(2), uint32(rec.id&(storage.IDSpacing-1)))

	rec2 := &testRecord{data: []byte("payload-2")}
	require.NoError(t, table.PutRecord(5, rec2))
	assert.NotEqual(t, rec.id, rec2.id)

	// A record that fails to serialize is skipped with success.
	bad := &testRecord{fail: true}
	require.NoError(t, table.PutRecord(2, bad))
	assert.Zero(t, bad.id)

	// Simulate a restart: a fresh table over the same backend replays the
	// records, then allocates strictly beyond them.
	table2 := storage.NewTable(backend, storage.WithKeys(testKeys(t)))
	defer table2.Close()

	got := drainRecords(t, table2)
	require.Len(t, got[2], 1)
	assert.Equal(t, []byte("payload-1"), got[2][0])
	require.Len(t, got[5], 1)
	assert.Equal(t, []byte("payload-2"), got[5][0])

	rec3 := &testRecord{data: []byte("payload-3")}
	require.NoError(t, table2.PutRecord(2, rec3))
	assert.Greater(t, rec3.id, rec.id)
	assert.Greater(t, rec3.id, rec2.id)
}

func TestTable_RecordUpdateKeepsID(t *testing.T) {
	table, backend := newTestTable(t)
	drainRecords(t, table)

	rec := &testRecord{data: []byte("v1")}
	require.NoError(t, table.PutRecord(1, rec))
	id := rec.id

	rec.data = []byte("v2")
	require.NoError(t, table.PutRecord(1, rec))
	assert.Equal(t, id, rec.id, "rewrites must not reallocate")

	table2 := storage.NewTable(backend, storage.WithKeys(testKeys(t)))
	defer table2.Close()
	got := drainRecords(t, table2)
	require.Len(t, got[1], 1, "rewrite must replace, not duplicate")
	assert.Equal(t, []byte("v2"), got[1][0])
}
