package badger

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/statecache/core"
	"github.com/poiesic/statecache/storage"
)

// PutNode upserts a node row and keeps its secondary indexes (child,
// fingerprint, share) consistent in one transaction: any index entries of a
// previous row version are dropped before the new ones are written.
func (b *Backend) PutNode(row *storage.NodeRow) error {
	return b.WithTx(func(tx *badger.Txn) error {
		key := makeNodeKey(row.Key)

		old, err := readNodeRow(tx, key)
		if err != nil {
			return err
		}
		if old != nil {
			if err := deleteNodeIndexes(tx, old); err != nil {
				return err
			}
		}

		if err := tx.Set(key, storage.MarshalNodeRow(row)); err != nil {
			return err
		}
		if err := writeNodeIndexes(tx, row); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetNode returns the encrypted payload of the node stored under key.
func (b *Backend) GetNode(key []byte) ([]byte, error) {
	var blob []byte
	err := b.WithTx(func(tx *badger.Txn) error {
		row, err := readNodeRow(tx, makeNodeKey(key))
		if err != nil {
			return err
		}
		if row == nil {
			return storage.ErrNotFound
		}
		blob = row.Blob
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// GetNodeByFingerprint resolves the fingerprint index to a node key and
// returns that node's encrypted payload.
func (b *Backend) GetNodeByFingerprint(fp []byte) ([]byte, error) {
	var blob []byte
	err := b.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeFingerprintKey(fp))
		if err != nil {
			return mapKeyError(err)
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		row, err := readNodeRow(tx, makeNodeKey(key))
		if err != nil {
			return err
		}
		if row == nil {
			return storage.ErrNotFound
		}
		blob = row.Blob
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// DeleteNode removes a node row and its index entries.
// Returns storage.ErrNotFound if no row exists under key.
func (b *Backend) DeleteNode(key []byte) error {
	return b.WithTx(func(tx *badger.Txn) error {
		nodeKey := makeNodeKey(key)
		row, err := readNodeRow(tx, nodeKey)
		if err != nil {
			return err
		}
		if row == nil {
			return storage.ErrNotFound
		}
		if err := deleteNodeIndexes(tx, row); err != nil {
			return err
		}
		if err := tx.Delete(nodeKey); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// NodeHandles opens a cursor over the keys of all node rows.
func (b *Backend) NodeHandles() (storage.Cursor, error) {
	prefix := prefixed(nodePrefix)
	return b.newCursor(prefix, false, readKeySuffix), nil
}

// EncryptedNodeHandles opens a cursor over the keys of nodes whose
// attribute strings have not been decoded yet.
func (b *Backend) EncryptedNodeHandles() (storage.Cursor, error) {
	prefix := prefixed(nodePrefix)
	return b.newCursor(prefix, true, func(item *badger.Item) ([]byte, bool, error) {
		var encrypted bool
		err := item.Value(func(val []byte) error {
			row, err := storage.UnmarshalNodeRow(val)
			if err != nil {
				return err
			}
			encrypted = row.Attrs != ""
			return nil
		})
		if err != nil {
			return nil, false, err
		}
		if !encrypted {
			return nil, false, nil
		}
		return readKeySuffix(item)
	}), nil
}

// ChildHandles opens a cursor over the keys of all nodes under parentKey.
func (b *Backend) ChildHandles(parentKey []byte) (storage.Cursor, error) {
	return b.newCursor(makeChildIndexPrefix(parentKey), false, readKeySuffix), nil
}

// OutShareHandles opens a cursor over the keys of nodes with outgoing
// shares; a nil parentKey scans the whole set.
func (b *Backend) OutShareHandles(parentKey []byte) (storage.Cursor, error) {
	return b.newCursor(makeShareIndexPrefix(outShareIndex, parentKey), false, readKeySuffix), nil
}

// PendingShareHandles opens a cursor over the keys of nodes with pending
// outgoing shares; a nil parentKey scans the whole set.
func (b *Backend) PendingShareHandles(parentKey []byte) (storage.Cursor, error) {
	return b.newCursor(makeShareIndexPrefix(pendingShareIndex, parentKey), false, readKeySuffix), nil
}

// CountChildren returns the number of nodes under parentKey.
func (b *Backend) CountChildren(parentKey []byte) (int, error) {
	return b.countChildren(parentKey, nil)
}

// CountChildFiles returns the number of file nodes under parentKey.
func (b *Backend) CountChildFiles(parentKey []byte) (int, error) {
	return b.countChildren(parentKey, func(kind byte) bool { return kind == childKindFile })
}

// CountChildFolders returns the number of folder nodes under parentKey.
func (b *Backend) CountChildFolders(parentKey []byte) (int, error) {
	return b.countChildren(parentKey, func(kind byte) bool { return kind == childKindFolder })
}

func (b *Backend) countChildren(parentKey []byte, want func(kind byte) bool) (int, error) {
	count := 0
	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChildIndexPrefix(parentKey)
		opts.PrefetchValues = want != nil
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if want == nil {
				count++
				continue
			}
			err := it.Item().Value(func(val []byte) error {
				if len(val) == 1 && want(val[0]) {
					count++
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func readNodeRow(tx *badger.Txn, key []byte) (*storage.NodeRow, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var row *storage.NodeRow
	err = item.Value(func(val []byte) error {
		row, err = storage.UnmarshalNodeRow(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func writeNodeIndexes(tx *badger.Txn, row *storage.NodeRow) error {
	kind := childKindFolder
	if len(row.Fingerprint) > 0 {
		kind = childKindFile
		if err := tx.Set(makeFingerprintKey(row.Fingerprint), row.Key); err != nil {
			return err
		}
	}
	if err := tx.Set(makeChildIndexKey(row.ParentKey, row.Key), []byte{kind}); err != nil {
		return err
	}
	if row.ShareClass == core.ShareClassOut || row.ShareClass == core.ShareClassOutPending {
		if err := tx.Set(makeShareIndexKey(outShareIndex, row.ParentKey, row.Key), nil); err != nil {
			return err
		}
	}
	if row.ShareClass == core.ShareClassPending || row.ShareClass == core.ShareClassOutPending {
		if err := tx.Set(makeShareIndexKey(pendingShareIndex, row.ParentKey, row.Key), nil); err != nil {
			return err
		}
	}
	return nil
}

func deleteNodeIndexes(tx *badger.Txn, row *storage.NodeRow) error {
	if len(row.Fingerprint) > 0 {
		if err := tx.Delete(makeFingerprintKey(row.Fingerprint)); err != nil {
			return err
		}
	}
	if err := tx.Delete(makeChildIndexKey(row.ParentKey, row.Key)); err != nil {
		return err
	}
	if row.ShareClass == core.ShareClassOut || row.ShareClass == core.ShareClassOutPending {
		if err := tx.Delete(makeShareIndexKey(outShareIndex, row.ParentKey, row.Key)); err != nil {
			return err
		}
	}
	if row.ShareClass == core.ShareClassPending || row.ShareClass == core.ShareClassOutPending {
		if err := tx.Delete(makeShareIndexKey(pendingShareIndex, row.ParentKey, row.Key)); err != nil {
			return err
		}
	}
	return nil
}
