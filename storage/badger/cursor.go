package badger

import (
	"encoding/binary"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/statecache/storage"
)

// cursor is a forward-only iterator over one key prefix, backed by a
// read-only transaction that lives until Close. The read function extracts
// the row from the current item; returning include=false skips it.
type cursor struct {
	txn  *badger.Txn
	it   *badger.Iterator
	read func(item *badger.Item) (row []byte, include bool, err error)
}

var _ storage.Cursor = (*cursor)(nil)

func (b *Backend) newCursor(prefix []byte, prefetch bool, read func(*badger.Item) ([]byte, bool, error)) *cursor {
	txn := b.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = prefetch
	it := txn.NewIterator(opts)
	it.Rewind()
	return &cursor{txn: txn, it: it, read: read}
}

func (c *cursor) Next() ([]byte, bool, error) {
	for c.it.Valid() {
		row, include, err := c.read(c.it.Item())
		if err != nil {
			return nil, false, err
		}
		c.it.Next()
		if include {
			return row, true, nil
		}
	}
	return nil, false, nil
}

func (c *cursor) Close() error {
	c.it.Close()
	c.txn.Discard()
	return nil
}

// readValue copies the current item's value.
func readValue(item *badger.Item) ([]byte, bool, error) {
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// readKeySuffix returns the last KeyLen bytes of the item's key, which is
// the obfuscated own handle in all index layouts.
func readKeySuffix(item *badger.Item) ([]byte, bool, error) {
	key := item.KeyCopy(nil)
	if len(key) < storage.KeyLen {
		return nil, false, nil
	}
	return key[len(key)-storage.KeyLen:], true, nil
}

// recordCursor iterates the generic record prefix, decoding the allocated
// id from the key.
type recordCursor struct {
	inner *cursor
}

var _ storage.RecordCursor = (*recordCursor)(nil)

func (c *recordCursor) Next() (uint64, []byte, bool, error) {
	row, ok, err := c.inner.Next()
	if err != nil || !ok {
		return 0, nil, false, err
	}
	// row = 8-byte id followed by the payload, assembled by read.
	id := binary.BigEndian.Uint64(row[:8])
	return id, row[8:], true, nil
}

func (c *recordCursor) Close() error {
	return c.inner.Close()
}
