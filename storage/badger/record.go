package badger

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/statecache/storage"
)

// PutRecord upserts a generic type-tagged record by allocated id.
func (b *Backend) PutRecord(id uint64, blob []byte) error {
	return b.setBlob(makeRecordKey(id), blob)
}

// Records opens a cursor over all generic records in ascending id order
// (ids are stored big-endian, so key order is id order).
func (b *Backend) Records() (storage.RecordCursor, error) {
	inner := b.newCursor(prefixed(recordPrefix), true, func(item *badger.Item) ([]byte, bool, error) {
		key := item.Key()
		if len(key) < 8 {
			return nil, false, nil
		}
		id := key[len(key)-8:]
		row := make([]byte, 8, 8+item.ValueSize())
		copy(row, id)
		err := item.Value(func(val []byte) error {
			row = append(row, val...)
			return nil
		})
		if err != nil {
			return nil, false, err
		}
		return row, true, nil
	})
	return &recordCursor{inner: inner}, nil
}
