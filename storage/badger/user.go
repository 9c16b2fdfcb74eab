package badger

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/statecache/storage"
)

// PutUser upserts an encrypted user record by obfuscated handle.
func (b *Backend) PutUser(key, blob []byte) error {
	return b.setBlob(makeUserKey(key), blob)
}

// PutContactRequest upserts an encrypted pending-contact-request record.
func (b *Backend) PutContactRequest(key, blob []byte) error {
	return b.setBlob(makeContactRequestKey(key), blob)
}

// DeleteContactRequest removes a pending-contact-request record.
// Returns storage.ErrNotFound if no record exists under key.
func (b *Backend) DeleteContactRequest(key []byte) error {
	return b.WithTx(func(tx *badger.Txn) error {
		fullKey := makeContactRequestKey(key)
		if _, err := tx.Get(fullKey); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Delete(fullKey); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Users opens a payload cursor over all user records.
func (b *Backend) Users() (storage.Cursor, error) {
	return b.newCursor(prefixed(userPrefix), true, readValue), nil
}

// ContactRequests opens a payload cursor over all pending contact requests.
func (b *Backend) ContactRequests() (storage.Cursor, error) {
	return b.newCursor(prefixed(contactReqPrefix), true, readValue), nil
}

func (b *Backend) setBlob(key, blob []byte) error {
	return b.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(key, blob); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
