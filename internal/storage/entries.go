package storage

import (
	"bytes"
	"encoding/json"

	"go.etcd.io/bbolt"

	"github.com/cargohold/cargohold/internal/crates"
)

// EntryStore is the durable map from crate name to CrateEntry. Mutations of
// existing entries must go through Modify; Get/Insert/Remove exist for
// reads, first writes and mirror eviction.
type EntryStore struct {
	db *DB
}

// Get returns the entry for name, or ErrNotFound. A record that cannot be
// decoded fails that call with a storage error rather than crashing.
func (s *EntryStore) Get(name string) (*crates.CrateEntry, error) {
	raw, err := s.getRaw(name)
	if err != nil {
		return nil, err
	}
	return decodeEntry(raw)
}

// Insert writes entry under name, overwriting any previous value. Callers
// other than first-publish and mirror population must use Modify instead.
func (s *EntryStore) Insert(name string, entry *crates.CrateEntry) error {
	raw, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	err = s.db.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCrates).Put([]byte(name), raw)
	})
	if err != nil {
		return crates.Storagef(err, "could not insert cache entry")
	}
	return nil
}

// create writes entry under name only if the name is currently absent,
// reporting errModified otherwise. This closes the race between two first
// publishes of the same name.
func (s *EntryStore) create(name string, entry *crates.CrateEntry) error {
	raw, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	err = s.db.bolt.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCrates)
		if bucket.Get([]byte(name)) != nil {
			return errModified
		}
		return bucket.Put([]byte(name), raw)
	})
	if err == errModified {
		return err
	}
	if err != nil {
		return crates.Storagef(err, "could not insert cache entry")
	}
	return nil
}

// Remove deletes the entry for name. Removing an absent name is not an error.
func (s *EntryStore) Remove(name string) error {
	err := s.db.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCrates).Delete([]byte(name))
	})
	if err != nil {
		return crates.Storagef(err, "could not remove entry from cache")
	}
	return nil
}

// ForEach visits every stored entry. The callback must not retain the entry
// across calls; it receives a fresh decode each time.
func (s *EntryStore) ForEach(fn func(name string, entry *crates.CrateEntry) error) error {
	return s.db.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCrates).ForEach(func(key, raw []byte) error {
			entry, err := decodeEntry(raw)
			if err != nil {
				return err
			}
			return fn(string(key), entry)
		})
	})
}

// getRaw returns the stored bytes for name; the snapshot anchors a later
// conditional write.
func (s *EntryStore) getRaw(name string) ([]byte, error) {
	var raw []byte
	err := s.db.bolt.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(bucketCrates).Get([]byte(name))
		if value == nil {
			return ErrNotFound
		}
		// bbolt values are only valid inside the transaction.
		raw = append([]byte(nil), value...)
		return nil
	})
	if err == ErrNotFound {
		return nil, err
	}
	if err != nil {
		return nil, crates.Storagef(err, "could not access cache entry")
	}
	return raw, nil
}

// compareAndSwap writes updated under name only if the stored bytes still
// equal snapshot, reporting errModified otherwise.
func (s *EntryStore) compareAndSwap(name string, snapshot, updated []byte) error {
	err := s.db.bolt.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCrates)
		current := bucket.Get([]byte(name))
		if !bytes.Equal(current, snapshot) {
			return errModified
		}
		return bucket.Put([]byte(name), updated)
	})
	if err == errModified {
		return err
	}
	if err != nil {
		return crates.Storagef(err, "could not update cache entry")
	}
	return nil
}

func encodeEntry(entry *crates.CrateEntry) ([]byte, error) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, crates.Storagef(err, "could not serialise cache entry")
	}
	return raw, nil
}

func decodeEntry(raw []byte) (*crates.CrateEntry, error) {
	var entry crates.CrateEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, crates.Storagef(err, "could not deserialise metadata in cache entry")
	}
	return &entry, nil
}
