package storage

import (
	"encoding/json"

	"go.etcd.io/bbolt"

	"github.com/cargohold/cargohold/internal/crates"
)

// TokenEntry names the owner and label of one issued token. The record is
// keyed by the SHA-256 digest of the token's secret bytes; the cleartext is
// never persisted.
type TokenEntry struct {
	Username string `json:"username"`
	Label    string `json:"label"`
}

// TokenStore is the durable token partition.
type TokenStore struct {
	db *DB
}

// Get returns the entry stored under digest, or ErrNotFound.
func (s *TokenStore) Get(digest []byte) (*TokenEntry, error) {
	var entry *TokenEntry
	err := s.db.bolt.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketTokens).Get(digest)
		if raw == nil {
			return ErrNotFound
		}
		entry = &TokenEntry{}
		return json.Unmarshal(raw, entry)
	})
	if err == ErrNotFound {
		return nil, err
	}
	if err != nil {
		return nil, crates.Storagef(err, "could not access token entry")
	}
	return entry, nil
}

// Put stores entry under digest.
func (s *TokenStore) Put(digest []byte, entry *TokenEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return crates.Storagef(err, "could not serialise token entry")
	}
	err = s.db.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTokens).Put(digest, raw)
	})
	if err != nil {
		return crates.Storagef(err, "could not insert token entry")
	}
	return nil
}

// ForUser returns every token entry owned by username. Records that fail to
// decode are skipped; a token partition fault must not block the rest.
func (s *TokenStore) ForUser(username string) ([]TokenEntry, error) {
	var entries []TokenEntry
	err := s.db.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTokens).ForEach(func(_, raw []byte) error {
			var entry TokenEntry
			if err := json.Unmarshal(raw, &entry); err != nil {
				return nil
			}
			if entry.Username == username {
				entries = append(entries, entry)
			}
			return nil
		})
	})
	if err != nil {
		return nil, crates.Storagef(err, "could not iterate token entries")
	}
	return entries, nil
}

// DeleteMatching removes every token whose (username, label) matches exactly
// and reports how many were deleted.
func (s *TokenStore) DeleteMatching(username, label string) (int, error) {
	deleted := 0
	err := s.db.bolt.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketTokens)

		var digests [][]byte
		err := bucket.ForEach(func(digest, raw []byte) error {
			var entry TokenEntry
			if err := json.Unmarshal(raw, &entry); err != nil {
				return nil
			}
			if entry.Username == username && entry.Label == label {
				digests = append(digests, append([]byte(nil), digest...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, digest := range digests {
			if err := bucket.Delete(digest); err != nil {
				return err
			}
		}
		deleted = len(digests)
		return nil
	})
	if err != nil {
		return 0, crates.Storagef(err, "could not delete token entries")
	}
	return deleted, nil
}
