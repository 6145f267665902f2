package storage

import (
	"encoding/json"

	"go.etcd.io/bbolt"

	"github.com/cargohold/cargohold/internal/crates"
)

// UserRecord is one registered account. Password holds the Argon2id encoded
// hash, never the cleartext.
type UserRecord struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Blocked  bool   `json:"blocked"`
}

// UserStore is the durable user partition, keyed by username.
type UserStore struct {
	db *DB
}

// Get returns the record for username, or ErrNotFound.
func (s *UserStore) Get(username string) (*UserRecord, error) {
	var user *UserRecord
	err := s.db.bolt.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketUsers).Get([]byte(username))
		if raw == nil {
			return ErrNotFound
		}
		user = &UserRecord{}
		return json.Unmarshal(raw, user)
	})
	if err == ErrNotFound {
		return nil, err
	}
	if err != nil {
		return nil, crates.Storagef(err, "could not access user record")
	}
	return user, nil
}

// Put stores the record under its username.
func (s *UserStore) Put(user *UserRecord) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return crates.Storagef(err, "could not serialise user record")
	}
	err = s.db.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketUsers).Put([]byte(user.Username), raw)
	})
	if err != nil {
		return crates.Storagef(err, "could not insert user record")
	}
	return nil
}
