// Package storage provides the durable partitions of the registry: crate
// entries, token records and user records, each in its own bbolt bucket.
// Cross-partition consistency is eventual; a token may outlive its user.
package storage

import (
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketCrates = []byte("crates")
	bucketTokens = []byte("tokens")
	bucketUsers  = []byte("users")
)

// ErrNotFound reports an absent record in any partition.
var ErrNotFound = errors.New("record not found")

// errModified is the CAS failure signal: the record changed between the
// caller's snapshot and the conditional write.
var errModified = errors.New("record modified since read")

// DB wraps one bbolt file holding all three partitions. A single instance is
// shared by every component and is safe for concurrent use.
type DB struct {
	bolt *bbolt.DB
}

// Open creates or opens the database file and ensures all buckets exist.
func Open(path string) (*DB, error) {
	bolt, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	err = bolt.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketCrates, bucketTokens, bucketUsers} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		bolt.Close()
		return nil, fmt.Errorf("unable to create buckets: %w", err)
	}

	return &DB{bolt: bolt}, nil
}

// Close releases the underlying file.
func (d *DB) Close() error {
	return d.bolt.Close()
}

// Entries returns the crate partition.
func (d *DB) Entries() *EntryStore {
	return &EntryStore{db: d}
}

// Tokens returns the token partition.
func (d *DB) Tokens() *TokenStore {
	return &TokenStore{db: d}
}

// Users returns the user partition.
func (d *DB) Users() *UserStore {
	return &UserStore{db: d}
}
