// Package cache is the content store: a durable map from (crate, version) to
// the immutable archive bytes of that published version. Disk layout:
//
//	<dataDir>/crates/<name>/<version>.crate
//
// Blobs are never invalidated once written; a missing blob for a known
// version simply reads as ErrNotFound and is recoverable by re-upload.
package cache

import (
	"context"
	"errors"
)

// Store manages archive blobs on behalf of the publish and download paths.
type Store interface {
	// Get returns the stored blob, or ErrNotFound.
	Get(ctx context.Context, name, version string) ([]byte, error)

	// Put persists the blob, creating any needed directories. Writes go
	// through a temp file + rename so a concurrent Get never observes a
	// partial blob.
	Put(ctx context.Context, name, version string, blob []byte) error

	// Remove deletes the blob. Removing an absent blob is not an error.
	Remove(ctx context.Context, name, version string) error
}

// ErrNotFound reports an absent blob.
var ErrNotFound = errors.New("crate blob not found")
