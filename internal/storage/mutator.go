package storage

import (
	"github.com/cargohold/cargohold/internal/crates"
)

// maxModifyAttempts bounds the optimistic-retry loop; exhaustion surfaces a
// Conflict instead of spinning under pathological contention.
const maxModifyAttempts = 8

// Modify performs an optimistic read-modify-write on one entry: read the
// stored bytes, decode, apply transform to the copy, and commit with a
// conditional write that only succeeds if the bytes are unchanged since the
// read. A lost race re-reads and retries, so every retry observes the latest
// committed value and no accepted update is dropped. If transform fails the
// store is left byte-for-byte untouched and the error propagates.
//
// This is the only legal mutation path for add-version, yank and unyank.
func (s *EntryStore) Modify(name string, transform func(entry *crates.CrateEntry) error) error {
	for attempt := 0; attempt < maxModifyAttempts; attempt++ {
		snapshot, err := s.getRaw(name)
		if err != nil {
			return err
		}

		entry, err := decodeEntry(snapshot)
		if err != nil {
			return err
		}

		if err := transform(entry); err != nil {
			return err
		}

		updated, err := encodeEntry(entry)
		if err != nil {
			return err
		}

		switch err := s.compareAndSwap(name, snapshot, updated); err {
		case nil:
			return nil
		case errModified:
			continue
		default:
			return err
		}
	}
	return crates.Conflictf("concurrent updates to crate exceeded retry budget")
}

// ModifyOrCreate runs Modify when the name exists and otherwise persists the
// entry produced by create. A concurrent first publish of the same name is
// resolved by falling back to the Modify path.
func (s *EntryStore) ModifyOrCreate(name string, transform func(entry *crates.CrateEntry) error, create func() (*crates.CrateEntry, error)) error {
	for attempt := 0; attempt < maxModifyAttempts; attempt++ {
		err := s.Modify(name, transform)
		if err != ErrNotFound {
			return err
		}

		entry, err := create()
		if err != nil {
			return err
		}
		switch err := s.create(name, entry); err {
		case nil:
			return nil
		case errModified:
			// Another writer created the entry first; mutate it instead.
			continue
		default:
			return err
		}
	}
	return crates.Conflictf("concurrent updates to crate exceeded retry budget")
}
