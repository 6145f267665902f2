package mirror

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cargohold/cargohold/internal/cache"
	"github.com/cargohold/cargohold/internal/crates"
	"github.com/cargohold/cargohold/internal/storage"
)

// DefaultTTL is the age after which a mirrored entry is considered stale.
const DefaultTTL = 30 * time.Minute

// Upstream is the slice of Client the cache depends on; tests substitute a
// fake to count fetches.
type Upstream interface {
	FetchMetadata(ctx context.Context, name string) ([]byte, error)
	FetchCrate(ctx context.Context, name, version string) ([]byte, error)
}

// Cache serves crate metadata and blobs, falling back to the upstream for
// names not hosted locally. Local entries are authoritative and never touch
// the network; mirrored entries are refreshed once their TTL expires, except
// when offline, where stale data beats no data.
type Cache struct {
	entries  *storage.EntryStore
	blobs    cache.Store
	upstream Upstream
	offline  bool
	ttl      time.Duration
	logger   *logrus.Logger
	now      func() time.Time
}

// NewCache wires the mirror cache over the shared stores and upstream client.
func NewCache(entries *storage.EntryStore, blobs cache.Store, upstream Upstream, offline bool, ttl time.Duration, logger *logrus.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries:  entries,
		blobs:    blobs,
		upstream: upstream,
		offline:  offline,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// errKeepLocal aborts a mirror insert that would shadow a concurrently
// published local entry.
var errKeepLocal = errors.New("entry became local during fetch")

// CrateMetadata returns the entry for name, fetching and caching from the
// upstream when the name is absent or the mirrored copy has gone stale.
func (c *Cache) CrateMetadata(ctx context.Context, name string) (*crates.CrateEntry, error) {
	entry, err := c.entries.Get(name)
	switch {
	case err == storage.ErrNotFound:
		// fall through to the fetch path
	case err != nil:
		return nil, err
	default:
		expired := c.now().Sub(entry.TimeOfLastUpdate) >= c.ttl
		if c.offline || entry.IsLocal || !expired {
			return entry, nil
		}
		c.logger.WithFields(logrus.Fields{
			"action": "mirror_expired",
			"crate":  name,
		}).Info("mirrored crate metadata has expired")
	}

	if c.offline {
		return nil, crates.NotFoundf("crate %s not found", name)
	}

	fresh, err := c.fetchEntry(ctx, name)
	if err != nil {
		return nil, err
	}

	// Evict-and-replace happens only now that the fetch has succeeded, so a
	// failed refresh never leaves the crate transiently absent. The swap goes
	// through the mutator so a concurrent local publish is never shadowed.
	err = c.entries.ModifyOrCreate(name, func(entry *crates.CrateEntry) error {
		if entry.IsLocal {
			return errKeepLocal
		}
		*entry = *fresh
		return nil
	}, func() (*crates.CrateEntry, error) {
		return fresh, nil
	})
	if err == errKeepLocal {
		return c.entries.Get(name)
	}
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

// CrateBlob returns the archive bytes for (name, version). The content store
// is immutable once written; a miss goes upstream exactly once and persists
// the result. No integrity check happens here; the checksum in the index
// record is the anchor for downstream verification.
func (c *Cache) CrateBlob(ctx context.Context, name, version string) ([]byte, error) {
	blob, err := c.blobs.Get(ctx, name, version)
	switch {
	case err == nil:
		return blob, nil
	case errors.Is(err, cache.ErrNotFound):
		// fall through to the fetch path
	default:
		return nil, crates.Storagef(err, "could not read crate blob")
	}

	if c.offline {
		return nil, crates.NotFoundf("crate %s@%s not found", name, version)
	}

	blob, err = c.upstream.FetchCrate(ctx, name, version)
	if errors.Is(err, ErrUpstreamNotFound) {
		return nil, crates.NotFoundf("crate %s@%s not found", name, version)
	}
	if err != nil {
		return nil, err
	}

	if err := c.blobs.Put(ctx, name, version, blob); err != nil {
		return nil, crates.Storagef(err, "could not persist crate blob")
	}
	return blob, nil
}

func (c *Cache) fetchEntry(ctx context.Context, name string) (*crates.CrateEntry, error) {
	body, err := c.upstream.FetchMetadata(ctx, name)
	if errors.Is(err, ErrUpstreamNotFound) {
		return nil, crates.NotFoundf("crate %s not found", name)
	}
	if err != nil {
		return nil, err
	}

	records, err := crates.DecodeIndex(body)
	if err != nil {
		return nil, err
	}

	versions := make([]crates.UploadedVersion, len(records))
	for i, record := range records {
		versions[i] = crates.UploadedVersion{Package: record}
	}

	return &crates.CrateEntry{
		Versions:         versions,
		TimeOfLastUpdate: c.now(),
		IsLocal:          false,
	}, nil
}
