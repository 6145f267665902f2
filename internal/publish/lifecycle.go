package publish

import (
	"context"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/sirupsen/logrus"

	"github.com/cargohold/cargohold/internal/cache"
	"github.com/cargohold/cargohold/internal/crates"
	"github.com/cargohold/cargohold/internal/storage"
)

// DocsQueue receives fire-and-forget documentation build jobs. Publish never
// waits on, or fails because of, the queue.
type DocsQueue interface {
	Enqueue(name, version string)
}

// Lifecycle enforces the per-crate version invariants. All mutations of an
// existing entry go through the entry store's optimistic mutator, so two
// publishers racing on one name serialize through retry while distinct names
// proceed in parallel.
type Lifecycle struct {
	entries *storage.EntryStore
	blobs   cache.Store
	docs    DocsQueue
	logger  *logrus.Logger
	now     func() time.Time
}

// NewLifecycle wires the lifecycle over the shared stores.
func NewLifecycle(entries *storage.EntryStore, blobs cache.Store, docs DocsQueue, logger *logrus.Logger) *Lifecycle {
	return &Lifecycle{
		entries: entries,
		blobs:   blobs,
		docs:    docs,
		logger:  logger,
		now:     time.Now,
	}
}

// Publish validates and records a new version, persists its blob, and
// enqueues a docs build. Out-of-order versions are accepted and the stored
// sequence re-sorted ascending. The blob write is not transactional with the
// metadata commit; a crash in between leaves a version whose blob reads as
// not found until re-uploaded.
func (l *Lifecycle) Publish(ctx context.Context, meta *crates.Metadata, blob []byte, cksum string) error {
	newVersion, err := semver.StrictNewVersion(meta.Vers)
	if err != nil {
		return crates.Validationf("invalid crate version supplied")
	}

	uploaded := crates.UploadedVersion{
		Package:    meta.ToPackageRecord(cksum),
		UploadMeta: meta,
	}
	timestamp := l.now()
	uploaded.UploadTimestamp = &timestamp

	err = l.entries.ModifyOrCreate(meta.Name, func(entry *crates.CrateEntry) error {
		// A mirrored name may never receive a local publish.
		if !entry.IsLocal {
			return crates.Conflictf("attempted to upload crate with the same name as a cached upstream crate")
		}

		olderThanLatest := false
		for _, existing := range entry.Versions {
			existingVersion, err := semver.StrictNewVersion(existing.Package.Vers)
			if err != nil {
				return crates.Storagef(err, "stored version has an invalid identifier")
			}
			if newVersion.Equal(existingVersion) {
				return crates.Conflictf("attempted to upload existing version")
			}
			if newVersion.LessThan(existingVersion) {
				olderThanLatest = true
			}
		}

		entry.Versions = append(entry.Versions, uploaded)
		if olderThanLatest {
			sortVersions(entry.Versions)
		}
		entry.TimeOfLastUpdate = l.now()
		return nil
	}, func() (*crates.CrateEntry, error) {
		return &crates.CrateEntry{
			Versions:         []crates.UploadedVersion{uploaded},
			TimeOfLastUpdate: l.now(),
			IsLocal:          true,
		}, nil
	})
	if err != nil {
		return err
	}

	if err := l.blobs.Put(ctx, meta.Name, meta.Vers, blob); err != nil {
		return crates.Storagef(err, "could not persist crate blob")
	}

	l.docs.Enqueue(meta.Name, meta.Vers)

	l.logger.WithFields(logrus.Fields{
		"action":  "publish",
		"crate":   meta.Name,
		"version": meta.Vers,
	}).Info("published crate version")
	return nil
}

// Yank marks the version as yanked. The version stays downloadable.
func (l *Lifecycle) Yank(ctx context.Context, name, version string) error {
	return l.toggleYank(name, version, true)
}

// Unyank clears the yanked flag.
func (l *Lifecycle) Unyank(ctx context.Context, name, version string) error {
	return l.toggleYank(name, version, false)
}

func (l *Lifecycle) toggleYank(name, version string, yank bool) error {
	target, err := semver.StrictNewVersion(version)
	if err != nil {
		return crates.Validationf("invalid crate version supplied")
	}

	err = l.entries.Modify(name, func(entry *crates.CrateEntry) error {
		for i := range entry.Versions {
			record := &entry.Versions[i].Package
			existing, err := semver.StrictNewVersion(record.Vers)
			if err != nil {
				return crates.Storagef(err, "stored version has an invalid identifier")
			}
			if !target.Equal(existing) {
				continue
			}
			if yank && record.Yanked {
				return crates.Conflictf("version has already been yanked")
			}
			if !yank && !record.Yanked {
				return crates.Conflictf("version has not been yanked")
			}
			record.Yanked = yank
			return nil
		}
		return crates.NotFoundf("crate does not have the specified version published")
	})
	if err == storage.ErrNotFound {
		return crates.NotFoundf("crate does not exist in index")
	}
	if err != nil {
		return err
	}

	l.logger.WithFields(logrus.Fields{
		"action":  "yank",
		"crate":   name,
		"version": version,
		"yanked":  yank,
	}).Info("toggled yank flag")
	return nil
}

func sortVersions(versions []crates.UploadedVersion) {
	sort.SliceStable(versions, func(i, j int) bool {
		a, errA := semver.StrictNewVersion(versions[i].Package.Vers)
		b, errB := semver.StrictNewVersion(versions[j].Package.Vers)
		if errA != nil || errB != nil {
			return false
		}
		return a.LessThan(b)
	})
}
