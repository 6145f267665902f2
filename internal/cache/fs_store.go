package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// NewStore builds the on-disk content store rooted at dataDir; one instance
// is shared by the whole process.
func NewStore(dataDir string) (Store, error) {
	if dataDir == "" {
		return nil, errors.New("data dir required")
	}

	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(abs, "crates"), 0o755); err != nil {
		return nil, fmt.Errorf("create crate cache dir: %w", err)
	}

	return &fileStore{
		basePath: abs,
		locks:    make(map[string]*blobLock),
	}, nil
}

// fileStore serialises concurrent writes to the same (name, version) through
// per-blob locks while leaving distinct blobs fully parallel.
type fileStore struct {
	basePath string

	mu    sync.Mutex
	locks map[string]*blobLock
}

type blobLock struct {
	mu   sync.Mutex
	refs int
}

func (s *fileStore) Get(ctx context.Context, name, version string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	path, err := s.path(name, version)
	if err != nil {
		return nil, err
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return blob, nil
}

func (s *fileStore) Put(ctx context.Context, name, version string, blob []byte) error {
	unlock := s.lockBlob(name, version)
	defer unlock()

	path, err := s.path(name, version)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), ".crate-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, err = copyWithContext(ctx, tempFile, bytes.NewReader(blob))
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, path); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

func (s *fileStore) Remove(ctx context.Context, name, version string) error {
	unlock := s.lockBlob(name, version)
	defer unlock()

	path, err := s.path(name, version)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fileStore) lockBlob(name, version string) func() {
	key := name + "::" + version
	s.mu.Lock()
	lock := s.locks[key]
	if lock == nil {
		lock = &blobLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// path validates the components against traversal before joining them; crate
// names and versions come from request paths.
func (s *fileStore) path(name, version string) (string, error) {
	if name == "" || version == "" {
		return "", errors.New("crate name and version required")
	}
	for _, part := range []string{name, version} {
		if strings.ContainsAny(part, "/\\") || part == "." || part == ".." {
			return "", errors.New("invalid crate path")
		}
	}
	return filepath.Join(s.basePath, "crates", name, version+".crate"), nil
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
