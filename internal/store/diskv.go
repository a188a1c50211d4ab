package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/diskv/v3"

	"github.com/pkordes/travel-journal/backend/internal/domain"
)

// DiskStore keeps every value in its own file under a base directory.
// Keys are split on "/" into sub-directories: "journal/<id>" lives at
// <base>/journal/<id>. Writes go through a temp file and a rename.
type DiskStore struct {
	d    *diskv.Diskv
	keys keyLocks
}

// NewDiskStore opens (or lazily creates) a DiskStore rooted at basePath.
func NewDiskStore(basePath string) *DiskStore {
	return &DiskStore{d: diskv.New(diskv.Options{
		BasePath:          basePath,
		TempDir:           filepath.Join(basePath, ".tmp"),
		AdvancedTransform: keyToPathTransform,
		InverseTransform:  pathToKeyTransform,
		CacheSizeMax:      4 * 1024 * 1024, // 4MB
	})}
}

func (s *DiskStore) Get(_ context.Context, key string) ([]byte, error) {
	v, err := s.d.Read(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("store.DiskStore.Get %q: %w", key, domain.ErrNotFound)
		}
		return nil, storageErr("store.DiskStore.Get", err)
	}
	return v, nil
}

func (s *DiskStore) Set(_ context.Context, key string, value []byte) error {
	return storageErr("store.DiskStore.Set", s.d.Write(key, value))
}

// Delete removes key. Deleting a missing key is not an error. It waits for an
// in-flight Update of the same key.
func (s *DiskStore) Delete(_ context.Context, key string) error {
	unlock := s.keys.lock(key)
	defer unlock()

	if !s.d.Has(key) {
		return nil
	}
	if err := s.d.Erase(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storageErr("store.DiskStore.Delete", err)
	}
	return nil
}

// Update serializes read-modify-write cycles per key within this process.
func (s *DiskStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	unlock := s.keys.lock(key)
	defer unlock()

	current, err := s.Get(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	next, err := fn(current)
	if err != nil || next == nil {
		return err
	}
	return s.Set(ctx, key, next)
}

func keyToPathTransform(key string) *diskv.PathKey {
	parts := strings.Split(key, "/")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	return strings.Join(append(append([]string{}, pathKey.Path...), pathKey.FileName), "/")
}
