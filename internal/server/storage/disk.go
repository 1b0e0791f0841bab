package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/realmchat/internal/filex"
)

// DiskStore writes attachments into one directory.
type DiskStore struct {
	dir    string // absolute
	prefix string // as configured, used in handles
}

// NewDiskStore creates dir if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("file storage: %w", err)
	}
	return &DiskStore{dir: abs, prefix: dir}, nil
}

// Put writes data to <dir>/<base name> and returns "<dir>/<base name>" with
// dir as configured.
func (s *DiskStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	base, err := BaseName(name)
	if err != nil {
		return "", err
	}

	if err := filex.WriteFileAtomic(filepath.Join(s.dir, base), data, 0o640); err != nil {
		return "", fmt.Errorf("store %s: %w", base, err)
	}

	return filepath.ToSlash(filepath.Join(s.prefix, base)), nil
}
