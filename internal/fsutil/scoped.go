package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ScopedDir is a temporary directory whose lifetime is tied to one unit of
// work (a tile's footprint shapefile, an optimizer run's scratch space).
// Release must run on every exit path, including errors; it is safe to call
// more than once.
type ScopedDir struct {
	fsys     FileSystem
	path     string
	released bool
}

// NewScopedDir creates a uniquely named directory under parent. An empty
// parent falls back to the OS temp dir.
func NewScopedDir(fsys FileSystem, parent, prefix string) (*ScopedDir, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	path := filepath.Join(parent, prefix+"-"+uuid.NewString())
	if err := fsys.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create scoped dir %s: %w", path, err)
	}
	return &ScopedDir{fsys: fsys, path: path}, nil
}

// Path returns the directory path.
func (d *ScopedDir) Path() string { return d.path }

// Join joins path elements onto the directory path.
func (d *ScopedDir) Join(elem ...string) string {
	return filepath.Join(append([]string{d.path}, elem...)...)
}

// Release removes the directory and everything under it.
func (d *ScopedDir) Release() error {
	if d.released {
		return nil
	}
	d.released = true
	return d.fsys.RemoveAll(d.path)
}
