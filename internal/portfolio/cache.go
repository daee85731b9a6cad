package portfolio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
)

// Cache persists one CacheRecord per repository under a directory, at
// <dir>/<owner>/<name>.json.
type Cache struct {
	fs  afero.Fs
	dir string
}

// NewCache returns a Cache storing records under dir on fs.
func NewCache(fs afero.Fs, dir string) *Cache {
	return &Cache{fs: fs, dir: dir}
}

func (c *Cache) path(owner, name string) string {
	return filepath.Join(c.dir, owner, name+".json")
}

// Get returns the stored record, or nil when there is none. A record that
// cannot be read back is logged and reported as missing.
func (c *Cache) Get(owner, name string) (*CacheRecord, error) {
	p := c.path(owner, name)
	data, err := afero.ReadFile(c.fs, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache record %s: %w", p, err)
	}
	var rec CacheRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.Warn("Ignoring corrupt cache record", "path", p, "error", err)
		return nil, nil
	}
	return &rec, nil
}

// Put replaces the stored record.
func (c *Cache) Put(owner, name string, rec *CacheRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache record: %w", err)
	}
	return writeFileAtomic(c.fs, c.path(owner, name), data)
}

// writeFileAtomic writes data next to path then renames it into place, so
// readers never observe a partial file.
func writeFileAtomic(fsys afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	f, err := afero.TempFile(fsys, dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = fsys.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
