// Package cache stores parsed analysis units on disk keyed by file content.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/phobologic/refdoc/internal/analysis"
)

// schemaVersion is mixed into every key; bump it when analysis.Unit or the
// extractors change shape.
const schemaVersion = "refdoc-unit-3"

// Cache is a directory of msgpack-encoded units. A nil *Cache is a valid,
// always-empty cache. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

type payload struct {
	Schema string        `msgpack:"schema"`
	Unit   analysis.Unit `msgpack:"unit"`
}

// Open returns the cache rooted at dir, creating it if needed.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Key identifies one parse of one file. Module is included because Go
// library names depend on it.
func Key(language, path, module string, content []byte) uint64 {
	d := xxhash.New()
	for _, s := range []string{schemaVersion, language, path, module} {
		_, _ = d.WriteString(s)
		_, _ = d.Write([]byte{0})
	}
	_, _ = d.Write(content)
	return d.Sum64()
}

func (c *Cache) pathFor(key uint64) string {
	hex := fmt.Sprintf("%016x", key)
	return filepath.Join(c.dir, hex[:2], hex+".mp")
}

// Get returns the unit stored under key. A missing or stale entry is a miss,
// not an error.
func (c *Cache) Get(key uint64) (analysis.Unit, bool, error) {
	if c == nil {
		return analysis.Unit{}, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return analysis.Unit{}, false, nil
		}
		return analysis.Unit{}, false, err
	}
	var p payload
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return analysis.Unit{}, false, fmt.Errorf("decoding cache entry: %w", err)
	}
	if p.Schema != schemaVersion {
		return analysis.Unit{}, false, nil
	}
	return p.Unit, true, nil
}

// Put stores u under key, replacing the entry atomically.
func (c *Cache) Put(key uint64, u analysis.Unit) error {
	if c == nil {
		return nil
	}
	data, err := msgpack.Marshal(&payload{Schema: schemaVersion, Unit: u})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.RemoveAll(c.dir); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
