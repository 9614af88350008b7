package epc

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppd-pricemap/internal/postcode"
)

// Cache is the on-disk store of raw record lists, one file per postcode.
// Keys are append-only from the pipeline's point of view: a written key is
// never rewritten by a later run, so refreshing means deleting the file.
type Cache struct {
	dir string
}

// NewCache creates the cache directory if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// cacheKey converts a postcode into a filesystem-safe file name.
func cacheKey(pc string) string {
	return strings.ReplaceAll(postcode.Normalize(pc), " ", "_") + ".json"
}

// Get returns the cached record list for a postcode. The second return is
// false when the postcode has never been fetched; a cached empty list is a
// hit, not a miss.
func (c *Cache) Get(pc string) ([]Record, bool, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, cacheKey(pc)))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry for %s: %w", pc, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry for %s: %w", pc, err)
	}
	return records, true, nil
}

// Put persists a record list for a postcode. The write goes to a temp file
// first and is renamed into place, so readers never see a partial entry.
func (c *Cache) Put(pc string, records []Record) error {
	if records == nil {
		records = []Record{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry for %s: %w", pc, err)
	}

	target := filepath.Join(c.dir, cacheKey(pc))
	tmp, err := os.CreateTemp(c.dir, cacheKey(pc)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create cache temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry for %s: %w", pc, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close cache temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to finalise cache entry for %s: %w", pc, err)
	}
	return nil
}
