// Package filecache stores region-mapping snapshots as JSON files, one per
// source, under a configurable directory.
package filecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/region"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

// Cache implements region.Cache on the local filesystem.
type Cache struct {
	dir string
}

// New creates the cache directory if needed and returns a Cache.
func New(dir string) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Load reads the snapshot for the platform. A missing file is a cache miss,
// not an error.
func (c *Cache) Load(_ context.Context, platform vacancy.Platform) (region.Mapping, bool, error) {
	data, err := os.ReadFile(c.path(platform))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read mapping file: %w", err)
	}
	var mapping region.Mapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, false, fmt.Errorf("decode mapping file: %w", err)
	}
	return mapping, true, nil
}

// Store writes the snapshot atomically via a temp file rename. Last writer
// wins, which is acceptable for derived data.
func (c *Cache) Store(_ context.Context, platform vacancy.Platform, m region.Mapping) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	target := c.path(platform)
	tmp, err := os.CreateTemp(c.dir, "mapping-*.json")
	if err != nil {
		return fmt.Errorf("create temp mapping file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write mapping file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close mapping file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace mapping file: %w", err)
	}
	return nil
}

// Invalidate removes the snapshot for the platform.
func (c *Cache) Invalidate(_ context.Context, platform vacancy.Platform) error {
	if err := os.Remove(c.path(platform)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove mapping file: %w", err)
	}
	return nil
}

func (c *Cache) path(platform vacancy.Platform) string {
	name := strings.ToLower(string(platform))
	return filepath.Join(c.dir, fmt.Sprintf("city_region_%s.json", name))
}
