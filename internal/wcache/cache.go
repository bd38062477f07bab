// Package wcache is the disk-backed cache for weather results. It is an
// overwrite-only store with one JSON file per coordinate pair and no
// eviction; entries older than the freshness window are still served, marked
// stale, as a degraded fallback when the provider is unreachable.
package wcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Freshness is the age below which a cached entry counts as fresh.
const Freshness = 6 * time.Hour

var (
	// ErrMiss means no usable entry exists for the key.
	ErrMiss = errors.New("cache miss")
	// ErrCorrupt means an entry exists but could not be decoded. It matches
	// ErrMiss under errors.Is: corruption is handled as a miss, never as a
	// fatal condition.
	ErrCorrupt = fmt.Errorf("corrupt entry: %w", ErrMiss)
)

// envelope is the on-disk shape of one entry.
type envelope struct {
	Key      string          `json:"key"`
	CachedAt time.Time       `json:"cached_at"`
	Record   json.RawMessage `json:"record"`
}

// Cache stores one record per coordinate pair under dir.
type Cache struct {
	dir string
	now func() time.Time
}

// New creates a cache rooted at dir, creating it if needed. A nil clock
// defaults to time.Now; tests inject a fake clock.
func New(dir string, now func() time.Time) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{dir: dir, now: now}, nil
}

// Key formats a coordinate pair as the literal fixed-precision cache key.
// No spatial bucketing: nearby coordinates are distinct entries.
func Key(lat, lon float64) string {
	return fmt.Sprintf("%.4f_%.4f", lat, lon)
}

func (c *Cache) path(lat, lon float64) string {
	return filepath.Join(c.dir, Key(lat, lon)+".json")
}

// Load reads the entry for (lat, lon) into record and reports whether it is
// stale (age >= Freshness). A missing, unreadable, or corrupt entry returns
// an error matching ErrMiss.
func (c *Cache) Load(lat, lon float64, record any) (stale bool, err error) {
	raw, err := os.ReadFile(c.path(lat, lon))
	if err != nil {
		return false, ErrMiss
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, ErrCorrupt
	}
	if err := json.Unmarshal(env.Record, record); err != nil {
		return false, ErrCorrupt
	}

	return c.now().Sub(env.CachedAt) >= Freshness, nil
}

// Save overwrites the entry for (lat, lon), stamping the UTC write time.
// The write goes through a temp file and rename so a concurrent reader never
// observes a torn entry; concurrent writers from separate shard invocations
// race last-writer-wins, which is accepted.
func (c *Cache) Save(lat, lon float64, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	env := envelope{
		Key:      Key(lat, lon),
		CachedAt: c.now().UTC(),
		Record:   raw,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}

	path := c.path(lat, lon)
	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing entry: %w", err)
	}

	return nil
}
