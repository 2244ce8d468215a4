// Package cache stores computed wall layouts and short-lived tile listings.
//
// A layout is a pure function of the ordered tiles and the layout options, so
// its cache key is a hash of both ([Keyer.LayoutKey]) and entries can live for
// a long time. Tile listings fetched from a remote store change whenever
// someone uploads; they are cached briefly under [Keyer.TilesKey] and dropped
// when a change notification arrives.
//
// Backends:
//   - [NullCache]: never stores anything
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for the HTTP service
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the stored bytes and true, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default entry lifetimes.
const (
	TTLLayout = 7 * 24 * time.Hour
	TTLTiles  = 30 * time.Second
)

// LayoutKeyOpts are the layout inputs, other than the tiles, that change the
// result.
type LayoutKeyOpts struct {
	Strategy    string `json:"strategy"`
	Columns     int    `json:"columns"`
	Edge        string `json:"edge,omitempty"`
	Spans       string `json:"spans,omitempty"`
	SeedStride  uint32 `json:"seed_stride,omitempty"`
	ColumnWidth int    `json:"column_width,omitempty"`
	Seed        uint32 `json:"seed,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// LayoutKey keys a layout of the tiles hashing to tilesHash.
	LayoutKey(tilesHash string, opts LayoutKeyOpts) string
	// TilesKey keys the cached tile listing of a wall.
	TilesKey(wallID string) string
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey returns layout:sha256(tilesHash, opts).
func (DefaultKeyer) LayoutKey(tilesHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", tilesHash, opts)
}

// TilesKey returns tiles:<wallID>.
func (DefaultKeyer) TilesKey(wallID string) string {
	return "tiles:" + wallID
}
