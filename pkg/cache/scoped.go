package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments can share
// one Redis without seeing each other's entries.
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "memorywall:prod:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// LayoutKey generates a prefixed layout key.
func (k *ScopedKeyer) LayoutKey(tilesHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(tilesHash, opts)
}

// TilesKey generates a prefixed tile listing key.
func (k *ScopedKeyer) TilesKey(wallID string) string {
	return k.prefix + k.inner.TilesKey(wallID)
}
