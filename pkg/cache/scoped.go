package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation. This is
// useful when one cache backend serves several projects or users and their
// keys must not collide.
//
// Example usage:
//
//	// Project-specific keys
//	projectKeyer := NewScopedKeyer(NewDefaultKeyer(), "project:somerville:")
//
//	// Shared keys
//	globalKeyer := NewDefaultKeyer()
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

// NetworkKey generates a prefixed key for network build caching.
func (k *ScopedKeyer) NetworkKey(inputHash string, opts NetworkKeyOpts) string {
	return k.prefix + k.inner.NetworkKey(inputHash, opts)
}

// LayerKey generates a prefixed key for insertion-pass caching.
func (k *ScopedKeyer) LayerKey(networkHash, layer string, inputHash string) string {
	return k.prefix + k.inner.LayerKey(networkHash, layer, inputHash)
}

// MetricKey generates a prefixed key for analysis-result caching.
func (k *ScopedKeyer) MetricKey(networkHash string, opts MetricKeyOpts) string {
	return k.prefix + k.inner.MetricKey(networkHash, opts)
}
