package cache

// ScopedKeyer wraps a Keyer with a prefix so several sites (for example two
// schools served from one host) can share a Redis instance without their
// entries colliding.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "school-a:")
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

// PhotoKey generates a prefixed key for photo caching.
func (k *ScopedKeyer) PhotoKey(opts FileKeyOpts) string {
	return k.prefix + k.inner.PhotoKey(opts)
}

// MapKey generates a prefixed key for base map caching.
func (k *ScopedKeyer) MapKey(opts FileKeyOpts) string {
	return k.prefix + k.inner.MapKey(opts)
}
