package cache

// ScopedKeyer wraps a Keyer with a prefix so several catalogs or deployments
// can share one Redis or Mongo backend without colliding.
//
// Example usage:
//
//	// Keys for the "winter" catalog
//	k := NewScopedKeyer(NewDefaultKeyer(), "catalog:winter:")
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

// PatternKey generates a prefixed pattern key.
func (k *ScopedKeyer) PatternKey(opts PatternKeyOpts) string {
	return k.prefix + k.inner.PatternKey(opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(patternHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(patternHash, opts)
}
