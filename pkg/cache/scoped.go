package cache

// ScopedKeyer wraps a Keyer with a prefix so that callers sharing one store
// never read each other's entries.
//
// The CLI scopes keys by release so programs cached by an older build are
// not reused after an upgrade:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "v1.2.0:")
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

// ProgramKey generates a prefixed program key.
func (k *ScopedKeyer) ProgramKey(rasterHash string, opts ProgramKeyOpts) string {
	return k.prefix + k.inner.ProgramKey(rasterHash, opts)
}
