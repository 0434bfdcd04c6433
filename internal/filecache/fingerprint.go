package filecache

// Fingerprint is a cheap proxy for "has this resource changed". The cache
// only ever compares fingerprints for equality.
type Fingerprint interface {
	Equal(other Fingerprint) bool
}

// Comparable is a Fingerprint backed by any comparable value, e.g. a version
// counter or a struct of stat fields.
type Comparable[T comparable] struct {
	Value T
}

func (c Comparable[T]) Equal(other Fingerprint) bool {
	o, ok := other.(Comparable[T])
	return ok && o.Value == c.Value
}

func sameFingerprint(a, b Fingerprint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}
