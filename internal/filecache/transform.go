package filecache

// Transform derives a value from raw content before it is cached. Key
// identifies the transform in the cache key, so two transforms with the
// same key must compute the same thing. Apply must be pure.
type Transform interface {
	Key() string
	Apply(content []byte) (any, error)
}

type transformFunc struct {
	key string
	fn  func([]byte) (any, error)
}

func (t transformFunc) Key() string { return t.key }

func (t transformFunc) Apply(content []byte) (any, error) { return t.fn(content) }

// TransformFunc builds a Transform from a key and a function.
func TransformFunc(key string, fn func(content []byte) (any, error)) Transform {
	return transformFunc{key: key, fn: fn}
}

// identityKey is the content table key for untransformed content. Transforms
// must use a non-empty key so they can never collide with it.
const identityKey = ""

func transformKey(t Transform) string {
	if t == nil {
		return identityKey
	}
	return t.Key()
}
