package filecache

import "errors"

var (
	// ErrResourceUnavailable wraps fingerprint and read failures. The
	// accessor's error stays in the chain, so errors.Is(err, fs.ErrNotExist)
	// still works for missing files.
	ErrResourceUnavailable = errors.New("filecache: resource unavailable")

	// ErrTransformFailed wraps an error returned by a Transform.
	ErrTransformFailed = errors.New("filecache: transform failed")

	// ErrInvalidTransform is returned for a non-nil Transform with an empty key.
	ErrInvalidTransform = errors.New("filecache: invalid transform")

	// ErrListenerFailed wraps the first clear listener error.
	ErrListenerFailed = errors.New("filecache: clear listener failed")

	// ErrListenerNotFound is returned when removing a listener that is not registered.
	ErrListenerNotFound = errors.New("filecache: clear listener not found")

	ErrInvalidOptions = errors.New("filecache: invalid options")
)
