package resource

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/keithlinneman/filecache/internal/xerrors"
)

var (
	// ErrNotFound reports that the named resource does not exist.
	ErrNotFound = errors.New("resource: not found")

	// ErrInvalidName reports a name that is not a valid slash path.
	ErrInvalidName = errors.New("resource: invalid name")
)

func checkName(name string) error {
	if !fs.ValidPath(name) || name == "." {
		return xerrors.Wrapf(ErrInvalidName, "name %q", name)
	}
	return nil
}

// notFound marks err as ErrNotFound while keeping err in the chain.
func notFound(err error) error {
	return fmt.Errorf("%w: %w", ErrNotFound, err)
}

// joinKey places name under prefix. An empty prefix leaves name as is.
func joinKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	if strings.HasPrefix(prefix, "/") {
		return path.Join(prefix, name)
	}
	return strings.TrimSuffix(prefix, "/") + "/" + name
}
