package resource

import (
	"context"
	"errors"
	"io/fs"

	"github.com/keithlinneman/filecache/internal/digest"
	"github.com/keithlinneman/filecache/internal/filecache"
	"github.com/keithlinneman/filecache/internal/xerrors"
)

// ContentFingerprint identifies a file version by an xxhash64 of its bytes.
// It suits trees without meaningful mod times, such as embed.FS.
type ContentFingerprint struct {
	Sum  uint64
	Size int64
}

func (f ContentFingerprint) Equal(other filecache.Fingerprint) bool {
	o, ok := other.(ContentFingerprint)
	return ok && f == o
}

// FS serves files from an fs.FS. Fingerprinting reads the whole file, so it
// costs as much as a read; the recheck window is what keeps it cheap.
type FS struct {
	fsys fs.FS
}

var _ filecache.Accessor = FS{}

func NewFS(fsys fs.FS) FS {
	return FS{fsys: fsys}
}

func (a FS) Fingerprint(ctx context.Context, name string) (filecache.Fingerprint, error) {
	b, err := a.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	return ContentFingerprint{Sum: digest.XXH64(b), Size: int64(len(b))}, nil
}

func (a FS) Read(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fi, err := fs.Stat(a.fsys, name); err == nil && fi.IsDir() {
		return nil, xerrors.Wrapf(notFound(fs.ErrNotExist), "read %s: is a directory", name)
	}
	b, err := fs.ReadFile(a.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = notFound(err)
		}
		return nil, xerrors.Wrapf(err, "read %s", name)
	}
	return b, nil
}
