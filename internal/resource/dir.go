package resource

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/keithlinneman/filecache/internal/filecache"
	"github.com/keithlinneman/filecache/internal/xerrors"
)

// StatFingerprint identifies a file version by its inode, size, modification
// time and status change time.
type StatFingerprint struct {
	Inode      uint64
	Size       int64
	ModTime    time.Time
	ChangeTime time.Time
}

// Equal reports whether other is a StatFingerprint for the same file version.
func (f StatFingerprint) Equal(other filecache.Fingerprint) bool {
	o, ok := other.(StatFingerprint)
	if !ok {
		return false
	}
	return f.Inode == o.Inode &&
		f.Size == o.Size &&
		f.ModTime.Equal(o.ModTime) &&
		f.ChangeTime.Equal(o.ChangeTime)
}

// Dir serves files below a directory. Names cannot escape it, including
// through symlinks.
type Dir struct {
	root *os.Root
}

var _ filecache.Accessor = (*Dir)(nil)

// OpenDir opens dir as the root for a Dir accessor.
func OpenDir(dir string) (*Dir, error) {
	r, err := os.OpenRoot(dir)
	if err != nil {
		return nil, xerrors.Wrapf(err, "open root %s", dir)
	}
	return &Dir{root: r}, nil
}

// Close releases the root directory handle.
func (d *Dir) Close() error {
	return d.root.Close()
}

// Name returns the root directory path.
func (d *Dir) Name() string {
	return d.root.Name()
}

func (d *Dir) Fingerprint(_ context.Context, name string) (filecache.Fingerprint, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	fi, err := d.root.Stat(name)
	if err != nil {
		return nil, d.wrap(err, "stat", name)
	}
	if fi.IsDir() {
		return nil, xerrors.Wrapf(notFound(fs.ErrNotExist), "stat %s: is a directory", name)
	}
	return statFingerprint(fi), nil
}

func (d *Dir) Read(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := d.root.Open(name)
	if err != nil {
		return nil, d.wrap(err, "open", name)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, d.wrap(err, "read", name)
	}
	return b, nil
}

func (d *Dir) wrap(err error, op, name string) error {
	if errors.Is(err, fs.ErrNotExist) {
		err = notFound(err)
	}
	return xerrors.Wrapf(err, "%s %s", op, name)
}
