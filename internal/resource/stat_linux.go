//go:build linux

package resource

import (
	"io/fs"
	"syscall"
	"time"
)

func statFingerprint(fi fs.FileInfo) StatFingerprint {
	fp := StatFingerprint{Size: fi.Size(), ModTime: fi.ModTime(), ChangeTime: fi.ModTime()}
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		fp.Inode = uint64(st.Ino)
		fp.ChangeTime = time.Unix(st.Ctim.Unix())
	}
	return fp
}
