//go:build !linux

package resource

import "io/fs"

// statFingerprint has no portable inode or ctime, so inode is zero and
// change time mirrors the modification time.
func statFingerprint(fi fs.FileInfo) StatFingerprint {
	return StatFingerprint{Size: fi.Size(), ModTime: fi.ModTime(), ChangeTime: fi.ModTime()}
}
