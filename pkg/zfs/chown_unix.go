//go:build !windows

package zfs

import "golang.org/x/sys/unix"

func chownPath(path string, uid, gid int) error {
	return unix.Chown(path, uid, gid)
}
