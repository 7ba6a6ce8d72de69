//go:build windows

package zfs

// chownPath is a no-op on windows: Pool.fixupOwnership still calls it
// after every create, but ownership is left unchanged there.
func chownPath(path string, uid, gid int) error { return nil }
