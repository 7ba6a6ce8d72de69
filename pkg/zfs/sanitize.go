package zfs

import "strings"

// Sanitize maps an engine-supplied volume name onto a valid ZFS dataset
// path component: any byte outside [A-Za-z0-9_-] becomes an underscore.
// It is a pure, idempotent function of its input.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_', c == '-':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
