package zfs

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
)

func TestSanitize_ReplacesDisallowedBytes(t *testing.T) {
	assert.Equal(t, "libstd__11", Sanitize("libstd++11"))
	assert.Equal(t, "a_b_c", Sanitize("a/b c"))
	assert.Equal(t, "already-ok_1", Sanitize("already-ok_1"))
}

func TestSanitize_Idempotent(t *testing.T) {
	f := func(n string) bool {
		return Sanitize(Sanitize(n)) == Sanitize(n)
	}
	assert.NoError(t, quick.Check(f, nil))
}
