package ownership

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_AddIsIdempotentPerCaller(t *testing.T) {
	tb := New()
	tb.Add("foo", "c1")
	tb.Add("foo", "c1")
	assert.Equal(t, []string{"c1"}, tb.Owners("foo"))
}

func TestTable_RemoveLeavesEmptySet(t *testing.T) {
	tb := New()
	tb.Add("foo", "c1")
	tb.Remove("foo", "c1")
	assert.True(t, tb.IsEmpty("foo"))
}

func TestTable_RemoveUnknownCallerIsNoop(t *testing.T) {
	tb := New()
	tb.Add("foo", "c1")
	tb.Remove("foo", "never-mounted")
	assert.Equal(t, []string{"c1"}, tb.Owners("foo"))
}

func TestTable_AbsentNameHasNoOwners(t *testing.T) {
	tb := New()
	assert.Empty(t, tb.Owners("nope"))
	assert.True(t, tb.IsEmpty("nope"))
}

func TestTable_RefCountedMount(t *testing.T) {
	tb := New()
	callers := []string{"c1", "c2", "c3"}
	for _, c := range callers {
		tb.Add("foo", c)
	}
	for _, c := range callers[:len(callers)-1] {
		tb.Remove("foo", c)
	}
	assert.False(t, tb.IsEmpty("foo"))

	tb.Remove("foo", callers[len(callers)-1])
	assert.True(t, tb.IsEmpty("foo"))
}

func TestTable_ConcurrentMutation(t *testing.T) {
	tb := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tb.Add("foo", string(rune('a'+i%26)))
		}(i)
	}
	wg.Wait()

	owners := tb.Owners("foo")
	sort.Strings(owners)
	assert.LessOrEqual(t, len(owners), 26)
}

func TestTable_Forget(t *testing.T) {
	tb := New()
	tb.Add("foo", "c1")
	tb.Forget("foo")
	assert.True(t, tb.IsEmpty("foo"))
}
