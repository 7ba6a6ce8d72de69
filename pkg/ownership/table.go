// Package ownership implements the volume manager's mount-ownership
// table: an in-memory, concurrency-safe mapping from volume name to the
// set of caller IDs currently holding it mounted. It is never persisted;
// across a driver restart the engine reissues mounts and the table
// rebuilds itself from that traffic.
package ownership

import (
	"sort"
	"sync"
)

// Table maps a volume name to the set of callers holding it mounted.
// A single mutex guards every entry; at plugin-protocol request rates
// this is not a contention hazard, and it keeps the invariant "mutations
// are atomic with respect to a key" trivially true.
type Table struct {
	mu     sync.Mutex
	owners map[string]map[string]struct{}
}

// New returns an empty Table.
func New() *Table {
	return &Table{owners: make(map[string]map[string]struct{})}
}

// Add records caller as holding name mounted. Adding the same (name,
// caller) pair more than once has no additional effect.
func (t *Table) Add(name, caller string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.owners[name]
	if !ok {
		set = make(map[string]struct{})
		t.owners[name] = set
	}
	set[caller] = struct{}{}
}

// Remove drops caller from name's owner set, if present. The entry is
// left in place (possibly empty) rather than deleted; an empty set is
// the table's normal terminal state for a mounted-then-fully-unmounted
// volume, not a special case.
func (t *Table) Remove(name, caller string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if set, ok := t.owners[name]; ok {
		delete(set, caller)
	}
}

// Owners returns a stable-ordered snapshot of the callers currently
// holding name mounted. An absent name reports no owners.
func (t *Table) Owners(name string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	set := t.owners[name]
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// IsEmpty reports whether name has no recorded owners.
func (t *Table) IsEmpty(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.owners[name]) == 0
}

// Forget drops name's entry entirely. Called when a volume is destroyed,
// so the table does not accumulate entries for datasets that no longer
// exist.
func (t *Table) Forget(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.owners, name)
}
