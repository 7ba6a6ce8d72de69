// Package zfs adapts the manager's volume operations onto the zfs(8)
// command-line tool, and parses the options an engine passes on volume
// creation. It never reasons about mount-ownership or the RPC wire format;
// those belong to pkg/volume and pkg/plugin respectively.
package zfs

import "context"

// Record is a single dataset's properties as reported by `zfs list`/`zfs
// get`, before the manager maps it onto the wire-facing Volume type.
type Record struct {
	Name       string
	Mountpoint string // "" means unmounted (pool reports "none" or "-")
	CreatedAt  int64
	Used       uint64
	Avail      uint64
}

// Backend is the set of pool operations the volume manager composes to
// implement the lifecycle state machine. zfs.Pool is the production
// implementation; zfstest.Fake stands in for tests, and noop.Backend is
// the no-op driver variant.
type Backend interface {
	// Create makes a new empty dataset at name with opts applied, unmounted.
	Create(ctx context.Context, name string, opts VolumeOptions) error

	// CloneFromSnapshot snapshots from, clones it into name with opts
	// applied, and marks the intermediate snapshot for deferred deletion.
	CloneFromSnapshot(ctx context.Context, name, from string, opts VolumeOptions) error

	// Destroy recursively destroys the dataset at name.
	Destroy(ctx context.Context, name string) error

	// Exists reports whether the dataset is present in the pool.
	Exists(ctx context.Context, name string) (bool, error)

	// SetMountpoint sets the dataset's mountpoint property to path.
	SetMountpoint(ctx context.Context, name, path string) error

	// ClearMountpoint sets the dataset's mountpoint property to "none".
	ClearMountpoint(ctx context.Context, name string) error

	// GetMountpoint reads the dataset's current mountpoint property,
	// returning "" if it is "none" or empty.
	GetMountpoint(ctx context.Context, name string) (string, error)

	// List returns every dataset under the root, excluding the root itself.
	List(ctx context.Context) ([]Record, error)

	// Inspect returns the single record for name.
	Inspect(ctx context.Context, name string) (Record, error)

	// RootMountpoint returns the filesystem path volumes are mounted
	// under, i.e. the mountpoint property of the root dataset.
	RootMountpoint(ctx context.Context) (string, error)
}
