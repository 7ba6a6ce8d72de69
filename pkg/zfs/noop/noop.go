// Package noop provides a zfs.Backend that never touches a pool: every
// volume's mountpoint resolves to /dev/null once set, and dataset
// metadata lives entirely in a map. It can stand in for zfs.Pool on a
// host with no ZFS pool at all; the zockerd CLI does not offer it as a
// backend and always uses zfs.Pool.
package noop

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/zocker/pkg/zfs"
	"github.com/cuemby/zocker/pkg/zvolerr"
)

const mountpoint = "/dev/null"

type entry struct {
	createdAt int64
	mounted   bool
}

// Backend is a no-op zfs.Backend.
type Backend struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New returns an empty no-op Backend.
func New() *Backend {
	return &Backend{entries: make(map[string]*entry)}
}

func (b *Backend) Create(_ context.Context, name string, _ zfs.VolumeOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[name]; ok {
		return nil
	}
	b.entries[name] = &entry{createdAt: time.Now().Unix()}
	return nil
}

func (b *Backend) CloneFromSnapshot(ctx context.Context, name, from string, opts zfs.VolumeOptions) error {
	b.mu.Lock()
	_, ok := b.entries[from]
	b.mu.Unlock()
	if !ok {
		return &zvolerr.CmdError{Command: "noop clone", ExitCode: 1, Stderr: "dataset does not exist"}
	}
	return b.Create(ctx, name, opts)
}

func (b *Backend) Destroy(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[name]; !ok {
		return &zvolerr.CmdError{Command: "noop destroy", ExitCode: 1, Stderr: "dataset does not exist"}
	}
	delete(b.entries, name)
	return nil
}

func (b *Backend) Exists(_ context.Context, name string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.entries[name]
	return ok, nil
}

func (b *Backend) SetMountpoint(_ context.Context, name, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[name]
	if !ok {
		return &zvolerr.CmdError{Command: "noop set", ExitCode: 1, Stderr: "dataset does not exist"}
	}
	e.mounted = true
	return nil
}

func (b *Backend) ClearMountpoint(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[name]
	if !ok {
		return &zvolerr.CmdError{Command: "noop set", ExitCode: 1, Stderr: "dataset does not exist"}
	}
	e.mounted = false
	return nil
}

func (b *Backend) GetMountpoint(_ context.Context, name string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[name]
	if !ok {
		return "", &zvolerr.CmdError{Command: "noop get", ExitCode: 1, Stderr: "dataset does not exist"}
	}
	if !e.mounted {
		return "", nil
	}
	return mountpoint, nil
}

func (b *Backend) RootMountpoint(context.Context) (string, error) {
	return mountpoint, nil
}

func (b *Backend) List(context.Context) ([]zfs.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]zfs.Record, 0, len(b.entries))
	for name, e := range b.entries {
		out = append(out, b.toRecord(name, e))
	}
	return out, nil
}

func (b *Backend) Inspect(_ context.Context, name string) (zfs.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[name]
	if !ok {
		return zfs.Record{}, &zvolerr.CmdError{Command: "noop list", ExitCode: 1, Stderr: "dataset does not exist"}
	}
	return b.toRecord(name, e), nil
}

func (b *Backend) toRecord(name string, e *entry) zfs.Record {
	rec := zfs.Record{Name: name, CreatedAt: e.createdAt}
	if e.mounted {
		rec.Mountpoint = mountpoint
	}
	return rec
}
