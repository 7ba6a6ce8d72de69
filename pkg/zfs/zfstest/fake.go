// Package zfstest provides an in-memory Backend used to exercise the
// volume manager's state machine without a real ZFS pool or root
// privileges. It mirrors the tolerated-error and mountpoint semantics of
// zfs.Pool closely enough for the manager's property tests to be
// meaningful, but never shells out.
package zfstest

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/zocker/pkg/zfs"
	"github.com/cuemby/zocker/pkg/zvolerr"
)

type dataset struct {
	mountpoint string
	createdAt  int64
	quota      uint64
	snapshotOf string
}

// Fake is a zfs.Backend backed by a map; safe for concurrent use.
type Fake struct {
	mu       sync.Mutex
	root     string
	rootMP   string
	datasets map[string]*dataset
	now      func() int64
}

// New returns a Fake rooted at root, with its root mountpoint set to
// rootMountpoint (e.g. "/mnt/" + root).
func New(root, rootMountpoint string) *Fake {
	return &Fake{
		root:     root,
		rootMP:   rootMountpoint,
		datasets: make(map[string]*dataset),
		now:      func() int64 { return time.Now().Unix() },
	}
}

func (f *Fake) Create(_ context.Context, name string, opts zfs.VolumeOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.datasets[name]; ok {
		return nil // idempotent create, mirrors the "dataset already exists" tolerance
	}
	f.datasets[name] = &dataset{createdAt: f.now(), quota: opts.Quota}
	return nil
}

func (f *Fake) CloneFromSnapshot(_ context.Context, name, from string, opts zfs.VolumeOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.datasets[from]; !ok {
		return &zvolerr.CmdError{Command: "zfs snapshot", ExitCode: 1, Stderr: "dataset does not exist"}
	}
	if _, ok := f.datasets[name]; ok {
		return nil
	}
	f.datasets[name] = &dataset{createdAt: f.now(), quota: opts.Quota, snapshotOf: from}
	return nil
}

func (f *Fake) Destroy(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.datasets[name]; !ok {
		return &zvolerr.CmdError{Command: "zfs destroy", ExitCode: 1, Stderr: "dataset does not exist"}
	}
	delete(f.datasets, name)
	return nil
}

func (f *Fake) Exists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.datasets[name]
	return ok, nil
}

func (f *Fake) SetMountpoint(_ context.Context, name, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.datasets[name]
	if !ok {
		return &zvolerr.CmdError{Command: "zfs set", ExitCode: 1, Stderr: "dataset does not exist"}
	}
	ds.mountpoint = path
	return nil
}

func (f *Fake) ClearMountpoint(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.datasets[name]
	if !ok {
		return &zvolerr.CmdError{Command: "zfs set", ExitCode: 1, Stderr: "dataset does not exist"}
	}
	ds.mountpoint = ""
	return nil
}

func (f *Fake) GetMountpoint(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.datasets[name]
	if !ok {
		return "", &zvolerr.CmdError{Command: "zfs get", ExitCode: 1, Stderr: "dataset does not exist"}
	}
	return ds.mountpoint, nil
}

func (f *Fake) RootMountpoint(context.Context) (string, error) {
	return f.rootMP, nil
}

func (f *Fake) List(context.Context) ([]zfs.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]zfs.Record, 0, len(f.datasets))
	for name, ds := range f.datasets {
		out = append(out, toRecord(name, ds))
	}
	return out, nil
}

func (f *Fake) Inspect(_ context.Context, name string) (zfs.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.datasets[name]
	if !ok {
		return zfs.Record{}, &zvolerr.CmdError{Command: "zfs list", ExitCode: 1, Stderr: "dataset does not exist"}
	}
	return toRecord(name, ds), nil
}

func toRecord(name string, ds *dataset) zfs.Record {
	return zfs.Record{
		Name:       name,
		Mountpoint: ds.mountpoint,
		CreatedAt:  ds.createdAt,
		Used:       0,
		Avail:      ds.quota,
	}
}
