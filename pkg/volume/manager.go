// Package volume implements the driver-facing volume lifecycle on top of
// a zfs.Backend: create/remove/mount/unmount/list/get, each translating
// between the plugin protocol's view of a volume and the pool's dataset
// operations, and enforcing the mount-ownership invariants that a bare
// Backend has no way to know about on its own.
package volume

import (
	"context"

	"github.com/cuemby/zocker/pkg/ownership"
	"github.com/cuemby/zocker/pkg/zfs"
	"github.com/cuemby/zocker/pkg/zvolerr"
)

// Volume is the wire-facing description of a volume, independent of the
// backend that produced it. Quota, compression, and the other
// creation-time flags are write-only from the engine's perspective (set
// via Opts on Create) and are not echoed back by the pool's list/get
// output, so they have no place here.
type Volume struct {
	Name       string
	Mountpoint string
	CreatedAt  int64
	Used       uint64
	Avail      uint64
}

// Capabilities describes what scope this driver's volumes operate at.
type Capabilities struct {
	Scope string
}

// Manager is the volume lifecycle state machine: a Backend plus the
// in-memory ownership table that tracks which callers currently hold
// each volume mounted.
type Manager struct {
	backend zfs.Backend
	owners  *ownership.Table
}

// NewManager returns a Manager driving backend.
func NewManager(backend zfs.Backend) *Manager {
	return &Manager{backend: backend, owners: ownership.New()}
}

// Create provisions name if it does not already exist. An existing
// dataset is left untouched: creation is idempotent so that a plugin
// client retrying a timed-out request never fails on the retry.
func (m *Manager) Create(ctx context.Context, name string, raw map[string]string) error {
	dataset := zfs.Sanitize(name)

	exists, err := m.backend.Exists(ctx, dataset)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	opts, err := zfs.ParseOptions(raw)
	if err != nil {
		return err
	}

	if opts.SnapshotOf != "" {
		return m.backend.CloneFromSnapshot(ctx, dataset, zfs.Sanitize(opts.SnapshotOf), opts)
	}
	return m.backend.Create(ctx, dataset, opts)
}

// Remove destroys name, refusing while any caller still holds it mounted.
func (m *Manager) Remove(ctx context.Context, name string) error {
	dataset := zfs.Sanitize(name)

	if !m.owners.IsEmpty(dataset) {
		return &zvolerr.VolumeInUse{Name: dataset, Owners: m.owners.Owners(dataset)}
	}

	if err := m.backend.Destroy(ctx, dataset); err != nil {
		return err
	}
	m.owners.Forget(dataset)
	return nil
}

// Mount records caller as holding name mounted and returns its host
// path, unconditionally re-setting the mountpoint on every call so a
// second caller mounting an already-mounted volume still gets a fresh,
// correct answer rather than trusting stale state.
func (m *Manager) Mount(ctx context.Context, name, caller string) (string, error) {
	dataset := zfs.Sanitize(name)

	rootMP, err := m.backend.RootMountpoint(ctx)
	if err != nil {
		return "", err
	}
	path := rootMP + "/" + dataset

	if err := m.backend.SetMountpoint(ctx, dataset, path); err != nil {
		return "", err
	}
	mp, err := m.backend.GetMountpoint(ctx, dataset)
	if err != nil {
		return "", err
	}

	m.owners.Add(dataset, caller)
	return mp, nil
}

// Unmount drops caller's hold on name. The dataset's mountpoint is only
// cleared once every caller has unmounted. A caller that never held the
// volume is not an error; an error from clearing the mountpoint is
// returned.
func (m *Manager) Unmount(ctx context.Context, name, caller string) error {
	dataset := zfs.Sanitize(name)

	m.owners.Remove(dataset, caller)
	if !m.owners.IsEmpty(dataset) {
		return nil
	}
	return m.backend.ClearMountpoint(ctx, dataset)
}

// Path returns name's current host mountpoint, failing if it is not
// currently mounted anywhere.
func (m *Manager) Path(ctx context.Context, name string) (string, error) {
	dataset := zfs.Sanitize(name)

	mp, err := m.backend.GetMountpoint(ctx, dataset)
	if err != nil {
		return "", err
	}
	if mp == "" {
		return "", &zvolerr.NoMountpoint{Name: dataset}
	}
	return mp, nil
}

// Get returns name's current metadata.
func (m *Manager) Get(ctx context.Context, name string) (*Volume, error) {
	dataset := zfs.Sanitize(name)

	rec, err := m.backend.Inspect(ctx, dataset)
	if err != nil {
		return nil, err
	}
	return recordToVolume(rec), nil
}

// List returns every volume currently provisioned under the pool.
func (m *Manager) List(ctx context.Context) ([]*Volume, error) {
	recs, err := m.backend.List(ctx)
	if err != nil {
		return nil, err
	}

	vols := make([]*Volume, 0, len(recs))
	for _, rec := range recs {
		vols = append(vols, recordToVolume(rec))
	}
	return vols, nil
}

// Capabilities reports this driver's scope: every volume it manages is
// only ever visible on the host the plugin runs on.
func (m *Manager) Capabilities() Capabilities {
	return Capabilities{Scope: "local"}
}

func recordToVolume(rec zfs.Record) *Volume {
	return &Volume{
		Name:       rec.Name,
		Mountpoint: rec.Mountpoint,
		CreatedAt:  rec.CreatedAt,
		Used:       rec.Used,
		Avail:      rec.Avail,
	}
}
