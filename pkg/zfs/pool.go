package zfs

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/zocker/pkg/runner"
	"github.com/cuemby/zocker/pkg/zvolerr"
)

const (
	tolerableRootOnly   = "filesystem successfully created, but it may only be mounted by root"
	tolerableExists     = "dataset already exists"
	tolerableNotPresent = "dataset does not exist"

	fixupMode = 0o750
)

// Pool is the production Backend, shelling out to zfs(8) (and sudo(8) for
// the two operations that require root) under root, a dataset such as
// "tank/zocker" that every volume is created beneath.
type Pool struct {
	root   string
	run    *runner.Runner
	zfsBin string
}

// NewPool returns a Pool rooted at root (e.g. "tank/zocker").
func NewPool(root string) *Pool {
	return &Pool{root: root, run: runner.Default(), zfsBin: "zfs"}
}

func (p *Pool) dataset(name string) string {
	return p.root + "/" + name
}

// elevate prepends sudo to argv when the operation needs root and the
// driver is not already running as root. Off-linux this never elevates:
// the mount/umount semantics sudo protects only apply there, and
// requiring a password prompt on a developer's mac or a CI runner would
// just break local testing.
func elevate(argv []string) []string {
	if runtime.GOOS != "linux" {
		return argv
	}
	if os.Geteuid() == 0 {
		return argv
	}
	return append([]string{"sudo"}, argv...)
}

func (p *Pool) run0(ctx context.Context, argv []string) error {
	_, err := p.run.Run(ctx, argv, time.Time{})
	return toleratedOrErr(err)
}

func (p *Pool) runCaptured(ctx context.Context, argv []string) (string, error) {
	out, err := p.run.RunCaptured(ctx, argv, time.Time{})
	if err != nil {
		return "", toleratedOrErr(err)
	}
	return out, nil
}

// toleratedOrErr downgrades the documented-tolerable CmdError stderr
// patterns to nil; everything else is returned unchanged.
func toleratedOrErr(err error) error {
	cmdErr, ok := err.(*zvolerr.CmdError)
	if !ok {
		return err
	}
	if strings.Contains(cmdErr.Stderr, tolerableRootOnly) || strings.Contains(cmdErr.Stderr, tolerableExists) {
		return nil
	}
	return err
}

func isNotPresent(err error) bool {
	cmdErr, ok := err.(*zvolerr.CmdError)
	return ok && strings.Contains(cmdErr.Stderr, tolerableNotPresent)
}

func propertyArgs(opts VolumeOptions) []string {
	return []string{
		"-o", "quota=" + strconv.FormatUint(opts.Quota, 10),
		"-o", "compression=" + onOffString(opts.Compression),
		"-o", "atime=" + onOffString(opts.Atime),
		"-o", "exec=" + onOffString(opts.Exec),
		"-o", "setuid=" + onOffString(opts.Setuid),
	}
}

func onOffString(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (p *Pool) Create(ctx context.Context, name string, opts VolumeOptions) error {
	argv := append([]string{p.zfsBin, "create"}, propertyArgs(opts)...)
	argv = append(argv, "-o", "mountpoint=none", p.dataset(name))
	if err := p.run0(ctx, argv); err != nil {
		return err
	}
	return p.fixupOwnership(ctx, name)
}

func (p *Pool) CloneFromSnapshot(ctx context.Context, name, from string, opts VolumeOptions) error {
	snap := p.dataset(from) + "@" + strconv.FormatInt(time.Now().UnixNano(), 10)

	if err := p.run0(ctx, []string{p.zfsBin, "snapshot", snap}); err != nil {
		return err
	}

	argv := append([]string{p.zfsBin, "clone"}, propertyArgs(opts)...)
	argv = append(argv, "-o", "mountpoint=none", snap, p.dataset(name))
	if err := p.run0(ctx, argv); err != nil {
		return err
	}

	if err := p.run0(ctx, []string{p.zfsBin, "destroy", "-d", snap}); err != nil {
		return err
	}

	return p.fixupOwnership(ctx, name)
}

// fixupOwnership temporarily mounts a freshly created dataset so it can be
// chowned to the driver's own user:group and chmoded 0750, then clears the
// mountpoint again. Without this, the dataset's root-owned default
// ownership would be unusable by the unprivileged containers that later
// mount it.
func (p *Pool) fixupOwnership(ctx context.Context, name string) error {
	rootMP, err := p.RootMountpoint(ctx)
	if err != nil {
		return err
	}
	path := filepath.Join(rootMP, name)

	if err := p.SetMountpoint(ctx, name, path); err != nil {
		return err
	}
	if err := chownPath(path, os.Geteuid(), os.Getegid()); err != nil {
		return &zvolerr.IoError{Op: "chown " + path, Err: err}
	}
	if err := os.Chmod(path, fixupMode); err != nil {
		return &zvolerr.IoError{Op: "chmod " + path, Err: err}
	}
	return p.ClearMountpoint(ctx, name)
}

func (p *Pool) Destroy(ctx context.Context, name string) error {
	return p.run0(ctx, []string{p.zfsBin, "destroy", "-r", p.dataset(name)})
}

func (p *Pool) Exists(ctx context.Context, name string) (bool, error) {
	_, err := p.runCaptured(ctx, []string{p.zfsBin, "get", "mountpoint", "-H", "-o", "value", p.dataset(name)})
	if err == nil {
		return true, nil
	}
	if isNotPresent(err) {
		return false, nil
	}
	return false, err
}

func (p *Pool) SetMountpoint(ctx context.Context, name, path string) error {
	argv := elevate([]string{p.zfsBin, "set", "mountpoint=" + path, p.dataset(name)})
	return p.run0(ctx, argv)
}

func (p *Pool) ClearMountpoint(ctx context.Context, name string) error {
	argv := elevate([]string{p.zfsBin, "set", "mountpoint=none", p.dataset(name)})
	return p.run0(ctx, argv)
}

func (p *Pool) GetMountpoint(ctx context.Context, name string) (string, error) {
	out, err := p.runCaptured(ctx, []string{p.zfsBin, "get", "mountpoint", "-H", "-o", "value", p.dataset(name)})
	if err != nil {
		return "", err
	}
	return normalizeMountpoint(out), nil
}

func (p *Pool) RootMountpoint(ctx context.Context) (string, error) {
	out, err := p.runCaptured(ctx, []string{p.zfsBin, "get", "mountpoint", "-H", "-o", "value", p.root})
	if err != nil {
		return "", err
	}
	return normalizeMountpoint(out), nil
}

func normalizeMountpoint(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "none" || v == "-" || v == "" {
		return ""
	}
	return v
}

func (p *Pool) List(ctx context.Context) ([]Record, error) {
	out, err := p.runCaptured(ctx, []string{
		p.zfsBin, "list", "-H", "-p", "-r",
		"-o", "name,mountpoint,creation,used,avail", p.root,
	})
	if err != nil {
		return nil, err
	}

	lines := splitNonEmptyLines(out)
	if len(lines) == 0 {
		return nil, nil
	}
	lines = lines[1:] // skip the root dataset itself

	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		rec, err := parseRecord(line)
		if err != nil {
			return nil, err
		}
		rec.Name = strings.TrimPrefix(rec.Name, p.root+"/")
		records = append(records, rec)
	}
	return records, nil
}

func (p *Pool) Inspect(ctx context.Context, name string) (Record, error) {
	out, err := p.runCaptured(ctx, []string{
		p.zfsBin, "list", "-H", "-p",
		"-o", "name,mountpoint,creation,used,avail", p.dataset(name),
	})
	if err != nil {
		return Record{}, err
	}
	lines := splitNonEmptyLines(out)
	if len(lines) != 1 {
		return Record{}, &zvolerr.CmdOutputParseError{Command: "zfs list " + p.dataset(name), Output: out}
	}
	rec, err := parseRecord(lines[0])
	if err != nil {
		return Record{}, err
	}
	rec.Name = strings.TrimPrefix(rec.Name, p.root+"/")
	return rec, nil
}

func splitNonEmptyLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func parseRecord(line string) (Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 5 {
		return Record{}, &zvolerr.CmdOutputParseError{Command: "zfs list", Output: line}
	}

	created, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return Record{}, &zvolerr.CmdOutputParseError{Command: "zfs list", Output: line}
	}
	used, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return Record{}, &zvolerr.CmdOutputParseError{Command: "zfs list", Output: line}
	}
	avail, err := strconv.ParseUint(fields[4], 10, 64)
	if err != nil {
		return Record{}, &zvolerr.CmdOutputParseError{Command: "zfs list", Output: line}
	}

	return Record{
		Name:       fields[0],
		Mountpoint: normalizeMountpoint(fields[1]),
		CreatedAt:  created,
		Used:       used,
		Avail:      avail,
	}, nil
}
