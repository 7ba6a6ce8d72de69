package zfs

import (
	"strconv"
	"strings"

	"github.com/cuemby/zocker/pkg/zvolerr"
	units "github.com/docker/go-units"
)

const defaultQuotaBytes uint64 = 250 * 1024 * 1024

// VolumeOptions is the typed form of the engine's string-to-string Opts
// map, after defaulting.
type VolumeOptions struct {
	Quota       uint64
	Compression bool
	Atime       bool
	Exec        bool
	Setuid      bool
	SnapshotOf  string
}

// ParseOptions converts the engine's Opts map into a VolumeOptions value.
// Unknown keys are ignored. snapshot-of takes precedence over its alias
// from when both are present.
func ParseOptions(raw map[string]string) (VolumeOptions, error) {
	opts := VolumeOptions{
		Quota:       defaultQuotaBytes,
		Compression: true,
		Atime:       false,
		Exec:        false,
		Setuid:      false,
	}

	if v, ok := raw["quota"]; ok && v != "" {
		bytes, err := parseQuota(v)
		if err != nil {
			return VolumeOptions{}, err
		}
		opts.Quota = bytes
	}

	opts.Compression = onOff(raw, "compression", opts.Compression)
	opts.Atime = onOff(raw, "atime", opts.Atime)
	opts.Exec = onOff(raw, "exec", opts.Exec)
	opts.Setuid = onOff(raw, "setuid", opts.Setuid)

	if v, ok := raw["snapshot-of"]; ok && v != "" {
		opts.SnapshotOf = v
	} else if v, ok := raw["from"]; ok && v != "" {
		opts.SnapshotOf = v
	}

	return opts, nil
}

// onOff reads key from raw: an absent key yields def, and a present key
// is true only when its value is the literal "on".
func onOff(raw map[string]string, key string, def bool) bool {
	v, ok := raw[key]
	if !ok {
		return def
	}
	return v == "on"
}

// parseQuota accepts a plain base-10 integer (so the full uint64 range,
// including math.MaxUint64, is reachable even though go-units' RAMInBytes
// is int64-bound) or a human-readable size with an IEC/SI suffix such as
// "8GiB".
func parseQuota(s string) (uint64, error) {
	if isAllDigits(s) {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, &zvolerr.VolumeOptionsError{Reason: "Quota out of range"}
		}
		return n, nil
	}

	n, err := units.RAMInBytes(s)
	if err != nil || n < 0 {
		return 0, &zvolerr.VolumeOptionsError{Reason: "Invalid quota specified"}
	}
	return uint64(n), nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) == -1
}
