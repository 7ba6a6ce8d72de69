package zfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord(t *testing.T) {
	rec, err := parseRecord("tank/zocker/foo\t/mnt/data/zocker/foo\t1566812157\t98304\t262045696")
	require.NoError(t, err)
	assert.Equal(t, "tank/zocker/foo", rec.Name)
	assert.Equal(t, "/mnt/data/zocker/foo", rec.Mountpoint)
	assert.EqualValues(t, 1566812157, rec.CreatedAt)
	assert.EqualValues(t, 98304, rec.Used)
	assert.EqualValues(t, 262045696, rec.Avail)
}

func TestParseRecord_NoneMountpoint(t *testing.T) {
	rec, err := parseRecord("tank/zocker/foo\tnone\t1566812157\t98304\t262045696")
	require.NoError(t, err)
	assert.Empty(t, rec.Mountpoint)
}

func TestParseRecord_WrongFieldCount(t *testing.T) {
	_, err := parseRecord("tank/zocker/foo\tnone")
	assert.Error(t, err)
}

func TestNormalizeMountpoint(t *testing.T) {
	assert.Empty(t, normalizeMountpoint("none\n"))
	assert.Empty(t, normalizeMountpoint("-"))
	assert.Empty(t, normalizeMountpoint(""))
	assert.Equal(t, "/mnt/data/zocker/foo", normalizeMountpoint("/mnt/data/zocker/foo\n"))
}

func TestToleratedOrErr(t *testing.T) {
	assert.NoError(t, toleratedOrErr(nil))
}

func TestPropertyArgs(t *testing.T) {
	opts := VolumeOptions{Quota: 1024, Compression: true, Atime: false, Exec: false, Setuid: false}
	args := propertyArgs(opts)
	assert.Contains(t, args, "quota=1024")
	assert.Contains(t, args, "compression=on")
	assert.Contains(t, args, "atime=off")
}

func TestDataset(t *testing.T) {
	p := NewPool("tank/zocker")
	assert.Equal(t, "tank/zocker/foo", p.dataset("foo"))
}
