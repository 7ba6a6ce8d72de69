package runner

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/zocker/pkg/zvolerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Success(t *testing.T) {
	r := New()
	status, err := r.Run(context.Background(), []string{"true"}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, status.Code)
}

func TestRun_NonZeroExit(t *testing.T) {
	r := New()
	_, err := r.Run(context.Background(), []string{"sh", "-c", "exit 7"}, time.Time{})
	require.Error(t, err)
	var cmdErr *zvolerr.CmdError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 7, cmdErr.ExitCode)
}

func TestRun_CapturesStderr(t *testing.T) {
	r := New()
	_, err := r.Run(context.Background(), []string{"sh", "-c", "echo boom 1>&2; exit 1"}, time.Time{})
	require.Error(t, err)
	var cmdErr *zvolerr.CmdError
	require.ErrorAs(t, err, &cmdErr)
	assert.Contains(t, cmdErr.Stderr, "boom")
}

func TestRun_DeadlineExceeded(t *testing.T) {
	r := New()
	deadline := time.Now().Add(100 * time.Millisecond)
	_, err := r.Run(context.Background(), []string{"sleep", "5"}, deadline)
	require.Error(t, err)
	var timeout *zvolerr.Timeout
	assert.ErrorAs(t, err, &timeout)
}

func TestRun_ElapsedDeadlineTimesOutImmediately(t *testing.T) {
	r := New()
	start := time.Now()
	_, err := r.Run(context.Background(), []string{"sleep", "5"}, start.Add(-time.Second))
	require.Error(t, err)
	var timeout *zvolerr.Timeout
	require.ErrorAs(t, err, &timeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRun_SpawnFailure(t *testing.T) {
	r := New()
	_, err := r.Run(context.Background(), []string{"/no/such/binary-zocker-test"}, time.Time{})
	require.Error(t, err)
	var ioErr *zvolerr.CmdIoError
	assert.ErrorAs(t, err, &ioErr)
}

func TestRunCaptured_ReturnsStdout(t *testing.T) {
	r := New()
	out, err := r.RunCaptured(context.Background(), []string{"echo", "-n", "hello"}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}
