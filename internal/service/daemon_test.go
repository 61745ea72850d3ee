package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/Mirrorsync/internal/daemon"
	"github.com/Ning0612/Mirrorsync/internal/domain"
	"github.com/Ning0612/Mirrorsync/internal/testutil"
)

func newDaemon(t *testing.T, e *env) (*DaemonService, *daemon.PIDFile) {
	t.Helper()

	pidFile := daemon.NewPIDFile(filepath.Join(t.TempDir(), "mirrorsync.pid"))
	d, err := NewDaemonService(e.svc, e.store, pidFile, nil)
	require.NoError(t, err)
	return d, pidFile
}

func TestNewDaemonService_Invalid(t *testing.T) {
	_, err := NewDaemonService(nil, nil, nil, nil)
	assert.Error(t, err)

	e := newEnv(t, testutil.Tree{})
	e.cfg.Interval = 0
	_, err = NewDaemonService(e.svc, nil, nil, nil)
	assert.ErrorIs(t, err, domain.ErrConfigInvalid)
}

func TestDaemonService_StartStop(t *testing.T) {
	e := newEnv(t, testutil.Tree{"a.txt": "a"})
	d, pidFile := newDaemon(t, e)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, d.Start(ctx))

	running, err := pidFile.IsRunning()
	require.NoError(t, err)
	assert.True(t, running, "PID file should point at this process")

	// Wait for at least one pass
	testutil.AssertEventually(t, 2*time.Second, func() bool {
		return d.Status().SchedulerStats.SuccessfulRuns > 0
	})

	status := d.Status()
	assert.True(t, status.Running)
	require.NotNil(t, status.LastPass)
	assert.Equal(t, domain.PassSuccess, status.LastPass.Status)

	require.NoError(t, d.Stop())
	assert.False(t, d.Status().Running)

	running, err = pidFile.IsRunning()
	require.NoError(t, err)
	assert.False(t, running, "PID file should be removed on stop")

	assert.Equal(t, testutil.Tree{"a.txt": "a"}, testutil.ReadTree(t, e.fs, dstRoot))
}

func TestDaemonService_RunOnStart(t *testing.T) {
	e := newEnv(t, testutil.Tree{"a.txt": "a"})
	e.cfg.Interval = time.Hour
	e.cfg.RunOnStart = true
	d, _ := newDaemon(t, e)

	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	testutil.AssertEventually(t, 2*time.Second, func() bool {
		return d.Status().LastPass != nil
	}, "run-on-start pass should be recorded")
}

func TestDaemonService_DoubleStart(t *testing.T) {
	e := newEnv(t, testutil.Tree{})
	e.cfg.Interval = time.Second
	d, _ := newDaemon(t, e)

	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	assert.Error(t, d.Start(context.Background()))
}

func TestDaemonService_StopNotRunning(t *testing.T) {
	e := newEnv(t, testutil.Tree{})
	d, _ := newDaemon(t, e)

	assert.Error(t, d.Stop())
	assert.False(t, d.Status().Running)
	assert.Nil(t, d.Status().SchedulerStats)
}

func TestDaemonService_ContextCancel(t *testing.T) {
	e := newEnv(t, testutil.Tree{})
	d, _ := newDaemon(t, e)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Start(ctx))

	cancel()
	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop after context cancellation")
	}

	// Stop still cleans up after a cancelled context
	require.NoError(t, d.Stop())
}
