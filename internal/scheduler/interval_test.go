package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ning0612/Mirrorsync/internal/domain"
)

// mockPassRunner is a mock implementation of PassRunner for testing
type mockPassRunner struct {
	calls     atomic.Int32
	err       error
	delay     time.Duration
	shouldErr bool
}

func (m *mockPassRunner) RunPass(ctx context.Context) error {
	m.calls.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return m.err
	}
	if m.shouldErr {
		return context.DeadlineExceeded
	}
	return nil
}

func TestNewIntervalScheduler(t *testing.T) {
	runner := &mockPassRunner{}

	// Valid configuration
	config := Config{
		Interval: 1 * time.Second,
	}

	scheduler, err := NewIntervalScheduler(config, runner)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	if scheduler == nil {
		t.Fatal("Scheduler is nil")
	}
}

func TestNewIntervalScheduler_InvalidInterval(t *testing.T) {
	runner := &mockPassRunner{}

	config := Config{
		Interval: 0, // Invalid
	}

	_, err := NewIntervalScheduler(config, runner)
	if err == nil {
		t.Error("Expected error for zero interval, got nil")
	}
}

func TestNewIntervalScheduler_NilRunner(t *testing.T) {
	config := Config{
		Interval: 1 * time.Second,
	}

	_, err := NewIntervalScheduler(config, nil)
	if err == nil {
		t.Error("Expected error for nil runner, got nil")
	}
}

func TestIntervalScheduler_Start(t *testing.T) {
	runner := &mockPassRunner{}
	config := Config{
		Interval: 100 * time.Millisecond,
	}

	scheduler, err := NewIntervalScheduler(config, runner)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = scheduler.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}

	// Check status
	status := scheduler.Status()
	if !status.Running {
		t.Error("Scheduler should be running")
	}

	// Wait for at least 2 runs
	time.Sleep(250 * time.Millisecond)

	status = scheduler.Status()
	if status.TotalRuns < 2 {
		t.Errorf("Expected at least 2 runs, got %d", status.TotalRuns)
	}

	// Stop scheduler
	cancel()
	time.Sleep(50 * time.Millisecond)
}

func TestIntervalScheduler_Stop(t *testing.T) {
	runner := &mockPassRunner{}
	config := Config{
		Interval: 100 * time.Millisecond,
	}

	scheduler, err := NewIntervalScheduler(config, runner)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	ctx := context.Background()

	err = scheduler.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}

	// Wait a bit
	time.Sleep(150 * time.Millisecond)

	// Stop scheduler
	err = scheduler.Stop()
	if err != nil {
		t.Fatalf("Failed to stop scheduler: %v", err)
	}

	// Check status
	status := scheduler.Status()
	if status.Running {
		t.Error("Scheduler should not be running after stop")
	}
}

func TestIntervalScheduler_DoubleStart(t *testing.T) {
	runner := &mockPassRunner{}
	config := Config{
		Interval: 1 * time.Second,
	}

	scheduler, err := NewIntervalScheduler(config, runner)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	ctx := context.Background()

	err = scheduler.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Try to start again
	err = scheduler.Start(ctx)
	if err == nil {
		t.Error("Expected error when starting already running scheduler")
	}
}

func TestIntervalScheduler_StopNotRunning(t *testing.T) {
	runner := &mockPassRunner{}
	config := Config{
		Interval: 1 * time.Second,
	}

	scheduler, err := NewIntervalScheduler(config, runner)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	// Try to stop without starting
	err = scheduler.Stop()
	if err == nil {
		t.Error("Expected error when stopping non-running scheduler")
	}
}

func TestIntervalScheduler_ContextCancellation(t *testing.T) {
	runner := &mockPassRunner{}
	config := Config{
		Interval: 100 * time.Millisecond,
	}

	scheduler, err := NewIntervalScheduler(config, runner)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	err = scheduler.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}

	// Wait a bit
	time.Sleep(150 * time.Millisecond)

	// Cancel context
	cancel()

	// Wait for scheduler to stop
	time.Sleep(100 * time.Millisecond)

	// Check status
	status := scheduler.Status()
	if status.Running {
		t.Error("Scheduler should stop when context is cancelled")
	}
}

func TestIntervalScheduler_ErrorHandling(t *testing.T) {
	runner := &mockPassRunner{shouldErr: true}
	config := Config{
		Interval: 100 * time.Millisecond,
	}

	scheduler, err := NewIntervalScheduler(config, runner)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = scheduler.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}

	// Wait for at least 2 runs
	time.Sleep(250 * time.Millisecond)

	status := scheduler.Status()
	if status.FailedRuns == 0 {
		t.Error("Expected failed runs when runner returns error")
	}

	if status.LastError == "" {
		t.Error("Expected last error to be set")
	}

	cancel()
	time.Sleep(50 * time.Millisecond)
}

func TestIntervalScheduler_Statistics(t *testing.T) {
	runner := &mockPassRunner{}
	config := Config{
		Interval: 50 * time.Millisecond,
	}

	scheduler, err := NewIntervalScheduler(config, runner)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = scheduler.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}

	// Wait for multiple runs
	time.Sleep(150 * time.Millisecond)

	status := scheduler.Status()

	if status.TotalRuns == 0 {
		t.Error("Expected total runs > 0")
	}

	if status.SuccessfulRuns == 0 {
		t.Error("Expected successful runs > 0")
	}

	if !status.LastRunTime.IsZero() {
		// Last run time should be recent
		if time.Since(status.LastRunTime) > 200*time.Millisecond {
			t.Error("Last run time seems too old")
		}
	}

	if status.NextRunTime.IsZero() {
		t.Error("Next run time should be set")
	}

	cancel()
	time.Sleep(50 * time.Millisecond)
}

func TestIntervalScheduler_RunOnStart(t *testing.T) {
	runner := &mockPassRunner{}
	config := Config{
		Interval:   time.Hour,
		RunOnStart: true,
	}

	scheduler, err := NewIntervalScheduler(config, runner)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	deadline := time.Now().Add(time.Second)
	for runner.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if runner.calls.Load() != 1 {
		t.Errorf("Expected exactly one pass on start, got %d", runner.calls.Load())
	}
}

func TestIntervalScheduler_SkipsLockedPasses(t *testing.T) {
	runner := &mockPassRunner{err: fmt.Errorf("destination /dst: %w", domain.ErrSyncInProgress)}
	config := Config{
		Interval: 50 * time.Millisecond,
	}

	scheduler, err := NewIntervalScheduler(config, runner)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}

	time.Sleep(130 * time.Millisecond)
	cancel()
	<-scheduler.Done()

	status := scheduler.Status()
	if status.SkippedRuns == 0 {
		t.Error("Expected skipped runs while the destination is locked")
	}
	if status.FailedRuns != 0 || status.LastError != "" {
		t.Errorf("Locked passes must not count as failures: %+v", status)
	}
}

func TestIntervalScheduler_NoOverlap(t *testing.T) {
	var active, maxActive atomic.Int32
	runner := PassRunnerFunc(func(ctx context.Context) error {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(40 * time.Millisecond)
		return nil
	})

	scheduler, err := NewIntervalScheduler(Config{Interval: 10 * time.Millisecond}, runner)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	if err := scheduler.Stop(); err != nil {
		t.Fatalf("Failed to stop scheduler: %v", err)
	}

	if maxActive.Load() != 1 {
		t.Errorf("Expected passes to run one at a time, saw %d concurrently", maxActive.Load())
	}
	if err := scheduler.Start(context.Background()); err == nil {
		t.Error("Expected error when restarting a stopped scheduler")
	}
}
