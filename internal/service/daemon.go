package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Ning0612/Mirrorsync/internal/daemon"
	"github.com/Ning0612/Mirrorsync/internal/logger"
	"github.com/Ning0612/Mirrorsync/internal/scheduler"
	"github.com/Ning0612/Mirrorsync/internal/state"
)

// DaemonService runs mirror passes on a fixed interval
type DaemonService struct {
	mu        sync.RWMutex
	mirror    *MirrorService
	stateMgr  *state.Manager
	pidFile   *daemon.PIDFile
	log       logger.Logger
	scheduler *scheduler.IntervalScheduler
}

// DaemonStatus represents the current daemon status
type DaemonStatus struct {
	Running        bool
	SchedulerStats *scheduler.Status
	LastPass       *state.PassRecord
}

// NewDaemonService creates a new daemon service.
// stateMgr and pidFile are optional.
func NewDaemonService(mirror *MirrorService, stateMgr *state.Manager, pidFile *daemon.PIDFile, log logger.Logger) (*DaemonService, error) {
	if mirror == nil {
		return nil, fmt.Errorf("mirror service cannot be nil")
	}
	if err := mirror.Config().Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = &logger.NullLogger{}
	}

	return &DaemonService{
		mirror:   mirror,
		stateMgr: stateMgr,
		pidFile:  pidFile,
		log:      log,
	}, nil
}

// Start starts the scheduler in the background.
// The daemon stops when ctx is cancelled or Stop is called.
func (d *DaemonService) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.scheduler != nil {
		return fmt.Errorf("daemon is already running")
	}

	cfg := d.mirror.Config()
	sched, err := scheduler.NewIntervalScheduler(scheduler.Config{
		Interval:   cfg.Interval,
		RunOnStart: cfg.RunOnStart,
	}, d.mirror)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	if d.pidFile != nil {
		if err := d.pidFile.Write(); err != nil {
			return err
		}
	}

	if err := sched.Start(ctx); err != nil {
		d.removePIDFile()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	d.scheduler = sched

	d.log.Info("daemon started",
		"source", cfg.Source,
		"destination", cfg.Destination,
		"interval", cfg.Interval,
		"run_on_start", cfg.RunOnStart,
	)
	return nil
}

// Wait blocks until the scheduling loop exits
func (d *DaemonService) Wait() {
	d.mu.RLock()
	sched := d.scheduler
	d.mu.RUnlock()

	if sched != nil {
		<-sched.Done()
	}
}

// Stop stops the daemon, letting a pass in progress finish first
func (d *DaemonService) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.scheduler == nil {
		return fmt.Errorf("daemon is not running")
	}

	// 排程器可能已因 ctx 取消而自行結束，此時 Stop 回傳的錯誤可忽略
	d.scheduler.Stop()
	<-d.scheduler.Done()

	stats := d.scheduler.Status()
	d.scheduler = nil
	d.removePIDFile()

	d.log.Info("daemon stopped",
		"total_runs", stats.TotalRuns,
		"failed_runs", stats.FailedRuns,
		"skipped_runs", stats.SkippedRuns,
	)
	return nil
}

// Status returns the current daemon status
func (d *DaemonService) Status() *DaemonStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := &DaemonStatus{}
	if d.scheduler != nil {
		status.SchedulerStats = d.scheduler.Status()
		status.Running = status.SchedulerStats.Running
	}

	// Get last pass for this destination from history
	if d.stateMgr != nil {
		history, err := d.stateMgr.GetHistory(d.mirror.Config().Destination, 1)
		if err == nil && len(history) > 0 {
			status.LastPass = &history[0]
		}
	}

	return status
}

func (d *DaemonService) removePIDFile() {
	if d.pidFile == nil {
		return
	}
	if err := d.pidFile.Remove(); err != nil && !errors.Is(err, daemon.ErrNotRunning) {
		d.log.Warn("failed to remove PID file", "path", d.pidFile.Path(), "error", err)
	}
}
