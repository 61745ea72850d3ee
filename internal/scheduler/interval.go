package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Ning0612/Mirrorsync/internal/domain"
)

// IntervalScheduler implements periodic scheduling using time.Ticker.
// Passes run one at a time on the scheduler goroutine: a pass longer than
// the interval delays the next tick instead of overlapping it.
type IntervalScheduler struct {
	config Config
	runner PassRunner

	// Runtime state
	mu          sync.RWMutex
	running     bool
	stopped     bool      // Track if stopped to prevent restart
	stopOnce    sync.Once // Ensure Stop() is idempotent
	closeOnce   sync.Once // Ensure stoppedChan is closed exactly once
	stopChan    chan struct{}
	stoppedChan chan struct{}

	// Statistics
	stats struct {
		lastRunTime    time.Time
		nextRunTime    time.Time
		totalRuns      int
		successfulRuns int
		failedRuns     int
		skippedRuns    int
		lastError      string
	}
}

// NewIntervalScheduler creates a new interval-based scheduler
func NewIntervalScheduler(config Config, runner PassRunner) (*IntervalScheduler, error) {
	if config.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", config.Interval)
	}

	if runner == nil {
		return nil, fmt.Errorf("pass runner cannot be nil")
	}

	return &IntervalScheduler{
		config:      config,
		runner:      runner,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}, nil
}

// Start begins the scheduling loop
func (s *IntervalScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	if s.stopped {
		return fmt.Errorf("scheduler cannot be restarted after stop")
	}

	s.running = true
	s.stats.nextRunTime = time.Now().Add(s.config.Interval)
	if s.config.RunOnStart {
		s.stats.nextRunTime = time.Now()
	}

	// Start the scheduling loop in a goroutine
	go s.run(ctx)

	return nil
}

// Done is closed once the scheduling loop has exited
func (s *IntervalScheduler) Done() <-chan struct{} {
	return s.stoppedChan
}

// run is the main scheduling loop
func (s *IntervalScheduler) run(ctx context.Context) {
	// Ensure stoppedChan is closed exactly once and stopped flag is set
	defer s.closeOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.running = false
		s.mu.Unlock()
		close(s.stoppedChan)
	})

	if s.config.RunOnStart {
		s.executePass(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Context cancelled - return gracefully
			return
		case <-s.stopChan:
			// Stop requested - return gracefully
			return
		case <-ticker.C:
			// Execute pass on schedule
			s.executePass(ctx)
		}
	}
}

// executePass runs a single pass and records its outcome
func (s *IntervalScheduler) executePass(ctx context.Context) {
	s.mu.Lock()
	s.stats.lastRunTime = time.Now()
	s.stats.totalRuns++
	s.mu.Unlock()

	err := s.runner.RunPass(ctx)

	// Update statistics
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.nextRunTime = time.Now().Add(s.config.Interval)
	switch {
	case err == nil:
		s.stats.successfulRuns++
		s.stats.lastError = ""
	case errors.Is(err, domain.ErrSyncInProgress):
		// Another process holds the destination; try again next tick
		s.stats.skippedRuns++
	default:
		s.stats.failedRuns++
		s.stats.lastError = err.Error()
	}
}

// Stop gracefully stops the scheduler
// A pass in progress is allowed to finish or observe ctx cancellation first.
func (s *IntervalScheduler) Stop() error {
	s.mu.RLock()
	if !s.running {
		s.mu.RUnlock()
		return fmt.Errorf("scheduler is not running")
	}
	s.mu.RUnlock()

	// Use sync.Once to ensure stop channel is closed only once
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})

	// Wait for scheduler to stop
	<-s.stoppedChan

	// Mark as stopped to prevent restart
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	return nil
}

// Status returns the current scheduler status
func (s *IntervalScheduler) Status() *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Status{
		Running:        s.running,
		LastRunTime:    s.stats.lastRunTime,
		NextRunTime:    s.stats.nextRunTime,
		TotalRuns:      s.stats.totalRuns,
		SuccessfulRuns: s.stats.successfulRuns,
		FailedRuns:     s.stats.failedRuns,
		SkippedRuns:    s.stats.skippedRuns,
		LastError:      s.stats.lastError,
	}
}
