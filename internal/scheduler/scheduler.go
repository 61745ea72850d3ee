package scheduler

import (
	"context"
	"time"
)

// Scheduler defines the interface for pass schedulers
type Scheduler interface {
	// Start begins the scheduling loop
	Start(ctx context.Context) error

	// Stop gracefully stops the scheduler
	Stop() error

	// Status returns the current scheduler status
	Status() *Status
}

// Status represents the current state of a scheduler
type Status struct {
	Running        bool
	LastRunTime    time.Time
	NextRunTime    time.Time
	TotalRuns      int
	SuccessfulRuns int
	FailedRuns     int
	SkippedRuns    int
	LastError      string
}

// Config contains scheduler configuration
type Config struct {
	// Interval specifies the duration between two passes
	Interval time.Duration

	// RunOnStart runs a pass as soon as the scheduler starts
	RunOnStart bool
}

// PassRunner is the interface that schedulers use to execute passes
type PassRunner interface {
	// RunPass executes one synchronization pass
	RunPass(ctx context.Context) error
}

// PassRunnerFunc adapts a function to PassRunner
type PassRunnerFunc func(ctx context.Context) error

// RunPass implements PassRunner
func (f PassRunnerFunc) RunPass(ctx context.Context) error {
	return f(ctx)
}
