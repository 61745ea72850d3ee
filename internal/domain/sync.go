package domain

import (
	"errors"
	"time"
)

// ActionType represents what a pass did to a single destination entry
type ActionType string

const (
	ActionMkdir  ActionType = "mkdir"
	ActionCopy   ActionType = "copy"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
	ActionRmdir  ActionType = "rmdir"
	ActionSkip   ActionType = "skip"
	ActionError  ActionType = "error"
)

// IsMutation reports whether the action changed the destination tree
func (a ActionType) IsMutation() bool {
	switch a {
	case ActionMkdir, ActionCopy, ActionUpdate, ActionDelete, ActionRmdir:
		return true
	}
	return false
}

// Event is a single entry of the sync log.
// One is emitted for every create, copy, update and delete, and for every
// entry that was skipped or failed.
type Event struct {
	Time   time.Time
	Action ActionType
	Path   string

	// Bytes is the number of bytes written for copy and update events
	Bytes int64

	// Err is set for skip and error events
	Err error
}

// PassStats provides summary counters for one synchronization pass
type PassStats struct {
	DirsCreated  int
	FilesCopied  int
	FilesUpdated int
	FilesDeleted int
	DirsDeleted  int
	Skipped      int
	Errors       int
	BytesCopied  int64
}

// Mutations returns the number of changes made to the destination
func (s PassStats) Mutations() int {
	return s.DirsCreated + s.FilesCopied + s.FilesUpdated + s.FilesDeleted + s.DirsDeleted
}

// Apply counts ev into the stats
func (s *PassStats) Apply(ev Event) {
	switch ev.Action {
	case ActionMkdir:
		s.DirsCreated++
	case ActionCopy:
		s.FilesCopied++
		s.BytesCopied += ev.Bytes
	case ActionUpdate:
		s.FilesUpdated++
		s.BytesCopied += ev.Bytes
	case ActionDelete:
		s.FilesDeleted++
	case ActionRmdir:
		s.DirsDeleted++
	case ActionSkip:
		s.Skipped++
	case ActionError:
		s.Errors++
	}
}

// PassStatus is the outcome recorded for a pass
type PassStatus string

const (
	PassSuccess PassStatus = "success"
	PassPartial PassStatus = "partial"
	PassFailed  PassStatus = "failed"
)

// IsValid checks if the status is a known value
func (s PassStatus) IsValid() bool {
	switch s {
	case PassSuccess, PassPartial, PassFailed:
		return true
	}
	return false
}

// PassResult describes a completed (or aborted) synchronization pass
type PassResult struct {
	Source      string
	Destination string
	StartTime   time.Time
	EndTime     time.Time
	Stats       PassStats

	// Errors holds every entry-level failure that was contained during the pass
	Errors []error
}

// Err joins the contained entry errors, or returns nil for a clean pass
func (r *PassResult) Err() error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}
	return errors.Join(r.Errors...)
}

// Duration returns how long the pass ran
func (r *PassResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Status derives the pass status from the contained errors and the pass error
func (r *PassResult) Status(passErr error) PassStatus {
	if passErr != nil {
		return PassFailed
	}
	if r != nil && len(r.Errors) > 0 {
		return PassPartial
	}
	return PassSuccess
}
