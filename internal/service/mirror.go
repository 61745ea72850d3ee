package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Ning0612/Mirrorsync/internal/adapter"
	"github.com/Ning0612/Mirrorsync/internal/adapter/local"
	"github.com/Ning0612/Mirrorsync/internal/config"
	"github.com/Ning0612/Mirrorsync/internal/core/ignore"
	"github.com/Ning0612/Mirrorsync/internal/core/mirror"
	"github.com/Ning0612/Mirrorsync/internal/domain"
	"github.com/Ning0612/Mirrorsync/internal/lock"
	"github.com/Ning0612/Mirrorsync/internal/logger"
	"github.com/Ning0612/Mirrorsync/internal/progress"
	"github.com/Ning0612/Mirrorsync/internal/state"
)

// MirrorService runs synchronization passes for one source/destination pair
type MirrorService struct {
	config     *config.Config
	fs         adapter.Filesystem
	log        logger.Logger
	store      *state.Manager
	reporter   progress.Reporter
	lock       *lock.PassLock
	matcher    *ignore.Matcher
	reconciler *mirror.Reconciler
}

// Option configures a MirrorService
type Option func(*MirrorService)

// WithFilesystem replaces the local OS filesystem
func WithFilesystem(fs adapter.Filesystem) Option {
	return func(s *MirrorService) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithLogger sets the logger for passes and summaries
func WithLogger(l logger.Logger) Option {
	return func(s *MirrorService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithStore records every pass in the history database
func WithStore(store *state.Manager) Option {
	return func(s *MirrorService) {
		s.store = store
	}
}

// WithReporter receives the sync log of every pass
func WithReporter(rep progress.Reporter) Option {
	return func(s *MirrorService) {
		if rep != nil {
			s.reporter = rep
		}
	}
}

// NewMirrorService creates a new mirror service
func NewMirrorService(cfg *config.Config, opts ...Option) (*MirrorService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.ValidateTrees(); err != nil {
		return nil, err
	}

	s := &MirrorService{
		config:   cfg,
		fs:       local.NewOS(),
		log:      &logger.NullLogger{},
		reporter: progress.NullReporter{},
		matcher:  ignore.New(cfg.Exclude...),
	}
	for _, opt := range opts {
		opt(s)
	}

	passLock, err := lock.New(cfg.GetLockDir(), cfg.Destination)
	if err != nil {
		return nil, fmt.Errorf("failed to create pass lock: %w", err)
	}
	s.lock = passLock

	s.reconciler = mirror.New(s.fs,
		mirror.WithLogger(s.log),
		mirror.WithMatcher(s.matcher),
		mirror.WithReporter(s.reporter),
	)

	return s, nil
}

// Config returns the service configuration
func (s *MirrorService) Config() *config.Config {
	return s.config
}

// Sync runs one pass under the destination's pass lock, records it and logs
// a summary. A held lock yields an error matching domain.ErrSyncInProgress.
func (s *MirrorService) Sync(ctx context.Context) (*domain.PassResult, error) {
	log := s.log.With("source", s.config.Source, "destination", s.config.Destination)

	if err := s.lock.TryAcquire(); err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			log.Warn("pass skipped, destination is busy", "error", err)
		} else {
			log.Error("failed to acquire pass lock", "error", err)
		}
		return nil, err
	}
	defer func() {
		if err := s.lock.Release(); err != nil {
			log.Error("failed to release pass lock", "error", err)
		}
	}()

	log.Debug("pass started")
	result, passErr := s.reconciler.Synchronize(ctx, s.config.Source, s.config.Destination)

	s.save(log, result, passErr)
	s.summarize(log, result, passErr)

	return result, passErr
}

// RunPass implements scheduler.PassRunner.
// Contained entry errors do not fail the pass; they are in the history record.
func (s *MirrorService) RunPass(ctx context.Context) error {
	_, err := s.Sync(ctx)
	return err
}

func (s *MirrorService) save(log logger.Logger, result *domain.PassResult, passErr error) {
	if s.store == nil || result == nil {
		return
	}
	if _, err := s.store.SaveRecord(state.NewRecord(result, passErr)); err != nil {
		log.Error("failed to save pass record", "error", err)
	}
}

func (s *MirrorService) summarize(log logger.Logger, result *domain.PassResult, passErr error) {
	if result == nil {
		return
	}

	stats := result.Stats
	args := []any{
		"status", result.Status(passErr),
		"created", stats.DirsCreated,
		"copied", stats.FilesCopied,
		"updated", stats.FilesUpdated,
		"deleted", stats.FilesDeleted + stats.DirsDeleted,
		"skipped", stats.Skipped,
		"errors", len(result.Errors),
		"bytes", humanize.Bytes(uint64(stats.BytesCopied)),
		"duration", result.Duration().Round(time.Millisecond),
	}

	switch {
	case passErr != nil:
		log.Error("pass failed", append(args, "error", passErr)...)
	case len(result.Errors) > 0:
		log.Warn("pass completed with errors", args...)
	case stats.Mutations() == 0:
		log.Info("pass completed, already in sync", args...)
	default:
		log.Info("pass completed", args...)
	}
}
