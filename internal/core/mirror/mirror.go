package mirror

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/Ning0612/Mirrorsync/internal/adapter"
	"github.com/Ning0612/Mirrorsync/internal/core/diff"
	"github.com/Ning0612/Mirrorsync/internal/core/ignore"
	"github.com/Ning0612/Mirrorsync/internal/domain"
	"github.com/Ning0612/Mirrorsync/internal/logger"
	"github.com/Ning0612/Mirrorsync/internal/progress"
)

// Reconciler makes a destination tree mirror a source tree.
// A Reconciler holds no per-pass state and may be reused across passes,
// but a single destination must not be reconciled by two passes at once.
type Reconciler struct {
	fs       adapter.Filesystem
	log      logger.Logger
	comparer diff.Comparer
	matcher  *ignore.Matcher
	reporter progress.Reporter
	now      func() time.Time
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithLogger sets the logger that receives one line per event
func WithLogger(l logger.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

// WithComparer replaces the byte-for-byte content comparer
func WithComparer(c diff.Comparer) Option {
	return func(r *Reconciler) {
		if c != nil {
			r.comparer = c
		}
	}
}

// WithMatcher excludes matching entries from both trees
func WithMatcher(m *ignore.Matcher) Option {
	return func(r *Reconciler) {
		r.matcher = m
	}
}

// WithReporter sets the reporter that receives every event
func WithReporter(rep progress.Reporter) Option {
	return func(r *Reconciler) {
		if rep != nil {
			r.reporter = rep
		}
	}
}

// New creates a Reconciler operating on fs
func New(fs adapter.Filesystem, opts ...Option) *Reconciler {
	r := &Reconciler{
		fs:       fs,
		log:      &logger.NullLogger{},
		comparer: diff.NewContentComparer(),
		reporter: progress.NullReporter{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// pass carries the state of one Synchronize call
type pass struct {
	r      *Reconciler
	result *domain.PassResult
}

// Synchronize runs one pass making destination mirror source.
//
// Entry-level failures do not stop the pass: they are logged, reported and
// collected in the result, and the remaining entries are still reconciled.
// The returned error is non-nil only when the pass could not run at all
// (source missing or not a directory, overlapping roots) or ctx was
// cancelled; the partial result is returned in the latter case.
func (r *Reconciler) Synchronize(ctx context.Context, source, destination string) (*domain.PassResult, error) {
	result := &domain.PassResult{
		Source:      source,
		Destination: destination,
		StartTime:   r.now(),
	}
	defer func() { result.EndTime = r.now() }()

	info, err := r.fs.Stat(ctx, source)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return result, fmt.Errorf("%w: %s", domain.ErrSourceMissing, source)
		}
		return result, fmt.Errorf("stat source %s: %w", source, err)
	}
	if !info.IsDir() {
		return result, fmt.Errorf("%w: %s", domain.ErrNotDirectory, source)
	}
	if overlaps(source, destination) {
		return result, fmt.Errorf("%w: %s and %s", domain.ErrTreesOverlap, source, destination)
	}

	p := &pass{r: r, result: result}
	if err := p.syncDir(ctx, source, destination, ""); err != nil {
		return result, err
	}
	return result, nil
}

// syncDir reconciles one directory pair. rel is the pair's path relative
// to the pass roots, used for exclusion matching.
// Only context errors are returned; everything else is recorded.
func (p *pass) syncDir(ctx context.Context, src, dst, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !p.ensureDir(ctx, dst) {
		return nil
	}

	srcEntries, err := p.r.fs.List(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Without the source listing nothing below dst can be judged extraneous
		kind := domain.ErrListFailed
		if errors.Is(err, domain.ErrNotFound) {
			kind = domain.ErrSourceMissing
		}
		p.fail(kind, src, err)
		return nil
	}

	dstEntries, err := p.r.fs.List(ctx, dst)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.fail(domain.ErrListFailed, dst, err)
		return nil
	}

	srcByName := p.index(srcEntries, rel)
	dstByName := p.index(dstEntries, rel)

	srcNames := nameSet(srcByName)
	dstNames := nameSet(dstByName)

	// Creations and updates
	var common []string
	for _, name := range sortedNames(srcNames) {
		if err := ctx.Err(); err != nil {
			return err
		}

		s := srcByName[name]
		target := filepath.Join(dst, name)
		d, exists := dstByName[name]

		switch {
		case s.IsDir():
			if exists && d.IsDir() {
				common = append(common, name)
				continue
			}
			if exists && !p.removeEntry(ctx, d) {
				continue
			}
			if err := p.syncDir(ctx, s.Path, target, path.Join(rel, name)); err != nil {
				return err
			}

		case s.IsFile():
			if !exists {
				p.copyFile(ctx, s, target, domain.ActionCopy)
				continue
			}
			if !d.IsFile() {
				if p.removeEntry(ctx, d) {
					p.copyFile(ctx, s, target, domain.ActionCopy)
				}
				continue
			}
			p.updateFile(ctx, s, d)

		default:
			p.record(domain.Event{
				Action: domain.ActionSkip,
				Path:   s.Path,
				Err:    fmt.Errorf("unsupported file type %s", s.Type),
			})
		}
	}

	// Deletions
	for _, name := range sortedNames(dstNames.Difference(srcNames)) {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.removeEntry(ctx, dstByName[name])
	}

	// Descent into directories present on both sides, regardless of whether
	// extraneous entries were found at this level
	for _, name := range common {
		if err := p.syncDir(ctx, srcByName[name].Path, filepath.Join(dst, name), path.Join(rel, name)); err != nil {
			return err
		}
	}

	return nil
}

// ensureDir makes dst an existing directory. It reports false when the
// subtree must be skipped.
func (p *pass) ensureDir(ctx context.Context, dst string) bool {
	info, err := p.r.fs.Stat(ctx, dst)
	switch {
	case err == nil && info.IsDir():
		return true
	case err == nil:
		if !p.removeEntry(ctx, info) {
			return false
		}
	case !errors.Is(err, domain.ErrNotFound):
		p.fail(domain.ErrMkdirFailed, dst, err)
		return false
	}

	if err := p.r.fs.Mkdir(ctx, dst); err != nil {
		p.fail(domain.ErrMkdirFailed, dst, err)
		return false
	}
	p.record(domain.Event{Action: domain.ActionMkdir, Path: dst})
	return true
}

// updateFile overwrites dst when its bytes differ from src
func (p *pass) updateFile(ctx context.Context, src, dst domain.FileInfo) {
	equal, err := p.r.comparer.Equal(ctx, p.r.fs, src, dst)
	switch {
	case err == nil:
		if equal {
			return
		}
	case errors.Is(err, diff.ErrDestinationUnreadable) && errors.Is(err, domain.ErrNotFound):
		// Destination vanished after listing; copying recreates it.
	case errors.Is(err, domain.ErrNotFound):
		p.skipMissing(src.Path, err)
		return
	default:
		p.fail(domain.ErrCompareFailed, dst.Path, err)
		return
	}
	p.copyFile(ctx, src, dst.Path, domain.ActionUpdate)
}

// copyFile writes the exact bytes of src to target
func (p *pass) copyFile(ctx context.Context, src domain.FileInfo, target string, action domain.ActionType) {
	rc, err := p.r.fs.Read(ctx, src.Path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			p.skipMissing(src.Path, err)
			return
		}
		p.fail(domain.ErrCopyFailed, target, err)
		return
	}
	defer rc.Close()

	reader := progress.NewProgressReader(rc)
	if _, err := p.r.fs.Write(ctx, target, reader); err != nil {
		p.fail(domain.ErrCopyFailed, target, err)
		return
	}

	p.record(domain.Event{Action: action, Path: target, Bytes: reader.Transferred()})
}

// removeEntry deletes a destination file or directory tree.
// It reports whether the entry is gone.
func (p *pass) removeEntry(ctx context.Context, entry domain.FileInfo) bool {
	var err error
	if entry.IsDir() {
		err = p.r.removeTree(ctx, entry.Path, p.record)
	} else {
		err = p.r.fs.Delete(ctx, entry.Path)
		if err == nil {
			p.record(domain.Event{Action: domain.ActionDelete, Path: entry.Path})
		}
	}

	if err != nil {
		p.fail(domain.ErrDeleteFailed, entry.Path, err)
		return false
	}
	return true
}

// index maps entry names to their info, dropping excluded entries
func (p *pass) index(entries []domain.FileInfo, rel string) map[string]domain.FileInfo {
	byName := make(map[string]domain.FileInfo, len(entries))
	for _, e := range entries {
		if p.r.matcher.Match(path.Join(rel, e.Name), e.IsDir()) {
			p.r.log.Debug("excluded", "path", e.Path)
			continue
		}
		byName[e.Name] = e
	}
	return byName
}

func (p *pass) skipMissing(path string, err error) {
	entryErr := domain.NewEntryError(domain.ErrSourceMissing, path, err)
	p.result.Errors = append(p.result.Errors, entryErr)
	p.record(domain.Event{Action: domain.ActionSkip, Path: path, Err: entryErr})
}

func (p *pass) fail(kind error, path string, err error) {
	entryErr := domain.NewEntryError(kind, path, err)
	p.result.Errors = append(p.result.Errors, entryErr)
	p.record(domain.Event{Action: domain.ActionError, Path: path, Err: entryErr})
}

// record counts ev into the pass stats before emitting it
func (p *pass) record(ev domain.Event) {
	p.r.emit(&ev)
	p.result.Stats.Apply(ev)
}

// emit timestamps, logs and reports a single event
func (r *Reconciler) emit(ev *domain.Event) {
	if ev.Time.IsZero() {
		ev.Time = r.now()
	}

	switch ev.Action {
	case domain.ActionMkdir:
		r.log.Info("created directory", "path", ev.Path)
	case domain.ActionCopy:
		r.log.Info("copied file", "path", ev.Path, "bytes", ev.Bytes)
	case domain.ActionUpdate:
		r.log.Info("updated file", "path", ev.Path, "bytes", ev.Bytes)
	case domain.ActionDelete:
		r.log.Info("deleted file", "path", ev.Path)
	case domain.ActionRmdir:
		r.log.Info("deleted directory", "path", ev.Path)
	case domain.ActionSkip:
		r.log.Warn("skipped", "path", ev.Path, "reason", ev.Err)
	case domain.ActionError:
		r.log.Error("entry failed", "path", ev.Path, "error", ev.Err)
	}

	r.reporter.Record(*ev)
}

func nameSet(byName map[string]domain.FileInfo) mapset.Set[string] {
	s := mapset.NewThreadUnsafeSet[string]()
	for name := range byName {
		s.Add(name)
	}
	return s
}

func sortedNames(s mapset.Set[string]) []string {
	names := s.ToSlice()
	sort.Strings(names)
	return names
}

// overlaps reports whether either root contains the other.
// Relative roots resolve against the working directory first.
func overlaps(a, b string) bool {
	a, b = absPath(a), absPath(b)
	return a == b || within(a, b) || within(b, a)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
