package mirror

import (
	"context"
	"fmt"

	"github.com/Ning0612/Mirrorsync/internal/domain"
)

// RemoveTree deletes directory and everything below it.
//
// Files are removed first, one delete event each, then the emptied
// directory itself. The first failure is returned and leaves the tree
// partially removed.
func (r *Reconciler) RemoveTree(ctx context.Context, directory string) error {
	return r.removeTree(ctx, directory, func(ev domain.Event) { r.emit(&ev) })
}

func (r *Reconciler) removeTree(ctx context.Context, directory string, record func(domain.Event)) error {
	entries, err := r.fs.List(ctx, directory)
	if err != nil {
		return fmt.Errorf("list %s: %w", directory, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		if entry.IsDir() {
			if err := r.removeTree(ctx, entry.Path, record); err != nil {
				return err
			}
			continue
		}

		if err := r.fs.Delete(ctx, entry.Path); err != nil {
			return fmt.Errorf("delete %s: %w", entry.Path, err)
		}
		record(domain.Event{Action: domain.ActionDelete, Path: entry.Path})
	}

	if err := r.fs.Delete(ctx, directory); err != nil {
		return fmt.Errorf("delete %s: %w", directory, err)
	}
	record(domain.Event{Action: domain.ActionRmdir, Path: directory})
	return nil
}
