package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Ning0612/Mirrorsync/internal/domain"
	"github.com/Ning0612/Mirrorsync/internal/service"
	"github.com/Ning0612/Mirrorsync/internal/state"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [SOURCE DESTINATION]",
		Short: "Run a single synchronization pass",
		Args:  allOrNone(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, positional([]string{"source", "destination"}, args))
			if err != nil {
				return err
			}
			if err := cfg.ValidateTrees(); err != nil {
				return err
			}
			cmd.SilenceUsage = true

			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Shutdown()

			store, err := state.Open(cfg.GetDatabasePath())
			if err != nil {
				return err
			}
			defer store.Close()

			mirror, err := service.NewMirrorService(cfg,
				service.WithLogger(log),
				service.WithStore(store),
			)
			if err != nil {
				return err
			}

			result, err := mirror.Sync(cmd.Context())
			if err != nil {
				return err
			}

			printResult(cmd.OutOrStdout(), result)
			if n := len(result.Errors); n > 0 {
				return fmt.Errorf("pass completed with %d error(s)", n)
			}
			return nil
		},
	}
}

func printResult(w io.Writer, result *domain.PassResult) {
	stats := result.Stats
	if len(result.Errors) == 0 {
		fmt.Fprintf(w, "%s %s -> %s\n", green("✔"), result.Source, result.Destination)
	} else {
		fmt.Fprintf(w, "%s %s -> %s\n", yellow("!"), result.Source, result.Destination)
	}

	fmt.Fprintf(w, "  created %d, copied %d, updated %d, deleted %d, skipped %d (%s in %s)\n",
		stats.DirsCreated,
		stats.FilesCopied,
		stats.FilesUpdated,
		stats.FilesDeleted+stats.DirsDeleted,
		stats.Skipped,
		humanize.Bytes(uint64(stats.BytesCopied)),
		result.Duration().Round(time.Millisecond),
	)

	for _, err := range result.Errors {
		fmt.Fprintf(w, "  %s %v\n", red("✘"), err)
	}
}
