package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Ning0612/Mirrorsync/internal/domain"
	"github.com/Ning0612/Mirrorsync/internal/state"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit int
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent synchronization passes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			store, err := state.Open(cfg.GetDatabasePath())
			if err != nil {
				return err
			}
			defer store.Close()

			destination := cfg.Destination
			if all {
				destination = ""
			}
			records, err := store.GetHistory(destination, limit)
			if err != nil {
				return err
			}

			printHistory(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of passes to show")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "show passes for every destination")
	return cmd
}

func printHistory(w io.Writer, records []state.PassRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no passes recorded")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Started", "Status", "Destination", "Changes", "Copied", "Duration", "Error"})
	for _, r := range records {
		table.Append([]string{
			humanize.Time(r.StartTime),
			statusLabel(r.Status),
			r.Destination,
			strconv.Itoa(r.DirsCreated + r.FilesCopied + r.FilesUpdated + r.FilesDeleted + r.DirsDeleted),
			humanize.Bytes(uint64(r.BytesCopied)),
			r.Duration().String(),
			r.Error,
		})
	}
	table.Render()
}

func statusLabel(s domain.PassStatus) string {
	switch s {
	case domain.PassSuccess:
		return green(string(s))
	case domain.PassPartial:
		return yellow(string(s))
	default:
		return red(string(s))
	}
}
