package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Mirrorsync/internal/adapter/local"
	"github.com/Ning0612/Mirrorsync/internal/core/ignore"
	"github.com/Ning0612/Mirrorsync/internal/service"
)

var errDrift = errors.New("destination does not mirror source")

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [SOURCE DESTINATION]",
		Short: "Compare content digests of both trees without changing anything",
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

			report, err := service.Verify(cmd.Context(), local.NewOS(), cfg.Source, cfg.Destination, ignore.New(cfg.Exclude...))
			if err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), report)
			if !report.OK() {
				return errDrift
			}
			return nil
		},
	}
}

func printReport(w io.Writer, report *service.VerifyReport) {
	if report.OK() {
		fmt.Fprintf(w, "%s %s mirrors %s (%d entries)\n", green("✔"), report.Destination, report.Source, report.Checked)
		return
	}

	fmt.Fprintf(w, "%s %s differs from %s\n", red("✘"), report.Destination, report.Source)
	for _, p := range report.Missing {
		fmt.Fprintf(w, "  %s %s\n", yellow("missing   "), p)
	}
	for _, p := range report.Extra {
		fmt.Fprintf(w, "  %s %s\n", yellow("extra     "), p)
	}
	for _, p := range report.Mismatched {
		fmt.Fprintf(w, "  %s %s\n", yellow("mismatched"), p)
	}
}
