package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Mirrorsync/internal/daemon"
)

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Ask the running daemon to finish its current pass and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			pid, err := daemon.NewPIDFile(cfg.GetPIDPath()).Stop()
			if errors.Is(err, daemon.ErrNotRunning) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s daemon is not running\n", yellow("!"))
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s sent stop signal to PID %s\n", green("✔"), cyan(pid))
			return nil
		},
	}
}
