package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Mirrorsync/internal/daemon"
	"github.com/Ning0612/Mirrorsync/internal/service"
	"github.com/Ning0612/Mirrorsync/internal/state"
)

func newRunCmd() *cobra.Command {
	var runOnStart bool

	cmd := &cobra.Command{
		Use:   "run [SOURCE DESTINATION INTERVAL_SECONDS LOG_PATH]",
		Short: "Mirror SOURCE into DESTINATION every interval until interrupted",
		Long: `Run a synchronization pass every interval until SIGINT or SIGTERM.

All four arguments may instead come from the config file or from
MIRRORSYNC_SOURCE, MIRRORSYNC_DESTINATION, MIRRORSYNC_INTERVAL and
MIRRORSYNC_LOG_PATH. A bare interval is in seconds; "90s" or "5m" also work.`,
		Args: allOrNone(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			set := positional([]string{"source", "destination", "interval", "log.path"}, args)
			if cmd.Flags().Changed("run-on-start") {
				set["run_on_start"] = fmt.Sprint(runOnStart)
			}

			cfg, err := loadConfig(cmd, set)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
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

			d, err := service.NewDaemonService(mirror, store, daemon.NewPIDFile(cfg.GetPIDPath()), log)
			if err != nil {
				return err
			}
			if err := d.Start(cmd.Context()); err != nil {
				return err
			}

			// 直到收到訊號才結束
			d.Wait()
			return d.Stop()
		},
	}

	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run a pass immediately instead of after the first interval")
	return cmd
}
