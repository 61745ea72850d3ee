package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Ning0612/Mirrorsync/internal/config"
	"github.com/Ning0612/Mirrorsync/internal/logger"
	"github.com/Ning0612/Mirrorsync/internal/version"
)

var (
	red    = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green  = color.New(color.FgHiGreen).SprintFunc()
	yellow = color.New(color.FgHiYellow).SprintFunc()
	cyan   = color.New(color.FgHiCyan).SprintFunc()
)

// flagKeys maps persistent flags to configuration keys
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"state-dir":  "settings.state_dir",
	"exclude":    "exclude",
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mirrorsync",
		Short:         "Keep a destination directory identical to a source directory",
		Version:       version.Detailed(),
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.SortFlags = false
	flags.StringP("config", "c", "", "config file (default: search ./config.yaml and the user config dir)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text, json")
	flags.String("state-dir", "", "directory for history, locks and the PID file")
	flags.StringSlice("exclude", nil, "gitignore-style pattern to leave untouched (repeatable)")

	rootCmd.AddCommand(
		newRunCmd(),
		newSyncCmd(),
		newVerifyCmd(),
		newHistoryCmd(),
		newStopCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func main() {
	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		rootCmd.PrintErrln(red("Error:"), err)
		stop()
		os.Exit(1)
	}
}

// loadConfig merges defaults, the config file, MIRRORSYNC_* variables,
// persistent flags and set, in increasing order of precedence
func loadConfig(cmd *cobra.Command, set map[string]string) (*config.Config, error) {
	v := config.NewViper()
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	for key, value := range set {
		v.Set(key, value)
	}

	path, _ := cmd.Flags().GetString("config")
	return config.Load(v, path)
}

// newLogger builds the sync log; callers must Shutdown it
func newLogger(cfg *config.Config) (logger.Logger, error) {
	return logger.New(cfg.LoggerConfig())
}

// positional maps args onto configuration keys; missing args leave keys unset
func positional(keys []string, args []string) map[string]string {
	set := make(map[string]string, len(args))
	for i, arg := range args {
		if i < len(keys) {
			set[keys[i]] = arg
		}
	}
	return set
}

// allOrNone accepts either no positional args or exactly n
func allOrNone(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != n {
			return cobra.ExactArgs(n)(cmd, args)
		}
		return nil
	}
}
