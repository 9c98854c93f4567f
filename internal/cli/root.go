package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/trendline/config"
	"github.com/rustyeddy/trendline/internal/cli/analyze"
	"github.com/rustyeddy/trendline/internal/cli/backtest"
	clicfg "github.com/rustyeddy/trendline/internal/cli/config"
	"github.com/rustyeddy/trendline/internal/cli/configcmd"
	"github.com/rustyeddy/trendline/internal/cli/data"
	"github.com/rustyeddy/trendline/internal/cli/journalcmd"
	"github.com/rustyeddy/trendline/internal/cli/live"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

func NewRootCmd() *cobra.Command {
	rc := &clicfg.RootConfig{}

	cmd := &cobra.Command{
		Use:           "trendline",
		Short:         "Trendline: Supertrend/HMA signals, backtests and a live monitor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global / persistent flags
	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (YAML or JSON); defaults are used when empty")
	cmd.PersistentFlags().StringVar(&rc.EnvFile, "env-file", ".env", "Optional .env file with secrets")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().BoolVar(&rc.NoColor, "no-color", false, "Disable colored output")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := clicfg.SetupLogging(cmd.ErrOrStderr(), rc.LogLevel, rc.NoColor); err != nil {
			return err
		}
		return config.LoadEnv(rc.EnvFile)
	}

	// Subcommands
	cmd.AddCommand(
		backtest.New(rc),
		live.NewMonitor(rc),
		live.NewReconcile(rc),
		live.NewCancel(rc),
		analyze.NewSignal(rc),
		analyze.NewCalibrate(rc),
		data.New(rc),
		configcmd.New(rc),
		journalcmd.New(rc),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "trendline (%s)\n", Version)
		},
	})

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
