// Package configcmd implements "trendline config".
package configcmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/trendline/config"
	clicfg "github.com/rustyeddy/trendline/internal/cli/config"
)

func New(rc *clicfg.RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create and check configuration files",
	}
	cmd.AddCommand(newInitCmd(), newValidateCmd(rc), newShowCmd(rc))
	return cmd
}

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write the default configuration (YAML for .yaml/.yml, JSON otherwise)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := config.Default().SaveToFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newValidateCmd(rc *clicfg.RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Load and validate a configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				rc.ConfigPath = args[0]
			}
			cfg, err := rc.Config()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d instruments (%v), timeframe %s, dry_run=%t, source=%s\n",
				len(cfg.Instruments), cfg.Symbols(), cfg.Timeframe, cfg.DryRun, cfg.PositionSource)
			return nil
		},
	}
}

func newShowCmd(rc *clicfg.RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML, secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.Config()
			if err != nil {
				return err
			}
			c := *cfg
			c.Exchange.APIKey = mask(c.Exchange.APIKey)
			c.Exchange.APISecret = mask(c.Exchange.APISecret)
			c.Telegram.Token = mask(c.Telegram.Token)

			b, err := yaml.Marshal(&c)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}
