package live

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	clicfg "github.com/rustyeddy/trendline/internal/cli/config"
)

func NewCancel(rc *clicfg.RootConfig) *cobra.Command {
	var symbol string

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel every open order on the configured instruments",
		Long: `Cancels resting orders on the exchange for each configured instrument, or
only --symbol. Positions are left open.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.Config()
			if err != nil {
				return err
			}
			if cfg.Exchange.APIKey == "" || cfg.Exchange.APISecret == "" {
				return fmt.Errorf("cancel needs exchange.api_key and api_secret")
			}
			insts, err := instruments(cfg, symbol)
			if err != nil {
				return err
			}
			client, err := rc.Exchange()
			if err != nil {
				return err
			}

			ctx := context.Background()
			var errs []error
			for _, in := range insts {
				if err := client.CancelAllOrders(ctx, in.Symbol); err != nil {
					log.Error().Err(err).Str("instrument", in.Symbol).Msg("cancel orders")
					errs = append(errs, fmt.Errorf("%s: %w", in.Symbol, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: orders cancelled\n", in.Symbol)
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "Only cancel orders on this instrument")
	return cmd
}
