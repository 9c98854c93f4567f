package live

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/trendline/config"
	"github.com/rustyeddy/trendline/dashboard"
	clicfg "github.com/rustyeddy/trendline/internal/cli/config"
	"github.com/rustyeddy/trendline/monitor"
	"github.com/rustyeddy/trendline/notify"
)

func NewMonitor(rc *clicfg.RootConfig) *cobra.Command {
	var (
		dryRun      bool
		symbol      string
		noDashboard bool
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the live signal loop",
		Long: `Polls the exchange once per interval, feeds each newly closed bar through
the indicators and the position state machine, and places market orders
unless running dry. Signals go to Telegram when enabled and to the log.
The dashboard, when configured, serves /api/data and /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.Config()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dry-run") {
				cfg.DryRun = dryRun
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			insts, err := instruments(cfg, symbol)
			if err != nil {
				return err
			}
			bar, err := config.TimeframeDuration(cfg.Timeframe)
			if err != nil {
				return err
			}
			client, err := rc.Exchange()
			if err != nil {
				return err
			}

			var notifier notify.Notifier = notify.Log{Logger: log.Logger}
			if cfg.Telegram.Enabled {
				tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
				if err != nil {
					return err
				}
				notifier = notify.Multi{tg, notifier}
			}

			opts := monitor.Options{
				Instruments:  insts,
				Resolution:   cfg.Timeframe,
				Bar:          bar,
				History:      cfg.HistoryDuration(),
				DryRun:       cfg.DryRun,
				Fetcher:      client,
				Source:       positionSource(cfg, client, insts),
				Notifier:     notifier,
				Metrics:      monitor.NewMetrics(prometheus.DefaultRegisterer),
				Interval:     cfg.PollInterval(),
				Offset:       cfg.PollOffset(),
				RetryDelay:   cfg.RetryDelay(),
				ReportWindow: 24 * time.Hour,
			}
			if !cfg.DryRun {
				opts.Orders = client
			}
			m, err := monitor.New(opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Dashboard.Addr != "" && !noDashboard {
				srv := &http.Server{
					Addr:              cfg.Dashboard.Addr,
					Handler:           dashboard.NewServer(m, prometheus.DefaultGatherer),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					log.Info().Str("addr", srv.Addr).Msg("dashboard listening")
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error().Err(err).Msg("dashboard stopped")
					}
				}()
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(sctx)
				}()
			}

			return m.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "Log and notify signals without placing orders")
	cmd.Flags().StringVar(&symbol, "symbol", "", "Only monitor this instrument")
	cmd.Flags().BoolVar(&noDashboard, "no-dashboard", false, "Do not start the dashboard server")
	return cmd
}
