package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"quote-tracker/internal/config"
	qterrors "quote-tracker/internal/errors"
)

func newTrackCmd(app *App) *cobra.Command {
	d := config.Default()

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Poll the configured symbols until interrupted",
		Long: `Poll every configured symbol once per interval and print one line per
successful observation:

  BBCA - PT Bank Central Asia Tbk: 9875 (up)

A failure for one symbol is logged and never stops the others.
Press Ctrl+C to stop.`,
		Example: `  quote-tracker track
  quote-tracker track -c BBCA:IDX,TLKM:IDX -i 30 --use-async
  QT_POLL_INTERVAL=60 quote-tracker track --store sqlite`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTrack(ctx, app, cmd)
		},
	}

	cmd.Flags().StringP("codes", "c", d.Poll.Codes, "comma-separated SYMBOL:EXCHANGE codes")
	cmd.Flags().IntP("interval", "i", d.Poll.Interval, "seconds between polls")
	cmd.Flags().String("mode", d.Poll.Mode, "dispatch mode (sequential, concurrent)")
	cmd.Flags().BoolP("use-async", "u", false, "fetch symbols concurrently (same as --mode concurrent)")
	cmd.Flags().Bool("wait", false, "in concurrent mode, finish a poll before sleeping")
	cmd.Flags().Int("max-concurrency", 0, "cap on concurrent fetches (0 = one per symbol)")
	cmd.Flags().Int("timeout", d.Fetch.TimeoutSec, "per-request timeout in seconds")
	cmd.Flags().Int("retries", d.Fetch.Retries, "extra attempts for transport failures and 5xx responses")
	cmd.Flags().String("base-url", d.Fetch.BaseURL, "quote page base URL")
	cmd.Flags().String("store", d.Store.Backend, "valuation store backend (memory, sqlite)")

	return cmd
}

func runTrack(ctx context.Context, app *App, cmd *cobra.Command) error {
	c, err := buildComponents(app.Config, cmd.OutOrStdout(), app.Logger)
	if err != nil {
		return err
	}
	defer c.store.Close()

	coord, err := newCoordinator(app.Config, c, app.Logger)
	if err != nil {
		return err
	}

	// Run drains in-flight cycles before returning, so the deferred Close
	// never races a commit.
	if err := coord.Run(ctx); err != nil && !qterrors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
