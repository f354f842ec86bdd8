package cli

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"quote-tracker/internal/config"
	"quote-tracker/internal/models"
	"quote-tracker/internal/notify"
)

// collectSink keeps observations for JSON output.
type collectSink struct {
	mu   sync.Mutex
	seen []models.Observation
}

func (s *collectSink) Emit(obs models.Observation) {
	s.mu.Lock()
	s.seen = append(s.seen, obs)
	s.mu.Unlock()
}

type quoteJSON struct {
	Symbol  string  `json:"symbol"`
	Code    string  `json:"code"`
	Company string  `json:"company"`
	Price   float64 `json:"price"`
	Status  string  `json:"status"`
	Fetched string  `json:"fetched_at"`
}

func newQuoteCmd(app *App) *cobra.Command {
	d := config.Default()

	cmd := &cobra.Command{
		Use:   "quote <code>...",
		Short: "Fetch the given codes once and print their quotes",
		Example: `  quote-tracker quote BBCA:IDX AAPL:NASDAQ
  quote-tracker quote TLKM:IDX --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Config.Poll.Codes = strings.Join(args, ",")
			if err := app.Config.Validate(); err != nil {
				return err
			}
			return runQuote(cmd.Context(), app, cmd)
		},
	}

	cmd.Flags().BoolP("use-async", "u", false, "fetch codes concurrently")
	cmd.Flags().Int("timeout", d.Fetch.TimeoutSec, "per-request timeout in seconds")
	cmd.Flags().Int("retries", d.Fetch.Retries, "extra attempts for transport failures and 5xx responses")
	cmd.Flags().String("base-url", d.Fetch.BaseURL, "quote page base URL")

	return cmd
}

// runQuote performs a single tick over a fresh store, so every printed
// observation is a first observation.
func runQuote(ctx context.Context, app *App, cmd *cobra.Command) error {
	output := NewOutput(cmd)

	c, err := buildComponents(app.Config, cmd.OutOrStdout(), app.Logger)
	if err != nil {
		return err
	}
	defer c.store.Close()

	collected := &collectSink{}
	if output.IsJSON() {
		c.sink = notify.NewMultiSink(collected, notify.NewLogSink(app.Logger))
	}

	coord, err := newCoordinator(app.Config, c, app.Logger)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	<-coord.Tick(ctx)

	if !output.IsJSON() {
		return nil
	}
	quotes := make([]quoteJSON, 0, len(collected.seen))
	for _, obs := range collected.seen {
		quotes = append(quotes, quoteJSON{
			Symbol:  obs.Key(),
			Code:    obs.Quote.Symbol.Code,
			Company: obs.Quote.CompanyName,
			Price:   obs.Quote.Price,
			Status:  obs.Status.String(),
			Fetched: obs.Quote.FetchedAt.Format(time.RFC3339),
		})
	}
	return output.JSON(quotes)
}
