package cli

import (
	"io"

	"github.com/rs/zerolog"

	"quote-tracker/internal/config"
	"quote-tracker/internal/notify"
	"quote-tracker/internal/poller"
	"quote-tracker/internal/quote"
	"quote-tracker/internal/store"
	"quote-tracker/pkg/utils"
)

// components are the collaborators a coordinator is built from.
type components struct {
	fetcher   *quote.HTTPFetcher
	extractor *quote.HTMLExtractor
	store     store.ValuationStore
	sink      notify.Sink
}

func retryConfig(cfg *config.Config) utils.RetryConfig {
	if cfg.Fetch.Retries <= 0 {
		return utils.NoRetry()
	}
	retry := utils.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Fetch.Retries + 1
	retry.InitialDelay = cfg.RetryDelay()
	return retry
}

// buildComponents wires fetcher, extractor, store and sinks from cfg.
// Observation lines go to out; the caller owns closing the store.
func buildComponents(cfg *config.Config, out io.Writer, logger zerolog.Logger) (*components, error) {
	fetcher, err := quote.NewHTTPFetcher(quote.FetcherConfig{
		BaseURL:   cfg.Fetch.BaseURL,
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.RequestTimeout(),
		Retry:     retryConfig(cfg),
	}, logger)
	if err != nil {
		return nil, err
	}

	extractor, err := quote.NewHTMLExtractor(cfg.Extract.NameSelector, cfg.Extract.PriceSelector)
	if err != nil {
		return nil, err
	}

	st, err := store.New(cfg.Store.Backend)
	if err != nil {
		return nil, err
	}

	return &components{
		fetcher:   fetcher,
		extractor: extractor,
		store:     st,
		sink:      notify.NewMultiSink(notify.NewConsoleSink(out), notify.NewLogSink(logger)),
	}, nil
}

// newCoordinator builds a coordinator over the configured symbols.
func newCoordinator(cfg *config.Config, c *components, logger zerolog.Logger) (*poller.Coordinator, error) {
	symbols, err := cfg.Symbols()
	if err != nil {
		return nil, err
	}
	return poller.New(poller.Config{
		Symbols:        symbols,
		Interval:       cfg.PollInterval(),
		Mode:           cfg.Mode(),
		WaitForTick:    cfg.Poll.WaitForTick,
		MaxConcurrency: cfg.Poll.MaxConcurrency,
	}, c.fetcher, c.extractor, c.store, c.sink, logger)
}
