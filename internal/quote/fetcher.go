package quote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	qterrors "quote-tracker/internal/errors"
	"quote-tracker/internal/httpx"
	"quote-tracker/internal/logging"
	"quote-tracker/internal/models"
	"quote-tracker/pkg/utils"
)

// DefaultBaseURL is the quote page root; the symbol code is appended as a path segment.
const DefaultBaseURL = "https://www.google.com/finance/quote"

// MaxBodyBytes caps a quote page; larger pages fail instead of being parsed truncated.
const MaxBodyBytes = 8 << 20

// FetcherConfig configures an HTTPFetcher.
type FetcherConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Retry     utils.RetryConfig
}

// HTTPFetcher fetches quote pages over HTTP.
type HTTPFetcher struct {
	client  *httpx.Client
	baseURL *url.URL
	retry   utils.RetryConfig
	timeout time.Duration
	logger  zerolog.Logger
}

// NewHTTPFetcher creates a fetcher. An unparseable base URL is a configuration error.
func NewHTTPFetcher(cfg FetcherConfig, logger zerolog.Logger) (*HTTPFetcher, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		if err == nil {
			err = fmt.Errorf("missing scheme or host")
		}
		return nil, qterrors.NewFetchError(qterrors.FetchKindURL, raw, err)
	}

	client := httpx.New(cfg.Timeout)
	if cfg.UserAgent != "" {
		client.UserAgent = cfg.UserAgent
	}
	client.Headers = map[string]string{"Accept": "text/html"}

	retry := cfg.Retry
	if retry.MaxAttempts < 1 {
		retry = utils.NoRetry()
	}
	retry.Retryable = qterrors.IsRetryable

	return &HTTPFetcher{
		client:  client,
		baseURL: base,
		retry:   retry,
		timeout: cfg.Timeout,
		logger:  logging.WithComponent(logger, "fetcher"),
	}, nil
}

// URL returns the quote page address for symbol.
func (f *HTTPFetcher) URL(symbol models.Symbol) (string, error) {
	u, err := url.Parse(f.baseURL.String() + "/" + url.PathEscape(symbol.Code))
	if err != nil {
		return "", qterrors.NewFetchError(qterrors.FetchKindURL, symbol.Key, err)
	}
	return u.String(), nil
}

// Fetch returns the markup of the quote page for symbol.
func (f *HTTPFetcher) Fetch(ctx context.Context, symbol models.Symbol) (string, error) {
	target, err := f.URL(symbol)
	if err != nil {
		return "", err
	}
	return utils.RetryWithResult(ctx, f.retry, func(ctx context.Context) (string, error) {
		return f.fetchOnce(ctx, symbol, target)
	})
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, symbol models.Symbol, target string) (markup string, err error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		logging.LogAPICall(f.logger, http.MethodGet, target, time.Since(start), err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", qterrors.NewFetchError(qterrors.FetchKindURL, symbol.Key, err)
	}

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		return "", qterrors.NewFetchError(qterrors.FetchKindTransport, symbol.Key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", qterrors.NewStatusError(symbol.Key, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return "", qterrors.NewFetchError(qterrors.FetchKindBody, symbol.Key, err)
	}
	if len(body) > MaxBodyBytes {
		return "", qterrors.NewFetchError(qterrors.FetchKindBody, symbol.Key, qterrors.ErrBodyTooLarge)
	}
	return string(body), nil
}
