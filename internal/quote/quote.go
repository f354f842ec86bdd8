// Package quote fetches quote pages and extracts quotes from their markup.
package quote

import (
	"context"

	"quote-tracker/internal/models"
)

//go:generate mockgen -package=poller_test -destination=../poller/mock_quote_test.go -source=quote.go Fetcher,Extractor

// Fetcher retrieves the raw markup of a symbol's quote page.
type Fetcher interface {
	Fetch(ctx context.Context, symbol models.Symbol) (string, error)
}

// Extractor turns quote page markup into a Quote.
type Extractor interface {
	Extract(markup string, symbol models.Symbol) (models.Quote, error)
}
