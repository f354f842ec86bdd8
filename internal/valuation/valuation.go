// Package valuation classifies quote observations against their predecessors.
package valuation

import (
	"time"

	"quote-tracker/internal/models"
)

// BaselinePrice is the previous price assumed for a symbol's first observation.
// A first positive price therefore classifies as up.
const BaselinePrice = 0.0

// Classify compares a new price with the previous one.
// NaN on either side classifies as same.
func Classify(newPrice, previousPrice float64) models.Status {
	switch {
	case newPrice > previousPrice:
		return models.StatusUp
	case newPrice < previousPrice:
		return models.StatusDown
	default:
		return models.StatusSame
	}
}

// Observe annotates a quote with its status against the prior observation.
// When hasPrior is false the prior is ignored and BaselinePrice is used.
func Observe(q models.Quote, prior models.Observation, hasPrior bool) models.Observation {
	previous := BaselinePrice
	if hasPrior {
		previous = prior.Quote.Price
	}
	return models.Observation{
		Quote:      q,
		Status:     Classify(q.Price, previous),
		ObservedAt: observedAt(q),
	}
}

func observedAt(q models.Quote) time.Time {
	if !q.FetchedAt.IsZero() {
		return q.FetchedAt
	}
	return time.Now()
}
