package valuation

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"quote-tracker/internal/models"
)

// Property: Classify orders prices and never panics on non-comparable input.
func TestProperty_ClassifyOrdersPrices(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	priceGen := gen.Float64Range(0, 1e7)

	properties.Property("a > b is up, a < b is down", prop.ForAll(
		func(a, b float64) bool {
			got := Classify(a, b)
			switch {
			case a > b:
				return got == models.StatusUp
			case a < b:
				return got == models.StatusDown
			default:
				return got == models.StatusSame
			}
		},
		priceGen,
		priceGen,
	))

	properties.Property("equal prices are same", prop.ForAll(
		func(a float64) bool {
			return Classify(a, a) == models.StatusSame
		},
		priceGen,
	))

	properties.Property("NaN on either side is same", prop.ForAll(
		func(a float64) bool {
			nan := math.NaN()
			return Classify(nan, a) == models.StatusSame &&
				Classify(a, nan) == models.StatusSame &&
				Classify(nan, nan) == models.StatusSame
		},
		priceGen,
	))

	properties.TestingRun(t)
}

func TestObserve_FirstObservationUsesBaseline(t *testing.T) {
	q := models.Quote{Symbol: models.Symbol{Code: "BBCA:IDX", Key: "BBCA"}, Price: 15000, HasPrice: true}

	obs := Observe(q, models.Observation{}, false)
	assert.Equal(t, models.StatusUp, obs.Status)
	assert.False(t, obs.ObservedAt.IsZero())

	zero := Observe(models.Quote{Price: 0}, models.Observation{}, false)
	assert.Equal(t, models.StatusSame, zero.Status)
}

func TestObserve_ComparesWithPrior(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	prior := models.Observation{Quote: models.Quote{Price: 15000}, Status: models.StatusUp}

	up := Observe(models.Quote{Price: 16000, FetchedAt: at}, prior, true)
	assert.Equal(t, models.StatusUp, up.Status)
	assert.Equal(t, at, up.ObservedAt)

	down := Observe(models.Quote{Price: 14000}, prior, true)
	assert.Equal(t, models.StatusDown, down.Status)

	same := Observe(models.Quote{Price: 15000}, prior, true)
	assert.Equal(t, models.StatusSame, same.Status)
}
