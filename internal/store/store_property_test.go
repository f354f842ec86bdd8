package store

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qterrors "quote-tracker/internal/errors"
	"quote-tracker/internal/models"
)

func backends(t *testing.T) map[string]func() ValuationStore {
	t.Helper()
	return map[string]func() ValuationStore{
		BackendMemory: func() ValuationStore { return NewMemoryStore(DefaultShards) },
		BackendSQLite: func() ValuationStore {
			s, err := NewSQLiteStore()
			require.NoError(t, err)
			return s
		},
	}
}

func observation(key string, price float64, status models.Status) models.Observation {
	at := time.Unix(0, time.Now().UnixNano())
	return models.Observation{
		Quote: models.Quote{
			Symbol:      models.Symbol{Code: key + ":IDX", Key: key},
			CompanyName: "Company " + key,
			Price:       price,
			HasPrice:    true,
			FetchedAt:   at,
		},
		Status:     status,
		ObservedAt: at,
	}
}

func assertSameObservation(t *testing.T, want, got models.Observation) {
	t.Helper()
	assert.Equal(t, want.Quote.Symbol, got.Quote.Symbol)
	assert.Equal(t, want.Quote.CompanyName, got.Quote.CompanyName)
	assert.Equal(t, want.Quote.Price, got.Quote.Price)
	assert.Equal(t, want.Quote.HasPrice, got.Quote.HasPrice)
	assert.Equal(t, want.Status, got.Status)
	assert.True(t, want.ObservedAt.Equal(got.ObservedAt), "observed_at %v != %v", want.ObservedAt, got.ObservedAt)
}

func TestStore_NoPrior(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()

			_, ok, err := s.Previous(context.Background(), "BBCA")
			require.NoError(t, err)
			assert.False(t, ok)

			n, err := s.Len(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestStore_ReadYourWrite(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open()
			defer s.Close()

			first := observation("BBCA", 15000, models.StatusUp)
			require.NoError(t, s.Commit(ctx, "BBCA", first))
			got, ok, err := s.Previous(ctx, "BBCA")
			require.NoError(t, err)
			require.True(t, ok)
			assertSameObservation(t, first, got)

			second := observation("BBCA", 14000, models.StatusDown)
			require.NoError(t, s.Commit(ctx, "BBCA", second))
			got, ok, err = s.Previous(ctx, "BBCA")
			require.NoError(t, err)
			require.True(t, ok)
			assertSameObservation(t, second, got)

			n, err := s.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestStore_Snapshot(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open()
			defer s.Close()

			require.NoError(t, s.Commit(ctx, "AAPL", observation("AAPL", 172.5, models.StatusUp)))
			require.NoError(t, s.Commit(ctx, "TLKM", observation("TLKM", 3000, models.StatusSame)))

			snap, err := s.Snapshot(ctx)
			require.NoError(t, err)
			require.Len(t, snap, 2)
			assert.Equal(t, 172.5, snap["AAPL"].Quote.Price)
			assert.Equal(t, models.StatusSame, snap["TLKM"].Status)
		})
	}
}

func TestNew_Backends(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = New("SQLite")
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, _, err = s.Previous(context.Background(), "AAPL")
	assert.ErrorIs(t, err, qterrors.ErrStoreClosed)

	_, err = New("redis")
	assert.ErrorIs(t, err, qterrors.ErrUnknownBackend)
}

// Property: concurrent commits to N distinct symbols leave exactly N entries,
// each holding its last committed observation, whatever the completion order.
func TestProperty_ConcurrentDistinctCommits(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			parameters := gopter.DefaultTestParameters()
			parameters.MinSuccessfulTests = 30
			parameters.Rng.Seed(time.Now().UnixNano())

			properties := gopter.NewProperties(parameters)

			symbolCountGen := gen.IntRange(1, 40)
			commitsPerSymbolGen := gen.IntRange(1, 5)

			properties.Property("N distinct symbols yield N entries matching their last commit", prop.ForAll(
				func(symbolCount, commitsPerSymbol int) bool {
					ctx := context.Background()
					s := open()
					defer s.Close()

					var wg sync.WaitGroup
					for i := 0; i < symbolCount; i++ {
						wg.Add(1)
						go func(i int) {
							defer wg.Done()
							key := fmt.Sprintf("SYM%d", i)
							for c := 1; c <= commitsPerSymbol; c++ {
								time.Sleep(time.Duration(rand.Intn(200)) * time.Microsecond)
								if err := s.Commit(ctx, key, observation(key, float64(i*100+c), models.StatusUp)); err != nil {
									t.Logf("commit %s: %v", key, err)
								}
							}
						}(i)
					}
					wg.Wait()

					n, err := s.Len(ctx)
					if err != nil || n != symbolCount {
						t.Logf("len=%d err=%v want %d", n, err, symbolCount)
						return false
					}
					for i := 0; i < symbolCount; i++ {
						key := fmt.Sprintf("SYM%d", i)
						obs, ok, err := s.Previous(ctx, key)
						if err != nil || !ok {
							return false
						}
						if obs.Quote.Price != float64(i*100+commitsPerSymbol) || obs.Quote.Symbol.Key != key {
							return false
						}
					}
					return true
				},
				symbolCountGen,
				commitsPerSymbolGen,
			))

			properties.TestingRun(t)
		})
	}
}

// Same-key races are last-write-wins and never leave a torn entry.
func TestMemoryStore_SameKeyRaceNeverTears(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(1)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				price := float64(w*1000 + i)
				obs := observation("BBCA", price, models.StatusUp)
				obs.Quote.CompanyName = fmt.Sprintf("%.0f", price)
				_ = s.Commit(ctx, "BBCA", obs)
				if got, ok, _ := s.Previous(ctx, "BBCA"); ok {
					assert.Equal(t, fmt.Sprintf("%.0f", got.Quote.Price), got.Quote.CompanyName)
				}
			}
		}(w)
	}
	wg.Wait()

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
