package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	qterrors "quote-tracker/internal/errors"
	"quote-tracker/internal/models"
)

// SQLiteStore implements ValuationStore on a private in-memory SQLite database.
// Nothing is written to disk; the data disappears with the process.
type SQLiteStore struct {
	db *sql.DB

	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new in-memory SQLite valuation store.
func NewSQLiteStore() (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, qterrors.Wrap(err, "failed to open database")
	}

	// Every connection to :memory: is its own database, so keep exactly one
	// and never recycle it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, qterrors.Wrap(err, "failed to initialize schema")
	}

	return store, nil
}

// initSchema creates the valuations table.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS valuations (
		symbol TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		company_name TEXT NOT NULL,
		price REAL NOT NULL,
		has_price INTEGER NOT NULL,
		status TEXT NOT NULL,
		fetched_at INTEGER NOT NULL,
		observed_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore) checkOpen() error {
	if s.closed {
		return qterrors.ErrStoreClosed
	}
	return nil
}

// Previous returns the last committed observation for key.
func (s *SQLiteStore) Previous(ctx context.Context, key string) (models.Observation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return models.Observation{}, false, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT symbol, code, company_name, price, has_price, status, fetched_at, observed_at
		FROM valuations
		WHERE symbol = ?
	`, key)

	obs, err := scanObservation(row)
	if err == sql.ErrNoRows {
		return models.Observation{}, false, nil
	}
	if err != nil {
		return models.Observation{}, false, qterrors.Wrap(err, "failed to query valuation")
	}
	return obs, true, nil
}

// Commit upserts the observation stored for key.
func (s *SQLiteStore) Commit(ctx context.Context, key string, obs models.Observation) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO valuations (symbol, code, company_name, price, has_price, status, fetched_at, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			code = excluded.code,
			company_name = excluded.company_name,
			price = excluded.price,
			has_price = excluded.has_price,
			status = excluded.status,
			fetched_at = excluded.fetched_at,
			observed_at = excluded.observed_at
	`,
		key,
		obs.Quote.Symbol.Code,
		obs.Quote.CompanyName,
		obs.Quote.Price,
		obs.Quote.HasPrice,
		obs.Status.String(),
		unixNano(obs.Quote.FetchedAt),
		unixNano(obs.ObservedAt),
	)
	if err != nil {
		return qterrors.Wrap(err, "failed to commit valuation")
	}
	return nil
}

// Len returns the number of distinct keys held.
func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM valuations`).Scan(&n); err != nil {
		return 0, qterrors.Wrap(err, "failed to count valuations")
	}
	return n, nil
}

// Snapshot returns a copy of every stored observation.
func (s *SQLiteStore) Snapshot(ctx context.Context) (map[string]models.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, code, company_name, price, has_price, status, fetched_at, observed_at
		FROM valuations
	`)
	if err != nil {
		return nil, qterrors.Wrap(err, "failed to query valuations")
	}
	defer rows.Close()

	out := make(map[string]models.Observation)
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, qterrors.Wrap(err, "failed to scan valuation")
		}
		out[obs.Quote.Symbol.Key] = obs
	}

	if err := rows.Err(); err != nil {
		return nil, qterrors.Wrap(err, "error iterating valuations")
	}

	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanObservation(row scanner) (models.Observation, error) {
	var (
		obs                   models.Observation
		status                string
		fetchedAt, observedAt int64
	)
	err := row.Scan(
		&obs.Quote.Symbol.Key,
		&obs.Quote.Symbol.Code,
		&obs.Quote.CompanyName,
		&obs.Quote.Price,
		&obs.Quote.HasPrice,
		&status,
		&fetchedAt,
		&observedAt,
	)
	if err != nil {
		return models.Observation{}, err
	}
	if obs.Status, err = models.ParseStatus(status); err != nil {
		return models.Observation{}, err
	}
	obs.Quote.FetchedAt = fromUnixNano(fetchedAt)
	obs.ObservedAt = fromUnixNano(observedAt)
	return obs, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
