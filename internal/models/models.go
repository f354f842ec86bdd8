// Package models defines the core data types for quote tracking.
package models

import (
	"fmt"
	"strings"
	"time"

	qterrors "quote-tracker/internal/errors"
)

// Symbol identifies a tracked instrument.
type Symbol struct {
	Code string // upper-cased input, exchange suffix kept (BBCA:IDX)
	Key  string // storage key, exchange suffix stripped (BBCA)
}

// String returns the symbol's storage key.
func (s Symbol) String() string {
	return s.Key
}

// Exchange returns the exchange suffix of the symbol code, if any.
func (s Symbol) Exchange() string {
	if _, exchange, ok := strings.Cut(s.Code, ":"); ok {
		return exchange
	}
	return ""
}

// ParseSymbol normalizes a raw code such as "bbca:idx".
func ParseSymbol(raw string) (Symbol, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	key, _, _ := strings.Cut(code, ":")
	key = strings.TrimSpace(key)
	if key == "" {
		return Symbol{}, fmt.Errorf("%w: %q", qterrors.ErrInvalidSymbol, raw)
	}
	return Symbol{Code: code, Key: key}, nil
}

// ParseSymbols parses a comma-separated code list. Blank entries are skipped
// and entries sharing a storage key collapse to the first occurrence.
func ParseSymbols(csv string) ([]Symbol, error) {
	parts := strings.Split(csv, ",")
	out := make([]Symbol, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		s, err := ParseSymbol(p)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[s.Key]; dup {
			continue
		}
		seen[s.Key] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// Quote is one fetched-and-parsed snapshot of a quote page.
type Quote struct {
	Symbol      Symbol
	CompanyName string
	Price       float64
	HasPrice    bool // false when the page carried no parseable price
	FetchedAt   time.Time
}

// Status is the direction of an observation relative to the previous one.
type Status int

const (
	StatusSame Status = iota
	StatusUp
	StatusDown
)

func (s Status) String() string {
	switch s {
	case StatusUp:
		return "up"
	case StatusDown:
		return "down"
	default:
		return "same"
	}
}

// ParseStatus parses "up", "down" or "same".
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return StatusUp, nil
	case "down":
		return StatusDown, nil
	case "same":
		return StatusSame, nil
	default:
		return StatusSame, fmt.Errorf("unknown status %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Observation is a quote annotated with its status against the prior observation.
type Observation struct {
	Quote      Quote
	Status     Status
	ObservedAt time.Time
}

// Key returns the storage key of the observed symbol.
func (o Observation) Key() string {
	return o.Quote.Symbol.Key
}

// String renders the observation as "SYMBOL - Company: price (status)".
func (o Observation) String() string {
	return fmt.Sprintf("%s - %s: %g (%s)", o.Quote.Symbol.Key, o.Quote.CompanyName, o.Quote.Price, o.Status)
}
