package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/shopspring/decimal"

	"quote-tracker/internal/models"
)

// ConsoleSink prints one line per observation. Lines from concurrent
// emitters are written whole, never interleaved mid-line.
type ConsoleSink struct {
	mu    sync.Mutex
	out   io.Writer
	color bool
}

// NewConsoleSink creates a ConsoleSink on out. Colour is used only when out
// is a terminal.
func NewConsoleSink(out io.Writer) *ConsoleSink {
	return &ConsoleSink{out: out, color: IsTerminal(out)}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// FormatObservation renders "SYMBOL - Company: price (status)".
func FormatObservation(obs models.Observation) string {
	return fmt.Sprintf("%s - %s: %s (%s)",
		obs.Quote.Symbol.Key,
		obs.Quote.CompanyName,
		FormatPrice(obs.Quote.Price),
		obs.Status,
	)
}

// FormatPrice renders a price with the shortest exact decimal representation.
func FormatPrice(price float64) string {
	return decimal.NewFromFloat(price).String()
}

// Emit writes obs as a single line.
func (s *ConsoleSink) Emit(obs models.Observation) {
	line := FormatObservation(obs)
	if s.color {
		line = statusColor(obs.Status).Sprint(line)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, line)
}

func statusColor(st models.Status) *color.Color {
	var c *color.Color
	switch st {
	case models.StatusUp:
		c = color.New(color.FgGreen)
	case models.StatusDown:
		c = color.New(color.FgRed)
	default:
		c = color.New(color.Faint)
	}
	// Colour is decided per sink, not by the global stdout check.
	c.EnableColor()
	return c
}
