package quote

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	qterrors "quote-tracker/internal/errors"
	"quote-tracker/internal/models"
)

// Default selectors for the quote page layout.
const (
	DefaultNameSelector  = ".zzDege"
	DefaultPriceSelector = ".YMlKec.fxKbKc"
)

// UnknownCompany is reported when the page carries no company name.
const UnknownCompany = "N/A"

// HTMLExtractor extracts quotes from quote page markup using CSS selectors.
type HTMLExtractor struct {
	nameSelector  string
	priceSelector string
	name          cascadia.Selector
	price         cascadia.Selector
}

// NewHTMLExtractor compiles the selectors. Empty selectors fall back to the
// defaults; a selector that does not compile yields an *errors.ExtractError.
func NewHTMLExtractor(nameSelector, priceSelector string) (*HTMLExtractor, error) {
	if nameSelector == "" {
		nameSelector = DefaultNameSelector
	}
	if priceSelector == "" {
		priceSelector = DefaultPriceSelector
	}
	name, err := cascadia.Compile(nameSelector)
	if err != nil {
		return nil, qterrors.NewExtractError(nameSelector, err)
	}
	price, err := cascadia.Compile(priceSelector)
	if err != nil {
		return nil, qterrors.NewExtractError(priceSelector, err)
	}
	return &HTMLExtractor{
		nameSelector:  nameSelector,
		priceSelector: priceSelector,
		name:          name,
		price:         price,
	}, nil
}

// Extract reads the company name and price from markup. Missing elements
// degrade to UnknownCompany and an absent price rather than failing.
func (e *HTMLExtractor) Extract(markup string, symbol models.Symbol) (models.Quote, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return models.Quote{}, fmt.Errorf("parse markup for %s: %w", symbol.Key, err)
	}

	q := models.Quote{Symbol: symbol, CompanyName: UnknownCompany}

	if text, ok := firstText(doc.FindMatcher(e.name)); ok {
		q.CompanyName = text
	}
	if text, ok := firstText(doc.FindMatcher(e.price)); ok {
		if price, ok := ParsePrice(text); ok {
			q.Price = price
			q.HasPrice = true
		}
	}
	return q, nil
}

// firstText returns the first non-blank text node under the first matched element.
func firstText(sel *goquery.Selection) (string, bool) {
	if sel.Length() == 0 {
		return "", false
	}
	return findText(sel.Nodes[0])
}

func findText(n *html.Node) (string, bool) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			return t, true
		}
		return "", false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t, ok := findText(c); ok {
			return t, true
		}
	}
	return "", false
}

// ParsePrice parses display price text such as "$172.50" or "Rp 15,000".
// Currency symbols, letters, spaces and thousands separators are dropped.
// Negative or unparseable text reports false.
func ParsePrice(text string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsDigit(r), r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, text)
	if cleaned == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil || d.IsNegative() {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}
