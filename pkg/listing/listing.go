// Package listing turns raw page elements into candidate vehicle listings.
package listing

import (
	"cmp"
	"iter"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/donaldgifford/car-deal-tracker/pkg/market"
	"github.com/donaldgifford/car-deal-tracker/pkg/page"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

const (
	// DefaultScanLimit caps how many page elements one extraction inspects.
	DefaultScanLimit = 50

	minTitleRunes  = 11
	maxDescription = 300
)

// Filter holds the per-run acceptance thresholds.
type Filter struct {
	// MaxPrice rejects listings priced above it. Zero disables the check.
	MaxPrice float64
	// MinYear rejects listings with a known model year below it.
	MinYear int
	// BrandHints widens the keyword filter, usually with the market
	// context's top brands.
	BrandHints []string
}

// Extractor filters and normalizes listings from a page snapshot.
type Extractor struct {
	patterns  market.Patterns
	scanLimit int
	now       func() time.Time
}

// Option configures the Extractor.
type Option func(*Extractor)

// WithScanLimit sets how many elements are inspected per extraction.
func WithScanLimit(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.scanLimit = n
		}
	}
}

// WithNowFunc overrides the clock used for DiscoveredAt.
func WithNowFunc(f func() time.Time) Option {
	return func(e *Extractor) {
		e.now = f
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(p market.Patterns, opts ...Option) *Extractor {
	e := &Extractor{
		patterns:  p,
		scanLimit: DefaultScanLimit,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Candidates lazily yields the elements that pass every filter, in page
// order. At most the scan limit of elements is consumed.
func (e *Extractor) Candidates(elements iter.Seq[page.Element], f Filter) iter.Seq[domain.Listing] {
	return func(yield func(domain.Listing) bool) {
		scanned := 0
		for el := range elements {
			if scanned >= e.scanLimit {
				return
			}
			scanned++

			l, ok := e.accept(el, f)
			if !ok {
				continue
			}
			if !yield(l) {
				return
			}
		}
	}
}

// Extract materializes Candidates sorted ascending by price. A listing with
// no numeric price sorts as zero. Equal prices keep page order.
func (e *Extractor) Extract(elements iter.Seq[page.Element], f Filter) []domain.Listing {
	return slices.SortedStableFunc(e.Candidates(elements, f), func(a, b domain.Listing) int {
		return cmp.Compare(a.Price(), b.Price())
	})
}

func (e *Extractor) accept(el page.Element, f Filter) (domain.Listing, bool) {
	lower := strings.ToLower(el.Text)
	if !e.patterns.HasKeyword(lower, f.BrandHints) {
		return domain.Listing{}, false
	}

	priceText, price := e.patterns.MatchPrice(el.Text)
	if priceText == "" {
		return domain.Listing{}, false
	}
	if price != nil {
		if f.MaxPrice > 0 && *price > f.MaxPrice {
			return domain.Listing{}, false
		}
		if e.patterns.BelowNoise(*price) {
			return domain.Listing{}, false
		}
	}

	year := e.patterns.MatchYear(el.Text)
	if year != nil && *year < f.MinYear {
		return domain.Listing{}, false
	}

	title := strings.TrimSpace(el.Title)
	if utf8.RuneCountInString(title) < minTitleRunes {
		return domain.Listing{}, false
	}

	identity := page.Canonical(el.Link)
	if identity == "" {
		return domain.Listing{}, false
	}

	l := domain.Listing{
		Identity:     identity,
		Title:        title,
		PriceText:    priceText,
		NumericPrice: price,
		Year:         year,
		Description:  page.Truncate(el.Text, maxDescription),
		DiscoveredAt: e.now(),
	}
	if el.ImageURL != "" {
		img := el.ImageURL
		l.ImageURL = &img
	}

	return l, true
}
