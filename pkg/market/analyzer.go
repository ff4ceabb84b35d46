package market

import (
	"cmp"
	"iter"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/donaldgifford/car-deal-tracker/pkg/page"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

const (
	// DefaultSampleSize is how many reference elements are inspected.
	DefaultSampleSize = 20

	maxTopBrands = 5

	premiumAbove = 60000
	mediumAbove  = 35000

	// Per-field fallbacks used when a sample has valid tuples but no data
	// for one aggregate.
	fallbackAvgPrice = 50000
	fallbackMinPrice = 20000
	fallbackMaxPrice = 80000
	fallbackAvgYear  = 2015
)

var fallbackBrands = []string{"toyota", "hyundai", "nissan"}

// DefaultContext is the fixed context used when sampling yields nothing.
func DefaultContext() domain.MarketContext {
	return domain.MarketContext{
		AveragePrice: 45000,
		PriceRange:   domain.PriceRange{Min: 20000, Max: 80000},
		AverageYear:  2016,
		TopBrands:    []string{"toyota", "hyundai", "nissan", "kia", "chevrolet"},
		Segment:      domain.SegmentMedium,
		Fallback:     true,
	}
}

// SegmentFor classifies an average price.
func SegmentFor(avgPrice float64) domain.Segment {
	switch {
	case avgPrice > premiumAbove:
		return domain.SegmentPremium
	case avgPrice > mediumAbove:
		return domain.SegmentMedium
	default:
		return domain.SegmentEconomic
	}
}

// Analyzer derives a MarketContext from a reference sample.
type Analyzer struct {
	patterns   Patterns
	sampleSize int
	now        func() time.Time
}

// AnalyzerOption configures the Analyzer.
type AnalyzerOption func(*Analyzer)

// WithSampleSize caps how many elements are inspected.
func WithSampleSize(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.sampleSize = n
		}
	}
}

// WithAnalyzerNowFunc overrides the clock for testing.
func WithAnalyzerNowFunc(f func() time.Time) AnalyzerOption {
	return func(a *Analyzer) {
		a.now = f
	}
}

// NewAnalyzer creates an Analyzer using the given pattern set.
func NewAnalyzer(p Patterns, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		patterns:   p,
		sampleSize: DefaultSampleSize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type sample struct {
	brand string
	price *float64
	year  *int
}

// Analyze inspects up to the sample size of elements and aggregates the
// ones that look like priced vehicle listings. It never fails: an empty or
// unusable sample yields DefaultContext.
func (a *Analyzer) Analyze(elements iter.Seq[page.Element]) domain.MarketContext {
	var samples []sample

	seen := 0
	for el := range elements {
		if seen >= a.sampleSize {
			break
		}
		seen++

		if s, ok := a.sample(el); ok {
			samples = append(samples, s)
		}
	}

	if len(samples) == 0 {
		ctx := DefaultContext()
		ctx.ComputedAt = a.now()
		return ctx
	}

	return a.aggregate(samples)
}

func (a *Analyzer) sample(el page.Element) (sample, bool) {
	lower := strings.ToLower(el.Text)
	if !a.patterns.HasKeyword(lower, a.patterns.Brands) {
		return sample{}, false
	}

	priceText, price := a.patterns.MatchPrice(el.Text)
	if el.Title == "" || priceText == "" {
		return sample{}, false
	}

	return sample{
		brand: a.patterns.Brand(el.Title),
		price: price,
		year:  a.patterns.MatchYear(el.Text),
	}, true
}

func (a *Analyzer) aggregate(samples []sample) domain.MarketContext {
	var (
		prices []float64
		years  []int
		brands = newBrandCounter()
	)

	for _, s := range samples {
		if s.brand != "" {
			brands.add(s.brand)
		}
		if s.price != nil && !a.patterns.BelowNoise(*s.price) {
			prices = append(prices, *s.price)
		}
		if s.year != nil {
			years = append(years, *s.year)
		}
	}

	ctx := domain.MarketContext{
		AveragePrice:         fallbackAvgPrice,
		PriceRange:           domain.PriceRange{Min: fallbackMinPrice, Max: fallbackMaxPrice},
		AverageYear:          fallbackAvgYear,
		TopBrands:            brands.top(maxTopBrands),
		TotalListingsSampled: len(samples),
		ComputedAt:           a.now(),
	}

	if len(prices) > 0 {
		lo, hi, sum := prices[0], prices[0], 0.0
		for _, p := range prices {
			lo = math.Min(lo, p)
			hi = math.Max(hi, p)
			sum += p
		}
		ctx.AveragePrice = math.Round(sum / float64(len(prices)))
		ctx.PriceRange = domain.PriceRange{Min: lo, Max: hi}
	}

	if len(years) > 0 {
		sum := 0
		for _, y := range years {
			sum += y
		}
		ctx.AverageYear = int(math.Round(float64(sum) / float64(len(years))))
	}

	if len(ctx.TopBrands) == 0 {
		ctx.TopBrands = append([]string(nil), fallbackBrands...)
	}

	ctx.Segment = SegmentFor(ctx.AveragePrice)

	return ctx
}

// brandCounter ranks brands by frequency, breaking ties by first sighting.
type brandCounter struct {
	order  []string
	counts map[string]int
}

func newBrandCounter() *brandCounter {
	return &brandCounter{counts: make(map[string]int)}
}

func (b *brandCounter) add(brand string) {
	if _, ok := b.counts[brand]; !ok {
		b.order = append(b.order, brand)
	}
	b.counts[brand]++
}

func (b *brandCounter) top(n int) []string {
	ranked := slices.Clone(b.order)
	slices.SortStableFunc(ranked, func(x, y string) int {
		return cmp.Compare(b.counts[y], b.counts[x])
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
