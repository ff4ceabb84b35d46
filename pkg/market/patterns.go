// Package market holds the text heuristics shared by context analysis and
// listing extraction, and the analyzer that turns a reference sample into a
// MarketContext.
package market

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// DefaultNoiseFloor is the price below which a match is treated as noise
// (down payments, monthly installments, typos).
const DefaultNoiseFloor = 5000

var (
	defaultPricePatterns = []string{
		`(?i)S/\s*[\d,]+`,
		`(?i)PEN\s*[\d,]+`,
		`\$\s*[\d,]+`,
		`(?i)[\d,]+\s*soles?`,
	}

	defaultYearPattern = `\b(?:19|20)\d{2}\b`

	defaultKeywords = []string{
		"auto", "carro", "vehiculo", "vehículo", "sedan", "suv", "hatchback",
	}

	defaultBrands = []string{
		"toyota", "hyundai", "nissan", "kia", "chevrolet",
		"ford", "honda", "mazda", "suzuki", "mitsubishi",
	}

	nonDigits = regexp.MustCompile(`\D`)
)

// Patterns is the configurable heuristic set used to recognise vehicle
// listings and pull a price and a model year out of free text.
type Patterns struct {
	Price      []*regexp.Regexp
	Year       *regexp.Regexp
	Keywords   []string
	Brands     []string
	NoiseFloor float64
}

// PatternConfig carries optional overrides. Empty fields keep the defaults.
type PatternConfig struct {
	PricePatterns []string
	YearPattern   string
	Keywords      []string
	Brands        []string
	NoiseFloor    float64
}

// DefaultPatterns returns the built-in pattern set.
func DefaultPatterns() Patterns {
	p, err := CompilePatterns(PatternConfig{})
	if err != nil {
		panic(err) // built-in patterns are constant
	}
	return p
}

// CompilePatterns builds a Patterns from cfg, filling unset fields with
// defaults.
func CompilePatterns(cfg PatternConfig) (Patterns, error) {
	priceSrc := cfg.PricePatterns
	if len(priceSrc) == 0 {
		priceSrc = defaultPricePatterns
	}

	p := Patterns{
		Price:      make([]*regexp.Regexp, 0, len(priceSrc)),
		Keywords:   lowerAll(cfg.Keywords),
		Brands:     lowerAll(cfg.Brands),
		NoiseFloor: cfg.NoiseFloor,
	}

	for _, src := range priceSrc {
		re, err := regexp.Compile(src)
		if err != nil {
			return Patterns{}, fmt.Errorf("compiling price pattern %q: %w", src, err)
		}
		p.Price = append(p.Price, re)
	}

	yearSrc := cfg.YearPattern
	if yearSrc == "" {
		yearSrc = defaultYearPattern
	}
	re, err := regexp.Compile(yearSrc)
	if err != nil {
		return Patterns{}, fmt.Errorf("compiling year pattern %q: %w", yearSrc, err)
	}
	p.Year = re

	if len(p.Keywords) == 0 {
		p.Keywords = slices.Clone(defaultKeywords)
	}
	if len(p.Brands) == 0 {
		p.Brands = slices.Clone(defaultBrands)
	}
	if p.NoiseFloor <= 0 {
		p.NoiseFloor = DefaultNoiseFloor
	}

	return p, nil
}

// MatchPrice returns the leftmost price token in text and its numeric value.
// The value is nil when the token carries no digits.
func (p *Patterns) MatchPrice(text string) (string, *float64) {
	best, bestAt := "", -1
	for _, re := range p.Price {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if bestAt == -1 || loc[0] < bestAt {
			best, bestAt = text[loc[0]:loc[1]], loc[0]
		}
	}
	if bestAt == -1 {
		return "", nil
	}
	return strings.TrimSpace(best), parsePrice(best)
}

// MatchYear returns the first model year in text, or nil.
func (p *Patterns) MatchYear(text string) *int {
	m := p.Year.FindString(text)
	if m == "" {
		return nil
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &y
}

// HasKeyword reports whether lowerText contains any vocabulary keyword or
// any of the extra terms.
func (p *Patterns) HasKeyword(lowerText string, extra []string) bool {
	for _, set := range [][]string{p.Keywords, extra} {
		for _, kw := range set {
			if kw != "" && strings.Contains(lowerText, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

// Brand returns the first vocabulary brand mentioned in title, or "".
func (p *Patterns) Brand(title string) string {
	lower := strings.ToLower(title)
	for _, b := range p.Brands {
		if strings.Contains(lower, b) {
			return b
		}
	}
	return ""
}

// BelowNoise reports whether price is under the noise floor.
func (p *Patterns) BelowNoise(price float64) bool {
	return price < p.NoiseFloor
}

func parsePrice(token string) *float64 {
	digits := nonDigits.ReplaceAllString(token, "")
	if digits == "" {
		return nil
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return nil
	}
	return &v
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
