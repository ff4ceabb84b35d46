package pipeline

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Defaults for runtime settings.
const (
	DefaultMinYear             = 2010
	DefaultMaxItemsPerRun      = 15
	DefaultTestRunLimit        = 3
	DefaultTargetLocation      = "peru"
	DefaultSearchQuery         = "carros autos vehiculos"
	DefaultMarketplaceURL      = "https://www.facebook.com/marketplace"
	DefaultReferenceProfileURL = "https://www.facebook.com/marketplace/profile/100008135553894/"
	DefaultMinProfitMarginPct  = 15
)

// Settings are the operator-tunable filters of a run. They can be changed
// between runs; a run uses the snapshot taken when it starts.
type Settings struct {
	// MaxPrice caps candidate prices. Zero means the market context's
	// observed maximum.
	MaxPrice            float64 `json:"max_price"              yaml:"max_price"`
	MinYear             int     `json:"min_year"               yaml:"min_year"`
	MaxItemsPerRun      int     `json:"max_items_per_run"      yaml:"max_items_per_run"`
	MinProfitMarginPct  float64 `json:"min_profit_margin_pct"  yaml:"min_profit_margin_pct"`
	TargetLocation      string  `json:"target_location"        yaml:"target_location"`
	SearchQuery         string  `json:"search_query"           yaml:"search_query"`
	ReferenceProfileURL string  `json:"reference_profile_url"  yaml:"reference_profile_url"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		MinYear:             DefaultMinYear,
		MaxItemsPerRun:      DefaultMaxItemsPerRun,
		MinProfitMarginPct:  DefaultMinProfitMarginPct,
		TargetLocation:      DefaultTargetLocation,
		SearchQuery:         DefaultSearchQuery,
		ReferenceProfileURL: DefaultReferenceProfileURL,
	}
}

// Validate reports every invalid field.
func (s Settings) Validate() error {
	var errs []error

	if s.MaxPrice < 0 {
		errs = append(errs, errors.New("max_price must not be negative"))
	}
	if s.MinYear != 0 && (s.MinYear < 1900 || s.MinYear > 2100) {
		errs = append(errs, fmt.Errorf("min_year %d out of range", s.MinYear))
	}
	if s.MaxItemsPerRun < 1 {
		errs = append(errs, errors.New("max_items_per_run must be at least 1"))
	}
	if s.MinProfitMarginPct < 0 {
		errs = append(errs, errors.New("min_profit_margin_pct must not be negative"))
	}
	if strings.TrimSpace(s.TargetLocation) == "" {
		errs = append(errs, errors.New("target_location is required"))
	}
	if strings.TrimSpace(s.SearchQuery) == "" {
		errs = append(errs, errors.New("search_query is required"))
	}
	if u, err := url.Parse(s.ReferenceProfileURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("reference_profile_url %q is not an absolute URL", s.ReferenceProfileURL))
	}

	return errors.Join(errs...)
}

// BuildSearchURL returns the marketplace search URL for location and query,
// newest listings first.
func BuildSearchURL(base, location, query string) string {
	if base == "" {
		base = DefaultMarketplaceURL
	}
	q := strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
	return fmt.Sprintf("%s/%s/search/?query=%s&sortBy=creation_time_descend&exact=false",
		strings.TrimRight(base, "/"), url.PathEscape(location), q)
}
