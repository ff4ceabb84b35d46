// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/car-deal-tracker/internal/dedup"
	"github.com/donaldgifford/car-deal-tracker/internal/pipeline"
	"github.com/donaldgifford/car-deal-tracker/internal/store"
	"github.com/donaldgifford/car-deal-tracker/pkg/market"
	"github.com/donaldgifford/car-deal-tracker/pkg/page"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Marketplace   MarketplaceConfig   `yaml:"marketplace"`
	Filters       FiltersConfig       `yaml:"filters"`
	Extraction    ExtractionConfig    `yaml:"extraction"`
	Scoring       ScoringConfig       `yaml:"scoring"`
	Dedup         DedupConfig         `yaml:"dedup"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Render        RenderConfig        `yaml:"render"`
	Tracing       TracingConfig       `yaml:"tracing"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DatabaseConfig selects the run-history backend.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // memory, sqlite, postgres
	DSN          string `yaml:"dsn"`
	Path         string `yaml:"path"`
	LogRetention int    `yaml:"log_retention"`
}

// StoreConfig converts d into a store.Config.
func (d *DatabaseConfig) StoreConfig() store.Config {
	return store.Config{
		Driver:       d.Driver,
		DSN:          d.DSN,
		Path:         d.Path,
		LogRetention: d.LogRetention,
	}
}

// MarketplaceConfig locates the pages that are scraped.
type MarketplaceConfig struct {
	BaseURL             string `yaml:"base_url"`
	TargetLocation      string `yaml:"target_location"`
	SearchQuery         string `yaml:"search_query"`
	ReferenceProfileURL string `yaml:"reference_profile_url"`
}

// FiltersConfig holds the candidate filters of a run.
type FiltersConfig struct {
	MaxPrice           float64 `yaml:"max_price"`
	MinYear            int     `yaml:"min_year"`
	MaxItemsPerRun     int     `yaml:"max_items_per_run"`
	MinProfitMarginPct float64 `yaml:"min_profit_margin_pct"`
	TestRunLimit       int     `yaml:"test_run_limit"`
}

// ExtractionConfig overrides the listing heuristics and page selectors.
type ExtractionConfig struct {
	PricePatterns []string        `yaml:"price_patterns"`
	YearPattern   string          `yaml:"year_pattern"`
	Keywords      []string        `yaml:"keywords"`
	Brands        []string        `yaml:"brands"`
	NoiseFloor    float64         `yaml:"noise_floor"`
	ScanLimit     int             `yaml:"scan_limit"`
	SampleSize    int             `yaml:"sample_size"`
	Selectors     SelectorsConfig `yaml:"selectors"`
}

// SelectorsConfig lists CSS selectors. Empty lists keep the defaults.
type SelectorsConfig struct {
	Items []string `yaml:"items"`
	Title []string `yaml:"title"`
	Link  []string `yaml:"link"`
	Image []string `yaml:"image"`
}

// ScoringConfig selects how listings are judged.
type ScoringConfig struct {
	Provider    string          `yaml:"provider"` // rules, openai, anthropic, ollama
	Model       string          `yaml:"model"`
	Endpoint    string          `yaml:"endpoint"`
	Timeout     time.Duration   `yaml:"timeout"`
	Temperature float64         `yaml:"temperature"`
	MaxTokens   int             `yaml:"max_tokens"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig throttles scoring requests.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// DedupConfig sizes the processed-listing memory.
type DedupConfig struct {
	Capacity     int           `yaml:"capacity"`
	MaxAge       time.Duration `yaml:"max_age"`
	SnapshotPath string        `yaml:"snapshot_path"`
}

// ScheduleConfig defines cron intervals. Zero disables a job.
type ScheduleConfig struct {
	RunInterval   time.Duration `yaml:"run_interval"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// NotificationsConfig defines notification targets. Tokens may be left empty
// and supplied through the environment or the OS keychain.
type NotificationsConfig struct {
	Timezone string         `yaml:"timezone"`
	Telegram TelegramConfig `yaml:"telegram"`
	Discord  DiscordConfig  `yaml:"discord"`
}

// TelegramConfig defines Telegram bot settings.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	APIURL   string `yaml:"api_url"` // Bot API base URL, empty for the public API
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// RenderConfig defines the headless browser.
type RenderConfig struct {
	ChromeBin   string        `yaml:"chrome_bin"`
	ShowBrowser bool          `yaml:"show_browser"`
	Timeout     time.Duration `yaml:"timeout"`
}

// TracingConfig defines OTLP trace export.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation. A .env file in the working directory is
// loaded first when present. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		// Expand environment variables in the YAML content.
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Settings returns the runtime pipeline settings.
func (c *Config) Settings() pipeline.Settings {
	return pipeline.Settings{
		MaxPrice:            c.Filters.MaxPrice,
		MinYear:             c.Filters.MinYear,
		MaxItemsPerRun:      c.Filters.MaxItemsPerRun,
		MinProfitMarginPct:  c.Filters.MinProfitMarginPct,
		TargetLocation:      c.Marketplace.TargetLocation,
		SearchQuery:         c.Marketplace.SearchQuery,
		ReferenceProfileURL: c.Marketplace.ReferenceProfileURL,
	}
}

// Patterns compiles the extraction heuristics.
func (c *Config) Patterns() (market.Patterns, error) {
	return market.CompilePatterns(market.PatternConfig{
		PricePatterns: c.Extraction.PricePatterns,
		YearPattern:   c.Extraction.YearPattern,
		Keywords:      c.Extraction.Keywords,
		Brands:        c.Extraction.Brands,
		NoiseFloor:    c.Extraction.NoiseFloor,
	})
}

// Selectors returns the page selectors, defaults filling empty lists.
func (c *Config) Selectors() page.Selectors {
	sel := page.DefaultSelectors()
	s := c.Extraction.Selectors
	if len(s.Items) > 0 {
		sel.Items = s.Items
	}
	if len(s.Title) > 0 {
		sel.Title = s.Title
	}
	if len(s.Link) > 0 {
		sel.Link = s.Link
	}
	if len(s.Image) > 0 {
		sel.Image = s.Image
	}
	return sel
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyMarketplaceDefaults(&cfg.Marketplace)
	applyFiltersDefaults(&cfg.Filters)
	applyExtractionDefaults(&cfg.Extraction)
	applyScoringDefaults(&cfg.Scoring)
	applyDedupDefaults(&cfg.Dedup)
	applyScheduleDefaults(&cfg.Schedule)
	applyNotificationsDefaults(&cfg.Notifications)
	applyRenderDefaults(&cfg.Render)
	applyTracingDefaults(&cfg.Tracing)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Driver == "" {
		d.Driver = "memory"
	}
	if d.Driver == "sqlite" && d.Path == "" {
		d.Path = "data/car-deal-tracker.db"
	}
	if d.LogRetention == 0 {
		d.LogRetention = store.DefaultLogRetention
	}
}

func applyMarketplaceDefaults(m *MarketplaceConfig) {
	if m.BaseURL == "" {
		m.BaseURL = pipeline.DefaultMarketplaceURL
	}
	if m.TargetLocation == "" {
		m.TargetLocation = pipeline.DefaultTargetLocation
	}
	if m.SearchQuery == "" {
		m.SearchQuery = pipeline.DefaultSearchQuery
	}
	if m.ReferenceProfileURL == "" {
		m.ReferenceProfileURL = pipeline.DefaultReferenceProfileURL
	}
}

func applyFiltersDefaults(f *FiltersConfig) {
	if f.MinYear == 0 {
		f.MinYear = pipeline.DefaultMinYear
	}
	if f.MaxItemsPerRun == 0 {
		f.MaxItemsPerRun = pipeline.DefaultMaxItemsPerRun
	}
	if f.MinProfitMarginPct == 0 {
		f.MinProfitMarginPct = pipeline.DefaultMinProfitMarginPct
	}
	if f.TestRunLimit == 0 {
		f.TestRunLimit = pipeline.DefaultTestRunLimit
	}
}

func applyExtractionDefaults(e *ExtractionConfig) {
	if e.ScanLimit == 0 {
		e.ScanLimit = 50
	}
	if e.SampleSize == 0 {
		e.SampleSize = 20
	}
}

func applyScoringDefaults(s *ScoringConfig) {
	if s.Provider == "" {
		s.Provider = "openai"
	}
	if s.Timeout == 0 {
		s.Timeout = 30 * time.Second
	}
	if s.Temperature == 0 {
		s.Temperature = 0.3
	}
	if s.MaxTokens == 0 {
		s.MaxTokens = 300
	}
	if s.RateLimit.PerSecond == 0 {
		s.RateLimit.PerSecond = 1
	}
	if s.RateLimit.Burst == 0 {
		s.RateLimit.Burst = 1
	}
}

func applyDedupDefaults(d *DedupConfig) {
	if d.Capacity == 0 {
		d.Capacity = dedup.DefaultCapacity
	}
	if d.MaxAge == 0 {
		d.MaxAge = 7 * 24 * time.Hour
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.RunInterval == 0 {
		s.RunInterval = 30 * time.Minute
	}
	if s.SweepInterval == 0 {
		s.SweepInterval = 6 * time.Hour
	}
}

func applyNotificationsDefaults(n *NotificationsConfig) {
	if n.Timezone == "" {
		n.Timezone = "America/Lima"
	}
}

func applyRenderDefaults(r *RenderConfig) {
	if r.Timeout == 0 {
		r.Timeout = 30 * time.Second
	}
}

func applyTracingDefaults(t *TracingConfig) {
	if t.Endpoint == "" {
		t.Endpoint = "localhost:4317"
	}
	if t.ServiceName == "" {
		t.ServiceName = "car-deal-tracker"
	}
	if t.SampleRatio == 0 {
		t.SampleRatio = 1
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", cfg.Server.Port))
	}

	switch cfg.Database.Driver {
	case "memory":
	case "sqlite":
	case "postgres":
		if cfg.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required when driver is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf(
			"database.driver must be one of: memory, sqlite, postgres (got %q)",
			cfg.Database.Driver,
		))
	}

	if err := cfg.Settings().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("filters: %w", err))
	}
	if cfg.Filters.TestRunLimit < 1 {
		errs = append(errs, errors.New("filters.test_run_limit must be at least 1"))
	}

	if _, err := cfg.Patterns(); err != nil {
		errs = append(errs, fmt.Errorf("extraction: %w", err))
	}
	if cfg.Extraction.ScanLimit < 1 {
		errs = append(errs, errors.New("extraction.scan_limit must be at least 1"))
	}
	if cfg.Extraction.SampleSize < 1 {
		errs = append(errs, errors.New("extraction.sample_size must be at least 1"))
	}

	switch cfg.Scoring.Provider {
	case "rules", "openai", "anthropic":
	case "ollama":
		if cfg.Scoring.Model == "" {
			errs = append(errs, errors.New("scoring.model is required when provider is ollama"))
		}
	default:
		errs = append(errs, fmt.Errorf(
			"scoring.provider must be one of: rules, openai, anthropic, ollama (got %q)",
			cfg.Scoring.Provider,
		))
	}
	if cfg.Scoring.RateLimit.PerSecond < 0 {
		errs = append(errs, errors.New("scoring.rate_limit.per_second must not be negative"))
	}

	if cfg.Dedup.Capacity < 1 {
		errs = append(errs, errors.New("dedup.capacity must be at least 1"))
	}
	if cfg.Dedup.MaxAge < 0 {
		errs = append(errs, errors.New("dedup.max_age must not be negative"))
	}

	if cfg.Schedule.RunInterval < 0 || cfg.Schedule.SweepInterval < 0 {
		errs = append(errs, errors.New("schedule intervals must not be negative"))
	}

	if _, err := time.LoadLocation(cfg.Notifications.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("notifications.timezone: %w", err))
	}
	if cfg.Notifications.Telegram.Enabled && cfg.Notifications.Telegram.ChatID == "" {
		errs = append(errs, errors.New("notifications.telegram.chat_id is required when telegram is enabled"))
	}
	if cfg.Notifications.Discord.Enabled && cfg.Notifications.Discord.WebhookURL == "" {
		errs = append(errs, errors.New("notifications.discord.webhook_url is required when discord is enabled"))
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio %v must be within [0, 1]", cfg.Tracing.SampleRatio))
	}

	return errors.Join(errs...)
}
