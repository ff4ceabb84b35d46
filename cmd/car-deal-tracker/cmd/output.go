package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/donaldgifford/car-deal-tracker/internal/pipeline"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

const timeLayout = "2006-01-02 15:04:05"

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printRunDetail(r *domain.RunStatistics) error {
	return writeRunDetail(os.Stdout, r)
}

func writeRunDetail(w io.Writer, r *domain.RunStatistics) error {
	tw := newTabWriter(w)
	tw.writef("ID:\t%s\n", r.ID)
	tw.writef("Mode:\t%s\n", r.Mode)
	tw.writef("Run at:\t%s\n", r.RunAt.Format(timeLayout))
	tw.writef("Duration:\t%s\n", r.Duration.Round(time.Millisecond))
	tw.writef("Found:\t%d\n", r.TotalFound)
	tw.writef("Processed:\t%d\n", r.Processed)
	tw.writef("Sent:\t%d\n", r.SentCount)
	tw.writef("Duplicates:\t%d\n", r.Duplicates)
	tw.writef("Failed:\t%d\n", r.Failed)
	tw.writef("Avg price:\t%s\n", soles(r.AvgPrice))
	if r.Context != nil {
		tw.writef("Market:\t%s avg, %s segment\n", soles(r.Context.AveragePrice), r.Context.Segment)
	}
	return tw.finish()
}

func printRunsTable(runs []domain.RunStatistics) error {
	return writeRunsTable(os.Stdout, runs)
}

func writeRunsTable(w io.Writer, runs []domain.RunStatistics) error {
	tw := newTabWriter(w)
	tw.writef("ID\tMODE\tRUN AT\tFOUND\tPROCESSED\tSENT\tDUPES\tFAILED\tAVG PRICE\n")
	for i := range runs {
		r := &runs[i]
		tw.writef("%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.ID,
			r.Mode,
			r.RunAt.Format(timeLayout),
			r.TotalFound,
			r.Processed,
			r.SentCount,
			r.Duplicates,
			r.Failed,
			soles(r.AvgPrice),
		)
	}
	return tw.finish()
}

func printStatus(s *pipeline.Status) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("State:\t%s\n", s.State)
	tw.writef("Running:\t%v\n", s.Running)
	if s.LastRun != nil {
		tw.writef("Last run:\t%s (%s, %d sent)\n",
			s.LastRun.RunAt.Format(timeLayout), s.LastRun.Mode, s.LastRun.SentCount)
	}
	if s.LastError != "" {
		tw.writef("Last error:\t%s\n", s.LastError)
	}
	if s.MarketContext != nil {
		tw.writef("Market:\t%s avg, %s segment\n", soles(s.MarketContext.AveragePrice), s.MarketContext.Segment)
	}
	return tw.finish()
}

func printSummary(s *domain.RunSummary) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("Cars found:\t%d\n", s.TotalCars)
	tw.writef("Deals sent:\t%d\n", s.SentCount)
	tw.writef("Executions:\t%d\n", s.Executions)
	tw.writef("Avg price:\t%s\n", soles(s.AvgPrice))
	tw.writef("Success rate:\t%d%%\n", s.SuccessRate)
	if !s.LastUpdate.IsZero() {
		tw.writef("Last update:\t%s\n", s.LastUpdate.Format(timeLayout))
	}
	return tw.finish()
}

func printLogTable(entries []domain.LogEntry) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("TIME\tTYPE\tMESSAGE\n")
	for i := range entries {
		tw.writef("%s\t%s\t%s\n",
			entries[i].Timestamp.Format(timeLayout),
			entries[i].Type,
			truncate(entries[i].Message, 80),
		)
	}
	return tw.finish()
}

func printSettings(s *pipeline.Settings) error {
	tw := newTabWriter(os.Stdout)
	maxPrice := "market maximum"
	if s.MaxPrice > 0 {
		maxPrice = soles(s.MaxPrice)
	}
	tw.writef("Max price:\t%s\n", maxPrice)
	tw.writef("Min year:\t%d\n", s.MinYear)
	tw.writef("Max items per run:\t%d\n", s.MaxItemsPerRun)
	tw.writef("Min profit margin:\t%.1f%%\n", s.MinProfitMarginPct)
	tw.writef("Location:\t%s\n", s.TargetLocation)
	tw.writef("Query:\t%s\n", s.SearchQuery)
	tw.writef("Reference profile:\t%s\n", s.ReferenceProfileURL)
	return tw.finish()
}

func printMarketContext(mc *domain.MarketContext) error {
	return writeMarketContext(os.Stdout, mc)
}

func writeMarketContext(w io.Writer, mc *domain.MarketContext) error {
	tw := newTabWriter(w)
	tw.writef("Average price:\t%s\n", soles(mc.AveragePrice))
	tw.writef("Price range:\t%s - %s\n", soles(mc.PriceRange.Min), soles(mc.PriceRange.Max))
	tw.writef("Average year:\t%d\n", mc.AverageYear)
	tw.writef("Top brands:\t%s\n", strings.Join(mc.TopBrands, ", "))
	tw.writef("Sampled:\t%d\n", mc.TotalListingsSampled)
	tw.writef("Segment:\t%s\n", mc.Segment)
	tw.writef("Fallback:\t%v\n", mc.Fallback)
	tw.writef("Computed at:\t%s\n", mc.ComputedAt.Format(timeLayout))
	return tw.finish()
}

func printRecentTable(records []domain.ProcessedRecord) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("STORED\tTITLE\tPRICE\tDEAL\tCONFIDENCE\tRISK\n")
	for i := range records {
		r := &records[i]
		tw.writef("%s\t%s\t%s\t%v\t%.0f%%\t%s\n",
			r.StoredAt.Format(timeLayout),
			truncate(r.Listing.Title, 40),
			soles(r.Listing.Price()),
			r.Assessment.IsGoodDeal,
			r.Assessment.Confidence*100,
			r.Assessment.RiskLevel,
		)
	}
	return tw.finish()
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func soles(v float64) string {
	if v <= 0 {
		return "-"
	}
	return fmt.Sprintf("S/ %.0f", v)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(timeLayout)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
