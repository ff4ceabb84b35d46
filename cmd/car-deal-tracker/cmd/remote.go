package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/car-deal-tracker/internal/api/client"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

func triggerCmd() *cobra.Command {
	var (
		test  bool
		limit int
		wait  bool
	)
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Trigger a run on the server",
		Long: "Asks the server to start a pipeline run. By default the run happens in\n" +
			"the background; --wait blocks until it finishes and prints its statistics.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := newClient()

			var (
				resp *apiclient.RunResponse
				err  error
			)
			if test {
				resp, err = c.TestRun(cmd.Context(), limit, wait)
			} else {
				resp, err = c.Run(cmd.Context(), wait)
			}
			if apiclient.IsConflict(err) {
				return errors.New("a run is already in progress on the server")
			}
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(resp)
			}
			if resp.Run == nil {
				fmt.Println("Run started.")
				return nil
			}
			return printRunDetail(resp.Run)
		},
	}
	cmd.Flags().BoolVar(&test, "test", false, "run a test run on a few candidates")
	cmd.Flags().IntVar(&limit, "limit", 0, "candidate cap for --test (0 uses the server default)")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for the run to finish")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the server pipeline state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := newClient().Status(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(st)
			}
			return printStatus(st)
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cumulative run statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newClient().Stats(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(s)
			}
			return printSummary(s)
		},
	}
}

func runsCmd() *cobra.Command {
	var (
		mode   string
		limit  int
		offset int
	)
	cmd := &cobra.Command{
		Use:   "runs [id]",
		Short: "List run history, or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()

			if len(args) == 1 {
				r, err := c.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput() {
					return outputJSON(r)
				}
				return printRunDetail(r)
			}

			page, err := c.ListRuns(cmd.Context(), domain.RunMode(mode), limit, offset)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(page)
			}
			if err := printRunsTable(page.Runs); err != nil {
				return err
			}
			fmt.Printf("\n%d of %d runs\n", len(page.Runs), page.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "filter by mode (full, test)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "runs to skip")
	return cmd
}

func logsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the activity log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := newClient().Logs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(entries)
			}
			return printLogTable(entries)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries")
	return cmd
}

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the server's runtime settings",
	}
	cmd.AddCommand(settingsGetCmd(), settingsSetCmd(), marketCmd())
	return cmd
}

func settingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the runtime settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newClient().GetSettings(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(s)
			}
			return printSettings(s)
		},
	}
}

func settingsSetCmd() *cobra.Command {
	var (
		maxPrice  float64
		minYear   int
		maxItems  int
		margin    float64
		location  string
		query     string
		reference string
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change runtime settings; unset flags keep their value",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := newClient()
			s, err := c.GetSettings(cmd.Context())
			if err != nil {
				return err
			}

			f := cmd.Flags()
			if f.Changed("max-price") {
				s.MaxPrice = maxPrice
			}
			if f.Changed("min-year") {
				s.MinYear = minYear
			}
			if f.Changed("max-items") {
				s.MaxItemsPerRun = maxItems
			}
			if f.Changed("min-margin") {
				s.MinProfitMarginPct = margin
			}
			if f.Changed("location") {
				s.TargetLocation = location
			}
			if f.Changed("query") {
				s.SearchQuery = query
			}
			if f.Changed("reference-profile") {
				s.ReferenceProfileURL = reference
			}

			updated, err := c.UpdateSettings(cmd.Context(), *s)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(updated)
			}
			return printSettings(updated)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&maxPrice, "max-price", 0, "maximum candidate price (0 uses the market maximum)")
	f.IntVar(&minYear, "min-year", 0, "minimum model year")
	f.IntVar(&maxItems, "max-items", 0, "maximum candidates per full run")
	f.Float64Var(&margin, "min-margin", 0, "minimum profit margin percent for a deal")
	f.StringVar(&location, "location", "", "marketplace location slug")
	f.StringVar(&query, "query", "", "marketplace search query")
	f.StringVar(&reference, "reference-profile", "", "reference profile URL for market context")
	return cmd
}

func marketCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Show the server's market context",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := newClient()

			var (
				mc  *domain.MarketContext
				err error
			)
			if refresh {
				mc, err = c.RefreshMarketContext(cmd.Context())
			} else {
				mc, err = c.MarketContext(cmd.Context())
			}
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(mc)
			}
			return printMarketContext(mc)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "re-sample the reference profile first")
	return cmd
}
