package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func dedupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Inspect and manage the server's processed-listing memory",
	}
	cmd.AddCommand(
		dedupStatsCmd(),
		dedupSweepCmd(),
		dedupExportCmd(),
		dedupImportCmd(),
		dedupRecentCmd(),
	)
	return cmd
}

func dedupStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dedup store statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newClient().DedupStats(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(s)
			}
			tw := newTabWriter(os.Stdout)
			tw.writef("Count:\t%d / %d\n", s.Count, s.Capacity)
			tw.writef("Evictions:\t%d\n", s.Evictions)
			tw.writef("Oldest:\t%s\n", formatTimePtr(s.OldestInsertedAt))
			tw.writef("Newest:\t%s\n", formatTimePtr(s.NewestInsertedAt))
			return tw.finish()
		},
	}
}

func dedupSweepCmd() *cobra.Command {
	var maxAge time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove records older than --max-age",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := newClient().SweepDedup(cmd.Context(), maxAge)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(res)
			}
			fmt.Printf("Removed %d records, %d remaining.\n", res.Removed, res.Remaining)
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "age cutoff (0 uses the server default)")
	return cmd
}

func dedupExportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the dedup snapshot to a file or stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := newClient().ExportDedup(cmd.Context())
			if err != nil {
				return err
			}
			if file == "" || file == "-" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(file, data, 0o600); err != nil {
				return fmt.Errorf("writing %s: %w", file, err)
			}
			fmt.Fprintf(os.Stderr, "Snapshot written to %s.\n", file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "destination file (default stdout)")
	return cmd
}

func dedupImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the server's dedup store with a snapshot (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			res, err := newClient().ImportDedup(cmd.Context(), data)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(res)
			}
			fmt.Printf("Imported %d records.\n", res.ImportedCount)
			return nil
		},
	}
}

func dedupRecentCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recently processed listings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := newClient().RecentListings(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(records)
			}
			return printRecentTable(records)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum records")
	return cmd
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(name) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}
