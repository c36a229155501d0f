package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/contact-enricher/internal/monitoring"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show lead counts by status and recent run totals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := monitoring.NewCollector(st).Collect(ctx, cfg.Monitoring.LookbackWindowHours)
		if err != nil {
			return eris.Wrap(err, "collect status")
		}

		if statusJSON {
			return printJSON(cmd.OutOrStdout(), snap)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STATUS\tLEADS")
		statuses := make([]string, 0, len(snap.LeadsByStatus))
		for s := range snap.LeadsByStatus {
			statuses = append(statuses, s)
		}
		sort.Strings(statuses)
		for _, s := range statuses {
			fmt.Fprintf(w, "%s\t%d\n", s, snap.LeadsByStatus[s])
		}
		fmt.Fprintf(w, "TOTAL\t%d\n\n", snap.LeadsTotal)

		fmt.Fprintf(w, "RUNS (%dh)\tPROCESSED\tHIGH VALUE\tPARTIAL\tFAILED\tSTORE ERRORS\tHIT RATE\n", snap.LookbackHours)
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\t%.1f%%\n",
			snap.Runs, snap.Processed, snap.HighValue, snap.Partial, snap.Failed, snap.StoreErrors, snap.HitRate*100)
		return w.Flush()
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the snapshot as JSON")
	rootCmd.AddCommand(statusCmd)
}
