package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/enrich"
	"github.com/sells-group/contact-enricher/internal/monitoring"
)

var (
	enrichLimit     int
	enrichThreshold int
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich candidate leads until the high-value threshold is reached",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("enrich"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		metrics := monitoring.NewMetrics()
		penv, err := initProviders(cfg, metrics)
		if err != nil {
			return err
		}

		limit := enrichLimit
		if limit == 0 {
			limit = cfg.Enrich.Limit
		}
		leads, err := st.ListCandidates(ctx, leadStatuses(cfg.Enrich.CandidateStatuses), limit)
		if err != nil {
			return eris.Wrap(err, "list candidates")
		}

		exporter, err := buildExporter(cfg, st)
		if err != nil {
			return err
		}

		threshold := enrichThreshold
		if threshold == 0 {
			threshold = cfg.Enrich.SuccessThreshold
		}

		zap.L().Info("starting enrichment",
			zap.Int("candidates", len(leads)),
			zap.Int("threshold", threshold),
			zap.Strings("export_formats", cfg.Export.Formats()),
		)

		runner := enrich.NewRunner(st, penv.Orchestrator, exporter,
			enrich.WithThreshold(threshold),
			enrich.WithLeadCounter(metrics),
		)
		summary, runErr := runner.Run(ctx, leads)
		if summary != nil {
			if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
				return eris.Wrap(err, "print summary")
			}
		}
		return runErr
	},
}

func init() {
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "max candidate leads to load (default from config, 0 = all)")
	enrichCmd.Flags().IntVar(&enrichThreshold, "threshold", 0, "high-value leads that trigger export and halt (default from config)")
	rootCmd.AddCommand(enrichCmd)
}
