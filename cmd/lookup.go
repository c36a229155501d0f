package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/monitoring"
)

var lookupDomain string

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Run the waterfall for a single domain without touching the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("lookup"); err != nil {
			return err
		}

		domain, err := model.ExtractDomain(lookupDomain)
		if err != nil {
			return eris.Wrapf(err, "invalid domain %q", lookupDomain)
		}

		penv, err := initProviders(cfg, monitoring.NewMetrics())
		if err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), penv.Orchestrator.Enrich(ctx, domain))
	},
}

func init() {
	lookupCmd.Flags().StringVar(&lookupDomain, "domain", "", "domain or website URL to look up (required)")
	_ = lookupCmd.MarkFlagRequired("domain")
	rootCmd.AddCommand(lookupCmd)
}
