package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the lead report using the configured export formats",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("export"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		exporter, err := buildExporter(cfg, st)
		if err != nil {
			return err
		}
		if exporter == nil {
			return eris.New("no export format configured (export.format)")
		}

		if err := exporter.Export(ctx); err != nil {
			return eris.Wrap(err, "export leads")
		}
		zap.L().Info("export complete", zap.Strings("formats", cfg.Export.Formats()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
