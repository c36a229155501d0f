package main

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/store"
)

var importCSVPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import leads from a CSV of name,website,status into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if importCSVPath == "" {
			return eris.New("csv path is required (--csv)")
		}
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		f, err := os.Open(importCSVPath)
		if err != nil {
			return eris.Wrap(err, "open csv")
		}
		defer f.Close() //nolint:errcheck

		leads, err := parseLeadsCSV(f)
		if err != nil {
			return eris.Wrapf(err, "parse %s", importCSVPath)
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		imported, err := importLeads(ctx, st, leads)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.Int64("imported", imported),
			zap.Int("rows", len(leads)),
			zap.String("csv", importCSVPath),
		)
		return nil
	},
}

func importLeads(ctx context.Context, st store.LeadStore, leads []model.Lead) (int64, error) {
	if bi, ok := st.(store.BulkImporter); ok {
		n, err := bi.ImportLeads(ctx, leads)
		if err != nil {
			return 0, eris.Wrap(err, "bulk import leads")
		}
		return n, nil
	}

	var n int64
	for _, l := range leads {
		if _, err := st.UpsertLead(ctx, l); err != nil {
			return n, eris.Wrapf(err, "import lead %q", l.WebsiteURL)
		}
		n++
	}
	return n, nil
}

// parseLeadsCSV reads name,website,status rows. A header row naming a
// "website" column selects columns by name; otherwise columns are
// positional. Rows without a website are skipped.
func parseLeadsCSV(r io.Reader) ([]model.Lead, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	cols := map[string]int{"name": 0, "website": 1, "status": 2}
	var leads []model.Lead
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if first {
			first = false
			if header, ok := headerColumns(rec); ok {
				cols = header
				continue
			}
		}

		website := field(rec, cols["website"])
		if website == "" {
			continue
		}
		leads = append(leads, model.Lead{
			Name:       field(rec, cols["name"]),
			WebsiteURL: website,
			Status:     model.LeadStatus(strings.ToUpper(field(rec, cols["status"]))),
		})
	}
	return leads, nil
}

func headerColumns(rec []string) (map[string]int, bool) {
	cols := map[string]int{"name": -1, "website": -1, "status": -1}
	for i, h := range rec {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name", "company", "company name":
			cols["name"] = i
		case "website", "website_url", "url":
			cols["website"] = i
		case "status", "tier":
			cols["status"] = i
		}
	}
	return cols, cols["website"] >= 0
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}
