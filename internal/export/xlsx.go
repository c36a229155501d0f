package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/model"
)

// Sheet names written by XLSXExporter.
const (
	SheetHighValue = "High Value Leads"
	SheetAll       = "All Leads"
)

// maxVersions bounds the _vN suffixes tried when the target is locked.
const maxVersions = 10

// Row fills by lead quality.
const (
	fillGold     = "FFFFD700"
	fillVerified = "FFFFFACD"
	fillStandard = "FFE1F5FE"
)

var xlsxHeader = []string{"Tier/Status", "Company", "Website", "Decision Maker", "Email", "Phone", "Outreach Tier"}

// XLSXExporter writes the lead store to an Excel workbook.
type XLSXExporter struct {
	src  LeadSource
	path string

	// Written holds the path of the last successful export.
	Written string
}

// NewXLSXExporter creates an exporter writing to path.
func NewXLSXExporter(src LeadSource, path string) *XLSXExporter {
	return &XLSXExporter{src: src, path: path}
}

// Export writes the high-value sheet and the full lead sheet. When the
// target cannot be replaced, for example because the workbook is open,
// it falls back to name_v2.xlsx through name_v10.xlsx.
func (e *XLSXExporter) Export(ctx context.Context) error {
	gold, err := e.src.ListHighValue(ctx)
	if err != nil {
		return eris.Wrap(err, "export: list high-value leads")
	}
	all, err := e.src.ListLeads(ctx)
	if err != nil {
		return eris.Wrap(err, "export: list leads")
	}

	f := xlsx.NewFile()
	if err := writeSheet(f, SheetHighValue, gold); err != nil {
		return err
	}
	if err := writeSheet(f, SheetAll, sortForReport(all)); err != nil {
		return err
	}

	path, err := saveVersioned(f, e.path)
	if err != nil {
		return err
	}
	e.Written = path
	zap.L().Info("export: workbook saved",
		zap.String("path", path),
		zap.Int("high_value", len(gold)),
		zap.Int("leads", len(all)),
	)
	return nil
}

// sortForReport puts high-value leads first and keeps id order otherwise.
func sortForReport(leads []model.Lead) []model.Lead {
	out := append([]model.Lead(nil), leads...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].HighValue() && !out[j].HighValue()
	})
	return out
}

func writeSheet(f *xlsx.File, name string, leads []model.Lead) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}

	header := sheet.AddRow()
	headerStyle := xlsx.NewStyle()
	headerStyle.Font.Bold = true
	headerStyle.ApplyFont = true
	for _, h := range xlsxHeader {
		c := header.AddCell()
		c.SetString(h)
		c.SetStyle(headerStyle)
	}

	styles := map[string]*xlsx.Style{}
	for _, l := range leads {
		style := rowStyle(styles, l)
		row := sheet.AddRow()
		for _, v := range []string{
			string(l.Status), l.Name, l.WebsiteURL, l.ContactName, l.ContactEmail, l.ContactPhone,
			OutreachTier(l.ContactPhone),
		} {
			c := row.AddCell()
			c.SetString(v)
			c.SetStyle(style)
		}
	}
	return nil
}

// rowStyle returns a shared style: gold and bold for promoted leads, light
// yellow for leads with an email, light blue otherwise.
func rowStyle(cache map[string]*xlsx.Style, l model.Lead) *xlsx.Style {
	color := fillStandard
	switch {
	case l.HighValue():
		color = fillGold
	case len(strings.TrimSpace(l.ContactEmail)) > 5:
		color = fillVerified
	}
	if s, ok := cache[color]; ok {
		return s
	}

	s := xlsx.NewStyle()
	s.Fill = *xlsx.NewFill("solid", color, color)
	s.ApplyFill = true
	if color == fillGold {
		s.Font.Bold = true
		s.ApplyFont = true
	}
	cache[color] = s
	return s
}

// saveVersioned saves f to path, or to the first _vN variant that accepts
// the write when path exists but cannot be replaced.
func saveVersioned(f *xlsx.File, path string) (string, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)

	target := path
	for n := 1; n <= maxVersions; n++ {
		if n > 1 {
			target = fmt.Sprintf("%s_v%d%s", stem, n, ext)
		}
		err := f.Save(target)
		if err == nil {
			return target, nil
		}
		if _, statErr := os.Stat(target); statErr != nil {
			// Nothing is in the way, so another name will not help.
			return "", eris.Wrapf(err, "export: save %s", target)
		}
		zap.L().Warn("export: workbook locked, trying next version",
			zap.String("path", target),
			zap.Error(err),
		)
	}
	return "", eris.Errorf("export: %s and %d versions are locked", path, maxVersions-1)
}
