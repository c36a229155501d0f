package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func sheetRows(t *testing.T, f *xlsx.File, name string) [][]string {
	t.Helper()
	sheet, ok := f.Sheet[name]
	require.True(t, ok, "sheet %q missing", name)

	var rows [][]string
	for _, r := range sheet.Rows {
		var cells []string
		for _, c := range r.Cells {
			cells = append(cells, c.String())
		}
		rows = append(rows, cells)
	}
	return rows
}

func TestXLSXExporter_WritesSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads_export.xlsx")
	e := NewXLSXExporter(&memSource{leads: fixtureLeads()}, path)

	require.NoError(t, e.Export(context.Background()))
	assert.Equal(t, path, e.Written)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	gold := sheetRows(t, f, SheetHighValue)
	require.Len(t, gold, 3)
	assert.Equal(t, xlsxHeader, gold[0])
	assert.Equal(t, []string{"GOLD_LEAD", "Acme", "https://acme.io", "Ada Lovelace", "ada@acme.io", "+1-555-0100", TierDirectDial}, gold[1])
	assert.Equal(t, "Ghost", gold[2][1])
	assert.Equal(t, TierEmailOnly, gold[2][6])

	all := sheetRows(t, f, SheetAll)
	require.Len(t, all, 5)
	// Promoted leads first, then id order.
	assert.Equal(t, []string{"Acme", "Ghost", "Redco", "Halfway"},
		[]string{all[1][1], all[2][1], all[3][1], all[4][1]})

	assert.True(t, f.Sheet[SheetAll].Rows[1].Cells[0].GetStyle().Font.Bold)
	assert.False(t, f.Sheet[SheetAll].Rows[3].Cells[0].GetStyle().Font.Bold)
}

func TestXLSXExporter_LockedTargetUsesNextVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leads_export.xlsx")
	// A directory at the target path cannot be overwritten, like an open workbook.
	require.NoError(t, os.Mkdir(path, 0o755))

	e := NewXLSXExporter(&memSource{leads: fixtureLeads()}, path)
	require.NoError(t, e.Export(context.Background()))

	want := filepath.Join(dir, "leads_export_v2.xlsx")
	assert.Equal(t, want, e.Written)
	_, err := os.Stat(want)
	assert.NoError(t, err)
}

func TestXLSXExporter_AllVersionsLocked(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.xlsx")
	require.NoError(t, os.Mkdir(path, 0o755))
	for n := 2; n <= maxVersions; n++ {
		require.NoError(t, os.Mkdir(filepath.Join(dir, fmt.Sprintf("out_v%d.xlsx", n)), 0o755))
	}

	err := NewXLSXExporter(&memSource{}, path).Export(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "versions are locked")
}

func TestXLSXExporter_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.xlsx")

	err := NewXLSXExporter(&memSource{}, path).Export(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export: save")
}

func TestXLSXExporter_SourceError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")

	err := NewXLSXExporter(&memSource{err: errors.New("db closed")}, path).Export(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export: list high-value leads")
}
