package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"aduanas/internal/catalog"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

const kitsDictionaryJSON = `{
  "producto_variants": ["PRODUCTO:"],
  "marca_variants": ["MARCA:"],
  "referencia_variants": ["REFERENCIA:"],
  "modelo_variants": ["MODELO:"],
  "cantidad_variants": ["CANTIDAD:"],
  "marcas_conocidas": {"AKT MOTOS": "AKT"}
}`

const generalDictionaryJSON = `{
  "referencia_variants": ["REFERENCIA:"],
  "marca_variants": ["MARCA:"],
  "cantidad_variants": ["CANTIDAD:"],
  "referencia_modelo_variants": {"RX 100": "RX100"}
}`

func mustDictionary(t *testing.T, blob string) *catalog.Dictionary {
	t.Helper()
	dict, err := catalog.ParseDictionary([]byte(blob))
	require.NoError(t, err)
	return dict
}

func newTestPipeline(t *testing.T, variant string, dictJSON string, rules *catalog.RuleSet) *Pipeline {
	t.Helper()
	v, err := VariantByName(variant)
	require.NoError(t, err)
	return NewPipeline(v, rules, mustDictionary(t, dictJSON), nil).WithClock(func() time.Time { return fixedNow })
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeRawWorkbook saves rows on a DatosParte1 sheet.
func writeRawWorkbook(t *testing.T, path string, rows [][]any) {
	t.Helper()
	writeSheetWorkbook(t, path, "DatosParte1", rows)
}

func writeSheetWorkbook(t *testing.T, path, sheet string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet))
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, f.SaveAs(path))
}
