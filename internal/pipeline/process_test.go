package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"aduanas/internal/config"
	"aduanas/internal/storage"
)

func testConfig(t *testing.T, dir string) config.Config {
	t.Helper()
	return config.Config{
		DBPath:         filepath.Join(dir, "app.db"),
		RawDir:         filepath.Join(dir, "dataraw"),
		RawSheet:       "DatosParte1",
		OutputDir:      filepath.Join(dir, "data"),
		Variant:        VariantKits,
		DictionaryPath: writeFile(t, filepath.Join(dir, "configs", "diccionario_kits.json"), kitsDictionaryJSON),
		RulesPath:      filepath.Join(dir, "configs", "missing.json"),
		CSVDelimiter:   '|',
		Workers:        2,
	}
}

func TestProcessingServiceRunFile(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	db, err := storage.Open(cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	input := writeFile(t, filepath.Join(dir, "dataraw.csv"), kitsBatchInput)
	out := Outputs{
		CSV:  filepath.Join(cfg.OutputDir, "resultado.csv"),
		XLSX: filepath.Join(cfg.OutputDir, "resultado.xlsx"),
		JSON: filepath.Join(cfg.OutputDir, "reporte.json"),
	}

	svc := NewProcessingService(db, cfg, nil)
	res, err := svc.RunFile(context.Background(), input, out)
	require.NoError(t, err)
	assert.Equal(t, input, res.Summary.InputPath)
	assert.Equal(t, 2, res.Summary.Records)

	for _, path := range []string{out.CSV, out.XLSX, out.JSON} {
		_, err := os.Stat(path)
		require.NoError(t, err, path)
	}

	stored, err := db.ListRecords(res.Summary.RunID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	export := filepath.Join(dir, "export.xlsx")
	require.NoError(t, svc.ExportRun("", export))
	f, err := excelize.OpenFile(export)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Detallado", "A2")
	require.NoError(t, err)
	assert.Equal(t, "100", v)
}

func TestProcessingServiceMissingDictionary(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.DictionaryPath = filepath.Join(dir, "nope.json")

	input := writeFile(t, filepath.Join(dir, "dataraw.csv"), kitsBatchInput)
	_, err := NewProcessingService(nil, cfg, nil).RunFile(context.Background(), input, Outputs{})
	require.Error(t, err)
}

func TestProcessingServiceExportUnknownRun(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	db, err := storage.Open(cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	svc := NewProcessingService(db, cfg, nil)
	require.Error(t, svc.ExportRun("", filepath.Join(dir, "x.xlsx")))
	require.Error(t, svc.ExportRun("nope", filepath.Join(dir, "x.xlsx")))
}
