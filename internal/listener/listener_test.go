package listener

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"aduanas/internal/config"
	"aduanas/internal/storage"
)

func writeWorkbook(t *testing.T, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), "DatosParte1"))
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, f.SetCellValue("DatosParte1", cell, v))
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, f.SaveAs(path))
}

func TestRunCycleProcessesNewFilesOnce(t *testing.T) {
	dir := t.TempDir()
	dictPath := filepath.Join(dir, "diccionario_kits.json")
	require.NoError(t, os.WriteFile(dictPath, []byte(`{"producto_variants": ["PRODUCTO:"], "marca_variants": ["MARCA:"]}`), 0o644))

	cfg := config.Config{
		RawDir:           filepath.Join(dir, "dataraw"),
		RawSheet:         "DatosParte1",
		OutputDir:        filepath.Join(dir, "data"),
		Variant:          "kits",
		DictionaryPath:   dictPath,
		RulesPath:        filepath.Join(dir, "missing.json"),
		CSVDelimiter:     '|',
		Workers:          2,
		ListenerAutoXLSX: true,
	}
	writeWorkbook(t, filepath.Join(cfg.RawDir, "marzo 2025.xlsx"), [][]any{
		{"Número de Aceptación", "Descripción de la Mercancía Detallada 1", "Cantidad", "Unidad Comercial"},
		{"482025000200", "PRODUCTO: CADENA 428H MARCA: AKT", 4, "U"},
	})

	db, err := storage.Open(filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, cfg, zap.NewNop())
	res, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleResult{Seen: 1, Processed: 1}, res)

	for _, name := range []string{"marzo_2025_kits.csv", "marzo_2025_kits.xlsx"} {
		_, err := os.Stat(filepath.Join(cfg.OutputDir, "listener", name))
		require.NoError(t, err, name)
	}

	res, err = svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleResult{Seen: 1}, res)

	runs, err := db.ListRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunCycleRecordsFailures(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		RawDir:         filepath.Join(dir, "dataraw"),
		RawSheet:       "DatosParte1",
		OutputDir:      filepath.Join(dir, "data"),
		Variant:        "kits",
		DictionaryPath: filepath.Join(dir, "missing.json"),
		Workers:        1,
		CSVDelimiter:   '|',
	}
	require.NoError(t, os.MkdirAll(cfg.RawDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.RawDir, "rota.xlsx"), []byte("nope"), 0o644))

	db, err := storage.Open(filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	defer db.Close()

	res, err := NewService(db, cfg, nil).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleResult{Seen: 1, Failed: 1}, res)
}

func TestRunCycleMissingRawDir(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = NewService(db, config.Config{RawDir: filepath.Join(dir, "nope")}, nil).RunCycle(context.Background())
	require.Error(t, err)
}
