package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"aduanas/internal"
)

func sampleRecords() []internal.ExtractedRecord {
	return []internal.ExtractedRecord{
		{AcceptanceNumber: "A1", Product: "KIT DE ARRASTRE", Brand: "AKT", Reference: "428H-120L", Model: internal.SentinelNoEspecificado,
			Quantity: 10, Unit: internal.UnitUnidades, IsChain: true, StepMeasure: "428H-120L, 428H", OriginalQuantity: "10.00", ProcessedAt: fixedNow},
		{AcceptanceNumber: "A1", Product: "PIÑON", Brand: "AKT", Reference: internal.SentinelNoEspecificada, Model: internal.SentinelNoEspecificado,
			Quantity: 2, Unit: internal.UnitUnidades, StepMeasure: "428H-120L, 428H", OriginalQuantity: "10.00", ProcessedAt: fixedNow},
		{AcceptanceNumber: "B2", Product: "CORONA", Brand: internal.SentinelNoEspecificada, Reference: internal.SentinelNoEspecificada, Model: internal.SentinelNoEspecificado,
			Quantity: 1, Unit: internal.UnitUnidades, StepMeasure: "N/A", OriginalQuantity: "1", ProcessedAt: fixedNow},
	}
}

const csvHeader = "numero_aceptacion|producto|marca|referencia|modelo|cantidad|unidad|es_cadena|pasos_medidas|cantidad_original|fecha_procesamiento"

func TestWriteCSV(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out", "resultado.csv")
	require.NoError(t, WriteCSV(sampleRecords()[:1], out, '|'))

	blob, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(blob), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, csvHeader, lines[0])
	assert.Equal(t, "A1|KIT DE ARRASTRE|AKT|428H-120L|NO ESPECIFICADO|10|UNIDADES|SÍ|428H-120L, 428H|10.00|2025-03-14 09:30:00", lines[1])
}

func TestWriteCSVEmptyKeepsHeader(t *testing.T) {
	out := filepath.Join(t.TempDir(), "vacio.csv")
	require.NoError(t, WriteCSV(nil, out, '|'))

	blob, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, csvHeader+"\n", string(blob))
}

func TestWriteXLSX(t *testing.T) {
	out := filepath.Join(t.TempDir(), "resultado.xlsx")
	require.NoError(t, WriteXLSX(sampleRecords(), out))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Detallado", "Resumen", "Estadísticas"}, f.GetSheetList())

	v, err := f.GetCellValue("Detallado", "B3")
	require.NoError(t, err)
	assert.Equal(t, "PIÑON", v)

	v, err = f.GetCellValue("Resumen", "A2")
	require.NoError(t, err)
	assert.Equal(t, "A1", v)
	v, err = f.GetCellValue("Resumen", "B2")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
	v, err = f.GetCellValue("Resumen", "G2")
	require.NoError(t, err)
	assert.Equal(t, "KIT DE ARRASTRE, PIÑON", v)

	v, err = f.GetCellValue("Estadísticas", "B3")
	require.NoError(t, err)
	assert.Equal(t, "3", v)
}

func TestWriteJSONReport(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reporte.json")
	res := Result{
		Summary: internal.RunSummary{RunID: "r1", Variant: VariantKits, Lines: 2, Processed: 2, FinishedAt: fixedNow},
		Records: sampleRecords(),
	}
	require.NoError(t, WriteJSONReport(res, out))

	blob, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc struct {
		Metadata     map[string]any      `json:"metadata"`
		Estadisticas internal.Statistics `json:"estadisticas"`
		Registros    []map[string]any    `json:"registros"`
	}
	require.NoError(t, json.Unmarshal(blob, &doc))
	assert.Equal(t, "r1", doc.Metadata["run_id"])
	assert.Equal(t, "2025-03-14 09:30:00", doc.Metadata["fecha_procesamiento"])
	assert.Equal(t, 3, doc.Estadisticas.Records)
	require.Len(t, doc.Registros, 3)
	assert.Equal(t, "SÍ", doc.Registros[0]["es_cadena"])
}
