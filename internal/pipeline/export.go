package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"aduanas/internal"
)

const timestampLayout = "2006-01-02 15:04:05"

// recordRow is the flat output shape shared by the CSV, JSON and workbook
// writers.
type recordRow struct {
	AcceptanceNumber string `csv:"numero_aceptacion" json:"numero_aceptacion"`
	Product          string `csv:"producto" json:"producto"`
	Brand            string `csv:"marca" json:"marca"`
	Reference        string `csv:"referencia" json:"referencia"`
	Model            string `csv:"modelo" json:"modelo"`
	Quantity         int    `csv:"cantidad" json:"cantidad"`
	Unit             string `csv:"unidad" json:"unidad"`
	IsChain          string `csv:"es_cadena" json:"es_cadena"`
	StepMeasure      string `csv:"pasos_medidas" json:"pasos_medidas"`
	OriginalQuantity string `csv:"cantidad_original" json:"cantidad_original"`
	ProcessedAt      string `csv:"fecha_procesamiento" json:"fecha_procesamiento"`
}

func yesNo(v bool) string {
	if v {
		return "SÍ"
	}
	return "NO"
}

func toRows(records []internal.ExtractedRecord) []recordRow {
	rows := make([]recordRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, recordRow{
			AcceptanceNumber: r.AcceptanceNumber,
			Product:          r.Product,
			Brand:            r.Brand,
			Reference:        r.Reference,
			Model:            r.Model,
			Quantity:         r.Quantity,
			Unit:             r.Unit,
			IsChain:          yesNo(r.IsChain),
			StepMeasure:      r.StepMeasure,
			OriginalQuantity: r.OriginalQuantity,
			ProcessedAt:      r.ProcessedAt.Format(timestampLayout),
		})
	}
	return rows
}

// WriteCSV writes records with a header row. An empty record set still
// produces the header.
func WriteCSV(records []internal.ExtractedRecord, outputPath string, delimiter rune) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return eris.Wrap(err, "pipeline: create output dir")
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return eris.Wrapf(err, "pipeline: create %s", outputPath)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = delimiter
	enc := csvutil.NewEncoder(w)
	if err := enc.EncodeHeader(recordRow{}); err != nil {
		return eris.Wrap(err, "pipeline: csv header")
	}
	if rows := toRows(records); len(rows) > 0 {
		if err := enc.Encode(rows); err != nil {
			return eris.Wrap(err, "pipeline: csv rows")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "pipeline: flush csv")
	}
	return f.Close()
}

type reportMetadata struct {
	RunID       string `json:"run_id"`
	ProcessedAt string `json:"fecha_procesamiento"`
	Variant     string `json:"variante"`
	InputPath   string `json:"archivo_entrada"`
	Lines       int    `json:"lineas"`
	Processed   int    `json:"procesadas"`
	Errored     int    `json:"con_error"`
	Duplicates  int    `json:"duplicados"`
}

type report struct {
	Metadata   reportMetadata      `json:"metadata"`
	Statistics internal.Statistics `json:"estadisticas"`
	Records    []recordRow         `json:"registros"`
}

func WriteJSONReport(res Result, outputPath string) error {
	doc := report{
		Metadata: reportMetadata{
			RunID:       res.Summary.RunID,
			ProcessedAt: res.Summary.FinishedAt.Format(timestampLayout),
			Variant:     res.Summary.Variant,
			InputPath:   res.Summary.InputPath,
			Lines:       res.Summary.Lines,
			Processed:   res.Summary.Processed,
			Errored:     res.Summary.Errored,
			Duplicates:  res.Summary.Duplicates,
		},
		Statistics: ComputeStatistics(res.Records),
		Records:    toRows(res.Records),
	}
	blob, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "pipeline: encode report")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return eris.Wrap(err, "pipeline: create output dir")
	}
	return eris.Wrapf(os.WriteFile(outputPath, blob, 0o644), "pipeline: write %s", outputPath)
}

var detailHeaders = []string{
	"Número de Aceptación", "Producto", "Marca", "Referencia", "Modelo", "Cantidad",
	"Unidad", "Es Cadena", "Pasos/Medidas", "Cantidad Original", "Fecha Procesamiento",
}

var summaryHeaders = []string{
	"Número de Aceptación", "Total Productos", "Cantidad Total", "Marcas", "Tiene Cadena", "Pasos/Medidas", "Productos",
}

// WriteXLSX writes the detail, per-declaration and statistics sheets.
func WriteXLSX(records []internal.ExtractedRecord, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	const detail = "Detallado"
	if err := f.SetSheetName(f.GetSheetName(0), detail); err != nil {
		return eris.Wrap(err, "pipeline: rename sheet")
	}
	writeHeader(f, detail, detailHeaders)
	for i, row := range toRows(records) {
		setRow(f, detail, i+2,
			row.AcceptanceNumber, row.Product, row.Brand, row.Reference, row.Model, row.Quantity,
			row.Unit, row.IsChain, row.StepMeasure, row.OriginalQuantity, row.ProcessedAt)
	}

	const summary = "Resumen"
	if _, err := f.NewSheet(summary); err != nil {
		return eris.Wrap(err, "pipeline: add summary sheet")
	}
	writeHeader(f, summary, summaryHeaders)
	for i, d := range SummarizeDeclarations(records) {
		setRow(f, summary, i+2,
			d.AcceptanceNumber, d.Records, d.TotalQuantity, strings.Join(d.Brands, ", "),
			yesNo(d.HasChain), d.Steps, strings.Join(d.Products, ", "))
	}

	const statsSheet = "Estadísticas"
	if _, err := f.NewSheet(statsSheet); err != nil {
		return eris.Wrap(err, "pipeline: add statistics sheet")
	}
	stats := ComputeStatistics(records)
	writeHeader(f, statsSheet, []string{"Métrica", "Valor"})
	metrics := [][2]any{
		{"Total de declaraciones", stats.Declarations},
		{"Total de productos", stats.Records},
		{"Total de unidades", stats.TotalUnits},
		{"Productos con cadenas", stats.ChainRecords},
		{"Declaraciones con cadenas", stats.DeclarationsWithChains},
		{"Marcas únicas", stats.UniqueBrands},
		{"Promedio de productos por declaración", stats.AvgRecordsPerDeclaration},
		{"Promedio de unidades por producto", stats.AvgUnitsPerRecord},
		{"Declaración con más productos", stats.MaxRecordsDeclaration},
		{"Máximo de productos por declaración", stats.MaxRecordsPerDeclaration},
		{"Lista de marcas", strings.Join(stats.Brands, ", ")},
	}
	for i, m := range metrics {
		setRow(f, statsSheet, i+2, m[0], m[1])
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return eris.Wrap(err, "pipeline: create output dir")
	}
	return eris.Wrapf(f.SaveAs(outputPath), "pipeline: save %s", outputPath)
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
}

func setRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
