package pipeline

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ErrNoWorkbooks = eris.New("pipeline: no readable raw workbooks")

const (
	colAcceptance = "Número de Aceptación"
	colQuantity   = "Cantidad"
	colUnit       = "Unidad Comercial"
	colDetail     = "Descripción de la Mercancía Detallada"
	detailColumns = 5
)

// RawRow is one declaration as read from a raw workbook.
type RawRow struct {
	AcceptanceNumber string
	Description      string
	Quantity         string
	Unit             string
}

func (r RawRow) Line() string {
	return strings.Join([]string{r.AcceptanceNumber, r.Description, r.Quantity, r.Unit}, "|")
}

type UnifyResult struct {
	Files   []string
	Skipped []string
	Rows    int
}

// ListRawFiles returns the workbooks under dir, skipping editor lock files.
func ListRawFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read raw dir %s", dir)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~$") {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".xlsx", ".xls", ".html", ".htm":
			out = append(out, filepath.Join(dir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}

// UnifyRaw reads every workbook in dir and writes one pipe-delimited file
// with the unified header.
func UnifyRaw(dir, sheet, outputPath string, log *zap.Logger) (UnifyResult, error) {
	files, err := ListRawFiles(dir)
	if err != nil {
		return UnifyResult{}, err
	}
	return UnifyFiles(files, sheet, outputPath, log)
}

func UnifyFiles(files []string, sheet, outputPath string, log *zap.Logger) (UnifyResult, error) {
	res := UnifyResult{}
	var rows []RawRow
	for _, path := range files {
		fileRows, err := ReadRawFile(path, sheet)
		if err != nil {
			log.Warn("raw file skipped", zap.String("path", path), zap.Error(err))
			res.Skipped = append(res.Skipped, path)
			continue
		}
		log.Debug("raw file read", zap.String("path", path), zap.Int("rows", len(fileRows)))
		res.Files = append(res.Files, path)
		rows = append(rows, fileRows...)
	}
	if len(res.Files) == 0 {
		return res, ErrNoWorkbooks
	}
	res.Rows = len(rows)
	if err := writeUnified(rows, outputPath); err != nil {
		return res, err
	}
	log.Info("raw files unified", zap.Int("files", len(res.Files)), zap.Int("rows", res.Rows), zap.String("output", outputPath))
	return res, nil
}

func writeUnified(rows []RawRow, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return eris.Wrap(err, "pipeline: create output dir")
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return eris.Wrapf(err, "pipeline: create %s", outputPath)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	_, _ = w.WriteString(UnifiedHeader + "\n")
	for _, r := range rows {
		_, _ = w.WriteString(r.Line() + "\n")
	}
	if err := w.Flush(); err != nil {
		return eris.Wrapf(err, "pipeline: write %s", outputPath)
	}
	return f.Close()
}

// ReadRawFile picks the reader by content: customs portals often serve HTML
// tables with an .xls extension.
func ReadRawFile(path, sheet string) ([]RawRow, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read %s", path)
	}
	if looksLikeHTML(blob) {
		return parseRawHTML(blob)
	}
	return parseRawXLSX(blob, sheet)
}

func looksLikeHTML(blob []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(blob[:min(len(blob), 512)]))
	return bytes.HasPrefix(head, []byte("<")) && (bytes.Contains(head, []byte("<html")) || bytes.Contains(head, []byte("<table")) || bytes.Contains(head, []byte("<!doctype")))
}

func parseRawXLSX(content []byte, sheet string) ([]RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: open workbook")
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		// exports that renamed the sheet still carry the data on the first one
		if sheets := f.GetSheetList(); len(sheets) > 0 {
			sheet = sheets[0]
		}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: sheet %s", sheet)
	}
	return rowsToRaw(rows)
}

func parseRawHTML(content []byte) ([]RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: parse html")
	}

	var out []RawRow
	var parseErr error
	found := false
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		var rows [][]string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, cell.Text())
			})
			rows = append(rows, cells)
		})
		parsed, err := rowsToRaw(rows)
		if err != nil {
			parseErr = err
			return true
		}
		out, found = parsed, true
		return false
	})
	if !found {
		if parseErr == nil {
			parseErr = eris.New("pipeline: no table in html")
		}
		return nil, parseErr
	}
	return out, nil
}

type rawColumns struct {
	acceptance int
	details    []int
	quantity   int
	unit       int
}

// rowsToRaw locates the header among the first rows and converts the rest.
func rowsToRaw(rows [][]string) ([]RawRow, error) {
	for h := 0; h < len(rows) && h < 10; h++ {
		cols, ok := locateColumns(rows[h])
		if !ok {
			continue
		}
		out := make([]RawRow, 0, len(rows)-h-1)
		for _, row := range rows[h+1:] {
			acceptance := cleanCell(cellAt(row, cols.acceptance))
			if acceptance == "" {
				continue
			}
			details := make([]string, 0, len(cols.details))
			for _, idx := range cols.details {
				details = append(details, cleanCell(cellAt(row, idx)))
			}
			out = append(out, RawRow{
				AcceptanceNumber: acceptance,
				Description:      strings.TrimSpace(strings.Join(details, " ")),
				Quantity:         cleanCell(cellAt(row, cols.quantity)),
				Unit:             cleanCell(cellAt(row, cols.unit)),
			})
		}
		return out, nil
	}
	return nil, eris.Errorf("pipeline: columns %q, %q and %q not found", colAcceptance, colDetail+" 1..5", colQuantity)
}

func locateColumns(header []string) (rawColumns, bool) {
	cols := rawColumns{acceptance: -1, quantity: -1, unit: -1}
	details := map[int]int{}
	for i, h := range header {
		key := foldHeader(h)
		switch key {
		case foldHeader(colAcceptance):
			cols.acceptance = i
		case foldHeader(colQuantity):
			cols.quantity = i
		case foldHeader(colUnit):
			cols.unit = i
		}
		for n := 1; n <= detailColumns; n++ {
			if key == foldHeader(colDetail+" "+string(rune('0'+n))) {
				details[n] = i
			}
		}
	}
	for n := 1; n <= detailColumns; n++ {
		if idx, ok := details[n]; ok {
			cols.details = append(cols.details, idx)
		}
	}
	return cols, cols.acceptance >= 0 && cols.quantity >= 0 && len(cols.details) > 0
}

// foldHeader compares headers without accents, case or extra spaces.
func foldHeader(h string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, h)
	if err != nil {
		folded = h
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

var cellCleaner = strings.NewReplacer("|", "", "\r\n", " ", "\n", " ", "\r", " ")

func cleanCell(v string) string {
	return strings.TrimSpace(cellCleaner.Replace(v))
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
