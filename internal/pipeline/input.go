package pipeline

import (
	"bytes"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"

	"aduanas/internal"
)

// UnifiedHeader is the first line written by the raw unifier.
const UnifiedHeader = "numeroaceptacion|descripcion|cantidad|unidades"

var ErrMalformedLine = eris.New("pipeline: declaration line needs at least 4 pipe-separated fields")

// ParseLine splits "acceptance|description...|declared|unit". Pipes inside
// the description are kept.
func ParseLine(lineNo int, line string) (internal.RawDeclaration, error) {
	parts := strings.Split(strings.TrimSpace(line), "|")
	if len(parts) < 4 {
		return internal.RawDeclaration{}, eris.Wrapf(ErrMalformedLine, "line %d has %d fields", lineNo, len(parts))
	}
	return internal.RawDeclaration{
		LineNo:           lineNo,
		AcceptanceNumber: strings.TrimSpace(parts[0]),
		Description:      strings.TrimSpace(strings.Join(parts[1:len(parts)-2], "|")),
		DeclaredQuantity: strings.TrimSpace(parts[len(parts)-2]),
	}, nil
}

// IsHeader reports whether line is the unifier header.
func IsHeader(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), UnifiedHeader)
}

// DecodeInput returns blob as text. Lines that are not valid UTF-8 are read
// as Windows-1252, the encoding spreadsheet exports fall back to, so files
// stitched from mixed exports keep their UTF-8 lines intact.
func DecodeInput(blob []byte) (string, error) {
	blob = trimBOM(blob)
	if utf8.Valid(blob) {
		return string(blob), nil
	}
	dec := charmap.Windows1252.NewDecoder()
	lines := bytes.Split(blob, []byte("\n"))
	for i, line := range lines {
		if utf8.Valid(line) {
			continue
		}
		decoded, err := dec.Bytes(line)
		if err != nil {
			return "", eris.Wrapf(err, "pipeline: decode windows-1252 line %d", i+1)
		}
		lines[i] = decoded
	}
	return string(bytes.Join(lines, []byte("\n"))), nil
}

func trimBOM(blob []byte) []byte {
	if len(blob) >= 3 && blob[0] == 0xEF && blob[1] == 0xBB && blob[2] == 0xBF {
		return blob[3:]
	}
	return blob
}

// ReadLines reads the whole input and splits it into lines without the line
// terminators. Blank lines are kept so line numbers stay aligned with the
// file.
func ReadLines(r io.Reader) ([]string, error) {
	blob, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read input")
	}
	text, err := DecodeInput(blob)
	if err != nil {
		return nil, err
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines, nil
}

func ReadLinesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: open input %s", path)
	}
	defer f.Close()
	return ReadLines(f)
}
