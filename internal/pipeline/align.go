package pipeline

import (
	"strings"
	"time"

	"aduanas/internal"
	"aduanas/internal/util"
)

type Sentinels struct {
	Product   string
	Brand     string
	Reference string
	Model     string
}

// Extraction is everything pulled out of one tagged description.
type Extraction struct {
	Products   []string
	Brands     []string
	References []string
	Models     []string
	Quantities []int
	IsChain    bool
	Steps      []string
}

// Align zips the candidate lists of one declaration into records. The record
// count is the longest list; shorter lists repeat their last element and
// empty lists fall back to the sentinels. A quantity list of [0] is replaced
// by the declared quantity.
func Align(decl internal.RawDeclaration, ex Extraction, sentinels Sentinels, processedAt time.Time) []internal.ExtractedRecord {
	quantities := ex.Quantities
	if len(quantities) == 0 || (len(quantities) == 1 && quantities[0] == 0) {
		quantities = []int{util.CleanDeclaredQty(decl.DeclaredQuantity)}
	}

	n := max(len(ex.Products), len(ex.Brands), len(ex.References), len(ex.Models), len(quantities), 1)

	steps := internal.SentinelNotApplicable
	if len(ex.Steps) > 0 {
		steps = strings.Join(ex.Steps, ", ")
	}

	out := make([]internal.ExtractedRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, internal.ExtractedRecord{
			AcceptanceNumber: decl.AcceptanceNumber,
			Product:          pick(ex.Products, i, sentinels.Product),
			Brand:            pick(ex.Brands, i, sentinels.Brand),
			Reference:        pick(ex.References, i, sentinels.Reference),
			Model:            pick(ex.Models, i, sentinels.Model),
			Quantity:         pick(quantities, i, 0),
			Unit:             internal.UnitUnidades,
			IsChain:          ex.IsChain,
			StepMeasure:      steps,
			OriginalQuantity: decl.DeclaredQuantity,
			ProcessedAt:      processedAt,
		})
	}
	return out
}

func pick[T any](values []T, i int, fallback T) T {
	if len(values) == 0 {
		return fallback
	}
	if i >= len(values) {
		return values[len(values)-1]
	}
	return values[i]
}

// DedupeRecords keeps the first record of every key and reports how many
// were dropped.
func DedupeRecords(records []internal.ExtractedRecord) ([]internal.ExtractedRecord, int) {
	seen := make(map[internal.RecordKey]struct{}, len(records))
	out := make([]internal.ExtractedRecord, 0, len(records))
	for _, r := range records {
		key := r.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out, len(records) - len(out)
}
