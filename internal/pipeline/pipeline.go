package pipeline

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"aduanas/internal"
	"aduanas/internal/catalog"
	"aduanas/internal/util"
)

// Pipeline turns one declaration line into product records. It is safe for
// concurrent use once built.
type Pipeline struct {
	variant Variant
	rules   *catalog.RuleSet
	dict    *catalog.Dictionary
	log     *zap.Logger
	now     func() time.Time
}

func NewPipeline(v Variant, rules *catalog.RuleSet, dict *catalog.Dictionary, log *zap.Logger) *Pipeline {
	if rules == nil {
		rules = catalog.NewRuleSet()
	}
	if dict == nil {
		dict = catalog.NewDictionary()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{variant: v, rules: rules, dict: dict, log: log, now: time.Now}
}

// WithClock replaces the timestamp source stamped on every record.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

func (p *Pipeline) Variant() Variant { return p.variant }

// TagText normalizes a description and rewrites its dictionary phrases into
// canonical tags.
func (p *Pipeline) TagText(description string) string {
	return ApplyDictionary(p.Normalize(description), p.dict, p.variant)
}

// Extract pulls every field out of an already tagged text.
func (p *Pipeline) Extract(tagged string) Extraction {
	v := p.variant
	var correctRef func(string) string
	if v.ReferenceCorrections != "" {
		correctRef = p.correctReference
	}
	return Extraction{
		Products:   ExtractField(tagged, v.Product, nil),
		Brands:     ExtractField(tagged, v.Brand, nil),
		References: ExtractField(tagged, v.Reference, correctRef),
		Models:     ExtractField(tagged, v.Model, nil),
		Quantities: ExtractQuantities(tagged, v.Quantities),
		IsChain:    DetectChain(tagged),
		Steps:      ExtractSteps(tagged),
	}
}

var dashSpacing = strings.NewReplacer(" - ", "-", " -", "-", "- ", "-")

// correctReference maps a reference through the exact-match correction table,
// or tightens the spacing around dashes when no entry applies.
func (p *Pipeline) correctReference(ref string) string {
	if fixed, ok := p.dict.Lookup(p.variant.ReferenceCorrections, ref); ok {
		return fixed
	}
	return util.CollapseSpaces(dashSpacing.Replace(util.CollapseSpaces(ref)))
}

// ProcessLine runs the whole chain for one declaration. Records are not yet
// deduplicated across lines.
func (p *Pipeline) ProcessLine(decl internal.RawDeclaration) []internal.ExtractedRecord {
	tagged := p.TagText(decl.Description)
	ex := p.Extract(tagged)
	records := Align(decl, ex, p.variant.Sentinels(), p.now())
	records, _ = DedupeRecords(records)
	return records
}
