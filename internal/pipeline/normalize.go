package pipeline

import (
	"strings"

	"go.uber.org/zap"

	"aduanas/internal/catalog"
	"aduanas/internal/util"
)

// maxSymbolPasses bounds NormalizeSymbols; real tables settle in two passes.
const maxSymbolPasses = 8

// NormalizeSymbols applies a symbol table in order, repeating the table until
// the text stops changing. Later entries can produce text an earlier entry
// rewrites (";" becoming "," in front of "MARCA: SEGUN FACTURA").
func NormalizeSymbols(text string, table []Replacement) string {
	for pass := 0; pass < maxSymbolPasses; pass++ {
		next := applySymbols(text, table)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func applySymbols(text string, table []Replacement) string {
	for _, r := range table {
		if r.Old == "" || !strings.Contains(text, r.Old) {
			continue
		}
		if r.Prefix {
			text = insertBefore(text, r.Old, r.New)
			continue
		}
		text = strings.ReplaceAll(text, r.Old, r.New)
	}
	return text
}

func insertBefore(text, keyword, sep string) string {
	var b strings.Builder
	b.Grow(len(text) + len(sep)*2)
	pos := 0
	for {
		i := strings.Index(text[pos:], keyword)
		if i < 0 {
			break
		}
		at := pos + i
		b.WriteString(text[pos:at])
		if !strings.HasSuffix(text[:at], sep) {
			b.WriteString(sep)
		}
		b.WriteString(keyword)
		pos = at + len(keyword)
	}
	b.WriteString(text[pos:])
	return b.String()
}

// ApplyRules runs the named rules in order, skipping names the set does not
// define and rules that fail, then collapses whitespace.
func ApplyRules(text string, rules *catalog.RuleSet, order []string, log *zap.Logger) string {
	for _, name := range order {
		out, ok, err := rules.Apply(name, text)
		if !ok {
			continue
		}
		if err != nil {
			log.Debug("rule skipped", zap.String("rule", name), zap.Error(err))
			continue
		}
		text = out
	}
	return util.CollapseSpaces(text)
}

// Normalize turns a raw description into the canonical uppercase form the
// tagger works on.
func (p *Pipeline) Normalize(description string) string {
	text := description
	if p.variant.UppercaseFirst {
		text = util.CollapseSpaces(strings.ToUpper(text))
	}
	text = NormalizeSymbols(text, p.variant.Symbols)
	text = ApplyRules(text, p.rules, p.variant.RuleOrder, p.log)
	if !p.variant.UppercaseFirst {
		text = strings.ToUpper(text)
	}
	return util.CollapseSpaces(text)
}
