package pipeline

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"aduanas/internal/util"
)

// FieldRule describes how one tagged field (PRODUCTO, MARCA, ...) is pulled
// out of the tagged text.
type FieldRule struct {
	Tag       string
	MinLen    int
	Blacklist []string
	Sentinel  string

	patterns []*regexp.Regexp
}

// newFieldRule builds the three patterns tried for a field, in order:
// comma-prefixed tag bounded by a stop tag, the same without the comma, and
// a comma-prefixed tag whose value ends at the next punctuation mark.
//
// Each pattern ends with what would be a lookahead in a backtracking engine;
// findValues resumes scanning right after the captured value so that the
// bounding tag can open the next match.
func newFieldRule(tag string, stops []string, minLen int, blacklist []string, sentinel string) *FieldRule {
	stop := strings.Join(stops, "|")
	return &FieldRule{
		Tag:       tag,
		MinLen:    minLen,
		Blacklist: blacklist,
		Sentinel:  sentinel,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i),\s*` + tag + `:\s*([^,]+?)\s*,\s*(?:` + stop + `|$)`),
			regexp.MustCompile(`(?i)` + tag + `:\s*([^,]+?)\s*,\s*(?:` + stop + `|$)`),
			regexp.MustCompile(`(?i),\s*` + tag + `:\s*([^,.;:]+?)(?:\s*[,.;:]|$)`),
		},
	}
}

func (r *FieldRule) accepts(value string) bool {
	if utf8.RuneCountInString(value) <= r.MinLen {
		return false
	}
	upper := strings.ToUpper(value)
	for _, b := range r.Blacklist {
		if upper == b {
			return false
		}
	}
	return true
}

// ExtractField returns the distinct candidates for rule in first-seen order.
// correct, when non-nil, rewrites each candidate after validation.
func ExtractField(text string, rule *FieldRule, correct func(string) string) []string {
	set := util.NewOrderedSet[string]()
	for _, re := range rule.patterns {
		for _, raw := range findValues(re, text, true, 0) {
			value := util.TrimTrailingPunct(raw)
			if !rule.accepts(value) {
				continue
			}
			if correct != nil {
				value = correct(value)
			}
			set.Add(value)
		}
	}
	return set.Values()
}

// findValues returns capture group 1 of every match, scanning left to right.
// With resumeAtValue the next scan starts where the captured value ends
// instead of where the whole match ends. A match whose rejectGroup
// participated is discarded and scanning moves on one rune.
func findValues(re *regexp.Regexp, text string, resumeAtValue bool, rejectGroup int) []string {
	var out []string
	pos := 0
	for pos <= len(text) {
		loc := re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if rejectGroup > 0 && loc[2*rejectGroup] >= 0 {
			pos = start + runeWidth(text, start)
			continue
		}
		next := end
		if loc[2] >= 0 {
			out = append(out, text[pos+loc[2]:pos+loc[3]])
			if resumeAtValue {
				next = pos + loc[3]
			}
		}
		if next <= start {
			next = start + runeWidth(text, start)
		}
		pos = next
	}
	return out
}

func runeWidth(text string, at int) int {
	if at >= len(text) {
		return 1
	}
	_, size := utf8.DecodeRuneInString(text[at:])
	return size
}

type quantityPattern struct {
	re *regexp.Regexp
	// rejectGroup, when set, stands in for a negative lookahead: the match
	// is dropped if that group matched.
	rejectGroup int
}

func qty(expr string) quantityPattern {
	return quantityPattern{re: regexp.MustCompile(`(?i)` + expr)}
}

func qtyNotUnidad(expr string) quantityPattern {
	return quantityPattern{re: regexp.MustCompile(`(?i)` + expr + `(NIDAD)?`), rejectGroup: 2}
}

var kitsQuantityPatterns = []quantityPattern{
	qty(`(\d+(?:\.\d+)?)\s*(?:UNIDADES?|PIEZA|KILOS|UND)`),
	qty(`,\s*CANTIDAD:\s*(\d+)\s*UNIDADES?`),
	qty(`,\s*CANTIDAD:\s*(\d+)\s*UND?`),
	qtyNotUnidad(`,\s*CANTIDAD:\s*\(?(\d+)\)?\s*U`),
	qty(`,\s*CANTIDAD:\s*(\d+)`),
	qty(`CANTIDAD:\s*(\d+(?:\.\d+)?)\s*(?:UNIDADES?|UND)`),
	qty(`CANT\s*\(\s*(\d+(?:\.\d+)?)\s*U\s*\)`),
}

var generalQuantityPatterns = []quantityPattern{
	qty(`,\s*CANTIDAD:\s*(\d+)\s*UNIDADES?`),
	qtyNotUnidad(`,\s*CANTIDAD:\s*(\d+)\s*U`),
	qtyNotUnidad(`,\s*CANTIDAD:\s*\(?(\d+)\)?\s*U`),
	qty(`,\s*CANTIDAD:\s*(\d+)`),
	qty(`CANTIDAD:\s*(\d+)\s*UNIDADES?`),
	qtyNotUnidad(`CANTIDAD:\s*(\d+)\s*U`),
	qtyNotUnidad(`CANTIDAD:\s*\(?(\d+)\)?\s*U`),
	qty(`CANTIDAD:\s*(\d+)`),
}

// ExtractQuantities collects every quantity the patterns find, drops values
// below one after truncation, and returns them sorted ascending without
// repeats. No hits yields [0].
func ExtractQuantities(text string, patterns []quantityPattern) []int {
	seen := map[int]struct{}{}
	for _, p := range patterns {
		for _, raw := range findValues(p.re, text, false, p.rejectGroup) {
			n := util.ParseCount(raw)
			if n < 1 {
				continue
			}
			seen[n] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return []int{0}
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
