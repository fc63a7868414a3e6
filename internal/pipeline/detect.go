package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"aduanas/internal"
)

var chainPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)CADENA`),
	regexp.MustCompile(`(?i)CHAIN`),
	regexp.MustCompile(`(?i)CADENILLA`),
	regexp.MustCompile(`(?i)KIT\s+ARRASTRE`),
	regexp.MustCompile(`(?i)KIT\s+DE\s+ARRASTRE`),
}

// DetectChain reports whether the text mentions a drive chain or a
// transmission kit.
func DetectChain(text string) bool {
	for _, re := range chainPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

type stepPattern struct {
	re            *regexp.Regexp
	resumeAtValue bool
}

var stepPatterns = []stepPattern{
	{re: regexp.MustCompile(`(?i)(\d+H[-\s]*\d*L?)`)},
	{re: regexp.MustCompile(`(?i)(\d+\s*H)`)},
	{re: regexp.MustCompile(`(?i)(\d+\.\d+\s*MM)`)},
	{re: regexp.MustCompile(`(?i)(\d+MM)`)},
	{re: regexp.MustCompile(`(?i)PASO:\s*([^,]+?)(?:\s*,|$)`), resumeAtValue: true},
	{re: regexp.MustCompile(`(?i)MEDIDA:\s*([^,]+?)(?:\s*,|$)`), resumeAtValue: true},
}

// ExtractSteps lists chain pitch and size tokens ("428H-120L", "6.35MM",
// "PASO: 520") in pattern order. Repeats are kept. No hits yields ["N/A"].
func ExtractSteps(text string) []string {
	var out []string
	for _, p := range stepPatterns {
		for _, raw := range findValues(p.re, text, p.resumeAtValue, 0) {
			value := strings.TrimSpace(raw)
			if utf8.RuneCountInString(value) > 1 {
				out = append(out, value)
			}
		}
	}
	if len(out) == 0 {
		return []string{internal.SentinelNotApplicable}
	}
	return out
}
