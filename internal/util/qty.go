package util

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var declaredDecimals = regexp.MustCompile(`(\d+)[.,\s]00\b`)

// CleanDeclaredQty coerces the declared quantity column ("5.00", "12,00",
// "7") to an integer. Anything that does not parse becomes 0.
func CleanDeclaredQty(raw string) int {
	line := strings.ReplaceAll(raw, "\u00a0", " ")
	cleaned := declaredDecimals.ReplaceAllString(line, "${1}")
	return ParseCount(cleaned)
}

// ParseCount parses a numeric token as a float and truncates it toward zero.
// Negative, non-finite and unparsable tokens yield 0.
func ParseCount(token string) int {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
	if err != nil {
		return 0
	}
	if math.IsNaN(parsed) || math.IsInf(parsed, 0) || parsed < 0 || parsed >= math.MaxInt64 {
		return 0
	}
	return int(parsed)
}
