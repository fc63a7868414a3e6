package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var reTrailingPunct = regexp.MustCompile(`[,;.:\s]+$`)

// CollapseSpaces folds every run of unicode whitespace into one space and trims the ends.
func CollapseSpaces(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

func TrimTrailingPunct(input string) string {
	return reTrailingPunct.ReplaceAllString(strings.TrimSpace(input), "")
}

// OrderedSet keeps first-seen order and drops repeats.
type OrderedSet[T comparable] struct {
	seen  map[T]struct{}
	items []T
}

func NewOrderedSet[T comparable]() *OrderedSet[T] {
	return &OrderedSet[T]{seen: map[T]struct{}{}}
}

func (s *OrderedSet[T]) Add(v T) bool {
	if _, ok := s.seen[v]; ok {
		return false
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

func (s *OrderedSet[T]) Len() int { return len(s.items) }

func (s *OrderedSet[T]) Values() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

const maxFileName = 120

// SanitizeFileName replaces path and shell-hostile characters and caps the
// result at maxFileName bytes without splitting a rune.
func SanitizeFileName(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > maxFileName {
		cut := maxFileName
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut]
	}
	return out
}
