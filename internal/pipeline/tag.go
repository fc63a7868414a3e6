package pipeline

import (
	"strings"

	"aduanas/internal/catalog"
)

// ApplyDictionary rewrites every known phrase of each tag category into its
// canonical token, then applies the correction maps. Matching is literal and
// case-sensitive; text is expected to be uppercase already.
func ApplyDictionary(text string, dict *catalog.Dictionary, v Variant) string {
	for _, cat := range v.Tags {
		for _, phrase := range dict.Phrases(cat.Key) {
			if phrase == "" || !strings.Contains(text, phrase) {
				continue
			}
			text = strings.ReplaceAll(text, phrase, cat.Token)
		}
	}
	for _, key := range v.Corrections {
		for _, c := range dict.Corrections(key) {
			if c.From == "" || c.To == "" || !strings.Contains(text, c.From) {
				continue
			}
			text = strings.ReplaceAll(text, c.From, c.To)
		}
	}
	return text
}
