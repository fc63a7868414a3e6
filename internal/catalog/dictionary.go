package catalog

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"aduanas/internal"
)

// Dictionary holds the tagging phrases and correction maps of one variant.
// Categories whose JSON value is an array become phrase lists; objects become
// ordered correction lists. Order follows the file.
type Dictionary struct {
	phrases     map[string][]string
	corrections map[string][]internal.Correction
	order       []string
}

func NewDictionary() *Dictionary {
	return &Dictionary{
		phrases:     map[string][]string{},
		corrections: map[string][]internal.Correction{},
	}
}

func (d *Dictionary) AddPhrases(category string, phrases ...string) {
	if _, ok := d.phrases[category]; !ok {
		d.track(category)
	}
	d.phrases[category] = append(d.phrases[category], phrases...)
}

// AddCorrection appends a replacement pair. A repeated source keeps its first
// position and takes the newest target.
func (d *Dictionary) AddCorrection(category, from, to string) {
	list, ok := d.corrections[category]
	if !ok {
		d.track(category)
	}
	for i := range list {
		if list[i].From == from {
			list[i].To = to
			return
		}
	}
	d.corrections[category] = append(list, internal.Correction{From: from, To: to})
}

func (d *Dictionary) track(category string) {
	for _, c := range d.order {
		if c == category {
			return
		}
	}
	d.order = append(d.order, category)
}

func (d *Dictionary) Phrases(category string) []string {
	if d == nil {
		return nil
	}
	return d.phrases[category]
}

func (d *Dictionary) Corrections(category string) []internal.Correction {
	if d == nil {
		return nil
	}
	return d.corrections[category]
}

// Lookup finds the correction whose source equals value, ignoring case and
// surrounding spaces.
func (d *Dictionary) Lookup(category, value string) (string, bool) {
	needle := strings.ToUpper(strings.TrimSpace(value))
	for _, c := range d.Corrections(category) {
		if strings.ToUpper(strings.TrimSpace(c.From)) == needle {
			return c.To, true
		}
	}
	return "", false
}

// Categories lists every category in file order.
func (d *Dictionary) Categories() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Size counts phrases and corrections across all categories.
func (d *Dictionary) Size() int {
	if d == nil {
		return 0
	}
	total := 0
	for _, list := range d.phrases {
		total += len(list)
	}
	for _, list := range d.corrections {
		total += len(list)
	}
	return total
}

func LoadDictionary(path string) (*Dictionary, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read dictionary %s", path)
	}
	dict, err := ParseDictionary(blob)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: dictionary %s", path)
	}
	return dict, nil
}

// ParseDictionary walks the document with gjson so that category and
// correction order match the file; encoding/json maps would lose it.
func ParseDictionary(blob []byte) (*Dictionary, error) {
	if !gjson.ValidBytes(blob) {
		return nil, eris.New("invalid JSON")
	}
	root := gjson.ParseBytes(blob)
	if !root.IsObject() {
		return nil, eris.New("top level must be an object")
	}

	dict := NewDictionary()
	root.ForEach(func(key, value gjson.Result) bool {
		category := key.String()
		switch {
		case value.IsArray():
			phrases := make([]string, 0, len(value.Array()))
			for _, item := range value.Array() {
				if item.Type == gjson.String {
					phrases = append(phrases, item.String())
				}
			}
			dict.AddPhrases(category, phrases...)
		case value.IsObject():
			value.ForEach(func(from, to gjson.Result) bool {
				dict.AddCorrection(category, from.String(), to.String())
				return true
			})
		}
		return true
	})
	return dict, nil
}
