// Package vocabulary maps classification-backend labels to the display labels
// attached to items.
//
// Every Vocabulary is immutable once built and may be read by any number of
// goroutines without locking.
package vocabulary

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Vocabulary translates a source label into a display label. Translate never
// fails: a label with no entry still yields a display label.
type Vocabulary interface {
	Translate(label string) string
}

// Dictionary is a fixed source→display mapping with a three-tier lookup:
// exact key, then case-insensitive key, then Capitalize(label).
type Dictionary struct {
	exact  map[string]string
	folded map[string]string
}

// NewDictionary builds a Dictionary from entries. The map is copied, so later
// changes to entries are not observed.
//
// When two keys differ only by case, the case-insensitive tier resolves to the
// lexicographically smallest key so lookups are stable across runs.
func NewDictionary(entries map[string]string) *Dictionary {
	d := &Dictionary{
		exact:  make(map[string]string, len(entries)),
		folded: make(map[string]string, len(entries)),
	}
	keys := make([]string, 0, len(entries))
	for k, v := range entries {
		d.exact[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lk := strings.ToLower(k)
		if _, taken := d.folded[lk]; !taken {
			d.folded[lk] = entries[k]
		}
	}
	return d
}

// Lookup resolves label through the exact and case-insensitive tiers only.
func (d *Dictionary) Lookup(label string) (string, bool) {
	if v, ok := d.exact[label]; ok {
		return v, true
	}
	v, ok := d.folded[strings.ToLower(label)]
	return v, ok
}

// Translate resolves label, falling back to Capitalize for unmapped labels.
func (d *Dictionary) Translate(label string) string {
	if v, ok := d.Lookup(label); ok {
		return v
	}
	return Capitalize(label)
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	return len(d.exact)
}

// Identity is the vocabulary for backends that already return localized
// display strings. Labels pass through unchanged.
type Identity struct{}

// Translate returns label as is.
func (Identity) Translate(label string) string {
	return label
}

// Capitalize upper-cases the first rune of label and lower-cases the rest
// using Brazilian Portuguese casing rules.
// "WALLET" → "Wallet", "óculos" → "Óculos".
func Capitalize(label string) string {
	if label == "" {
		return ""
	}
	_, size := utf8.DecodeRuneInString(label)
	return cases.Upper(language.BrazilianPortuguese).String(label[:size]) +
		cases.Lower(language.BrazilianPortuguese).String(label[size:])
}
