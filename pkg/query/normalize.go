// Package query turns labels into search queries that double as directory names.
package query

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Separator joins the tokens of a normalized query
const Separator = "_"

func isSplit(r rune) bool {
	switch r {
	case '!', ';', ',', '\'', '_':
		return true
	}
	return unicode.IsSpace(r)
}

// FoldDiacritics strips combining marks, turning é into e
func FoldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// Normalize transliterates raw to Latin, folds diacritics, and joins the
// remaining tokens with underscores. Runs of whitespace and ! ; , ' _ separate
// tokens; empty tokens are dropped. When transliteration and folding remove
// every letter (a lone ъ, ь or combining mark) the raw tokens are kept as is.
func Normalize(raw string) string {
	folded := FoldDiacritics(Transliterate(raw))
	if q := join(folded); q != "" {
		return q
	}
	return join(raw)
}

func join(s string) string {
	return strings.Join(strings.FieldsFunc(s, isSplit), Separator)
}

// Build joins the descriptive prefix and the label and normalizes the result
func Build(prefix, label string) string {
	return Normalize(prefix + label)
}
