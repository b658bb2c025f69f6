// file: internal/parser/normalize.go
// version: 1.0.0
// guid: baaf130f-aad0-48d0-b037-0774cf7a2d34

package parser

import (
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTitle folds a title for comparison: accents removed, lowercased,
// punctuation collapsed to single spaces and a leading article dropped.
func NormalizeTitle(s string) string {
	// transformers carry state, so build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.ReplaceAll(folded, "&", " and ")

	var b strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	words := strings.Fields(b.String())
	if len(words) > 1 && (words[0] == "the" || words[0] == "a" || words[0] == "an") {
		words = words[1:]
	}
	return strings.Join(words, " ")
}

// TitleMatches reports whether a parsed release title refers to the wanted
// title. Exact matches after normalisation always pass; otherwise the
// shorter string must fuzzily occur in the longer one within a small edit
// distance.
func TitleMatches(parsed, wanted string) bool {
	a, b := NormalizeTitle(parsed), NormalizeTitle(wanted)
	if a == "" || b == "" || a == strings.ToLower(UnknownTitle) {
		return false
	}
	if a == b {
		return true
	}

	longer := max(len(a), len(b))
	limit := max(2, longer/5)

	d := fuzzy.RankMatch(a, b)
	if d < 0 {
		d = fuzzy.RankMatch(b, a)
	}
	return d >= 0 && d <= limit
}
