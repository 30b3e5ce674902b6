package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeader folds a raw header cell into the canonical alias-table
// form: accents stripped, lower-cased, separator runs collapsed to a single
// underscore. A "+" becomes the word "plus" and a trailing "-" the word
// "minus" so that elevation columns like "D+ (m)" and "D- (m)" stay
// distinguishable; a "-" joining two words is an ordinary separator.
func NormalizeHeader(raw string) string {
	folded, _, err := transform.String(stripAccents, raw)
	if err != nil {
		folded = raw
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pendingSep := false
	runes := []rune(folded)
	for i, r := range runes {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == '+':
			if b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteString("plus")
			pendingSep = false
		case r == '-' && !followedByLetter(runes, i):
			if b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteString("minus")
			pendingSep = false
		default:
			pendingSep = true
		}
	}
	return b.String()
}

func followedByLetter(rs []rune, i int) bool {
	if i+1 >= len(rs) {
		return false
	}
	next := rs[i+1]
	return next >= 'a' && next <= 'z' || next >= '0' && next <= '9'
}

// NormalizeKind folds an activity-kind cell for accepted-kinds membership
// tests: same folding as headers, so "Trail Run" and "trail_run" compare
// equal.
func NormalizeKind(raw string) string {
	return NormalizeHeader(raw)
}
