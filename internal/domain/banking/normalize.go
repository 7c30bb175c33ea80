// Package banking contains bank accounts, the bank transaction state
// machine, feed deduplication, bank rules, and the suggestion matching
// engine.
package banking

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var deaccent = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeDescription folds a bank statement description into a stable
// comparison form: diacritics stripped, lower-cased, whitespace collapsed.
// Feed deduplication and match scoring both key on this form so the same
// statement line always hashes identically across imports.
func NormalizeDescription(s string) string {
	folded, _, err := transform.String(deaccent, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range folded {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimRight(b.String(), " ")
}

// stop tokens carry no matching signal on bank statements
var stopTokens = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "ltd": {}, "llc": {}, "inc": {},
	"pos": {}, "ref": {}, "payment": {}, "transfer": {}, "card": {},
}

// Tokenize splits a normalized description into comparison tokens,
// dropping punctuation, digits-only fragments, stop words, and fragments
// shorter than three runes.
func Tokenize(s string) []string {
	normalized := NormalizeDescription(s)
	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 3 {
			continue
		}
		if _, stop := stopTokens[f]; stop {
			continue
		}
		allDigits := true
		for _, r := range f {
			if !unicode.IsDigit(r) {
				allDigits = false
				break
			}
		}
		if allDigits {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// TokenOverlap returns |a ∩ b| / |a ∪ b| over token sets, 0 when either
// side is empty.
func TokenOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	union := len(set)
	intersection := 0
	seen := make(map[string]struct{}, len(b))
	for _, t := range b {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := set[t]; ok {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
