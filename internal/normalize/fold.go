package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var spaceRun = regexp.MustCompile(`\s+`)

// CollapseSpace trims s and replaces every whitespace run with one space.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// Fold strips diacritics and any other non-ASCII rune, collapses whitespace
// and lowercases. Only for comparison; display text is never folded.
func Fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(CollapseSpace(folded))
}

// CompositeKey identifies a record across passes: date|folded establishment|value.
// date is expected in its display form (DD/MM/YYYY).
func CompositeKey(date, establishment string, value decimal.Decimal) string {
	return strings.TrimSpace(date) + "|" + Fold(establishment) + "|" + value.Round(2).StringFixed(2)
}
