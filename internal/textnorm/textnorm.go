// Package textnorm normalizes learner answers for comparison.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold trims surrounding whitespace, composes s to NFC and case-folds it.
// Inner whitespace is kept as typed.
func Fold(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// CollapseSpace replaces every run of whitespace with a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripDiacritics removes combining marks, so "café" becomes "cafe".
// On transform failure the input is returned unchanged.
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Loose is the tolerant form used to flag near matches: diacritics and inner spacing are ignored.
func Loose(s string) string {
	return StripDiacritics(CollapseSpace(Fold(s)))
}

// IsBlank reports whether s holds nothing but whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
