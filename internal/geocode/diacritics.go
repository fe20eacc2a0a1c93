package geocode

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics removes diacritic characters after canonical decomposition, so
// "São Paulo" becomes "Sao Paulo" and "Hawaiʻi" becomes "Hawaii". Combining marks that
// are not diacritics, such as Devanagari vowel signs, are kept.
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Diacritic)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
