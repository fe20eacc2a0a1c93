// Package validation checks request parameters before they reach the resolver or fetcher.
package validation

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxQueryLength bounds search queries and place names, in runes.
const MaxQueryLength = 100

var (
	// ErrPlaceEmpty is returned when a place name is empty or whitespace-only after trim.
	ErrPlaceEmpty = errors.New("place name is required")

	// ErrQueryTooLong is returned when a query or place name exceeds the maximum length.
	ErrQueryTooLong = errors.New("query too long")

	// ErrQueryInvalidChars is returned when a query contains control characters or invalid UTF-8.
	ErrQueryInvalidChars = errors.New("query contains invalid characters")

	ErrInvalidLatitude  = errors.New("latitude must be a number in [-90, 90]")
	ErrInvalidLongitude = errors.New("longitude must be a number in [-180, 180]")
	ErrInvalidCountry   = errors.New("country must be a two-letter code")
)

// ValidateQuery trims a search query and checks its length and characters. Short
// queries are not an error here; the resolver answers them with no candidates.
func ValidateQuery(input string, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	if maxLen > 0 && len(r) > maxLen {
		return "", ErrQueryTooLong
	}
	for _, c := range r {
		if !isAllowedQueryRune(c) {
			return "", ErrQueryInvalidChars
		}
	}
	return s, nil
}

// ValidatePlaceName is ValidateQuery for a name that must be present.
func ValidatePlaceName(input string, maxLen int) (string, error) {
	s, err := ValidateQuery(input, maxLen)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", ErrPlaceEmpty
	}
	return s, nil
}

// isAllowedQueryRune rejects control characters and invalid UTF-8. Place names carry
// arbitrary punctuation ("Bosnia & Herzegovina", "São Paulo / SP") and are sent to the
// providers as-is.
func isAllowedQueryRune(r rune) bool {
	return r != utf8.RuneError && !unicode.IsControl(r)
}

// ParseCoordinates parses decimal degrees and checks their ranges.
func ParseCoordinates(latStr, lonStr string) (lat, lon float64, err error) {
	lat, err = strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return 0, 0, ErrInvalidLatitude
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil || math.IsNaN(lon) || lon < -180 || lon > 180 {
		return 0, 0, ErrInvalidLongitude
	}
	return lat, lon, nil
}

// NormalizeCountry upper-cases an ISO 3166-1 alpha-2 code. Empty input stays empty.
func NormalizeCountry(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", nil
	}
	if len(s) != 2 || !isASCIILetter(s[0]) || !isASCIILetter(s[1]) {
		return "", ErrInvalidCountry
	}
	return strings.ToUpper(s), nil
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
