package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"trimmed", "  São Paulo  ", "São Paulo", nil},
		{"short is fine", "a", "a", nil},
		{"empty is fine", "   ", "", nil},
		{"with country", "Cidade, BR", "Cidade, BR", nil},
		{"apostrophe and period", "St. John's", "St. John's", nil},
		{"hyphen", "Winston-Salem", "Winston-Salem", nil},
		{"cjk", "東京", "東京", nil},
		{"too long", strings.Repeat("a", 101), "", ErrQueryTooLong},
		{"control char", "Lima\n", "Lima", nil},
		{"embedded control", "Li\x00ma", "", ErrQueryInvalidChars},
		{"embedded tab", "Li\tma", "", ErrQueryInvalidChars},
		{"invalid utf8", "Lima\xff", "", ErrQueryInvalidChars},
		{"ampersand", "Bosnia & Herzegovina", "Bosnia & Herzegovina", nil},
		{"slash", "São Paulo / SP", "São Paulo / SP", nil},
		{"double quote", `"Lima"`, `"Lima"`, nil},
		{"markup is text", "<script>", "<script>", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateQuery(tt.input, MaxQueryLength)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ValidateQuery() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateQuery() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ValidateQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateQuery_MaxLengthCountsRunes(t *testing.T) {
	s := strings.Repeat("ã", MaxQueryLength)
	if _, err := ValidateQuery(s, MaxQueryLength); err != nil {
		t.Errorf("ValidateQuery() error = %v for %d runes", err, MaxQueryLength)
	}
}

func TestValidatePlaceName(t *testing.T) {
	if _, err := ValidatePlaceName("  ", MaxQueryLength); !errors.Is(err, ErrPlaceEmpty) {
		t.Errorf("ValidatePlaceName(blank) error = %v, want ErrPlaceEmpty", err)
	}
	got, err := ValidatePlaceName(" Paris ", MaxQueryLength)
	if err != nil || got != "Paris" {
		t.Errorf("ValidatePlaceName() = %q, %v; want Paris", got, err)
	}
}

func TestParseCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon string
		wantLat  float64
		wantLon  float64
		wantErr  error
	}{
		{"sao paulo", "-23.55", "-46.63", -23.55, -46.63, nil},
		{"bounds", "90", "-180", 90, -180, nil},
		{"lat out of range", "90.1", "0", 0, 0, ErrInvalidLatitude},
		{"lon out of range", "0", "180.5", 0, 0, ErrInvalidLongitude},
		{"lat not a number", "north", "0", 0, 0, ErrInvalidLatitude},
		{"lon empty", "1", "", 0, 0, ErrInvalidLongitude},
		{"nan", "NaN", "0", 0, 0, ErrInvalidLatitude},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lon, err := ParseCoordinates(tt.lat, tt.lon)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseCoordinates() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCoordinates() unexpected error: %v", err)
			}
			if lat != tt.wantLat || lon != tt.wantLon {
				t.Errorf("ParseCoordinates() = (%v, %v), want (%v, %v)", lat, lon, tt.wantLat, tt.wantLon)
			}
		})
	}
}

func TestNormalizeCountry(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"br", "BR", false},
		{" Pt ", "PT", false},
		{"BRA", "", true},
		{"B1", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeCountry(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeCountry(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeCountry(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
