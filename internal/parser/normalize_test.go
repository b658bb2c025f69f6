// file: internal/parser/normalize_test.go
// version: 1.0.0
// guid: 653bc6fe-19d6-47cc-9a64-92f8b6c116bc

package parser_test

import (
	"testing"

	"github.com/jdfalk/media-acquirer/internal/parser"
)

func TestNormalizeTitle(t *testing.T) {
	tests := map[string]string{
		"Amélie":                  "amelie",
		"The Office":              "office",
		"Spider-Man: No Way Home": "spider man no way home",
		"Law & Order":             "law and order",
		"  A  ":                   "a",
	}
	for in, want := range tests {
		if got := parser.NormalizeTitle(in); got != want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTitleMatches(t *testing.T) {
	tests := []struct {
		parsed, wanted string
		want           bool
	}{
		{"Spider Man No Way Home", "Spider-Man: No Way Home", true},
		{"Breaking Bad", "Braking Bad", true},
		{"Amelie", "Amélie", true},
		{"The Matrix Reloaded", "The Matrix", false},
		{"Dune", "Alien", false},
		{parser.UnknownTitle, "Unknown", false},
		{"", "Dune", false},
	}
	for _, tt := range tests {
		if got := parser.TitleMatches(tt.parsed, tt.wanted); got != tt.want {
			t.Errorf("TitleMatches(%q, %q) = %v, want %v", tt.parsed, tt.wanted, got, tt.want)
		}
	}
}
