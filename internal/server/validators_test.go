// file: internal/server/validators_test.go
// version: 2.0.0
// guid: 0c1d2e3f-4a5b-6c7d-8e9f-0a1b2c3d4e5f

package server

import (
	"testing"

	"github.com/jdfalk/media-acquirer/internal/models"
)

func codeOf(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		return ""
	}
	ve, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	return ve.Code
}

func TestValidateTitle(t *testing.T) {
	if err := ValidateTitle("Test Title", 0); err != nil {
		t.Errorf("expected no error for valid title, got %v", err)
	}
	if got := codeOf(t, ValidateTitle("   ", 0)); got != "TITLE_REQUIRED" {
		t.Errorf("expected TITLE_REQUIRED code, got %q", got)
	}
	if got := codeOf(t, ValidateTitle("a very long title that exceeds the limit", 20)); got != "TITLE_TOO_LONG" {
		t.Errorf("expected TITLE_TOO_LONG code, got %q", got)
	}
}

func TestValidateMediaType(t *testing.T) {
	if err := ValidateMediaType("", true); err != nil {
		t.Errorf("empty type should be allowed when optional, got %v", err)
	}
	if got := codeOf(t, ValidateMediaType("", false)); got != "INVALID_MEDIA_TYPE" {
		t.Errorf("expected INVALID_MEDIA_TYPE for required empty type, got %q", got)
	}
	if err := ValidateMediaType(models.MediaBook, false); err != nil {
		t.Errorf("expected book to validate, got %v", err)
	}
}

func TestValidateMediaRef(t *testing.T) {
	if err := ValidateMediaRef(models.AlbumRef(3)); err != nil {
		t.Errorf("expected single ref to validate, got %v", err)
	}
	if got := codeOf(t, ValidateMediaRef(models.MediaRef{})); got != "INVALID_MEDIA_REF" {
		t.Errorf("expected INVALID_MEDIA_REF for empty ref, got %q", got)
	}
}

func TestValidateCandidates(t *testing.T) {
	ok := candidate("g", "Some.Release.1080p", 1)

	cases := []struct {
		name string
		in   []models.Candidate
		max  int
		want string
	}{
		{"valid", []models.Candidate{ok}, 0, ""},
		{"empty", nil, 0, "CANDIDATES_REQUIRED"},
		{"too many", []models.Candidate{ok, ok}, 1, "TOO_MANY_CANDIDATES"},
		{"missing guid", []models.Candidate{{Source: "idx", Title: "x", Protocol: models.ProtocolUsenet}}, 0, "INVALID_CANDIDATE"},
		{"missing title", []models.Candidate{{GUID: "g", Source: "idx", Protocol: models.ProtocolUsenet}}, 0, "INVALID_CANDIDATE"},
		{"negative size", []models.Candidate{{GUID: "g", Source: "idx", Title: "x", Size: -1, Protocol: models.ProtocolUsenet}}, 0, "INVALID_CANDIDATE"},
		{"bad protocol", []models.Candidate{{GUID: "g", Source: "idx", Title: "x"}}, 0, "INVALID_CANDIDATE"},
	}
	for _, tc := range cases {
		if got := codeOf(t, ValidateCandidates(tc.in, tc.max)); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}
