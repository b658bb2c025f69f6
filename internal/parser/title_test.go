// file: internal/parser/title_test.go
// version: 1.0.1
// guid: 15466911-2fc1-44c0-be13-f34933e1d5ff

package parser_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jdfalk/media-acquirer/internal/models"
	"github.com/jdfalk/media-acquirer/internal/parser"
)

func TestExtractYear(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		mediaType models.MediaType
		year      int
	}{
		{"parenthesised", "Movie (2010) 1080p", models.MediaMovie, 2010},
		{"bracketed", "Movie [1999]", models.MediaMovie, 1999},
		{"delimited", "Movie.Name.2015.720p", models.MediaMovie, 2015},
		{"parenthesised beats delimited", "Movie 2001 (1968)", models.MediaMovie, 1968},
		{"leading number is title", "2012.2009.1080p", models.MediaMovie, 2009},
		{"last delimited year wins", "Movie.1999.Remastered.2019.1080p", models.MediaMovie, 2019},
		{"out of range for film", "Novel.1850.epub", models.MediaMovie, 0},
		{"in range for books", "Novel.1850.epub", models.MediaBook, 1850},
		{"none", "No year here", models.MediaMovie, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, rest := parser.ExtractYear(tt.text, tt.mediaType)
			assert.Equal(t, tt.year, year)
			if year == 0 {
				assert.Equal(t, tt.text, rest)
			} else {
				assert.NotContains(t, rest, "("+strconv.Itoa(year)+")")
			}
		})
	}
}

func TestExtractYearRemovesToken(t *testing.T) {
	year, rest := parser.ExtractYear("Movie (2010) 1080p", models.MediaMovie)
	assert.Equal(t, 2010, year)
	assert.Equal(t, "Movie   1080p", rest)

	_, rest = parser.ExtractYear("Movie.Name.2015.720p", models.MediaMovie)
	assert.Equal(t, "Movie.Name..720p", rest)

	// earlier bare years stay in the title
	year, rest = parser.ExtractYear("Movie.1999.Remastered.2019.1080p", models.MediaMovie)
	assert.Equal(t, 2019, year)
	assert.Equal(t, "Movie.1999.Remastered..1080p", rest)
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"The.Movie.2010.1080p.BluRay.x264", "The Movie"},
		{"Show.S01E02.PROPER.REPACK.720p", "Show"},
		{"Some_Show_S03E10_HDTV", "Some Show"},
		{"Movie.Name.MULTi.HDR.DV.2160p.WEB-DL", "Movie Name"},
		{"Movie - - Name", "Movie - Name"},
		{"- Title -", "Title"},
		{"....", parser.UnknownTitle},
		{"", parser.UnknownTitle},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parser.CleanTitle(tt.in), "CleanTitle(%q)", tt.in)
	}
}
