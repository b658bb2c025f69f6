// file: internal/parser/album.go
// version: 1.0.0
// guid: b303c731-b36b-47b5-a6ac-465badc64b6c

package parser

import (
	"regexp"
	"strings"

	"github.com/jdfalk/media-acquirer/internal/models"
)

// AlbumInfo is the structure recovered from a music release title.
type AlbumInfo struct {
	Artist  string        `json:"artist"`
	Album   string        `json:"album"`
	Year    int           `json:"year,omitempty"`
	Quality ParsedQuality `json:"quality"`
}

var reTagGroup = regexp.MustCompile(`\[[^\]]*\]|\{[^}]*\}`)

// ParseAlbum splits "Artist - Album (Year) [FLAC]" style titles. Bracketed
// tag groups are dropped before the split.
func ParseAlbum(title string) AlbumInfo {
	info := AlbumInfo{
		Artist:  UnknownTitle,
		Album:   UnknownTitle,
		Quality: Classify(title, models.MediaMusic),
	}

	var rest string
	info.Year, rest = ExtractYear(title, models.MediaMusic)
	rest = reTagGroup.ReplaceAllString(rest, " ")
	if g := reReleaseGroup.FindStringIndex(rest); g != nil && releaseGroup(rest) != "" && strings.Count(rest, "-") > 1 {
		rest = rest[:g[0]]
	}
	if !strings.Contains(rest, " ") {
		rest = reSeparators.ReplaceAllString(rest, " ")
	}

	parts := reBookDash.Split(strings.TrimSpace(rest), 2)
	if len(parts) == 2 {
		info.Artist = cleanAlbumPart(parts[0])
		info.Album = cleanAlbumPart(parts[1])
		return info
	}
	info.Album = cleanAlbumPart(parts[0])
	return info
}

func cleanAlbumPart(s string) string {
	s = stripPatterns(s, audioPatterns)
	s = stripAll(s, reNoise)
	return collapse(s)
}
