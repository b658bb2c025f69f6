// file: internal/parser/path.go
// version: 1.0.1
// guid: 7955a835-9958-4161-adf8-4510ef1fba5d

package parser

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/jdfalk/media-acquirer/internal/logger"
	"github.com/jdfalk/media-acquirer/internal/models"
)

// ParsedRelease is the structure recovered from a release name or file path.
type ParsedRelease struct {
	Title        string        `json:"title"`
	Year         int           `json:"year,omitempty"`
	Season       int           `json:"season"`
	HasSeason    bool          `json:"has_season"`
	Episodes     []int         `json:"episodes,omitempty"`
	AirDate      string        `json:"air_date,omitempty"`
	ReleaseGroup string        `json:"release_group,omitempty"`
	Proper       bool          `json:"proper,omitempty"`
	Repack       bool          `json:"repack,omitempty"`
	Quality      ParsedQuality `json:"quality"`
}

// IsDaily reports whether the release is numbered by air date.
func (r ParsedRelease) IsDaily() bool { return r.AirDate != "" }

var (
	// S01E02, S01E02E03, S01E02-E04, S01E02-04, s1e2, S01.E02. A bare
	// number only continues a range when the dash is unspaced, so
	// "S01E05 - 10 Things" stays a single episode.
	reEpisodeSxE = regexp.MustCompile(
		`(?i)(?:^|[^a-z0-9])s(\d{1,3})[ ._]?e(\d{1,4})((?:-e?\d{1,4}|[ ._]?-[ ._]?e\d{1,4}|[ ._]?e\d{1,4})*)(?:$|[^a-z0-9])`,
	)
	reEpisodeTail = regexp.MustCompile(`(?i)(-)?[ ._]?e?(\d{1,4})`)

	// 1x02, 1x02-03
	reEpisodeX = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(\d{1,2})x(\d{2,3})(?:-x?(\d{2,3}))?(?:$|[^a-z0-9])`)

	// 2024-01-15, 2024.01.15
	reDaily = regexp.MustCompile(
		`(?:^|[^0-9])((?:19|20)\d{2})[ ._-](0[1-9]|1[0-2])[ ._-](0[1-9]|[12]\d|3[01])(?:$|[^0-9])`,
	)

	// leading episode number in a file inside a season folder: "03 - Title", "E03", "Episode 3"
	reEpisodeOnly = regexp.MustCompile(`(?i)^(?:e|ep|episode)?[ ._-]*(\d{1,3})(?:$|[ ._-])`)

	reSeasonFolder = regexp.MustCompile(`(?i)^(?:season|series|saison|staffel|s)[ ._-]*(\d{1,3})$`)
	reSpecials     = regexp.MustCompile(`(?i)^specials?$`)

	reReleaseGroup = regexp.MustCompile(`(?i)-([a-z0-9]+)(?:\[[^\]]*\])?$`)
	reProper       = tok(`proper`)
	reRepack       = tok(`repack|rerip`)
)

// groups that are really the tail of a hyphenated quality token
var notReleaseGroups = map[string]bool{
	"dl": true, "rip": true, "ray": true, "web": true, "hd": true, "cam": true,
	"x264": true, "x265": true, "h264": true, "h265": true, "hevc": true, "avc": true,
	"1": true, "2": true, "dts": true, "ma": true, "hdr": true,
}

var mediaExtensions = map[string]bool{
	".mkv": true, ".mp4": true, ".avi": true, ".m4v": true, ".ts": true, ".wmv": true,
	".mov": true, ".mpg": true, ".nzb": true, ".torrent": true,
	".epub": true, ".mobi": true, ".azw": true, ".azw3": true, ".pdf": true, ".m4b": true,
	".mp3": true, ".m4a": true, ".flac": true, ".cbz": true, ".cbr": true,
}

// splitSegments returns the non-empty components of a slash or
// backslash separated path.
func splitSegments(p string) []string {
	p = strings.ReplaceAll(p, "\\", "/")
	var out []string
	for _, seg := range strings.Split(p, "/") {
		seg = strings.TrimSpace(seg)
		if seg == "" || seg == "." {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// stripExtension drops a known media extension. Unknown extensions are kept
// because scene names are full of dots ("Mr.Robot").
func stripExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if mediaExtensions[ext] {
		return name[:len(name)-len(ext)]
	}
	return name
}

// ParseSeasonFolder reports the season number encoded in a folder name such
// as "Season 02", "S2" or "Specials" (season 0).
func ParseSeasonFolder(name string) (int, bool) {
	name = strings.TrimSpace(name)
	if reSpecials.MatchString(name) {
		return 0, true
	}
	m := reSeasonFolder.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParsePath recovers title, year, numbering and quality from a release name
// or a file path. The number of path segments decides the shape:
//
//	Show/Season 01/Show.S01E02.mkv   show, season folder, episode
//	Show/Show.S01E02.mkv             show, episode
//	Season 01/Show.S01E02.mkv        season folder, episode
//	Show.S01E02.720p.HDTV-GRP        scene name
//
// Unparseable input yields Title "Unknown" rather than an error.
func ParsePath(path string, mediaType models.MediaType) ParsedRelease {
	segs := splitSegments(path)
	if len(segs) > 3 {
		segs = segs[len(segs)-3:]
	}

	var r ParsedRelease
	if len(segs) == 0 {
		r.Title = UnknownTitle
		return r
	}

	base := stripExtension(segs[len(segs)-1])
	r.ReleaseGroup = releaseGroup(base)
	r.Proper = reProper.MatchString(base)
	r.Repack = reRepack.MatchString(base)

	r.Quality = Classify(base, mediaType)
	if !r.Quality.Resolved() {
		r.Quality = Classify(strings.Join(segs, " "), mediaType)
	}

	titleIdx := parseNumbering(base, &r)

	switch len(segs) {
	case 3:
		r.Title, r.Year = titleFromSegment(segs[0], mediaType)
		if season, ok := ParseSeasonFolder(segs[1]); ok {
			r.Season, r.HasSeason = season, true
		}
		if len(r.Episodes) == 0 {
			parseLeadingEpisode(base, &r)
		}
	case 2:
		if season, ok := ParseSeasonFolder(segs[0]); ok {
			// season/episode: the show name has to come from the file
			r.Season, r.HasSeason = season, true
			if len(r.Episodes) == 0 {
				parseLeadingEpisode(base, &r)
			}
			r.Title, r.Year = titleFromScene(base, titleIdx, mediaType)
		} else {
			r.Title, r.Year = titleFromSegment(segs[0], mediaType)
			if len(r.Episodes) == 0 && r.AirDate == "" {
				parseLeadingEpisode(base, &r)
			}
		}
	default:
		r.Title, r.Year = titleFromScene(base, titleIdx, mediaType)
	}

	logger.For("parser").WithField("path", path).WithField("segments", len(segs)).
		Debugf("parsed title=%q season=%d episodes=%v quality=%s", r.Title, r.Season, r.Episodes, r.Quality.QualityName)
	return r
}

// parseNumbering fills season/episode or air date from a scene name and
// returns the offset where the numbering token starts, or -1.
func parseNumbering(base string, r *ParsedRelease) int {
	if m := reEpisodeSxE.FindStringSubmatchIndex(base); m != nil {
		season, _ := strconv.Atoi(base[m[2]:m[3]])
		first, _ := strconv.Atoi(base[m[4]:m[5]])
		r.Season, r.HasSeason = season, true
		r.Episodes = expandEpisodes(first, base[m[6]:m[7]])
		return m[0]
	}
	if m := reEpisodeX.FindStringSubmatchIndex(base); m != nil {
		season, _ := strconv.Atoi(base[m[2]:m[3]])
		first, _ := strconv.Atoi(base[m[4]:m[5]])
		r.Season, r.HasSeason = season, true
		r.Episodes = []int{first}
		if m[6] >= 0 {
			last, _ := strconv.Atoi(base[m[6]:m[7]])
			r.Episodes = episodeRange(first, last)
		}
		return m[0]
	}
	if m := reDaily.FindStringSubmatchIndex(base); m != nil {
		r.AirDate = base[m[2]:m[3]] + "-" + base[m[4]:m[5]] + "-" + base[m[6]:m[7]]
		return m[0]
	}
	return -1
}

// expandEpisodes turns the tail after the first episode number into a list.
// A dash means a range; repeated E tokens are listed as-is.
func expandEpisodes(first int, tail string) []int {
	eps := []int{first}
	prev := first
	for _, m := range reEpisodeTail.FindAllStringSubmatch(tail, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if m[1] == "-" && n > prev {
			eps = append(eps, episodeRange(prev+1, n)...)
		} else if n != prev {
			eps = append(eps, n)
		}
		prev = n
	}
	return eps
}

func episodeRange(first, last int) []int {
	if last < first {
		return []int{first}
	}
	out := make([]int, 0, last-first+1)
	for n := first; n <= last; n++ {
		out = append(out, n)
	}
	return out
}

func parseLeadingEpisode(base string, r *ParsedRelease) {
	m := reEpisodeOnly.FindStringSubmatch(strings.TrimSpace(base))
	if m == nil {
		return
	}
	if n, err := strconv.Atoi(m[1]); err == nil {
		r.Episodes = []int{n}
	}
}

// titleFromSegment cleans a show or movie folder name such as "Show (2019)".
func titleFromSegment(seg string, mediaType models.MediaType) (string, int) {
	year, rest := ExtractYear(seg, mediaType)
	return cleanTokens(stripEpisodeTokens(rest)), year
}

// titleFromScene takes the title from the text before the numbering token
// when there is one, otherwise from the text before the year.
func titleFromScene(base string, numberingIdx int, mediaType models.MediaType) (string, int) {
	if g := reReleaseGroup.FindStringIndex(base); g != nil && releaseGroup(base) != "" {
		base = base[:g[0]]
	}

	if numberingIdx > 0 {
		head := base[:min(numberingIdx, len(base))]
		year, rest := ExtractYear(head, mediaType)
		return cleanTokens(rest), year
	}

	year, rest := ExtractYear(base, mediaType)
	if year != 0 {
		// scene names put the year right after the title; anything after it is metadata
		if idx := strings.Index(base, strconv.Itoa(year)); idx > 0 {
			return cleanTokens(base[:idx]), year
		}
	}
	return cleanTokens(stripEpisodeTokens(rest)), year
}

func releaseGroup(base string) string {
	m := reReleaseGroup.FindStringSubmatch(strings.TrimSpace(base))
	if m == nil {
		return ""
	}
	g := m[1]
	if notReleaseGroups[strings.ToLower(g)] {
		return ""
	}
	if _, ok := LookupSignal(SignalResolution, g); ok {
		return ""
	}
	return g
}
