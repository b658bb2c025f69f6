// file: internal/parser/quality.go
// version: 1.0.1
// guid: f1241716-36bb-4f57-96f5-c559f821a1e2

package parser

import (
	"regexp"
	"strings"

	"github.com/jdfalk/media-acquirer/internal/models"
)

// ParsedQuality is the quality signal set extracted from a title. Empty
// strings mean the signal was not found; QualityID 0 means no quality level
// could be resolved.
type ParsedQuality struct {
	Resolution  string `json:"resolution,omitempty"`
	Source      string `json:"source,omitempty"`
	Codec       string `json:"codec,omitempty"`
	QualityID   int    `json:"quality_id"`
	QualityName string `json:"quality_name,omitempty"`
}

// Resolved reports whether a quality level was found.
func (q ParsedQuality) Resolved() bool { return q.QualityID != 0 }

// QualityDefinition is one row of a per-media-type quality table.
type QualityDefinition struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Signal kinds accepted by LookupSignal.
const (
	SignalResolution = "resolution"
	SignalSource     = "source"
	SignalCodec      = "codec"
)

type pattern struct {
	tag string
	re  *regexp.Regexp
}

// tok wraps expr so it only matches as a standalone token. Go's \b treats
// '_' as a word character, which breaks on underscore-separated names.
func tok(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(?:` + expr + `)(?:$|[^a-z0-9])`)
}

// Ordered tables: the first matching row wins.
var (
	resolutionPatterns = []pattern{
		{"2160p", tok(`2160p|4k|uhd`)},
		{"1080p", tok(`1080[pi]|1920x1080`)},
		{"720p", tok(`720p|1280x720`)},
		{"576p", tok(`576p`)},
		{"480p", tok(`480p|640x480|848x480`)},
	}

	sourcePatterns = []pattern{
		{"remux", tok(`(?:bd|uhd)?-?remux`)},
		{"bluray", tok(`blu-?ray|bd-?rip|br-?rip|bd25|bd50|bdmv`)},
		// webrip first: the web-dl row accepts a bare "web".
		{"webrip", tok(`web[ ._-]?rip`)},
		{"web-dl", tok(`web[ ._-]?dl|web`)},
		{"hdtv", tok(`hdtv|pdtv|sdtv|dsr|tvrip|hdtvrip`)},
		{"dvd", tok(`dvd-?rip|dvd-?r|dvd[59]?|ntsc`)},
		{"cam", tok(`cam|hd-?cam|cam-?rip|ts|hd-?ts|telesync|tc|telecine`)},
	}

	codecPatterns = []pattern{
		{"x265", tok(`[xh]\.?265|hevc`)},
		{"x264", tok(`[xh]\.?264|avc`)},
		{"av1", tok(`av1`)},
		{"xvid", tok(`xvid`)},
		{"divx", tok(`divx`)},
		{"vc1", tok(`vc-?1`)},
		{"mpeg2", tok(`mpeg-?2`)},
	}

	audioPatterns = []pattern{
		{"FLAC 24bit", tok(`24[ -]?bit|hi-?res|flac[ -]?24`)},
		{"FLAC", tok(`flac`)},
		{"ALAC", tok(`alac`)},
		{"MP3-320", tok(`(?:mp3[ -]?)?320(?:[ -]?kbps|k)?`)},
		{"MP3-V0", tok(`(?:mp3[ -]?)?v0`)},
		{"MP3-256", tok(`(?:mp3[ -]?)?256(?:[ -]?kbps|k)?`)},
		{"MP3-192", tok(`(?:mp3[ -]?)?192(?:[ -]?kbps|k)?`)},
		{"AAC", tok(`aac|m4a`)},
		{"MP3", tok(`mp3`)},
	}

	bookPatterns = []pattern{
		{"EPUB", tok(`epub`)},
		{"AZW3", tok(`azw3?`)},
		{"MOBI", tok(`mobi`)},
		{"PDF", tok(`pdf`)},
		{"M4B", tok(`m4b`)},
		{"MP3", tok(`mp3`)},
	}
)

// Quality tables per media type. Ids are stable and referenced by profiles.
var (
	videoQualities = []QualityDefinition{
		{1, "CAM"},
		{2, "DVD"},
		{3, "SDTV"},
		{4, "WEBDL-480p"},
		{5, "WEBRip-480p"},
		{6, "Bluray-480p"},
		{7, "HDTV-720p"},
		{8, "WEBDL-720p"},
		{9, "WEBRip-720p"},
		{10, "Bluray-720p"},
		{11, "HDTV-1080p"},
		{12, "WEBDL-1080p"},
		{13, "WEBRip-1080p"},
		{14, "Bluray-1080p"},
		{15, "Remux-1080p"},
		{16, "HDTV-2160p"},
		{17, "WEBDL-2160p"},
		{18, "WEBRip-2160p"},
		{19, "Bluray-2160p"},
		{20, "Remux-2160p"},
	}

	musicQualities = []QualityDefinition{
		{1, "FLAC"},
		{2, "MP3-320"},
		{3, "MP3-256"},
		{4, "FLAC 24bit"},
		{5, "ALAC"},
		{6, "MP3-V0"},
		{7, "MP3-192"},
		{8, "AAC"},
		{9, "MP3"},
	}

	bookQualities = []QualityDefinition{
		{1, "EPUB"},
		{2, "AZW3"},
		{3, "MOBI"},
		{4, "PDF"},
		{5, "M4B"},
		{6, "MP3"},
	}
)

// Qualities returns the quality table for a media type. Movies and episodes
// share the video table.
func Qualities(mediaType models.MediaType) []QualityDefinition {
	switch mediaType {
	case models.MediaMusic:
		return musicQualities
	case models.MediaBook:
		return bookQualities
	default:
		return videoQualities
	}
}

// QualityByName finds a quality definition by name, ignoring case.
func QualityByName(mediaType models.MediaType, name string) (QualityDefinition, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return QualityDefinition{}, false
	}
	for _, q := range Qualities(mediaType) {
		if strings.EqualFold(q.Name, name) {
			return q, true
		}
	}
	return QualityDefinition{}, false
}

func qualityByName(table []QualityDefinition, name string) QualityDefinition {
	for _, q := range table {
		if q.Name == name {
			return q
		}
	}
	return QualityDefinition{}
}

func firstMatch(patterns []pattern, text string) string {
	for _, p := range patterns {
		if p.re.MatchString(text) {
			return p.tag
		}
	}
	return ""
}

// Classify extracts quality signals from free text and resolves them against
// the quality table of mediaType. It never fails; unknown input yields a
// ParsedQuality with QualityID 0.
func Classify(text string, mediaType models.MediaType) ParsedQuality {
	switch mediaType {
	case models.MediaMusic:
		tag := firstMatch(audioPatterns, text)
		q := qualityByName(musicQualities, tag)
		return ParsedQuality{Codec: audioCodec(tag), QualityID: q.ID, QualityName: q.Name}
	case models.MediaBook:
		tag := firstMatch(bookPatterns, text)
		q := qualityByName(bookQualities, tag)
		return ParsedQuality{Codec: strings.ToLower(tag), QualityID: q.ID, QualityName: q.Name}
	}

	pq := ParsedQuality{
		Resolution: firstMatch(resolutionPatterns, text),
		Source:     firstMatch(sourcePatterns, text),
		Codec:      firstMatch(codecPatterns, text),
	}
	q := qualityByName(videoQualities, videoQualityName(pq.Resolution, pq.Source))
	pq.QualityID, pq.QualityName = q.ID, q.Name
	return pq
}

func audioCodec(tag string) string {
	switch {
	case tag == "":
		return ""
	case strings.HasPrefix(tag, "FLAC"):
		return "flac"
	case strings.HasPrefix(tag, "MP3"):
		return "mp3"
	default:
		return strings.ToLower(tag)
	}
}

// videoQualityName combines resolution and source into a table name. A
// resolution without a recognised source is assumed to be a TV capture.
func videoQualityName(resolution, source string) string {
	switch source {
	case "cam":
		return "CAM"
	case "dvd":
		return "DVD"
	}
	if resolution == "" && source == "" {
		return ""
	}

	var family string
	switch source {
	case "remux":
		family = "Remux"
	case "bluray":
		family = "Bluray"
	case "web-dl":
		family = "WEBDL"
	case "webrip":
		family = "WEBRip"
	default:
		family = "HDTV"
	}

	switch resolution {
	case "2160p", "1080p", "720p":
		if family == "Remux" && resolution == "720p" {
			family = "Bluray"
		}
		return family + "-" + resolution
	default:
		switch family {
		case "HDTV":
			return "SDTV"
		case "Remux":
			// remux without a resolution tag is almost always 1080p
			return "Remux-1080p"
		default:
			return family + "-480p"
		}
	}
}

// signal value aliases accepted by LookupSignal
var signalAliases = map[string]string{
	"4k":      "2160p",
	"uhd":     "2160p",
	"1080i":   "1080p",
	"webdl":   "web-dl",
	"web":     "web-dl",
	"blu-ray": "bluray",
	"hevc":    "x265",
	"h265":    "x265",
	"h.265":   "x265",
	"h264":    "x264",
	"h.264":   "x264",
	"avc":     "x264",
	"vc-1":    "vc1",
	"mpeg-2":  "mpeg2",
}

// LookupSignal returns the classifier pattern registered for a signal value,
// e.g. ("resolution", "1080p"). Unknown kinds or values return false.
func LookupSignal(kind, value string) (*regexp.Regexp, bool) {
	var table []pattern
	switch strings.ToLower(kind) {
	case SignalResolution:
		table = resolutionPatterns
	case SignalSource:
		table = sourcePatterns
	case SignalCodec:
		table = codecPatterns
	default:
		return nil, false
	}

	v := strings.ToLower(strings.TrimSpace(value))
	if alias, ok := signalAliases[v]; ok {
		v = alias
	}
	for _, p := range table {
		if p.tag == v {
			return p.re, true
		}
	}
	return nil, false
}
