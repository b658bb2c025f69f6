// file: internal/parser/book.go
// version: 1.0.0
// guid: 80acccc5-8ed9-4fc4-9a07-9a59290bc792

package parser

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/jdfalk/media-acquirer/internal/models"
)

// BookInfo is the metadata recovered from a book file path.
type BookInfo struct {
	Title          string        `json:"title"`
	Author         string        `json:"author"`
	SeriesName     string        `json:"series_name,omitempty"`
	SeriesPosition float64       `json:"series_position,omitempty"`
	Year           int           `json:"year,omitempty"`
	Format         string        `json:"format,omitempty"`
	Quality        ParsedQuality `json:"quality"`
}

type seriesShape struct {
	name string
	re   *regexp.Regexp
	// partial shapes only yield the series name; author and format then come
	// from the directory layout.
	partial bool
}

// Series annotations, tried in order.
var seriesShapes = []seriesShape{
	// Mistborn #1
	{name: "hash", re: regexp.MustCompile(`([^\-\[\]()#,]+?)\s*#\s*(\d+(?:\.\d+)?)(?:[^)\]\d.]|$)`)},
	// The Wheel of Time, Book 1
	{name: "comma-book", re: regexp.MustCompile(`(?i)([^\-\[\]()#,]+?),\s*book\s+(\d+(?:\.\d+)?)(?:[^)\]\d.]|$)`)},
	// [Discworld 04]
	{name: "bracket", re: regexp.MustCompile(`\[([^\]]+?)\s+#?(\d+(?:\.\d+)?)\]`)},
	// (Discworld, Book 4)
	{name: "paren-book", re: regexp.MustCompile(`(?i)\(([^)]+?),\s*book\s+(\d+(?:\.\d+)?)\)`), partial: true},
	// (Long Earth 05)
	{name: "paren", re: regexp.MustCompile(`\(([^)]+?)\s+#?(\d+(?:\.\d+)?)\)`), partial: true},
}

var (
	reBookDash = regexp.MustCompile(`\s+-\s+`)

	bookStopWords = map[string]bool{
		"the": true, "a": true, "an": true, "of": true, "and": true, "in": true,
		"on": true, "at": true, "to": true, "for": true, "with": true, "from": true,
		"by": true, "into": true, "my": true, "your": true, "how": true, "what": true,
		"why": true, "when": true, "part": true, "book": true, "volume": true,
		"vol": true, "edition": true, "is": true, "this": true, "that": true,
	}
)

// looksLikeAuthor is the name heuristic used to order "X - Y" filenames:
// two to four capitalised words, no digits, no title stop-words. Joined
// author lists ("A & B") also count.
func looksLikeAuthor(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.IndexFunc(s, unicode.IsDigit) >= 0 {
		return false
	}
	if strings.Contains(s, " & ") || strings.Contains(s, "; ") {
		return true
	}
	words := strings.Fields(s)
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		if bookStopWords[strings.ToLower(strings.Trim(w, ",."))] {
			return false
		}
		r := []rune(w)
		if !unicode.IsUpper(r[0]) {
			return false
		}
	}
	return true
}

func bookFormat(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if !mediaExtensions[ext] {
		return ""
	}
	switch ext {
	case ".epub", ".mobi", ".azw", ".azw3", ".pdf", ".m4b", ".mp3", ".cbz", ".cbr":
		return strings.TrimPrefix(ext, ".")
	}
	return ""
}

// authorFromPath looks at the directories above the file for an author name.
func authorFromPath(segs []string) string {
	n := len(segs)
	for i := n - 2; i >= 0 && i >= n-3; i-- {
		if looksLikeAuthor(segs[i]) {
			return segs[i]
		}
	}
	return ""
}

// ParseBook recovers author, title, series and format from a book path.
// The filename is tried against the series annotations first; what remains
// is split on " - " and ordered with looksLikeAuthor, defaulting to
// "Author - Title". The two parenthesised series shapes only report the
// series name; position is left unset and the author comes from the
// directory layout.
func ParseBook(path string) BookInfo {
	segs := splitSegments(path)
	info := BookInfo{Title: UnknownTitle, Author: UnknownTitle}
	if len(segs) == 0 {
		return info
	}

	file := segs[len(segs)-1]
	info.Format = bookFormat(file)
	info.Quality = Classify(file, models.MediaBook)
	pathAuthor := authorFromPath(segs)

	base := stripExtension(file)
	info.Year, base = ExtractYear(base, models.MediaBook)

	partial := false
	for _, shape := range seriesShapes {
		m := shape.re.FindStringSubmatchIndex(base)
		if m == nil {
			continue
		}
		info.SeriesName = strings.TrimSpace(base[m[2]:m[3]])
		if shape.partial {
			partial = true
		} else if pos, err := strconv.ParseFloat(base[m[4]:m[5]], 64); err == nil {
			info.SeriesPosition = pos
		}
		base = base[:m[0]] + " - " + base[m[1]:]
		break
	}

	if !strings.Contains(base, " ") {
		base = reSeparators.ReplaceAllString(base, " ")
	}
	rest := collapse(base)
	if partial {
		info.Title = rest
		if pathAuthor != "" {
			info.Author = pathAuthor
		}
		return info
	}

	var parts []string
	for _, p := range reBookDash.Split(rest, -1) {
		if p = strings.TrimSpace(p); p != "" && p != "-" {
			parts = append(parts, p)
		}
	}

	switch {
	case len(parts) >= 2:
		first, second := parts[0], strings.Join(parts[1:], " - ")
		if looksLikeAuthor(second) && !looksLikeAuthor(first) {
			info.Title, info.Author = first, second
		} else {
			info.Author, info.Title = first, second
		}
	case len(parts) == 1 && info.SeriesName != "" && looksLikeAuthor(parts[0]):
		// "Author - Series #N" names the series only
		info.Author, info.Title = parts[0], info.SeriesName
	case len(parts) == 1:
		info.Title = parts[0]
		if pathAuthor != "" {
			info.Author = pathAuthor
		}
	default:
		if info.SeriesName != "" {
			info.Title = info.SeriesName
		}
		if pathAuthor != "" {
			info.Author = pathAuthor
		}
	}

	if info.Title == UnknownTitle && info.SeriesName != "" {
		info.Title = info.SeriesName
	}
	return info
}
