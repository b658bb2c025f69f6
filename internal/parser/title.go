// file: internal/parser/title.go
// version: 1.0.0
// guid: 46403a60-5732-44f8-8726-45d6de1a3a25

package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jdfalk/media-acquirer/internal/models"
)

// UnknownTitle is returned when nothing usable is left after cleanup.
const UnknownTitle = "Unknown"

var (
	reYearParen   = regexp.MustCompile(`\(\s*(\d{4})\s*\)`)
	reYearBracket = regexp.MustCompile(`\[\s*(\d{4})\s*\]`)
	reDigits      = regexp.MustCompile(`\d+`)

	reNoise = tok(`proper|repack|rerip|real|internal|limited|extended|unrated|uncut|remastered|` +
		`dc|directors?[ ._-]?cut|theatrical|imax|multi(?:[ ._-]?(?:audio|subs?))?|dual[ ._-]?audio|` +
		`hdr10(?:\+|plus)?|hdr|dv|dolby[ ._-]?vision|sdr|10[ ._-]?bit|8[ ._-]?bit|atmos|truehd|` +
		`dts(?:-?hd)?(?:[ ._-]?ma)?|dts-?x|ddp?(?:[ ._]?[257][ ._]?[01])?|e-?ac-?3|ac-?3|aac(?:[ ._]?[257][ ._]?[01])?|` +
		`[257][ ._][01]|nf|amzn|dsnp|hmax|atvp|hulu|pcok|complete|subbed|dubbed|` +
		`hardsub|retail|scan|unabridged|abridged|audiobook|ebook|cbr|cbz|vbr|cd|vinyl|lossless`)

	reEmptyBrackets = regexp.MustCompile(`\(\s*\)|\[\s*\]|\{\s*\}`)
	reDashRun       = regexp.MustCompile(`(?:\s*-\s*){2,}`)
	reSeparators    = regexp.MustCompile(`[._]+`)
)

func yearRange(mediaType models.MediaType) (int, int) {
	if mediaType == models.MediaBook {
		return 1800, 2099
	}
	return 1900, 2099
}

// ExtractYear finds a release year and returns it together with the text
// minus the matched token. Parenthesised years win over bracketed ones,
// which win over bare delimited tokens. For bare tokens the last occurrence
// is used so titles that start with a number ("2012 2009 1080p") still
// parse. Year 0 means none was found and rest equals text.
func ExtractYear(text string, mediaType models.MediaType) (int, string) {
	lo, hi := yearRange(mediaType)
	valid := func(s string) (int, bool) {
		y, err := strconv.Atoi(s)
		if err != nil || y < lo || y > hi {
			return 0, false
		}
		return y, true
	}

	for _, re := range []*regexp.Regexp{reYearParen, reYearBracket} {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			if y, ok := valid(text[m[2]:m[3]]); ok {
				return y, text[:m[0]] + " " + text[m[1]:]
			}
		}
	}

	tokens := delimitedYears(text)
	for i := len(tokens) - 1; i >= 0; i-- {
		m := tokens[i]
		// a leading number followed by another year is part of the title
		if m[0] == 0 && len(tokens) > 1 {
			continue
		}
		if y, ok := valid(text[m[0]:m[1]]); ok {
			return y, text[:m[0]] + text[m[1]:]
		}
	}
	return 0, text
}

func isDelimiter(b byte) bool {
	return b == ' ' || b == '.' || b == '_' || b == '-'
}

// delimitedYears returns the index pairs of 4-digit runs bounded by the text
// edges or by separators.
func delimitedYears(text string) [][]int {
	var out [][]int
	for _, m := range reDigits.FindAllStringIndex(text, -1) {
		if m[1]-m[0] != 4 {
			continue
		}
		if m[0] > 0 && !isDelimiter(text[m[0]-1]) {
			continue
		}
		if m[1] < len(text) && !isDelimiter(text[m[1]]) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func stripYears(s string, mediaType models.MediaType) string {
	lo, hi := yearRange(mediaType)
	for _, re := range []*regexp.Regexp{reYearParen, reYearBracket} {
		s = re.ReplaceAllStringFunc(s, func(m string) string {
			y, _ := strconv.Atoi(strings.Trim(m, "()[] "))
			if y < lo || y > hi {
				return m
			}
			return " "
		})
	}
	tokens := delimitedYears(s)
	for i := len(tokens) - 1; i >= 0; i-- {
		m := tokens[i]
		if y, _ := strconv.Atoi(s[m[0]:m[1]]); y >= lo && y <= hi {
			s = s[:m[0]] + " " + s[m[1]:]
		}
	}
	return s
}

// stripAll removes every token matched by re, repeating until stable.
// Matches consume their delimiters, so adjacent tokens need another pass.
func stripAll(s string, re *regexp.Regexp) string {
	for i := 0; i < 8; i++ {
		next := re.ReplaceAllString(s, " ")
		if next == s {
			break
		}
		s = next
	}
	return s
}

func stripPatterns(s string, tables ...[]pattern) string {
	for _, table := range tables {
		for _, p := range table {
			s = stripAll(s, p.re)
		}
	}
	return s
}

// CleanTitle reduces a scene-style string to a human title: episode and year
// tokens, quality tokens and release noise are removed, separators become
// spaces and stray dashes are trimmed. An empty result is UnknownTitle.
func CleanTitle(text string) string {
	s := stripEpisodeTokens(text)
	s = stripYears(s, models.MediaMovie)
	return cleanTokens(s)
}

func stripEpisodeTokens(s string) string {
	s = stripAll(s, reEpisodeSxE)
	s = stripAll(s, reEpisodeX)
	return stripAll(s, reDaily)
}

// cleanTokens removes quality and noise tokens but leaves years alone.
func cleanTokens(s string) string {
	s = stripPatterns(s, resolutionPatterns, sourcePatterns, codecPatterns, audioPatterns, bookPatterns)
	s = stripAll(s, reNoise)
	return tidy(s)
}

// tidy normalises separators and whitespace without removing any tokens.
func tidy(s string) string {
	return collapse(reSeparators.ReplaceAllString(s, " "))
}

// collapse tidies brackets, dashes and whitespace, keeping dots.
func collapse(s string) string {
	s = reEmptyBrackets.ReplaceAllString(s, " ")
	s = reDashRun.ReplaceAllString(s, " - ")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, " -([{")
	s = strings.TrimLeft(s, " -)]}")
	if s == "" {
		return UnknownTitle
	}
	return s
}
