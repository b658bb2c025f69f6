// file: internal/customformat/matcher.go
// version: 1.1.0
// guid: 12fdf242-7fc7-4157-8caa-eac0e815491b

// Package customformat matches user-defined pattern tags against raw release
// titles and sums their per-profile scores.
package customformat

import (
	"regexp"
	"strings"
	"time"

	"github.com/jdfalk/media-acquirer/internal/cache"
	"github.com/jdfalk/media-acquirer/internal/models"
	"github.com/jdfalk/media-acquirer/internal/parser"
)

// RejectThreshold is the total below which a release is discarded. A total
// of exactly RejectThreshold is still accepted.
const RejectThreshold = -100

const (
	patternTTL  = 30 * time.Minute
	maxPatterns = 512
)

// Matcher evaluates specifications and keeps the user patterns it compiles.
// The pattern cache is bounded: entries expire after patternTTL and the
// cache is emptied when it reaches maxPatterns with nothing expired.
type Matcher struct {
	patterns *cache.Cache[*regexp.Regexp]
}

// NewMatcher returns a Matcher with an empty pattern cache.
func NewMatcher() *Matcher {
	return &Matcher{patterns: cache.New[*regexp.Regexp](patternTTL)}
}

// compile returns the cached regex for expr; nil records a value that does
// not compile.
func (m *Matcher) compile(expr string) *regexp.Regexp {
	if re, ok := m.patterns.Get(expr); ok {
		return re
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		re = nil
	}
	if m.patterns.Len() >= maxPatterns && m.patterns.Purge() == 0 {
		m.patterns.InvalidateAll()
	}
	m.patterns.Set(expr, re)
	return re
}

// containsPattern matches value as a case-insensitive regex, or as a plain
// case-insensitive substring when it does not compile.
func (m *Matcher) containsPattern(value, title string) bool {
	if re := m.compile("(?i)" + value); re != nil {
		return re.MatchString(title)
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(value))
}

// releaseGroupPattern matches a trailing "-<value>".
func (m *Matcher) releaseGroupPattern(value, title string) bool {
	if re := m.compile(`(?i)-(?:` + value + `)$`); re != nil {
		return re.MatchString(title)
	}
	return strings.HasSuffix(strings.ToLower(title), "-"+strings.ToLower(value))
}

func signalPattern(kind, value, title string) bool {
	re, ok := parser.LookupSignal(kind, value)
	if !ok {
		return false
	}
	return re.MatchString(title)
}

// MatchesSpecification evaluates a single specification against title. The
// raw result is inverted when the specification is negated. Unknown
// implementations never match before negation.
func (m *Matcher) MatchesSpecification(spec models.Specification, title string) bool {
	var matched bool
	switch spec.Implementation {
	case models.SpecContains:
		matched = m.containsPattern(spec.Value, title)
	case models.SpecNotContains:
		matched = !m.containsPattern(spec.Value, title)
	case models.SpecResolution:
		matched = signalPattern(parser.SignalResolution, spec.Value, title)
	case models.SpecSource:
		matched = signalPattern(parser.SignalSource, spec.Value, title)
	case models.SpecCodec:
		matched = signalPattern(parser.SignalCodec, spec.Value, title)
	case models.SpecReleaseGroup:
		matched = m.releaseGroupPattern(spec.Value, title)
	}
	return matched != spec.Negate
}

// MatchesFormat applies the format rule: every required specification must
// pass and, when optional specifications exist, at least one of them must
// pass too. A format without specifications never matches.
func (m *Matcher) MatchesFormat(format models.CustomFormat, title string) bool {
	if len(format.Specifications) == 0 {
		return false
	}

	optional, optionalPassed := 0, false
	for _, spec := range format.Specifications {
		ok := m.MatchesSpecification(spec, title)
		if spec.Required {
			if !ok {
				return false
			}
			continue
		}
		optional++
		if ok {
			optionalPassed = true
		}
	}
	return optional == 0 || optionalPassed
}

// Result is the custom format verdict for one title.
type Result struct {
	Matches    []models.ScoredFormat `json:"matches"`
	TotalScore int                   `json:"total_score"`
	Rejected   bool                  `json:"rejected"`
}

// Names returns the names of the matched formats.
func (r Result) Names() []string {
	out := make([]string, 0, len(r.Matches))
	for _, m := range r.Matches {
		out = append(out, m.Format.Name)
	}
	return out
}

// Evaluate matches title against every scored format and sums the scores of
// those that match.
func (m *Matcher) Evaluate(title string, formats []models.ScoredFormat) Result {
	res := Result{Matches: []models.ScoredFormat{}}
	for _, sf := range formats {
		if !m.MatchesFormat(sf.Format, title) {
			continue
		}
		res.Matches = append(res.Matches, sf)
		res.TotalScore += sf.Score
	}
	res.Rejected = res.TotalScore < RejectThreshold
	return res
}
