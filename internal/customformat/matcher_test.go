// file: internal/customformat/matcher_test.go
// version: 1.1.0
// guid: 20c67ecb-4647-4130-baed-7b14cf14035d

package customformat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/media-acquirer/internal/models"
)

const sampleTitle = "Movie.Name.2021.2160p.WEB-DL.DDP5.1.HDR.HEVC-FLUX"

func spec(impl, value string, required, negate bool) models.Specification {
	return models.Specification{Implementation: impl, Value: value, Required: required, Negate: negate}
}

func TestMatchesSpecification(t *testing.T) {
	m := NewMatcher()
	tests := []struct {
		name string
		spec models.Specification
		want bool
	}{
		{"contains regex", spec(models.SpecContains, `\bHDR\b`, false, false), true},
		{"contains is case insensitive", spec(models.SpecContains, "hdr", false, false), true},
		{"contains bad regex falls back to substring", spec(models.SpecContains, "DDP5.1.HDR(", false, false), false},
		{"not contains", spec(models.SpecNotContains, "x264", false, false), true},
		{"not contains hit", spec(models.SpecNotContains, "hevc", false, false), false},
		{"resolution", spec(models.SpecResolution, "2160p", false, false), true},
		{"resolution alias", spec(models.SpecResolution, "4k", false, false), true},
		{"resolution miss", spec(models.SpecResolution, "1080p", false, false), false},
		{"unknown resolution value", spec(models.SpecResolution, "8k", false, false), false},
		{"source", spec(models.SpecSource, "web-dl", false, false), true},
		{"codec", spec(models.SpecCodec, "x265", false, false), true},
		{"release group", spec(models.SpecReleaseGroup, "FLUX", false, false), true},
		{"release group must be trailing", spec(models.SpecReleaseGroup, "HEVC", false, false), false},
		{"negated", spec(models.SpecCodec, "x265", false, true), false},
		{"negated miss", spec(models.SpecResolution, "720p", false, true), true},
		{"unknown implementation", spec("language", "english", false, false), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.MatchesSpecification(tt.spec, sampleTitle))
		})
	}
}

func TestContainsFallsBackToSubstring(t *testing.T) {
	m := NewMatcher()
	s := spec(models.SpecContains, "[group", false, false)
	assert.True(t, m.MatchesSpecification(s, "Album [GROUP] FLAC"))
	assert.False(t, m.MatchesSpecification(s, "Album (GROUP) FLAC"))

	rg := spec(models.SpecReleaseGroup, "GRP[", false, false)
	assert.True(t, m.MatchesSpecification(rg, "Movie.1080p-grp["))
}

func TestMatchesFormatRules(t *testing.T) {
	m := NewMatcher()
	pass := spec(models.SpecContains, "HDR", false, false)
	fail := spec(models.SpecContains, "DOVI", false, false)
	req := func(s models.Specification) models.Specification { s.Required = true; return s }

	tests := []struct {
		name  string
		specs []models.Specification
		want  bool
	}{
		{"no specifications", nil, false},
		{"required only, all pass", []models.Specification{req(pass), req(pass)}, true},
		{"required only, one fails", []models.Specification{req(pass), req(fail)}, false},
		{"optional only, one passes", []models.Specification{fail, pass}, true},
		{"optional only, none pass", []models.Specification{fail, fail}, false},
		{"required pass, optional none pass", []models.Specification{req(pass), fail}, false},
		{"required pass, optional one passes", []models.Specification{req(pass), fail, pass}, true},
		{"required fail, optional pass", []models.Specification{req(fail), pass}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := models.CustomFormat{Name: tt.name, Specifications: tt.specs}
			assert.Equal(t, tt.want, m.MatchesFormat(f, sampleTitle))
		})
	}
}

func scored(name string, score int, specs ...models.Specification) models.ScoredFormat {
	return models.ScoredFormat{Format: models.CustomFormat{Name: name, Specifications: specs}, Score: score}
}

func TestEvaluateThreshold(t *testing.T) {
	m := NewMatcher()
	hdr := spec(models.SpecContains, "HDR", false, false)
	miss := spec(models.SpecContains, "DOVI", false, false)

	res := m.Evaluate(sampleTitle, []models.ScoredFormat{
		scored("HDR", 50, hdr),
		scored("DV", 100, miss),
		scored("Bad group", -150, spec(models.SpecReleaseGroup, "FLUX", true, false)),
	})
	assert.Equal(t, -100, res.TotalScore)
	assert.False(t, res.Rejected, "exactly -100 is kept")
	assert.Equal(t, []string{"HDR", "Bad group"}, res.Names())

	res = m.Evaluate(sampleTitle, []models.ScoredFormat{
		scored("HDR", -1, hdr),
		scored("Bad group", -100, spec(models.SpecReleaseGroup, "FLUX", true, false)),
	})
	assert.Equal(t, -101, res.TotalScore)
	assert.True(t, res.Rejected)

	res = m.Evaluate(sampleTitle, nil)
	assert.Equal(t, 0, res.TotalScore)
	assert.False(t, res.Rejected)
	assert.Empty(t, res.Matches)
}

func TestMatcherPatternCacheIsBounded(t *testing.T) {
	m := NewMatcher()
	for i := 0; i < maxPatterns+10; i++ {
		assert.False(t, m.MatchesSpecification(spec(models.SpecContains, fmt.Sprintf("tag%d", i), false, false), sampleTitle))
	}
	assert.LessOrEqual(t, m.patterns.Len(), maxPatterns)

	// entries that failed to compile are remembered as nil
	m.MatchesSpecification(spec(models.SpecContains, "(", false, false), sampleTitle)
	re, ok := m.patterns.Get("(?i)(")
	assert.True(t, ok)
	assert.Nil(t, re)
}

func TestScorersDoNotSharePatterns(t *testing.T) {
	src := &fakeSource{formats: map[int][]models.ScoredFormat{
		1: {scored("HDR", 10, spec(models.SpecContains, "HDR", true, false))},
	}}
	a, b := NewScorer(src), NewScorer(src)

	_, err := a.ScoreRelease(context.Background(), sampleTitle, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, a.matcher.patterns.Len())
	assert.Zero(t, b.matcher.patterns.Len())
}

type fakeSource struct {
	formats map[int][]models.ScoredFormat
	err     error
}

func (f *fakeSource) GetProfileFormats(profileID int) ([]models.ScoredFormat, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.formats[profileID], nil
}

func TestScorerScoreRelease(t *testing.T) {
	src := &fakeSource{formats: map[int][]models.ScoredFormat{
		7: {scored("x265", 25, spec(models.SpecCodec, "x265", true, false))},
	}}
	s := NewScorer(src)

	res, err := s.ScoreRelease(context.Background(), sampleTitle, 7)
	require.NoError(t, err)
	assert.Equal(t, 25, res.TotalScore)

	res, err = s.ScoreRelease(context.Background(), sampleTitle, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalScore)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.ScoreRelease(ctx, sampleTitle, 7)
	assert.ErrorIs(t, err, context.Canceled)

	src.err = errors.New("store offline")
	_, err = s.ScoreRelease(context.Background(), sampleTitle, 7)
	assert.ErrorIs(t, err, src.err)
}
