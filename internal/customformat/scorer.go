// file: internal/customformat/scorer.go
// version: 1.1.0
// guid: 880577e4-b6df-4741-95e4-eed1bae0b563

package customformat

import (
	"context"
	"fmt"

	"github.com/jdfalk/media-acquirer/internal/metrics"
	"github.com/jdfalk/media-acquirer/internal/models"
)

// FormatSource supplies the custom formats scored by a profile.
type FormatSource interface {
	GetProfileFormats(profileID int) ([]models.ScoredFormat, error)
}

// Scorer evaluates titles against the formats assigned to a profile.
type Scorer struct {
	source  FormatSource
	matcher *Matcher
}

// NewScorer returns a Scorer reading formats from source.
func NewScorer(source FormatSource) *Scorer {
	return &Scorer{source: source, matcher: NewMatcher()}
}

// ScoreRelease loads the profile's scored formats and evaluates title.
func (s *Scorer) ScoreRelease(ctx context.Context, title string, profileID int) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	formats, err := s.source.GetProfileFormats(profileID)
	if err != nil {
		return Result{}, fmt.Errorf("load formats for profile %d: %w", profileID, err)
	}
	res := s.matcher.Evaluate(title, formats)
	if res.Rejected {
		metrics.RecordRejection("custom_format")
	}
	return res, nil
}
