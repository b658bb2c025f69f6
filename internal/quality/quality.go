// file: internal/quality/quality.go
// version: 1.0.0
// guid: d6b51b84-96e6-4226-b26d-d27b5398a4c8

// Package quality scores classified releases against a quality profile and
// decides whether a release is worth grabbing or upgrading to.
package quality

import (
	"sort"
	"strings"

	"github.com/jdfalk/media-acquirer/internal/models"
	"github.com/jdfalk/media-acquirer/internal/parser"
)

// Result is the outcome of scoring one title against a profile.
type Result struct {
	Allowed     bool                 `json:"allowed"`
	Score       int                  `json:"score"`
	MeetsCutoff bool                 `json:"meets_cutoff"`
	Quality     parser.ParsedQuality `json:"quality"`
}

// SizeLimits bounds candidate sizes in bytes, inclusive. Zero disables a bound.
type SizeLimits struct {
	Min int64 `json:"min,omitempty"`
	Max int64 `json:"max,omitempty"`
}

func (l SizeLimits) admits(size int64) bool {
	if l.Min > 0 && size < l.Min {
		return false
	}
	if l.Max > 0 && size > l.Max {
		return false
	}
	return true
}

// Ranked pairs a candidate with its score.
type Ranked struct {
	Candidate models.Candidate `json:"candidate"`
	Result    Result           `json:"result"`
}

// allowedScore returns the score of a quality id within the allowed subset of
// the profile: the first allowed item scores len(allowed), the last scores 1.
// Disallowed or absent ids score 0.
func allowedScore(profile *models.QualityProfile, id int) int {
	allowed := 0
	for _, it := range profile.Items {
		if it.Allowed {
			allowed++
		}
	}
	idx := 0
	for _, it := range profile.Items {
		if !it.Allowed {
			continue
		}
		if it.ID == id {
			return allowed - idx
		}
		idx++
	}
	return 0
}

// cutoffScore is the score a release must reach to stop upgrades. A cutoff
// that is not an allowed item defaults to the best allowed score.
func cutoffScore(profile *models.QualityProfile) int {
	if s := allowedScore(profile, profile.Cutoff); s > 0 {
		return s
	}
	n := 0
	for _, it := range profile.Items {
		if it.Allowed {
			n++
		}
	}
	return n
}

// scoreID scores a resolved quality id.
func scoreID(profile *models.QualityProfile, q parser.ParsedQuality) Result {
	res := Result{Quality: q}
	if !q.Resolved() {
		return res
	}
	item, ok := profile.Item(q.QualityID)
	if !ok || !item.Allowed {
		return res
	}
	res.Allowed = true
	res.Score = allowedScore(profile, q.QualityID)
	res.MeetsCutoff = res.Score >= cutoffScore(profile)
	return res
}

// Score classifies title and scores it against profile.
func Score(title string, mediaType models.MediaType, profile *models.QualityProfile) Result {
	return scoreID(profile, parser.Classify(title, mediaType))
}

// RankReleases scores every candidate, drops those that are not allowed or
// fall outside limits, and orders the rest best first: higher score, then
// larger size. Full ties keep their input order.
func RankReleases(candidates []models.Candidate, mediaType models.MediaType, profile *models.QualityProfile, limits SizeLimits) []Ranked {
	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		res := Score(c.Title, mediaType, profile)
		if !res.Allowed {
			continue
		}
		if !limits.admits(c.Size) {
			continue
		}
		ranked = append(ranked, Ranked{Candidate: c, Result: res})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Result.Score != ranked[j].Result.Score {
			return ranked[i].Result.Score > ranked[j].Result.Score
		}
		return ranked[i].Candidate.Size > ranked[j].Candidate.Size
	})
	return ranked
}

// resolveCurrent maps the name of the quality on disk to a quality. Profile
// item names win over the built-in table so custom names still resolve.
func resolveCurrent(name string, mediaType models.MediaType, profile *models.QualityProfile) (parser.ParsedQuality, bool) {
	name = strings.TrimSpace(name)
	for _, it := range profile.Items {
		if strings.EqualFold(it.Name, name) {
			return parser.ParsedQuality{QualityID: it.ID, QualityName: it.Name}, true
		}
	}
	if def, ok := parser.QualityByName(mediaType, name); ok {
		return parser.ParsedQuality{QualityID: def.ID, QualityName: def.Name}, true
	}
	return parser.ParsedQuality{}, false
}

// IsUpgrade decides whether newTitle should replace the quality on disk.
// An empty currentQualityName means nothing is on disk yet.
func IsUpgrade(currentQualityName, newTitle string, mediaType models.MediaType, profile *models.QualityProfile, upgradeAllowed bool) bool {
	if !upgradeAllowed {
		return false
	}
	next := Score(newTitle, mediaType, profile)
	if !next.Allowed {
		return false
	}
	if strings.TrimSpace(currentQualityName) == "" {
		return true
	}

	q, ok := resolveCurrent(currentQualityName, mediaType, profile)
	if !ok {
		return true
	}
	current := scoreID(profile, q)
	if current.MeetsCutoff {
		return false
	}
	return next.Score > current.Score
}

// IsCutoffUnmet reports whether the item still wants a better release: true
// when nothing is on disk or the current quality scores below the cutoff.
func IsCutoffUnmet(currentQualityName string, mediaType models.MediaType, profile *models.QualityProfile) bool {
	if strings.TrimSpace(currentQualityName) == "" {
		return true
	}
	q, ok := resolveCurrent(currentQualityName, mediaType, profile)
	if !ok {
		return true
	}
	return scoreID(profile, q).Score < cutoffScore(profile)
}
