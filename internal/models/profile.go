// file: internal/models/profile.go
// version: 1.0.0
// guid: 88bcf230-4a4e-424f-9dbb-baf3bff0dbad

package models

// QualityItem is one recognised quality level inside a profile.
type QualityItem struct {
	ID      int    `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Allowed bool   `json:"allowed" yaml:"allowed"`
}

// QualityProfile ranks quality levels for a media type. Items are ordered
// best-first; Cutoff is the id of the item at which upgrades stop.
type QualityProfile struct {
	ID             int           `json:"id" yaml:"id"`
	Name           string        `json:"name" yaml:"name"`
	MediaType      MediaType     `json:"media_type" yaml:"media_type"`
	Items          []QualityItem `json:"items" yaml:"items"`
	Cutoff         int           `json:"cutoff" yaml:"cutoff"`
	UpgradeAllowed bool          `json:"upgrade_allowed" yaml:"upgrade_allowed"`
	MinFormatScore int           `json:"min_format_score,omitempty" yaml:"min_format_score,omitempty"`
}

// Item returns the profile item with the given id.
func (p *QualityProfile) Item(id int) (QualityItem, bool) {
	for _, it := range p.Items {
		if it.ID == id {
			return it, true
		}
	}
	return QualityItem{}, false
}

// Spec implementations understood by the custom format matcher.
const (
	SpecContains     = "contains"
	SpecNotContains  = "notContains"
	SpecResolution   = "resolution"
	SpecSource       = "source"
	SpecCodec        = "codec"
	SpecReleaseGroup = "releaseGroup"
)

// Specification is a single test inside a custom format.
type Specification struct {
	Name           string `json:"name,omitempty" yaml:"name,omitempty"`
	Implementation string `json:"implementation" yaml:"implementation"`
	Value          string `json:"value" yaml:"value"`
	Negate         bool   `json:"negate" yaml:"negate"`
	Required       bool   `json:"required" yaml:"required"`
}

// CustomFormat is a named set of specifications matched against release titles.
type CustomFormat struct {
	ID             int             `json:"id" yaml:"id"`
	Name           string          `json:"name" yaml:"name"`
	Specifications []Specification `json:"specifications" yaml:"specifications"`
}

// ScoredFormat pairs a format with the score a profile assigns to it.
type ScoredFormat struct {
	Format CustomFormat `json:"format"`
	Score  int          `json:"score"`
}
