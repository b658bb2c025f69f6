// file: internal/config/seed.go
// version: 1.0.0
// guid: 2e755691-fd88-444c-9299-f2447cef96cb

package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jdfalk/media-acquirer/internal/database"
	"github.com/jdfalk/media-acquirer/internal/logger"
	"github.com/jdfalk/media-acquirer/internal/models"
	"github.com/jdfalk/media-acquirer/internal/parser"
)

// SeedProfile is a quality profile plus its custom format scores, keyed by
// format name.
type SeedProfile struct {
	models.QualityProfile `yaml:",inline"`
	Formats               map[string]int `yaml:"formats,omitempty"`
}

// Seed is the YAML layout accepted by `profiles import`.
type Seed struct {
	CustomFormats []models.CustomFormat `yaml:"custom_formats"`
	Profiles      []SeedProfile         `yaml:"profiles"`
}

// SeedResult counts what an import wrote.
type SeedResult struct {
	Profiles int `json:"profiles"`
	Formats  int `json:"formats"`
	Scores   int `json:"scores"`
}

// LoadSeedFile reads and validates a seed file.
func LoadSeedFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes seed YAML, resolves item ids by quality name and
// validates cutoffs and format references.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}

	formats := make(map[string]bool, len(seed.CustomFormats))
	for _, f := range seed.CustomFormats {
		if strings.TrimSpace(f.Name) == "" {
			return nil, fmt.Errorf("custom format without a name")
		}
		if formats[f.Name] {
			return nil, fmt.Errorf("duplicate custom format %q", f.Name)
		}
		formats[f.Name] = true
	}

	for i := range seed.Profiles {
		p := &seed.Profiles[i]
		if !p.MediaType.Valid() {
			return nil, fmt.Errorf("profile %q: unknown media type %q", p.Name, p.MediaType)
		}
		for j := range p.Items {
			item := &p.Items[j]
			def, ok := parser.QualityByName(p.MediaType, item.Name)
			if !ok {
				return nil, fmt.Errorf("profile %q: unknown %s quality %q", p.Name, p.MediaType, item.Name)
			}
			item.ID = def.ID
			item.Name = def.Name
		}
		if p.Cutoff != 0 {
			if _, ok := p.Item(p.Cutoff); !ok {
				return nil, fmt.Errorf("profile %q: cutoff %d is not one of its items", p.Name, p.Cutoff)
			}
		}
		for name := range p.Formats {
			if !formats[name] {
				return nil, fmt.Errorf("profile %q: scores unknown custom format %q", p.Name, name)
			}
		}
	}
	return &seed, nil
}

// ImportSeed writes the seed into the store. Existing profiles and formats
// with the same name are overwritten in place.
func ImportSeed(store database.Store, seed *Seed) (SeedResult, error) {
	var result SeedResult
	entry := logger.For("config")

	existingFormats, err := store.ListCustomFormats()
	if err != nil {
		return result, err
	}
	formatIDs := make(map[string]int, len(existingFormats))
	for _, f := range existingFormats {
		formatIDs[f.Name] = f.ID
	}
	for _, f := range seed.CustomFormats {
		f.ID = formatIDs[f.Name]
		if err := store.SaveCustomFormat(&f); err != nil {
			return result, fmt.Errorf("save custom format %q: %w", f.Name, err)
		}
		formatIDs[f.Name] = f.ID
		result.Formats++
	}

	existingProfiles, err := store.ListProfiles()
	if err != nil {
		return result, err
	}
	profileIDs := make(map[string]int, len(existingProfiles))
	for _, p := range existingProfiles {
		profileIDs[p.Name] = p.ID
	}
	for _, sp := range seed.Profiles {
		p := sp.QualityProfile
		p.ID = profileIDs[p.Name]
		if err := store.SaveProfile(&p); err != nil {
			return result, fmt.Errorf("save profile %q: %w", p.Name, err)
		}
		result.Profiles++
		for name, score := range sp.Formats {
			if err := store.SetFormatScore(p.ID, formatIDs[name], score); err != nil {
				return result, fmt.Errorf("score %q for profile %q: %w", name, p.Name, err)
			}
			result.Scores++
		}
	}

	entry.WithField("profiles", result.Profiles).
		WithField("formats", result.Formats).
		WithField("scores", result.Scores).
		Info("seed imported")
	return result, nil
}
