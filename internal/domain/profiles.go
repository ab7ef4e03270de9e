package domain

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultProfileID is the table entry used for locations without their own profile.
const DefaultProfileID = "default"

// maxSearchResults caps location search output.
const maxSearchResults = 10

// Canonical identifiers double as bundle directory and object key segments.
var locationIDPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

//go:embed profiles.yaml
var profilesYAML []byte

var errProfilesNotLoaded = errors.New("climate profiles not loaded")

// Classification is the coarse climate category that selects synthetic clamps
// and risk thresholds.
type Classification string

const (
	ClassTropical  Classification = "tropical"
	ClassTemperate Classification = "temperate"
	ClassArid      Classification = "arid"
	ClassDefault   Classification = "default"
)

// ClassifyClimate maps a free-text climate type onto a Classification.
// "Semi-arid" matches arid; unrecognised text falls back to ClassDefault.
func ClassifyClimate(climateType string) Classification {
	ct := strings.ToLower(climateType)
	switch {
	case strings.Contains(ct, "tropical"):
		return ClassTropical
	case strings.Contains(ct, "temperate"):
		return ClassTemperate
	case strings.Contains(ct, "arid"):
		return ClassArid
	default:
		return ClassDefault
	}
}

// ClimateProfile is a location's typical climate, used both as model input and
// as the centre of synthetic generation.
type ClimateProfile struct {
	ID             string         `json:"id" yaml:"-"`
	AvgTemp        float64        `json:"avg_temp" yaml:"avg_temp"`
	AvgHumidity    float64        `json:"avg_humidity" yaml:"avg_humidity"`
	AvgPressure    float64        `json:"avg_pressure" yaml:"avg_pressure"`
	WindSpeed      float64        `json:"wind_speed" yaml:"wind_speed"`
	CloudCover     float64        `json:"cloud_cover" yaml:"cloud_cover"`
	Visibility     float64        `json:"visibility" yaml:"visibility"`
	WindDirection  float64        `json:"wind_direction" yaml:"wind_direction"`
	Latitude       float64        `json:"latitude" yaml:"latitude"`
	Longitude      float64        `json:"longitude" yaml:"longitude"`
	ClimateType    string         `json:"climate_type" yaml:"climate_type"`
	Classification Classification `json:"classification" yaml:"-"`

	// Presentation metadata, not used by any calculation.
	TempRange       string `json:"temp_range,omitempty" yaml:"temp_range"`
	HumidityRange   string `json:"humidity_range,omitempty" yaml:"humidity_range"`
	MonsoonSeason   string `json:"monsoon_season,omitempty" yaml:"monsoon_season"`
	WindPatterns    string `json:"wind_patterns,omitempty" yaml:"wind_patterns"`
	SpecialFeatures string `json:"special_features,omitempty" yaml:"special_features"`
}

// DefaultBaseline is the hard-coded profile substituted when the profile table
// itself cannot be consulted. Coordinates are New Delhi's.
func DefaultBaseline() ClimateProfile {
	return ClimateProfile{
		ID:             DefaultProfileID,
		AvgTemp:        25,
		AvgHumidity:    65,
		AvgPressure:    1013,
		WindSpeed:      10,
		CloudCover:     50,
		Visibility:     10,
		WindDirection:  180,
		Latitude:       28.6139,
		Longitude:      77.2090,
		Classification: ClassDefault,
	}
}

// ProfileSource looks up a climate profile for a location.
type ProfileSource interface {
	Profile(location string) (ClimateProfile, error)
}

// ProfileStore is the read-only location → ClimateProfile table.
// It is safe for concurrent use because nothing mutates it after construction.
type ProfileStore struct {
	profiles map[string]ClimateProfile
	cities   []string
}

type profileFile struct {
	Profiles map[string]ClimateProfile `yaml:"profiles"`
	Cities   []string                  `yaml:"cities"`
}

// LoadProfiles parses the embedded profile table.
func LoadProfiles() (*ProfileStore, error) {
	return ParseProfiles(profilesYAML)
}

// ParseProfiles builds a ProfileStore from a YAML document. The document must
// contain a "default" profile.
func ParseProfiles(data []byte) (*ProfileStore, error) {
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse climate profiles: %w", err)
	}

	profiles := make(map[string]ClimateProfile, len(f.Profiles))
	for key, p := range f.Profiles {
		id := NormalizeLocation(key)
		if p.AvgTemp == 0 {
			return nil, fmt.Errorf("climate profile %q: avg_temp must be non-zero", id)
		}
		p.ID = id
		p.Classification = ClassifyClimate(p.ClimateType)
		profiles[id] = p
	}
	if _, ok := profiles[DefaultProfileID]; !ok {
		return nil, fmt.Errorf("climate profiles: missing %q entry", DefaultProfileID)
	}

	cities := make([]string, 0, len(f.Cities))
	for _, c := range f.Cities {
		cities = append(cities, NormalizeLocation(c))
	}

	return &ProfileStore{profiles: profiles, cities: cities}, nil
}

// NormalizeLocation converts a display name such as "New Delhi" into the
// canonical identifier "new_delhi".
func NormalizeLocation(location string) string {
	fields := strings.FieldsFunc(strings.ToLower(location), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '\t'
	})
	return strings.Join(fields, "_")
}

// ValidLocationID reports whether id is a canonical identifier, i.e. the
// output of NormalizeLocation for a name made of letters, digits and separators.
func ValidLocationID(id string) bool {
	return locationIDPattern.MatchString(id)
}

// DisplayName converts a canonical identifier back to title case, e.g. "new_delhi" → "New Delhi".
func DisplayName(location string) string {
	words := strings.Split(NormalizeLocation(location), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Profile returns the profile for location, or the default profile when the
// location has no entry. It fails only when the store holds no table at all.
func (s *ProfileStore) Profile(location string) (ClimateProfile, error) {
	if s == nil || len(s.profiles) == 0 {
		return ClimateProfile{}, errProfilesNotLoaded
	}
	if p, ok := s.profiles[NormalizeLocation(location)]; ok {
		return p, nil
	}
	return s.profiles[DefaultProfileID], nil
}

// ProfileFor is the total form of Profile: it never fails, substituting
// DefaultBaseline if the table is unavailable.
func (s *ProfileStore) ProfileFor(location string) ClimateProfile {
	p, err := s.Profile(location)
	if err != nil {
		return DefaultBaseline()
	}
	return p
}

// Known reports whether location has its own profile entry.
func (s *ProfileStore) Known(location string) bool {
	if s == nil {
		return false
	}
	_, ok := s.profiles[NormalizeLocation(location)]
	return ok
}

// Cities returns the supported location identifiers in table order.
func (s *ProfileStore) Cities() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.cities)
}

// Search returns up to ten supported locations whose identifier contains term,
// ignoring case. Spaces in term match underscores.
func (s *ProfileStore) Search(term string) []string {
	if s == nil {
		return nil
	}
	needle := NormalizeLocation(term)
	matches := make([]string, 0, maxSearchResults)
	for _, c := range s.cities {
		if strings.Contains(c, needle) {
			matches = append(matches, c)
			if len(matches) == maxSearchResults {
				break
			}
		}
	}
	return matches
}
