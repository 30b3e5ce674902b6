package schema

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Profile captures per-vendor import behavior: how distances are
// expressed, which activity kinds survive the row filter, and any extra
// header spellings beyond the base alias table. Keeping the unit decision
// here, not in shared coercion code, means each vendor states its units
// explicitly.
type Profile struct {
	Name string `yaml:"name"`

	// DistanceUnit is km, m, or auto (raw > 200 means meters).
	DistanceUnit UnitMode `yaml:"distance_unit"`

	// DurationUnit says how a colon-less duration cell is read: min
	// (decimal minutes, the default) or s (whole seconds).
	DurationUnit DurationMode `yaml:"duration_unit"`

	// AcceptedKinds lists the activity kinds kept by the normalizer, in
	// NormalizeKind form. Empty means accept every kind, and then the
	// kind column is not required either.
	AcceptedKinds []string `yaml:"accepted_kinds"`

	// Aliases adds vendor header spellings on top of the base table,
	// raw header text to canonical field name.
	Aliases map[string]string `yaml:"aliases"`
}

// FiltersKinds reports whether this profile drops rows by activity kind.
func (p *Profile) FiltersKinds() bool {
	return len(p.AcceptedKinds) > 0
}

// AcceptsKind tests a raw kind cell against the accepted set.
func (p *Profile) AcceptsKind(rawKind string) bool {
	if !p.FiltersKinds() {
		return true
	}
	kind := NormalizeKind(rawKind)
	for _, accepted := range p.AcceptedKinds {
		if kind == NormalizeKind(accepted) {
			return true
		}
	}
	return false
}

// GarminProfile is the built-in profile for Garmin Connect CSV exports.
// Garmin usually exports distance in kilometers but some locales emit
// meters, hence auto detection. Durations are clock values normally, raw
// seconds when colon-less. Kind filtering is left to the caller.
func GarminProfile() *Profile {
	return &Profile{
		Name:         "garmin",
		DistanceUnit: UnitAuto,
		DurationUnit: DurationSeconds,
	}
}

// StravaProfile is the built-in profile for the Strava bulk-export
// activities.csv: distances are always meters, colon-less durations are
// whole seconds, and only running activities are kept.
func StravaProfile() *Profile {
	return &Profile{
		Name:          "strava",
		DistanceUnit:  UnitMeters,
		DurationUnit:  DurationSeconds,
		AcceptedKinds: []string{"run", "trail_run", "virtual_run"},
	}
}

// GenericProfile accepts everything and takes distances as kilometers.
func GenericProfile() *Profile {
	return &Profile{
		Name:         "generic",
		DistanceUnit: UnitKilometers,
		DurationUnit: DurationMinutes,
	}
}

// BuiltinProfile resolves a named built-in profile.
func BuiltinProfile(name string) (*Profile, bool) {
	switch name {
	case "garmin":
		return GarminProfile(), true
	case "strava":
		return StravaProfile(), true
	case "generic", "":
		return GenericProfile(), true
	}
	return nil, false
}

// LoadProfile reads a vendor profile from a YAML file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("profile %s: name is required", path)
	}
	switch p.DistanceUnit {
	case UnitKilometers, UnitMeters, UnitAuto:
	case "":
		p.DistanceUnit = UnitKilometers
	default:
		return nil, fmt.Errorf("profile %s: invalid distance_unit %q", path, p.DistanceUnit)
	}
	switch p.DurationUnit {
	case DurationMinutes, DurationSeconds:
	case "":
		p.DurationUnit = DurationMinutes
	default:
		return nil, fmt.Errorf("profile %s: invalid duration_unit %q", path, p.DurationUnit)
	}
	return &p, nil
}
