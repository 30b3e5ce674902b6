package schema

import (
	"math"
	"strconv"
	"strings"
	"time"

	"example.com/reconcile/internal/domain"
)

// UnitMode selects how distance-like raw values are interpreted.
type UnitMode string

const (
	// UnitKilometers takes raw distances as kilometers verbatim.
	UnitKilometers UnitMode = "km"
	// UnitMeters divides raw distances by 1000.
	UnitMeters UnitMode = "m"
	// UnitAuto applies the legacy heuristic: a raw value above 200 is
	// assumed to be meters. Only sensible for vendors that mix units.
	UnitAuto UnitMode = "auto"
)

const autoMetersThreshold = 200

// DurationMode selects how colon-less duration cells are interpreted.
type DurationMode string

const (
	// DurationMinutes takes a plain number as decimal minutes.
	DurationMinutes DurationMode = "min"
	// DurationSeconds takes a plain number as whole seconds. Strava's
	// activities.csv exports Moving Time and Elapsed Time this way.
	DurationSeconds DurationMode = "s"
)

// ParseFloat coerces a raw cell to a finite float. Empty cells, NaN,
// infinities and unparsable text all coerce to nil, never to zero. Both
// "." and "," are accepted as decimal separator; thousands separators and
// unit suffixes are stripped.
func ParseFloat(raw string) *float64 {
	cleaned := normalizeNumber(raw)
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ParseInt coerces like ParseFloat then rounds to the nearest integer.
func ParseInt(raw string) *int64 {
	f := ParseFloat(raw)
	if f == nil {
		return nil
	}
	v := int64(math.Round(*f))
	return &v
}

// ParseBool recognises common true/false spellings across languages.
func ParseBool(raw string) *bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on", "oui", "ja", "si", "sí":
		v := true
		return &v
	case "0", "false", "no", "off", "non", "nein":
		v := false
		return &v
	}
	return nil
}

// ParseTimeOfDay parses HH:MM:SS or HH:MM clock values.
func ParseTimeOfDay(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// timestampLayouts is the ordered ladder of date/time patterns tried first.
// Day-first formats come before month-first ones, matching the historic
// import behavior.
var timestampLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
}

// genericLayouts is the best-effort fallback tried when the primary ladder
// fails. Covers the long-form dates some vendor exports localise.
var genericLayouts = []string{
	"Jan 2, 2006, 3:04:05 PM",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2006/01/02",
	"02.01.2006",
	"2006-01-02 15:04",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseTimestamp works through the pattern ladder; the first successful
// match wins. ok is false when every pattern fails.
func ParseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseClockMinutes coerces clock-style durations and paces to decimal
// minutes: "mm:ss" and "hh:mm:ss" convert (rounded to 2 decimal places),
// a plain number passes through as already-decimal minutes.
func ParseClockMinutes(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if !strings.Contains(s, ":") {
		return ParseFloat(s)
	}
	parts := strings.Split(s, ":")
	nums := make([]float64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil
		}
		nums = append(nums, n)
	}
	var minutes float64
	switch len(nums) {
	case 2:
		minutes = nums[0] + nums[1]/60
	case 3:
		minutes = nums[0]*60 + nums[1] + nums[2]/60
	default:
		return nil
	}
	minutes = math.Round(minutes*100) / 100
	return &minutes
}

// ParseDurationMinutes coerces a duration cell to decimal minutes. Clock
// values convert like ParseClockMinutes regardless of mode; a colon-less
// number is read per the vendor's duration unit.
func ParseDurationMinutes(raw string, mode DurationMode) *float64 {
	s := strings.TrimSpace(raw)
	if mode == DurationSeconds && !strings.Contains(s, ":") {
		v := ParseFloat(s)
		if v == nil {
			return nil
		}
		minutes := math.Round(*v/60*100) / 100
		return &minutes
	}
	return ParseClockMinutes(s)
}

// NormalizeDistanceKM applies the vendor profile's unit mode to a coerced
// distance value, returning kilometers.
func NormalizeDistanceKM(v float64, mode UnitMode) float64 {
	switch mode {
	case UnitMeters:
		return v / 1000
	case UnitAuto:
		if v > autoMetersThreshold {
			return v / 1000
		}
		return v
	default:
		return v
	}
}

// Coerce applies a field's coercion to one raw cell under the vendor
// profile's unit settings. ok is false when the cell coerces to null;
// null is never an error at cell level.
func Coerce(f Field, raw string, p *Profile) (domain.Value, bool) {
	if p == nil {
		p = GenericProfile()
	}
	switch f.Type {
	case domain.TypeBool:
		if b := ParseBool(raw); b != nil {
			return domain.BoolValue(*b), true
		}
	case domain.TypeInteger:
		if i := ParseInt(raw); i != nil {
			return domain.IntValue(*i), true
		}
	case domain.TypeFloat:
		if v := ParseFloat(raw); v != nil {
			f64 := *v
			if f.DistanceLike {
				f64 = NormalizeDistanceKM(f64, p.DistanceUnit)
			}
			return domain.FloatValue(f64), true
		}
	case domain.TypePace:
		var v *float64
		if f.DurationLike {
			v = ParseDurationMinutes(raw, p.DurationUnit)
		} else {
			v = ParseClockMinutes(raw)
		}
		if v != nil {
			return domain.Value{Type: domain.TypePace, Float: *v}, true
		}
	case domain.TypeTimeOfDay:
		if t := ParseTimeOfDay(raw); t != nil {
			return domain.Value{Type: domain.TypeTimeOfDay, Time: *t}, true
		}
	case domain.TypeTimestamp:
		if t, ok := ParseTimestamp(raw); ok {
			return domain.TimeValue(t), true
		}
	case domain.TypeText:
		if s := strings.TrimSpace(raw); s != "" {
			return domain.TextValue(s), true
		}
	}
	return domain.Value{}, false
}

// normalizeNumber strips unit suffixes, spaces and thousands separators
// and settles on "." as the decimal separator.
func normalizeNumber(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case (r == '-' || r == '+') && b.Len() == 0:
			b.WriteRune(r)
		case r == ' ', r == ' ', r == '\'':
			// thousands separators in some locales; dropped
		}
	}
	s := b.String()

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}
