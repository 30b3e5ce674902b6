// Package domain defines the data model shared by the import
// reconciliation pipeline: canonical activity records, store records,
// match candidates and tolerance configuration.
package domain

import (
	"time"
)

// Canonical column names used across the normalizer, resolver and store.
const (
	FieldActivityDate   = "activity_date"
	FieldExternalID     = "external_id"
	FieldKind           = "activity_kind"
	FieldTitle          = "title"
	FieldSource         = "source"
	FieldDistanceKM     = "distance_km"
	FieldElevationGainM = "elevation_gain_m"
	FieldElevationLossM = "elevation_loss_m"
	FieldDurationMin    = "duration_min"
	FieldPaceMinPerKM   = "pace_min_per_km"
	FieldHeartRateAvg   = "heart_rate_avg"
	FieldHeartRateMax   = "heart_rate_max"
)

// Record is one import row after header and unit normalization,
// independent of source vendor or language. Numeric pointers are nil when
// the source carried no usable value; they are never NaN or infinite.
// Records are built once by the normalizer and treated as immutable
// afterwards.
type Record struct {
	ActivityDate   time.Time `json:"activity_date"`         // calendar day, UTC midnight
	ExternalID     string    `json:"external_id,omitempty"` // vendor activity id
	Kind           string    `json:"activity_kind,omitempty"`
	Title          string    `json:"title,omitempty"`
	Source         string    `json:"source,omitempty"`
	DistanceKM     *float64  `json:"distance_km"`
	ElevationGainM *float64  `json:"elevation_gain_m"`
	ElevationLossM *float64  `json:"elevation_loss_m"`
	DurationMin    *float64  `json:"duration_min"`
	PaceMinPerKM   *float64  `json:"pace_min_per_km"`
	HeartRateAvg   *int      `json:"heart_rate_avg"`
	HeartRateMax   *int      `json:"heart_rate_max"`

	// Extra holds secondary coerced fields (calories, cadence, weather,
	// grade, ...) keyed by canonical field name. Unknown import columns
	// never reach this bag.
	Extra map[string]Value `json:"extra,omitempty"`
}

// Day returns the activity date formatted as YYYY-MM-DD.
func (r Record) Day() string {
	return r.ActivityDate.Format("2006-01-02")
}

// FieldMap flattens the scalar columns into a column-name keyed map.
// Nil pointers become explicit nil entries so a replace write can clear
// previously populated store columns.
func (r Record) FieldMap() map[string]any {
	m := map[string]any{
		FieldActivityDate:   r.ActivityDate,
		FieldExternalID:     textOrNil(r.ExternalID),
		FieldKind:           textOrNil(r.Kind),
		FieldTitle:          textOrNil(r.Title),
		FieldSource:         textOrNil(r.Source),
		FieldDistanceKM:     floatOrNil(r.DistanceKM),
		FieldElevationGainM: floatOrNil(r.ElevationGainM),
		FieldElevationLossM: floatOrNil(r.ElevationLossM),
		FieldDurationMin:    floatOrNil(r.DurationMin),
		FieldPaceMinPerKM:   floatOrNil(r.PaceMinPerKM),
		FieldHeartRateAvg:   intOrNil(r.HeartRateAvg),
		FieldHeartRateMax:   intOrNil(r.HeartRateMax),
	}
	return m
}

// StoreRecord is an existing record previously persisted for a user. The
// store owns its identity; the engine only reads it and requests updates.
type StoreRecord struct {
	ID     string `json:"id"`
	UserID string `json:"-"`
	Record
}

// MatchCandidate pairs a canonical record with at most one existing store
// record. Deltas are populated only when Existing is non-nil.
type MatchCandidate struct {
	Record     Record
	Existing   *StoreRecord
	DeltaKM    *float64
	DeltaGainM *float64
	DeltaLossM *float64
}

// Matched reports whether a store record was found within tolerance.
func (c MatchCandidate) Matched() bool {
	return c.Existing != nil
}

// ToleranceConfig holds the per-session matching tolerances.
type ToleranceConfig struct {
	DistanceTolKM float64
	ElevationTolM float64 // applied to gain and loss symmetrically
}

// DefaultTolerances mirror the thresholds the reconciliation flow shipped
// with originally: 300 m on distance, 40 m on elevation.
func DefaultTolerances() ToleranceConfig {
	return ToleranceConfig{DistanceTolKM: 0.3, ElevationTolM: 40}
}

// RowError reports one rejected import row.
type RowError struct {
	RowIndex int    `json:"row_index"`
	Reason   string `json:"reason"`
}

func textOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func floatOrNil(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func intOrNil(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}
