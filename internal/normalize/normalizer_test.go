package normalize

import (
	"errors"
	"math"
	"testing"

	"example.com/reconcile/internal/schema"
	"example.com/reconcile/internal/source"
)

func TestNormalizeGenericExport(t *testing.T) {
	table := source.Table{
		Headers: []string{"Date", "Titre", "Distance (km)", "D+ (m)", "D- (m)", "Temps", "FC Moyenne", "Calories"},
		Rows: [][]string{
			{"2026-03-14", "Sortie longue", "21,1", "650", "640", "1:52:30", "148", "1450"},
			{"15/03/2026", "Footing", "8.0", "", "-", "42:00", "", ""},
		},
	}

	result, err := New(schema.GenericProfile()).Normalize(table)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(result.Accepted) != 2 || len(result.Rejected) != 0 {
		t.Fatalf("accepted=%d rejected=%d", len(result.Accepted), len(result.Rejected))
	}

	long := result.Accepted[0]
	if long.Day() != "2026-03-14" {
		t.Fatalf("day = %s", long.Day())
	}
	if long.Title != "Sortie longue" {
		t.Fatalf("title = %q", long.Title)
	}
	if long.DistanceKM == nil || math.Abs(*long.DistanceKM-21.1) > 1e-9 {
		t.Fatalf("distance = %v", long.DistanceKM)
	}
	if long.ElevationGainM == nil || *long.ElevationGainM != 650 {
		t.Fatalf("gain = %v", long.ElevationGainM)
	}
	if long.ElevationLossM == nil || *long.ElevationLossM != 640 {
		t.Fatalf("loss = %v", long.ElevationLossM)
	}
	if long.DurationMin == nil || *long.DurationMin != 112.5 {
		t.Fatalf("duration = %v", long.DurationMin)
	}
	if long.HeartRateAvg == nil || *long.HeartRateAvg != 148 {
		t.Fatalf("hr = %v", long.HeartRateAvg)
	}
	if v, ok := long.Extra["calories"]; !ok || v.Int != 1450 {
		t.Fatalf("calories bag value = %+v ok=%v", v, ok)
	}
	if long.Source != "generic" {
		t.Fatalf("source = %q", long.Source)
	}

	// Null cells stay null: the second row's gain is empty and its loss
	// cell holds a bare dash.
	footing := result.Accepted[1]
	if footing.Day() != "2026-03-15" {
		t.Fatalf("day-first date mis-parsed: %s", footing.Day())
	}
	if footing.ElevationGainM != nil || footing.HeartRateAvg != nil {
		t.Fatal("empty cells must coerce to null, not zero")
	}
}

func TestNormalizeRejectsBadDates(t *testing.T) {
	table := source.Table{
		Headers: []string{"Date", "Distance"},
		Rows: [][]string{
			{"not a date", "10"},
			{"2026-03-14", "10"},
			{"", "5"},
		},
	}

	result, err := New(nil).Normalize(table)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(result.Accepted) != 1 {
		t.Fatalf("accepted=%d", len(result.Accepted))
	}
	if len(result.Rejected) != 2 {
		t.Fatalf("rejected=%d", len(result.Rejected))
	}
	if result.Rejected[0].RowIndex != 0 || result.Rejected[1].RowIndex != 2 {
		t.Fatalf("rejected rows %+v", result.Rejected)
	}
}

func TestNormalizeMissingDateColumnRejectsEveryRow(t *testing.T) {
	table := source.Table{
		Headers: []string{"Distance", "Titre"},
		Rows:    [][]string{{"10", "x"}, {"5", "y"}},
	}

	result, err := New(nil).Normalize(table)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(result.Accepted) != 0 || len(result.Rejected) != 2 {
		t.Fatalf("accepted=%d rejected=%d", len(result.Accepted), len(result.Rejected))
	}
}

func TestNormalizeKindFilter(t *testing.T) {
	table := source.Table{
		Headers: []string{"Date", "Activity Type", "Distance"},
		Rows: [][]string{
			{"2026-03-14", "Run", "8000"},
			{"2026-03-14", "Ride", "40000"},
			{"2026-03-15", "Trail Run", "21000"},
		},
	}

	result, err := New(schema.StravaProfile()).Normalize(table)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(result.Accepted) != 2 || result.Skipped != 1 {
		t.Fatalf("accepted=%d skipped=%d", len(result.Accepted), result.Skipped)
	}

	// Strava distances are meters.
	if d := result.Accepted[0].DistanceKM; d == nil || *d != 8 {
		t.Fatalf("distance = %v", d)
	}
}

// Strava's activities.csv carries Moving Time as raw seconds; the
// normalized record must hold minutes.
func TestNormalizeStravaSecondsDuration(t *testing.T) {
	table := source.Table{
		Headers: []string{"Activity Date", "Activity Type", "Distance", "Moving Time"},
		Rows: [][]string{
			{"2026-03-14", "Run", "10200", "6412"},
		},
	}

	result, err := New(schema.StravaProfile()).Normalize(table)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(result.Accepted) != 1 {
		t.Fatalf("accepted=%d", len(result.Accepted))
	}
	rec := result.Accepted[0]
	if rec.DurationMin == nil || *rec.DurationMin != 106.87 {
		t.Fatalf("duration_min = %v, want 106.87", rec.DurationMin)
	}
	if rec.DistanceKM == nil || *rec.DistanceKM != 10.2 {
		t.Fatalf("distance_km = %v, want 10.2", rec.DistanceKM)
	}
}

func TestNormalizeKindColumnUnresolvedIsFatal(t *testing.T) {
	table := source.Table{
		Headers: []string{"Date", "Distance"},
		Rows:    [][]string{{"2026-03-14", "8000"}},
	}

	_, err := New(schema.StravaProfile()).Normalize(table)
	if !errors.Is(err, ErrKindColumnUnresolved) {
		t.Fatalf("expected ErrKindColumnUnresolved, got %v", err)
	}
}

func TestNormalizeEmptyTable(t *testing.T) {
	if _, err := New(nil).Normalize(source.Table{}); !errors.Is(err, source.ErrEmptySource) {
		t.Fatalf("expected ErrEmptySource, got %v", err)
	}
}

func TestNormalizeDuplicateHeadersFirstWins(t *testing.T) {
	table := source.Table{
		Headers: []string{"Date", "Distance", "Distance (km)"},
		Rows:    [][]string{{"2026-03-14", "10", "99"}},
	}

	result, err := New(schema.GenericProfile()).Normalize(table)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if d := result.Accepted[0].DistanceKM; d == nil || *d != 10 {
		t.Fatalf("first distance column should win, got %v", d)
	}
}

// Whatever garbage the cells hold, numeric fields come out either null or
// finite.
func TestNormalizeNeverProducesNaN(t *testing.T) {
	table := source.Table{
		Headers: []string{"Date", "Distance", "D+ (m)", "Temps"},
		Rows: [][]string{
			{"2026-03-14", "NaN", "inf", "::"},
			{"2026-03-14", "-inf", "1e99", "90:00"},
		},
	}

	result, err := New(schema.GenericProfile()).Normalize(table)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	for i, record := range result.Accepted {
		for _, v := range []*float64{record.DistanceKM, record.ElevationGainM, record.DurationMin} {
			if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
				t.Fatalf("row %d produced non-finite value %v", i, *v)
			}
		}
	}
}
