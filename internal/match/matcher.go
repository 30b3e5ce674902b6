// Package match finds existing store records that plausibly represent
// the same real-world activity as an imported record.
package match

import (
	"context"
	"fmt"
	"math"

	"example.com/reconcile/internal/domain"
	"example.com/reconcile/internal/store"
)

// Matcher runs tolerance-based duplicate detection against the record
// store. Matching is deterministic for a given tolerance configuration
// and store contents.
type Matcher struct {
	store      store.RecordStore
	tolerances domain.ToleranceConfig
}

// New constructs a Matcher.
func New(recordStore store.RecordStore, tolerances domain.ToleranceConfig) *Matcher {
	return &Matcher{store: recordStore, tolerances: tolerances}
}

// Match pairs each record with at most one same-day store record within
// tolerance. Candidate fetches are grouped per calendar day so an import
// with many rows on the same date costs one store read for that date.
func (m *Matcher) Match(ctx context.Context, userID string, records []domain.Record) ([]domain.MatchCandidate, error) {
	byDay := make(map[string][]domain.StoreRecord)

	candidates := make([]domain.MatchCandidate, 0, len(records))
	for _, record := range records {
		day := record.Day()
		existing, cached := byDay[day]
		if !cached {
			fetched, err := m.store.FindByDay(ctx, userID, record.ActivityDate)
			if err != nil {
				return nil, fmt.Errorf("fetch candidates for %s: %w", day, err)
			}
			byDay[day] = fetched
			existing = fetched
		}
		candidates = append(candidates, m.matchOne(record, existing))
	}
	return candidates, nil
}

// matchOne walks the day's records in store order and keeps the first
// within tolerance. Multi-candidate disambiguation is deliberately out of
// scope: several similar activities on one day resolve to whichever the
// store returns first.
func (m *Matcher) matchOne(record domain.Record, existing []domain.StoreRecord) domain.MatchCandidate {
	candidate := domain.MatchCandidate{Record: record}
	for i := range existing {
		if Similar(record, existing[i].Record, m.tolerances) {
			sr := existing[i]
			candidate.Existing = &sr
			candidate.DeltaKM = absDelta(record.DistanceKM, sr.DistanceKM)
			candidate.DeltaGainM = absDelta(record.ElevationGainM, sr.ElevationGainM)
			candidate.DeltaLossM = absDelta(record.ElevationLossM, sr.ElevationLossM)
			break
		}
	}
	return candidate
}

// Similar reports whether two same-day records are close enough to be the
// same activity: distance, elevation gain and elevation loss must all be
// present on both sides and within tolerance. A null on either side makes
// that comparison unsatisfiable: absence of data never matches.
// The test is symmetric in its arguments.
func Similar(a, b domain.Record, tol domain.ToleranceConfig) bool {
	return within(a.DistanceKM, b.DistanceKM, tol.DistanceTolKM) &&
		within(a.ElevationGainM, b.ElevationGainM, tol.ElevationTolM) &&
		within(a.ElevationLossM, b.ElevationLossM, tol.ElevationTolM)
}

func within(a, b *float64, tol float64) bool {
	if a == nil || b == nil {
		return false
	}
	return math.Abs(*a-*b) <= tol
}

func absDelta(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	d := math.Abs(*a - *b)
	return &d
}
