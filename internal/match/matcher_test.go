package match

import (
	"context"
	"errors"
	"testing"
	"time"

	"example.com/reconcile/internal/domain"
	"example.com/reconcile/internal/store"
)

type fakeStore struct {
	byDay   map[string][]domain.StoreRecord
	fetches int
	err     error
}

func (f *fakeStore) FindByDay(ctx context.Context, userID string, day time.Time) ([]domain.StoreRecord, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.byDay[day.Format("2006-01-02")], nil
}

func (f *fakeStore) UpsertMany(ctx context.Context, userID string, records []domain.Record) (store.UpsertResult, error) {
	return store.UpsertResult{}, nil
}

func (f *fakeStore) UpdateByID(ctx context.Context, userID, id string, fields map[string]any) error {
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, userID, id string) (*domain.StoreRecord, error) {
	return nil, store.ErrRecordNotFound
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func record(dayStr string, dist, gain, loss *float64) domain.Record {
	return domain.Record{
		ActivityDate:   day(dayStr),
		DistanceKM:     dist,
		ElevationGainM: gain,
		ElevationLossM: loss,
	}
}

func stored(id, dayStr string, dist, gain, loss *float64) domain.StoreRecord {
	return domain.StoreRecord{ID: id, Record: record(dayStr, dist, gain, loss)}
}

func f(v float64) *float64 { return &v }

func TestMatchWithinTolerance(t *testing.T) {
	fs := &fakeStore{byDay: map[string][]domain.StoreRecord{
		"2026-03-14": {stored("rec-1", "2026-03-14", f(10.0), f(300), f(290))},
	}}
	m := New(fs, domain.DefaultTolerances())

	candidates, err := m.Match(context.Background(), "u-1", []domain.Record{
		record("2026-03-14", f(10.2), f(320), f(310)),
	})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	c := candidates[0]
	if !c.Matched() || c.Existing.ID != "rec-1" {
		t.Fatalf("expected match with rec-1, got %+v", c.Existing)
	}
	if c.DeltaKM == nil || *c.DeltaKM < 0.19 || *c.DeltaKM > 0.21 {
		t.Fatalf("delta km = %v", c.DeltaKM)
	}
}

// A delta exactly at the tolerance still matches; one past it does not.
func TestMatchToleranceBoundary(t *testing.T) {
	fs := &fakeStore{byDay: map[string][]domain.StoreRecord{
		"2026-03-14": {stored("rec-1", "2026-03-14", f(10.0), f(300), f(300))},
	}}
	m := New(fs, domain.ToleranceConfig{DistanceTolKM: 0.3, ElevationTolM: 40})

	at, err := m.Match(context.Background(), "u-1", []domain.Record{
		record("2026-03-14", f(10.3), f(340), f(260)),
	})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !at[0].Matched() {
		t.Fatal("delta equal to tolerance should match")
	}

	past, err := m.Match(context.Background(), "u-1", []domain.Record{
		record("2026-03-14", f(10.31), f(300), f(300)),
	})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if past[0].Matched() {
		t.Fatal("delta past tolerance should not match")
	}
}

// All three measures must be present on both sides. A null never matches,
// even if the two populated measures agree exactly.
func TestMatchRequiresAllThreeMeasures(t *testing.T) {
	fs := &fakeStore{byDay: map[string][]domain.StoreRecord{
		"2026-03-14": {stored("rec-1", "2026-03-14", f(10.0), nil, f(300))},
	}}
	m := New(fs, domain.DefaultTolerances())

	candidates, err := m.Match(context.Background(), "u-1", []domain.Record{
		record("2026-03-14", f(10.0), f(300), f(300)),
		record("2026-03-14", f(10.0), nil, nil),
	})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	for i, c := range candidates {
		if c.Matched() {
			t.Fatalf("candidate %d matched despite null elevation", i)
		}
	}
}

// Re-importing the same export should find every row again even with the
// tolerances dialed to zero.
func TestMatchExactDuplicateAtZeroTolerance(t *testing.T) {
	fs := &fakeStore{byDay: map[string][]domain.StoreRecord{
		"2026-03-14": {stored("rec-1", "2026-03-14", f(10.2), f(320), f(310))},
	}}
	m := New(fs, domain.ToleranceConfig{DistanceTolKM: 0, ElevationTolM: 0})

	candidates, err := m.Match(context.Background(), "u-1", []domain.Record{
		record("2026-03-14", f(10.2), f(320), f(310)),
	})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !candidates[0].Matched() || candidates[0].Existing.ID != "rec-1" {
		t.Fatal("exact duplicate should match at zero tolerance")
	}
}

func TestMatchFirstStoreRecordWins(t *testing.T) {
	fs := &fakeStore{byDay: map[string][]domain.StoreRecord{
		"2026-03-14": {
			stored("rec-1", "2026-03-14", f(10.0), f(300), f(300)),
			stored("rec-2", "2026-03-14", f(10.1), f(305), f(305)),
		},
	}}
	m := New(fs, domain.DefaultTolerances())

	candidates, err := m.Match(context.Background(), "u-1", []domain.Record{
		record("2026-03-14", f(10.05), f(302), f(302)),
	})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if candidates[0].Existing.ID != "rec-1" {
		t.Fatalf("expected first record to win, got %s", candidates[0].Existing.ID)
	}
}

func TestMatchFetchesEachDayOnce(t *testing.T) {
	fs := &fakeStore{byDay: map[string][]domain.StoreRecord{}}
	m := New(fs, domain.DefaultTolerances())

	records := []domain.Record{
		record("2026-03-14", f(5), f(10), f(10)),
		record("2026-03-14", f(8), f(20), f(20)),
		record("2026-03-15", f(5), f(10), f(10)),
	}
	if _, err := m.Match(context.Background(), "u-1", records); err != nil {
		t.Fatalf("Match: %v", err)
	}
	if fs.fetches != 2 {
		t.Fatalf("expected 2 day fetches, got %d", fs.fetches)
	}
}

func TestMatchPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("store down")
	fs := &fakeStore{err: boom}
	m := New(fs, domain.DefaultTolerances())

	_, err := m.Match(context.Background(), "u-1", []domain.Record{
		record("2026-03-14", f(5), f(10), f(10)),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestSimilarIsSymmetric(t *testing.T) {
	a := record("2026-03-14", f(10.0), f(300), f(280))
	b := record("2026-03-14", f(10.29), f(339), f(241))
	tol := domain.ToleranceConfig{DistanceTolKM: 0.3, ElevationTolM: 40}

	if Similar(a, b, tol) != Similar(b, a, tol) {
		t.Fatal("Similar must be symmetric")
	}
}
