// Package normalize turns raw tabular imports of unknown shape into
// canonical activity records.
package normalize

import (
	"errors"
	"fmt"
	"time"

	"example.com/reconcile/internal/domain"
	"example.com/reconcile/internal/schema"
	"example.com/reconcile/internal/source"
)

// ErrKindColumnUnresolved is returned when a profile filters by activity
// kind but no header maps to the kind column. An ambiguous import scope
// is worse than an empty result, so this aborts the whole import.
var ErrKindColumnUnresolved = errors.New("activity kind column could not be resolved")

// Normalizer resolves headers against the canonical schema and coerces
// rows into records, per the configured vendor profile.
type Normalizer struct {
	schema  *schema.Schema
	profile *schema.Profile
}

// New builds a Normalizer for the given vendor profile. A nil profile
// behaves like the generic one.
func New(profile *schema.Profile) *Normalizer {
	if profile == nil {
		profile = schema.GenericProfile()
	}
	return &Normalizer{
		schema:  schema.WithProfile(profile),
		profile: profile,
	}
}

// Result is the outcome of normalizing one import. Rejected rows carry
// the reason they were excluded; Skipped counts rows dropped by the
// accepted-kinds filter, which is intentional and not an error.
type Result struct {
	Accepted []domain.Record
	Rejected []domain.RowError
	Skipped  int
}

// Normalize converts the table into canonical records. A single bad cell
// never fails the import: bad cells coerce to null and bad rows land in
// Rejected. Only structural problems (no rows, unresolvable kind column
// under a kind filter) return an error.
func (n *Normalizer) Normalize(table source.Table) (Result, error) {
	if len(table.Headers) == 0 || len(table.Rows) == 0 {
		return Result{}, source.ErrEmptySource
	}

	columns := n.resolveColumns(table.Headers)

	if n.profile.FiltersKinds() {
		if _, ok := columns[domain.FieldKind]; !ok {
			return Result{}, ErrKindColumnUnresolved
		}
	}

	var res Result
	for i := range table.Rows {
		record, reject := n.normalizeRow(table, i, columns)
		if reject != nil {
			res.Rejected = append(res.Rejected, *reject)
			continue
		}
		if !n.profile.AcceptsKind(record.Kind) {
			res.Skipped++
			continue
		}
		res.Accepted = append(res.Accepted, record)
	}
	return res, nil
}

// resolveColumns maps canonical field names to header positions. The
// first header that resolves to a field wins; unknown headers are
// dropped.
func (n *Normalizer) resolveColumns(headers []string) map[string]int {
	columns := make(map[string]int)
	for idx, raw := range headers {
		field, ok := n.schema.Resolve(raw)
		if !ok {
			continue
		}
		if _, taken := columns[field.Name]; taken {
			continue
		}
		columns[field.Name] = idx
	}
	return columns
}

func (n *Normalizer) normalizeRow(table source.Table, row int, columns map[string]int) (domain.Record, *domain.RowError) {
	dateIdx, hasDate := columns[domain.FieldActivityDate]
	if !hasDate {
		return domain.Record{}, &domain.RowError{RowIndex: row, Reason: "activity date column could not be resolved"}
	}
	rawDate := table.Cell(row, dateIdx)
	ts, ok := schema.ParseTimestamp(rawDate)
	if !ok {
		return domain.Record{}, &domain.RowError{RowIndex: row, Reason: fmt.Sprintf("unparsable activity date %q", rawDate)}
	}

	record := domain.Record{
		ActivityDate: time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
		Source:       n.profile.Name,
	}

	for name, idx := range columns {
		if name == domain.FieldActivityDate {
			continue
		}
		field, _ := n.schema.FieldByName(name)
		value, ok := schema.Coerce(field, table.Cell(row, idx), n.profile)
		if !ok {
			continue // null cell; absence is not an error
		}
		n.assign(&record, field, value)
	}
	return record, nil
}

// assign routes a coerced value either to its named Record attribute or
// to the secondary bag.
func (n *Normalizer) assign(record *domain.Record, field schema.Field, value domain.Value) {
	if !field.Primary {
		if record.Extra == nil {
			record.Extra = make(map[string]domain.Value)
		}
		record.Extra[field.Name] = value
		return
	}

	switch field.Name {
	case domain.FieldExternalID:
		record.ExternalID = value.Text
	case domain.FieldKind:
		record.Kind = value.Text
	case domain.FieldTitle:
		record.Title = value.Text
	case domain.FieldDistanceKM:
		record.DistanceKM = ptr(value.Float)
	case domain.FieldElevationGainM:
		record.ElevationGainM = ptr(value.Float)
	case domain.FieldElevationLossM:
		record.ElevationLossM = ptr(value.Float)
	case domain.FieldDurationMin:
		record.DurationMin = ptr(value.Float)
	case domain.FieldPaceMinPerKM:
		record.PaceMinPerKM = ptr(value.Float)
	case domain.FieldHeartRateAvg:
		record.HeartRateAvg = ptr(int(value.Int))
	case domain.FieldHeartRateMax:
		record.HeartRateMax = ptr(int(value.Int))
	}
}

func ptr[T any](v T) *T {
	return &v
}
