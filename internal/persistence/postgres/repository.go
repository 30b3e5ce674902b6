// Package postgres implements the record store on PostgreSQL. Every
// operation is scoped to the owning user through the app.user_id RLS
// setting, and mutations record outbox events in the same transaction.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/reconcile/internal/domain"
	"example.com/reconcile/internal/events"
	"example.com/reconcile/internal/store"
)

const recordColumns = `activity_id, activity_date, external_id, activity_kind, title, source,
        distance_km, elevation_gain_m, elevation_loss_m, duration_min, pace_min_per_km,
        heart_rate_avg, heart_rate_max, extra`

// Repository provides Postgres-backed persistence for activity records
// and their outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ store.RecordStore = (*Repository)(nil)

// FindByDay returns the user's records for one calendar day, insertion
// order (created_at, activity_id ascending).
func (r *Repository) FindByDay(ctx context.Context, userID string, day time.Time) ([]domain.StoreRecord, error) {
	query := `SELECT ` + recordColumns + `
        FROM activities WHERE user_id=$1 AND activity_date=$2
        ORDER BY created_at, activity_id`

	var records []domain.StoreRecord
	err := r.readRetry(ctx, func() error {
		records = records[:0]
		return r.inUserTx(ctx, userID, func(tx pgx.Tx) error {
			rows, err := tx.Query(ctx, query, userID, day)
			if err != nil {
				return err
			}
			defer rows.Close()

			for rows.Next() {
				record, err := scanRecord(rows, userID)
				if err != nil {
					return err
				}
				records = append(records, record)
			}
			return rows.Err()
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetByID fetches one record.
func (r *Repository) GetByID(ctx context.Context, userID, id string) (*domain.StoreRecord, error) {
	query := `SELECT ` + recordColumns + `
        FROM activities WHERE user_id=$1 AND activity_id=$2`

	var record domain.StoreRecord
	err := r.readRetry(ctx, func() error {
		return r.inUserTx(ctx, userID, func(tx pgx.Tx) error {
			row := tx.QueryRow(ctx, query, userID, id)
			rec, err := scanRecord(row, userID)
			if errors.Is(err, pgx.ErrNoRows) {
				return retry.Unrecoverable(store.ErrRecordNotFound)
			}
			if err != nil {
				return err
			}
			record = rec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// UpsertMany lands the batch in one transaction and round trip. Records
// with an external id upsert on (user_id, external_id); the rest insert
// blind. One outbox event is recorded per landed record.
func (r *Repository) UpsertMany(ctx context.Context, userID string, records []domain.Record) (store.UpsertResult, error) {
	if len(records) == 0 {
		return store.UpsertResult{}, nil
	}

	const stmt = `INSERT INTO activities (activity_id, user_id, activity_date, external_id, activity_kind, title, source,
            distance_km, elevation_gain_m, elevation_loss_m, duration_min, pace_min_per_km, heart_rate_avg, heart_rate_max, extra)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        ON CONFLICT (user_id, external_id) WHERE external_id IS NOT NULL DO UPDATE SET
            activity_date=EXCLUDED.activity_date,
            activity_kind=EXCLUDED.activity_kind,
            title=EXCLUDED.title,
            source=EXCLUDED.source,
            distance_km=EXCLUDED.distance_km,
            elevation_gain_m=EXCLUDED.elevation_gain_m,
            elevation_loss_m=EXCLUDED.elevation_loss_m,
            duration_min=EXCLUDED.duration_min,
            pace_min_per_km=EXCLUDED.pace_min_per_km,
            heart_rate_avg=EXCLUDED.heart_rate_avg,
            heart_rate_max=EXCLUDED.heart_rate_max,
            extra=EXCLUDED.extra,
            updated_at=NOW()
        RETURNING activity_id`

	err := r.inUserTx(ctx, userID, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, record := range records {
			extra, err := marshalExtra(record.Extra)
			if err != nil {
				return err
			}
			batch.Queue(stmt,
				uuid.NewString(),
				userID,
				record.ActivityDate,
				nullIfEmpty(record.ExternalID),
				nullIfEmpty(record.Kind),
				nullIfEmpty(record.Title),
				nullIfEmpty(record.Source),
				record.DistanceKM,
				record.ElevationGainM,
				record.ElevationLossM,
				record.DurationMin,
				record.PaceMinPerKM,
				record.HeartRateAvg,
				record.HeartRateMax,
				extra,
			)
		}

		results := tx.SendBatch(ctx, batch)
		ids := make([]string, 0, len(records))
		for range records {
			var id string
			if err := results.QueryRow().Scan(&id); err != nil {
				results.Close()
				return err
			}
			ids = append(ids, id)
		}
		if err := results.Close(); err != nil {
			return err
		}

		now := time.Now().UTC()
		for i, record := range records {
			payload := events.RecordUpserted{
				RecordID:     ids[i],
				UserID:       userID,
				ActivityDate: record.Day(),
				ExternalID:   record.ExternalID,
				Source:       record.Source,
				DistanceKM:   record.DistanceKM,
				OccurredAt:   now,
			}
			if err := insertOutbox(ctx, tx, userID, ids[i], "import.record_upserted", payload); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return store.UpsertResult{}, err
	}
	return store.UpsertResult{Attempted: len(records)}, nil
}

// UpdateByID applies a partial patch to one row. The patch keys must be
// canonical column names (plus "extra"); anything else is rejected.
func (r *Repository) UpdateByID(ctx context.Context, userID, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		if !updatableColumns[name] {
			return fmt.Errorf("column %q is not updatable", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	query := `UPDATE activities SET `
	args := []any{userID, id}
	for _, name := range names {
		value := fields[name]
		if name == "extra" {
			extra, err := marshalExtraValue(value)
			if err != nil {
				return err
			}
			value = extra
		}
		args = append(args, value)
		query += fmt.Sprintf("%s=$%d, ", name, len(args))
	}
	query += `updated_at=NOW() WHERE user_id=$1 AND activity_id=$2`

	return r.inUserTx(ctx, userID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrRecordNotFound
		}

		payload := events.RecordUpdated{
			RecordID:   id,
			UserID:     userID,
			Fields:     names,
			OccurredAt: time.Now().UTC(),
		}
		return insertOutbox(ctx, tx, userID, id, "import.record_updated", payload)
	})
}

// inUserTx runs fn inside a transaction with the RLS user setting applied.
func (r *Repository) inUserTx(ctx context.Context, userID string, fn func(pgx.Tx) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.user_id', $1, true)", userID); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// readRetry retries transient read failures with backoff. Writes are
// never auto-retried; if anything retries a write it is the caller, not
// this client.
func (r *Repository) readRetry(ctx context.Context, op func() error) error {
	return retry.Do(op,
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(100*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.LastErrorOnly(true),
	)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, userID string) (domain.StoreRecord, error) {
	var (
		record     domain.StoreRecord
		date       time.Time
		externalID *string
		kind       *string
		title      *string
		source     *string
		extraRaw   []byte
	)
	err := row.Scan(
		&record.ID,
		&date,
		&externalID,
		&kind,
		&title,
		&source,
		&record.DistanceKM,
		&record.ElevationGainM,
		&record.ElevationLossM,
		&record.DurationMin,
		&record.PaceMinPerKM,
		&record.HeartRateAvg,
		&record.HeartRateMax,
		&extraRaw,
	)
	if err != nil {
		return domain.StoreRecord{}, err
	}

	record.UserID = userID
	record.ActivityDate = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	record.ExternalID = deref(externalID)
	record.Kind = deref(kind)
	record.Title = deref(title)
	record.Source = deref(source)

	if len(extraRaw) > 0 {
		var extra map[string]domain.Value
		if err := json.Unmarshal(extraRaw, &extra); err != nil {
			return domain.StoreRecord{}, fmt.Errorf("decode extra fields: %w", err)
		}
		if len(extra) > 0 {
			record.Extra = extra
		}
	}
	return record, nil
}

var updatableColumns = map[string]bool{
	domain.FieldActivityDate:   true,
	domain.FieldExternalID:     true,
	domain.FieldKind:           true,
	domain.FieldTitle:          true,
	domain.FieldSource:         true,
	domain.FieldDistanceKM:     true,
	domain.FieldElevationGainM: true,
	domain.FieldElevationLossM: true,
	domain.FieldDurationMin:    true,
	domain.FieldPaceMinPerKM:   true,
	domain.FieldHeartRateAvg:   true,
	domain.FieldHeartRateMax:   true,
	"extra":                    true,
}

func marshalExtra(extra map[string]domain.Value) ([]byte, error) {
	if len(extra) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(extra)
}

func marshalExtraValue(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return []byte("{}"), nil
	case map[string]domain.Value:
		return marshalExtra(v)
	default:
		return nil, fmt.Errorf("unexpected extra payload %T", value)
	}
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
