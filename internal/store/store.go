// Package store defines the record-store boundary the reconciliation
// engine talks to. The store is an external collaborator: the engine only
// reads records and requests writes, never assumes exclusive access.
package store

import (
	"context"
	"errors"
	"time"

	"example.com/reconcile/internal/domain"
)

// ErrRecordNotFound is returned by GetByID when no row exists.
var ErrRecordNotFound = errors.New("store record not found")

// UpsertResult reports a batched upsert.
type UpsertResult struct {
	// Attempted is the number of records submitted in the batch. When the
	// batch fails no assumption is made about which rows landed.
	Attempted int
}

// RecordStore is the persistence contract required by the matcher and
// applier. Implementations scope every operation to the owning user.
type RecordStore interface {
	// FindByDay returns the user's records for one calendar day, ordered
	// by start time then id ascending so first-match tie-breaking is
	// deterministic.
	FindByDay(ctx context.Context, userID string, day time.Time) ([]domain.StoreRecord, error)

	// UpsertMany inserts the records in one batch. Records carrying an
	// external id are upserted on (user, external_id) so re-importing the
	// same file is idempotent; records without one are inserted blind.
	UpsertMany(ctx context.Context, userID string, records []domain.Record) (UpsertResult, error)

	// UpdateByID applies a partial field patch to one existing record.
	UpdateByID(ctx context.Context, userID, id string, fields map[string]any) error

	// GetByID fetches one record, ErrRecordNotFound when absent.
	GetByID(ctx context.Context, userID, id string) (*domain.StoreRecord, error)
}
