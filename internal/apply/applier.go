// Package apply executes resolved reconciliation decisions against the
// record store and reports per-outcome counts.
package apply

import (
	"context"
	"fmt"

	"example.com/reconcile/internal/domain"
	"example.com/reconcile/internal/observability"
	"example.com/reconcile/internal/resolve"
	"example.com/reconcile/internal/store"
)

// Failure reports one pair that could not be applied.
type Failure struct {
	Ref    int    `json:"ref"`
	Reason string `json:"reason"`
}

// Outcome summarises one applied batch.
type Outcome struct {
	Inserted int       `json:"inserted"`
	Replaced int       `json:"replaced"`
	Combined int       `json:"combined"`
	Ignored  int       `json:"ignored"`
	Failures []Failure `json:"failed,omitempty"`
}

// Failed is the number of pairs that did not apply.
func (o Outcome) Failed() int {
	return len(o.Failures)
}

// Applier writes decisions to the store. It provides no batch-level
// transaction: the apply is best effort, and one bad row never aborts the
// rest of the batch.
type Applier struct {
	store store.RecordStore
}

// New constructs an Applier.
func New(recordStore store.RecordStore) *Applier {
	return &Applier{store: recordStore}
}

// Apply executes the batch. Inserts are grouped into a single batched
// upsert to minimise round trips; replace and combine target distinct
// existing rows and go out as individual updates. Updates run
// sequentially, which also serialises combine's read-then-write against
// any other combine in the batch aiming at the same row.
func (a *Applier) Apply(ctx context.Context, userID string, decisions []resolve.Decision) Outcome {
	var outcome Outcome

	inserts := make([]domain.Record, 0, len(decisions))
	insertRefs := make([]int, 0, len(decisions))

	for _, d := range decisions {
		switch d.Action {
		case resolve.ActionIgnore:
			outcome.Ignored++
		case resolve.ActionInsert:
			inserts = append(inserts, d.Candidate.Record)
			insertRefs = append(insertRefs, d.Ref)
		case resolve.ActionReplace:
			a.applyReplace(ctx, userID, d, &outcome)
		case resolve.ActionCombine:
			a.applyCombine(ctx, userID, d, &outcome)
		default:
			outcome.Failures = append(outcome.Failures, Failure{Ref: d.Ref, Reason: fmt.Sprintf("unknown action %q", d.Action)})
		}
	}

	if len(inserts) > 0 {
		a.applyInserts(ctx, userID, inserts, insertRefs, &outcome)
	}

	observability.RecordApplyOutcome(outcome.Inserted, outcome.Replaced, outcome.Combined, outcome.Ignored, outcome.Failed())
	return outcome
}

// applyInserts submits the whole insert group in one call. When the batch
// fails there is no safe way to know which rows landed, so every row in
// it is reported as failed rather than guessed successful.
func (a *Applier) applyInserts(ctx context.Context, userID string, records []domain.Record, refs []int, outcome *Outcome) {
	result, err := a.store.UpsertMany(ctx, userID, records)
	if err != nil {
		for _, ref := range refs {
			outcome.Failures = append(outcome.Failures, Failure{Ref: ref, Reason: fmt.Sprintf("insert batch failed: %v", err)})
		}
		return
	}
	outcome.Inserted += result.Attempted
}

func (a *Applier) applyReplace(ctx context.Context, userID string, d resolve.Decision, outcome *Outcome) {
	if err := a.store.UpdateByID(ctx, userID, d.Candidate.Existing.ID, d.Patch); err != nil {
		outcome.Failures = append(outcome.Failures, Failure{Ref: d.Ref, Reason: fmt.Sprintf("replace failed: %v", err)})
		return
	}
	outcome.Replaced++
}

// applyCombine re-reads the target row immediately before merging so a
// field written by a concurrent process between matching and applying is
// not clobbered. The patch computed at resolve time is discarded in
// favor of one built from the fresh row.
func (a *Applier) applyCombine(ctx context.Context, userID string, d resolve.Decision, outcome *Outcome) {
	current, err := a.store.GetByID(ctx, userID, d.Candidate.Existing.ID)
	if err != nil {
		outcome.Failures = append(outcome.Failures, Failure{Ref: d.Ref, Reason: fmt.Sprintf("combine read failed: %v", err)})
		return
	}

	patch := resolve.CombinePatch(current.Record, d.Candidate.Record)
	if len(patch) == 0 {
		// Nothing to fill; the pair resolves with no write.
		outcome.Combined++
		return
	}

	if err := a.store.UpdateByID(ctx, userID, current.ID, patch); err != nil {
		outcome.Failures = append(outcome.Failures, Failure{Ref: d.Ref, Reason: fmt.Sprintf("combine failed: %v", err)})
		return
	}
	outcome.Combined++
}
