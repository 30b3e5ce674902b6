// Package resolve maps match candidates plus chosen actions onto
// concrete write operations, and tracks the in-progress decisions of one
// import session.
package resolve

import (
	"errors"
	"fmt"

	"example.com/reconcile/internal/domain"
)

// Action is the terminal choice for one candidate pair.
type Action string

const (
	// ActionInsert files the new record regardless of any match.
	ActionInsert Action = "insert"
	// ActionReplace overwrites every field of the matched record.
	ActionReplace Action = "replace"
	// ActionCombine fills only the matched record's empty fields.
	ActionCombine Action = "combine"
	// ActionIgnore drops the pair with no store mutation.
	ActionIgnore Action = "ignore"
)

// ErrNoMatch is returned when replace or combine is chosen for a pair
// without a matched store record.
var ErrNoMatch = errors.New("action requires a matched store record")

// ParseAction validates an action string from the decision surface.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionInsert, ActionReplace, ActionCombine, ActionIgnore:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// DefaultAction is applied when the caller expresses no explicit choice:
// replace when a match exists, insert otherwise.
func DefaultAction(c domain.MatchCandidate) Action {
	if c.Matched() {
		return ActionReplace
	}
	return ActionInsert
}

// Decision is one resolved write operation, consumed once by the applier.
type Decision struct {
	Ref       int
	Action    Action
	Candidate domain.MatchCandidate

	// Patch is the write payload for replace and combine. For combine it
	// is computed from the candidate snapshot and is advisory only: the
	// applier recomputes it against a fresh read of the target row.
	Patch map[string]any
}

// Resolve validates the action against the candidate and computes the
// write payload.
func Resolve(ref int, c domain.MatchCandidate, action Action) (Decision, error) {
	d := Decision{Ref: ref, Action: action, Candidate: c}
	switch action {
	case ActionInsert, ActionIgnore:
		return d, nil
	case ActionReplace:
		if !c.Matched() {
			return Decision{}, ErrNoMatch
		}
		d.Patch = ReplacePayload(c.Record)
		return d, nil
	case ActionCombine:
		if !c.Matched() {
			return Decision{}, ErrNoMatch
		}
		d.Patch = CombinePatch(c.Existing.Record, c.Record)
		return d, nil
	}
	return Decision{}, fmt.Errorf("unknown action %q", action)
}

// ReplacePayload is the full-overwrite patch: every canonical column of
// the new record, nulls included, so stale store values are cleared. The
// store record's identity is preserved by the applier.
func ReplacePayload(record domain.Record) map[string]any {
	patch := record.FieldMap()
	patch["extra"] = record.Extra
	return patch
}

// CombinePatch returns only the fields that are null or empty on the
// existing record and non-null on the new one. Populated store fields are
// never overwritten; an empty patch means nothing needs filling.
func CombinePatch(existing, incoming domain.Record) map[string]any {
	patch := make(map[string]any)

	fillText(patch, domain.FieldExternalID, existing.ExternalID, incoming.ExternalID)
	fillText(patch, domain.FieldKind, existing.Kind, incoming.Kind)
	fillText(patch, domain.FieldTitle, existing.Title, incoming.Title)
	fillFloat(patch, domain.FieldDistanceKM, existing.DistanceKM, incoming.DistanceKM)
	fillFloat(patch, domain.FieldElevationGainM, existing.ElevationGainM, incoming.ElevationGainM)
	fillFloat(patch, domain.FieldElevationLossM, existing.ElevationLossM, incoming.ElevationLossM)
	fillFloat(patch, domain.FieldDurationMin, existing.DurationMin, incoming.DurationMin)
	fillFloat(patch, domain.FieldPaceMinPerKM, existing.PaceMinPerKM, incoming.PaceMinPerKM)
	fillInt(patch, domain.FieldHeartRateAvg, existing.HeartRateAvg, incoming.HeartRateAvg)
	fillInt(patch, domain.FieldHeartRateMax, existing.HeartRateMax, incoming.HeartRateMax)

	if extra := combineExtra(existing.Extra, incoming.Extra); extra != nil {
		patch["extra"] = extra
	}
	return patch
}

// combineExtra merges bag keys the existing record lacks. Returns nil
// when nothing needs filling so no extra write happens.
func combineExtra(existing, incoming map[string]domain.Value) map[string]domain.Value {
	var merged map[string]domain.Value
	for key, value := range incoming {
		if _, ok := existing[key]; ok {
			continue
		}
		if merged == nil {
			merged = make(map[string]domain.Value, len(existing)+1)
			for k, v := range existing {
				merged[k] = v
			}
		}
		merged[key] = value
	}
	return merged
}

func fillText(patch map[string]any, name, existing, incoming string) {
	if existing == "" && incoming != "" {
		patch[name] = incoming
	}
}

func fillFloat(patch map[string]any, name string, existing, incoming *float64) {
	if existing == nil && incoming != nil {
		patch[name] = *incoming
	}
}

func fillInt(patch map[string]any, name string, existing, incoming *int) {
	if existing == nil && incoming != nil {
		patch[name] = *incoming
	}
}
