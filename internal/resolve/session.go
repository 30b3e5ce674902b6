package resolve

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/reconcile/internal/domain"
)

// Session is the explicit value object holding one import's tolerance
// configuration and in-progress decision map. It replaces any ambient
// per-request state: the caller creates it, passes it around, and
// discards it after apply.
type Session struct {
	ID         string
	UserID     string
	Profile    string
	Tolerances domain.ToleranceConfig
	Candidates []domain.MatchCandidate
	Rejected   []domain.RowError
	Skipped    int
	CreatedAt  time.Time

	mu        sync.Mutex
	decisions map[int]Action
}

// NewSession builds a session over the matcher's output.
func NewSession(userID, profile string, tolerances domain.ToleranceConfig, candidates []domain.MatchCandidate, rejected []domain.RowError, skipped int) *Session {
	return &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		Profile:    profile,
		Tolerances: tolerances,
		Candidates: candidates,
		Rejected:   rejected,
		Skipped:    skipped,
		CreatedAt:  time.Now().UTC(),
		decisions:  make(map[int]Action),
	}
}

// Decide records an explicit per-pair choice. Replace and combine are
// rejected for unmatched pairs.
func (s *Session) Decide(ref int, action Action) error {
	if ref < 0 || ref >= len(s.Candidates) {
		return fmt.Errorf("unknown candidate ref %d", ref)
	}
	if (action == ActionReplace || action == ActionCombine) && !s.Candidates[ref].Matched() {
		return ErrNoMatch
	}
	s.mu.Lock()
	s.decisions[ref] = action
	s.mu.Unlock()
	return nil
}

// DecideAll applies one action to every pending pair, degrading per pair
// where the action is invalid: replace or combine on an unmatched pair
// becomes insert.
func (s *Session) DecideAll(action Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ref, candidate := range s.Candidates {
		chosen := action
		if (chosen == ActionReplace || chosen == ActionCombine) && !candidate.Matched() {
			chosen = ActionInsert
		}
		s.decisions[ref] = chosen
	}
}

// ActionFor returns the explicit choice for a pair, or the default when
// the caller expressed none.
func (s *Session) ActionFor(ref int) Action {
	s.mu.Lock()
	action, ok := s.decisions[ref]
	s.mu.Unlock()
	if ok {
		return action
	}
	return DefaultAction(s.Candidates[ref])
}

// Decisions resolves every candidate into its write operation.
func (s *Session) Decisions() ([]Decision, error) {
	out := make([]Decision, 0, len(s.Candidates))
	for ref, candidate := range s.Candidates {
		decision, err := Resolve(ref, candidate, s.ActionFor(ref))
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", ref, err)
		}
		out = append(out, decision)
	}
	return out, nil
}
