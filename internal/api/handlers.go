// Package api exposes the HTTP decision surface for import reconciliation.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"example.com/reconcile/internal/apply"
	"example.com/reconcile/internal/auth"
	"example.com/reconcile/internal/domain"
	"example.com/reconcile/internal/match"
	"example.com/reconcile/internal/normalize"
	"example.com/reconcile/internal/observability"
	"example.com/reconcile/internal/resolve"
	"example.com/reconcile/internal/schema"
	"example.com/reconcile/internal/source"
	"example.com/reconcile/internal/store"
)

const maxUploadBytes = 20 << 20

// Handler coordinates HTTP requests with the reconciliation pipeline.
type Handler struct {
	records    store.RecordStore
	sessions   *SessionStore
	tolerances domain.ToleranceConfig
}

// NewHandler builds a Handler.
func NewHandler(records store.RecordStore, sessions *SessionStore, tolerances domain.ToleranceConfig) *Handler {
	return &Handler{records: records, sessions: sessions, tolerances: tolerances}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/imports", h.imports)
	mux.HandleFunc("/v1/imports/", h.importByID)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) imports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createImport(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) importByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/imports/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing import id")
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		h.getImport(w, r, id)
	case sub == "decisions" && r.Method == http.MethodPost:
		h.recordDecision(w, r, id)
	case sub == "apply" && r.Method == http.MethodPost:
		h.applyImport(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

// createImport accepts a multipart CSV upload, normalizes it against the
// vendor profile, matches it against the caller's existing records, and
// parks the result as a pending session.
func (h *Handler) createImport(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeImportsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope imports:write required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse multipart body")
		return
	}

	vendor := strings.TrimSpace(r.FormValue("vendor"))
	profile, ok := schema.BuiltinProfile(vendor)
	if !ok {
		writeError(w, http.StatusBadRequest, "validation_failed", "unknown vendor profile")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing file part")
		return
	}
	defer file.Close()

	table, err := source.ReadCSV(file)
	if err != nil {
		if errors.Is(err, source.ErrEmptySource) {
			writeError(w, http.StatusBadRequest, "validation_failed", "file contains no rows")
			return
		}
		writeError(w, http.StatusBadRequest, "validation_failed", "unable to read csv")
		return
	}

	result, err := normalize.New(profile).Normalize(table)
	if err != nil {
		if errors.Is(err, normalize.ErrKindColumnUnresolved) {
			writeError(w, http.StatusUnprocessableEntity, "kind_column_unresolved", err.Error())
			return
		}
		if errors.Is(err, source.ErrEmptySource) {
			writeError(w, http.StatusBadRequest, "validation_failed", "file contains no rows")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	observability.RecordNormalized(profile.Name, len(result.Accepted), len(result.Rejected), result.Skipped)

	matcher := match.New(h.records, h.tolerances)
	candidates, err := matcher.Match(r.Context(), claims.Subject, result.Accepted)
	if err != nil {
		log.Printf("import matching failed for user=%s: %v", claims.Subject, err)
		writeError(w, http.StatusInternalServerError, "server_error", "matching against existing records failed")
		return
	}

	matched := 0
	for _, c := range candidates {
		if c.Matched() {
			matched++
		}
	}
	observability.RecordMatches(matched, len(candidates)-matched)

	session := resolve.NewSession(claims.Subject, profile.Name, h.tolerances, candidates, result.Rejected, result.Skipped)
	h.sessions.Put(session)

	writeJSON(w, http.StatusCreated, toImportView(session))
}

func (h *Handler) getImport(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeImportsRead) && !claims.HasScope(auth.ScopeImportsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope imports:read required")
		return
	}

	session, ok := h.lookup(id, claims.Subject)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "import session not found")
		return
	}
	writeJSON(w, http.StatusOK, toImportView(session))
}

// DecisionRequest is the payload for POST /v1/imports/{id}/decisions.
// Either All is set and the action spreads over every pair, or Ref names
// one pair.
type DecisionRequest struct {
	Ref    *int   `json:"ref,omitempty"`
	All    bool   `json:"all,omitempty"`
	Action string `json:"action"`
}

func (h *Handler) recordDecision(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeImportsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope imports:write required")
		return
	}

	session, ok := h.lookup(id, claims.Subject)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "import session not found")
		return
	}

	var req DecisionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	action, err := resolve.ParseAction(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	switch {
	case req.All:
		session.DecideAll(action)
	case req.Ref != nil:
		if err := session.Decide(*req.Ref, action); err != nil {
			if errors.Is(err, resolve.ErrNoMatch) {
				writeError(w, http.StatusConflict, "no_match", "replace and combine require a matched record")
				return
			}
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "validation_failed", "either ref or all is required")
		return
	}

	writeJSON(w, http.StatusOK, toImportView(session))
}

// applyImport executes the session's decisions and discards the session.
// The response reports per-outcome counts; partial failure is a valid
// outcome, not an HTTP error.
func (h *Handler) applyImport(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeImportsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope imports:write required")
		return
	}

	session, ok := h.lookup(id, claims.Subject)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "import session not found")
		return
	}

	decisions, err := session.Decisions()
	if err != nil {
		writeError(w, http.StatusConflict, "unresolvable_decisions", err.Error())
		return
	}

	outcome := apply.New(h.records).Apply(r.Context(), session.UserID, decisions)
	h.sessions.Delete(session.ID)

	writeJSON(w, http.StatusOK, ApplyResponse{
		ImportID: session.ID,
		Outcome:  outcome,
	})
}

// lookup fetches a session and checks ownership. A session belonging to
// another user is reported as absent rather than forbidden, so session
// IDs cannot be probed.
func (h *Handler) lookup(id, userID string) (*resolve.Session, bool) {
	session, ok := h.sessions.Get(id)
	if !ok || session.UserID != userID {
		return nil, false
	}
	return session, true
}

// CandidateView is one normalized row paired with its possible duplicate.
type CandidateView struct {
	Ref           int                 `json:"ref"`
	Record        domain.Record       `json:"record"`
	Matched       *domain.StoreRecord `json:"matched_record,omitempty"`
	DeltaKM       *float64            `json:"delta_km,omitempty"`
	DeltaGainM    *float64            `json:"delta_gain_m,omitempty"`
	DeltaLossM    *float64            `json:"delta_loss_m,omitempty"`
	DefaultAction string              `json:"default_action"`
}

// ImportView is the full state of a pending import session.
type ImportView struct {
	ImportID   string            `json:"import_id"`
	Vendor     string            `json:"vendor"`
	CreatedAt  time.Time         `json:"created_at"`
	Candidates []CandidateView   `json:"candidates"`
	Rejected   []domain.RowError `json:"rejected_rows,omitempty"`
	Skipped    int               `json:"skipped_rows"`
}

// ApplyResponse reports the applied batch.
type ApplyResponse struct {
	ImportID string        `json:"import_id"`
	Outcome  apply.Outcome `json:"outcome"`
}

func toImportView(session *resolve.Session) ImportView {
	view := ImportView{
		ImportID:   session.ID,
		Vendor:     session.Profile,
		CreatedAt:  session.CreatedAt,
		Candidates: make([]CandidateView, 0, len(session.Candidates)),
		Rejected:   session.Rejected,
		Skipped:    session.Skipped,
	}
	for ref, candidate := range session.Candidates {
		view.Candidates = append(view.Candidates, CandidateView{
			Ref:           ref,
			Record:        candidate.Record,
			Matched:       candidate.Existing,
			DeltaKM:       candidate.DeltaKM,
			DeltaGainM:    candidate.DeltaGainM,
			DeltaLossM:    candidate.DeltaLossM,
			DefaultAction: string(session.ActionFor(ref)),
		})
	}
	return view
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
