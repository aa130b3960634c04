// Package api exposes HTTP handlers for the sequencing service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/auth"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/persistence"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/sequencing"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Generator produces class sequences.
type Generator interface {
	GenerateSequence(ctx context.Context, req sequencing.GenerateRequest) (*sequencing.GeneratedSequence, error)
}

// Handler coordinates HTTP requests with the sequencing service.
type Handler struct {
	generator Generator
	log       domain.SequenceLog
	logger    *log.Logger
}

// NewHandler builds a Handler. sequenceLog may be nil, in which case listing is unavailable.
func NewHandler(generator Generator, sequenceLog domain.SequenceLog) *Handler {
	return &Handler{
		generator: generator,
		log:       sequenceLog,
		logger:    log.New(log.Writer(), "[api] ", log.LstdFlags|log.Lshortfile),
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/sequences", h.sequences)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) sequences(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.generateSequence(w, r)
	case http.MethodGet:
		h.listSequences(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) generateSequence(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeSequencesWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope sequences:write required")
		return
	}

	var req GenerateSequenceRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	userID, ok := targetUser(claims, req.UserID)
	if !ok {
		writeError(w, http.StatusForbidden, "forbidden", "scope sequences:admin required to generate for another user")
		return
	}

	generated, err := h.generator.GenerateSequence(r.Context(), sequencing.GenerateRequest{
		TargetMinutes:       req.TargetMinutes,
		Difficulty:          req.Difficulty,
		FocusAreas:          req.FocusAreas,
		RequiredMovementIDs: req.RequiredMovements,
		ExcludedMovementIDs: req.ExcludedMovements,
		UserID:              userID,
		Seed:                req.Seed,
		DurationOverrides:   req.DurationOverrides,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, generated)
}

func (h *Handler) listSequences(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.CanRead() {
		writeError(w, http.StatusForbidden, "forbidden", "scope sequences:read required")
		return
	}
	userID, ok := targetUser(claims, r.URL.Query().Get("user_id"))
	if !ok {
		writeError(w, http.StatusForbidden, "forbidden", "scope sequences:admin required to list another user's sequences")
		return
	}
	if h.log == nil {
		writeError(w, http.StatusNotImplemented, "not_implemented", "sequence log not configured")
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxListLimit)
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	summaries, next, err := h.log.ListByUser(r.Context(), userID, cursor, limit)
	if err != nil {
		h.logger.Printf("list sequences for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "server_error", "unable to list sequences")
		return
	}

	writeJSON(w, http.StatusOK, ListSequencesResponse{
		Items:      summaries,
		NextCursor: persistence.EncodeCursor(next),
	})
}

// targetUser resolves the user a request acts on, defaulting to the token subject.
func targetUser(claims *auth.Claims, requested string) (string, bool) {
	userID := strings.TrimSpace(requested)
	if userID == "" {
		return claims.Subject, true
	}
	return userID, claims.ActsFor(userID)
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrInsufficientDuration):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_duration", err.Error())
	case errors.Is(err, domain.ErrNoMovementsAvailable):
		writeError(w, http.StatusUnprocessableEntity, "no_movements_available", err.Error())
	default:
		h.logger.Printf("generate sequence: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error", "unable to generate sequence")
	}
}

// GenerateSequenceRequest is the payload for POST /v1/sequences.
type GenerateSequenceRequest struct {
	TargetMinutes     int            `json:"target_duration_minutes"`
	Difficulty        string         `json:"difficulty_level"`
	FocusAreas        []string       `json:"focus_areas,omitempty"`
	RequiredMovements []string       `json:"required_movements,omitempty"`
	ExcludedMovements []string       `json:"excluded_movements,omitempty"`
	UserID            string         `json:"user_id,omitempty"`
	Seed              *uint64        `json:"seed,omitempty"`
	DurationOverrides map[string]int `json:"duration_overrides,omitempty"`
}

// Validate checks the fields the engine cannot recover from.
func (r GenerateSequenceRequest) Validate() error {
	if r.TargetMinutes == 0 {
		return errors.New("target_duration_minutes is required")
	}
	if strings.TrimSpace(r.Difficulty) == "" {
		return errors.New("difficulty_level is required")
	}
	for id, seconds := range r.DurationOverrides {
		if seconds <= 0 {
			return errors.New("duration_overrides." + id + " must be > 0")
		}
	}
	return nil
}

// ListSequencesResponse packages list results.
type ListSequencesResponse struct {
	Items      []domain.SequenceSummary `json:"items"`
	NextCursor string                   `json:"next_cursor,omitempty"`
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
