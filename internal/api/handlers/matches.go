package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rwerner/sourcing-radar/internal/store"
	"github.com/rwerner/sourcing-radar/internal/valuation"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// MatchHandler serves user overrides on matches. Every accepted edit
// triggers a synchronous revaluation so the queue the user sees next is
// already consistent.
type MatchHandler struct {
	matches *store.MatchStore
	valuer  *valuation.Service
	logger  *logger.Logger
}

// NewMatchHandler creates a match handler.
func NewMatchHandler(matches *store.MatchStore, valuer *valuation.Service, log *logger.Logger) *MatchHandler {
	return &MatchHandler{matches: matches, valuer: valuer, logger: log}
}

// Patch applies confirm/reject/condition overrides to one match.
// PATCH /api/matches/{id}
func (h *MatchHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid match id")
		return
	}

	var body struct {
		Confirmed         *bool   `json:"confirmed"`
		Rejected          *bool   `json:"rejected"`
		AdjustedCondition *string `json:"adjusted_condition"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Confirmed == nil && body.Rejected == nil && body.AdjustedCondition == nil {
		respondError(w, http.StatusBadRequest, "Nothing to update")
		return
	}
	if body.Confirmed != nil && body.Rejected != nil && *body.Confirmed && *body.Rejected {
		respondError(w, http.StatusBadRequest, "A match cannot be confirmed and rejected at once")
		return
	}

	match, err := h.matches.UpdateOverrides(r.Context(), id, store.MatchOverride{
		Confirmed:         body.Confirmed,
		Rejected:          body.Rejected,
		AdjustedCondition: body.AdjustedCondition,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Match not found")
			return
		}
		h.logger.WithError(err).Error("Failed to update match")
		respondError(w, http.StatusInternalServerError, "Failed to update match")
		return
	}

	candidate, err := h.valuer.Recalc(r.Context(), match.CandidateID, false)
	if err != nil {
		h.logger.WithError(err).WithField("candidate_id", match.CandidateID).
			Error("Recalculation after match edit failed")
		respondError(w, http.StatusConflict, "Match updated but recalculation failed: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"match":     match,
		"candidate": candidate,
	})
}
