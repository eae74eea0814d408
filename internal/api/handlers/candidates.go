package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/internal/store"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// CandidateHandler serves the acquisition queue.
type CandidateHandler struct {
	candidates *store.CandidateStore
	matches    *store.MatchStore
	logger     *logger.Logger
}

// NewCandidateHandler creates a candidate handler.
func NewCandidateHandler(candidates *store.CandidateStore, matches *store.MatchStore, log *logger.Logger) *CandidateHandler {
	return &CandidateHandler{candidates: candidates, matches: matches, logger: log}
}

// List returns candidates filtered by status and profit, sorted and paginated.
// GET /api/candidates?status=READY&min_profit=1000&sort=profit&limit=50&offset=0
func (h *CandidateHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.ListFilter{
		Platform: q.Get("platform"),
		SortBy:   q.Get("sort"),
		Limit:    queryInt(r, "limit", 50),
		Offset:   queryInt(r, "offset", 0),
	}

	if raw := q.Get("status"); raw != "" {
		status := contracts.CandidateStatus(raw)
		if !status.Valid() {
			respondError(w, http.StatusBadRequest, "Unknown status "+raw)
			return
		}
		filter.Status = status
	}
	if raw := q.Get("min_profit"); raw != "" {
		minProfit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "min_profit must be an integer cent amount")
			return
		}
		filter.MinProfitCents = &minProfit
	}

	candidates, err := h.candidates.List(r.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list candidates")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve candidates")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": candidates,
		"count":      len(candidates),
		"offset":     filter.Offset,
	})
}

// Get returns one candidate with its matches.
// GET /api/candidates/{id}
func (h *CandidateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid candidate id")
		return
	}

	candidate, err := h.candidates.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Candidate not found")
			return
		}
		h.logger.WithError(err).Error("Failed to load candidate")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve candidate")
		return
	}

	matches, err := h.matches.ListByCandidate(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load matches")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve matches")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"candidate": candidate,
		"matches":   matches,
	})
}

// Discard dismisses a candidate with a reason.
// POST /api/candidates/{id}/discard
func (h *CandidateHandler) Discard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid candidate id")
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if body.Reason == "" {
		body.Reason = "discarded by user"
	}

	candidate, err := h.candidates.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Candidate not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to retrieve candidate")
		return
	}

	if err := candidate.Transition(contracts.StatusDiscarded, body.Reason); err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	if err := h.candidates.UpdateStatus(r.Context(), id, candidate.Status, candidate.StatusReason); err != nil {
		h.logger.WithError(err).Error("Failed to discard candidate")
		respondError(w, http.StatusInternalServerError, "Failed to discard candidate")
		return
	}

	respondJSON(w, http.StatusOK, candidate)
}
