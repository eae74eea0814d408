package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rwerner/sourcing-radar/internal/convert"
	"github.com/rwerner/sourcing-radar/internal/store"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// ConvertHandler serves conversion preview and commit.
type ConvertHandler struct {
	converter *convert.Service
	logger    *logger.Logger
}

// NewConvertHandler creates a conversion handler.
func NewConvertHandler(converter *convert.Service, log *logger.Logger) *ConvertHandler {
	return &ConvertHandler{converter: converter, logger: log}
}

type convertRequest struct {
	MatchIDs []int64 `json:"match_ids"`
}

// Preview returns the purchase request that Convert would commit, without
// side effects.
// POST /api/candidates/{id}/convert/preview
func (h *ConvertHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid candidate id")
		return
	}

	var body convertRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	preview, err := h.converter.Preview(r.Context(), id, body.MatchIDs)
	if err != nil {
		h.respondConvertError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, preview)
}

// Convert commits the conversion.
// POST /api/candidates/{id}/convert
func (h *ConvertHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid candidate id")
		return
	}

	var body convertRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	purchaseID, err := h.converter.Convert(r.Context(), id, body.MatchIDs)
	if err != nil {
		h.respondConvertError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"candidate_id": id,
		"purchase_id":  purchaseID,
	})
}

func (h *ConvertHandler) respondConvertError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "Candidate not found")
	case errors.Is(err, convert.ErrAlreadyConverted):
		respondError(w, http.StatusConflict, "Candidate already converted")
	case errors.Is(err, convert.ErrNotConvertible):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, convert.ErrNoMatches):
		// Same conflict class as re-conversion: the candidate has no usable
		// matches to convert.
		respondError(w, http.StatusConflict, "No matches to allocate against")
	default:
		h.logger.WithError(err).Error("Conversion failed")
		respondError(w, http.StatusInternalServerError, "Conversion failed")
	}
}
