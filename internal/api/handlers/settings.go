package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rwerner/sourcing-radar/internal/settings"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// SettingsHandler serves the typed settings store.
type SettingsHandler struct {
	repo   *settings.Repository
	logger *logger.Logger
}

// NewSettingsHandler creates a settings handler.
func NewSettingsHandler(repo *settings.Repository, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{repo: repo, logger: log}
}

// List returns all stored settings.
// GET /api/settings
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list settings")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve settings")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"settings": all,
		"count":    len(all),
	})
}

// Get returns one setting.
// GET /api/settings/{key}
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	setting, err := h.repo.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, settings.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Setting not found")
			return
		}
		h.logger.WithError(err).Error("Failed to read setting")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve setting")
		return
	}

	respondJSON(w, http.StatusOK, setting)
}

// Put upserts one setting. Exactly one value slot must be populated.
// PUT /api/settings/{key}
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var body settings.Setting
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	body.Key = key

	slots := 0
	if body.IntValue != nil {
		slots++
	}
	if body.TextValue != nil {
		slots++
	}
	if len(body.JSONValue) > 0 {
		slots++
	}
	if slots != 1 {
		respondError(w, http.StatusBadRequest, "Exactly one of int_value, text_value, json_value is required")
		return
	}

	if err := h.repo.Upsert(r.Context(), &body); err != nil {
		h.logger.WithError(err).WithField("key", key).Error("Failed to upsert setting")
		respondError(w, http.StatusInternalServerError, "Failed to store setting")
		return
	}

	respondJSON(w, http.StatusOK, body)
}
