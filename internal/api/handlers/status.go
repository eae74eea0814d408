package handlers

import (
	"net/http"

	"github.com/rwerner/sourcing-radar/internal/leaselock"
	"github.com/rwerner/sourcing-radar/pkg/database"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// StatusHandler serves the operator status surface.
type StatusHandler struct {
	db     *database.DB
	lock   *leaselock.Lock
	logger *logger.Logger
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(db *database.DB, lock *leaselock.Lock, log *logger.Logger) *StatusHandler {
	return &StatusHandler{db: db, lock: lock, logger: log}
}

// Status returns database health and the current lease table.
// GET /api/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	health, err := h.db.HealthCheck(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Database health check failed")
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}

	leases, err := h.lock.Status(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Lease status read failed")
		respondError(w, http.StatusInternalServerError, "Failed to read leases")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"database": health,
		"leases":   leases,
	})
}
