package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rwerner/sourcing-radar/internal/agents"
	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/internal/pipeline"
	"github.com/rwerner/sourcing-radar/internal/runs"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// RunHandler serves run history and the manual trigger.
type RunHandler struct {
	runs   *runs.Repository
	agents *agents.Repository
	runner *pipeline.Runner
	logger *logger.Logger
}

// NewRunHandler creates a run handler.
func NewRunHandler(runRepo *runs.Repository, agentRepo *agents.Repository, runner *pipeline.Runner, log *logger.Logger) *RunHandler {
	return &RunHandler{runs: runRepo, agents: agentRepo, runner: runner, logger: log}
}

// List returns recent runs, newest first.
// GET /api/runs?limit=50
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	history, err := h.runs.List(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  history,
		"count": len(history),
	})
}

// Trigger starts a manual run. Force bypasses the minimum-interval gate but
// never the post-failure cooldown. The run executes in the background; run
// history reports the result.
// POST /api/runs/trigger
func (h *RunHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Platform string   `json:"platform"`
		Terms    []string `json:"terms"`
		MaxPages int      `json:"max_pages"`
		Enrich   bool     `json:"enrich"`
		Force    bool     `json:"force"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Platform == "" {
		respondError(w, http.StatusBadRequest, "platform is required")
		return
	}
	if len(body.Terms) == 0 {
		respondError(w, http.StatusBadRequest, "terms is required")
		return
	}

	if ok, reason := h.runner.ShouldRun(r.Context(), body.Platform, body.Force); !ok {
		respondError(w, http.StatusTooManyRequests, reason)
		return
	}

	req := pipeline.Request{
		Trigger:  contracts.TriggerManual,
		Platform: body.Platform,
		Terms:    body.Terms,
		Paging:   contracts.PagingOptions{MaxPages: body.MaxPages},
		Enrich:   body.Enrich,
	}

	// Scrape runs take up to a minute; detach from the request context.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := h.runner.Execute(ctx, req); err != nil {
			h.logger.WithError(err).Error("Manual run failed")
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":   "started",
		"platform": body.Platform,
	})
}

// Agents returns the configured agents and their queries.
// GET /api/agents
func (h *RunHandler) Agents(w http.ResponseWriter, r *http.Request) {
	all, err := h.agents.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list agents")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve agents")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"agents": all,
		"count":  len(all),
	})
}
