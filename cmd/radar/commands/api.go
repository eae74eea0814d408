package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rwerner/sourcing-radar/internal/api"
	"github.com/rwerner/sourcing-radar/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET   /health                              - Health check
  GET   /api/candidates                      - Acquisition queue
  GET   /api/candidates/{id}                 - Candidate detail with matches
  POST  /api/candidates/{id}/discard         - Discard a candidate
  POST  /api/candidates/{id}/convert/preview - Preview purchase allocation
  POST  /api/candidates/{id}/convert         - Convert to a purchase
  PATCH /api/matches/{id}                    - Override a match
  GET   /api/settings                        - List settings
  PUT   /api/settings/{key}                  - Update a setting
  GET   /api/runs                            - Run history
  POST  /api/runs/trigger                    - Trigger a manual scan
  GET   /api/agents                          - Configured agents
  GET   /api/status                          - Database and lease status
  GET   /api/events                          - Websocket event stream

Example:
  go run ./cmd/radar api
  go run ./cmd/radar api --port 8087`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Sourcing Radar API Server ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	if apiPort != "" {
		d.cfg.Port = apiPort
	}

	log := d.log
	log.WithFields(map[string]interface{}{
		"port": d.cfg.Port,
		"env":  d.cfg.Env,
	}).Info("Initializing API server")

	// Event hub feeds live runner events to websocket subscribers.
	hub := api.NewHub(log)
	runner := d.runner(hub.Publish)

	h := api.Handlers{
		Candidates: handlers.NewCandidateHandler(d.candidates, d.matches, log),
		Matches:    handlers.NewMatchHandler(d.matches, d.valuer, log),
		Convert:    handlers.NewConvertHandler(d.converter, log),
		Settings:   handlers.NewSettingsHandler(d.settings, log),
		Runs:       handlers.NewRunHandler(d.runs, d.agents, runner, log),
		Status:     handlers.NewStatusHandler(d.db, d.lock, log),
		Events:     hub,
	}

	router := api.NewRouter(h, log)
	server := api.New(d.cfg, log, router)

	// Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\nServer running on http://localhost:%s\n", d.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
