package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rwerner/sourcing-radar/internal/scheduler"
	"github.com/rwerner/sourcing-radar/internal/scheduler/jobs"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Background worker",
	Long: `Runs the background worker: scheduled scans, price refresh
and retention maintenance.

Jobs coordinate through the lease table, so any number of worker
processes can run the same schedule; one of them does the work.

Subcommands:
  start   - start the worker daemon
  run     - run one job immediately
  status  - show job statistics

Example:
  go run ./cmd/radar worker start
  go run ./cmd/radar worker run radar_scan`,
}

var (
	workerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the worker daemon",
		Long: `Starts the scheduler and registers all jobs.

Registered jobs:
- radar_scan: every worker tick (due agent queries, or default terms)
- price_refresh: periodic catalog snapshot refresh
- maintenance: retention pruning of terminal candidates

Stop with Ctrl+C.`,
		RunE: runWorkerStart,
	}

	workerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runWorkerJob,
	}

	workerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job statistics",
		RunE:  showWorkerStatus,
	}
)

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.AddCommand(workerStartCmd)
	workerCmd.AddCommand(workerRunCmd)
	workerCmd.AddCommand(workerStatusCmd)
}

func runWorkerStart(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Sourcing Radar Worker ===")

	d, sched, err := initWorker()
	if err != nil {
		return err
	}
	defer d.Close()

	sched.Start()

	fmt.Printf("\nWorker started (holder: %s)\n", d.cfg.Worker.HolderID)
	fmt.Println("\nRegistered jobs:")
	for name, stat := range sched.Stats() {
		fmt.Printf("  - %s (%s)\n", name, stat.Schedule)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down worker...")
	sched.Stop()
	fmt.Println("Worker stopped")

	return nil
}

func runWorkerJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	d, sched, err := initWorker()
	if err != nil {
		return err
	}
	defer d.Close()

	fmt.Printf("Running job: %s\n", jobName)

	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	// RunJob is asynchronous; block until interrupted so the job can finish.
	fmt.Println("Job started, press Ctrl+C when done")
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	return nil
}

func showWorkerStatus(cmd *cobra.Command, args []string) error {
	d, sched, err := initWorker()
	if err != nil {
		return err
	}
	defer d.Close()

	fmt.Println("Job Statistics:")
	fmt.Println()

	for jobName, stat := range sched.Stats() {
		fmt.Printf("%s\n", jobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success Rate: %.1f%%\n", stat.SuccessRate*100)

		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
		if stat.LastError != "" {
			fmt.Printf("   Last Error: %s\n", stat.LastError)
		}

		fmt.Println()
	}

	return nil
}

// initWorker wires the dependency graph into a scheduler with all jobs
// registered.
func initWorker() (*deps, *scheduler.Scheduler, error) {
	d, err := initDeps()
	if err != nil {
		return nil, nil, err
	}

	wcfg := d.cfg.Worker
	runner := d.runner(nil)

	sched := scheduler.New(context.Background(), d.log)

	scanJob := jobs.NewRadarScanJob(d.lock, wcfg.HolderID, wcfg.LeaseTTL,
		runner, d.agents, d.settingSvc, d.log,
		fmt.Sprintf("@every %s", wcfg.TickInterval))
	refreshJob := jobs.NewPriceRefreshJob(d.lock, wcfg.HolderID, wcfg.LeaseTTL,
		d.catalog, d.marketData, d.log,
		fmt.Sprintf("@every %s", wcfg.PriceRefreshInterval))
	maintJob := jobs.NewMaintenanceJob(d.lock, wcfg.HolderID, wcfg.LeaseTTL,
		d.pruner, d.log,
		fmt.Sprintf("@every %s", wcfg.MaintenanceInterval))

	for _, job := range []scheduler.Job{scanJob, refreshJob, maintJob} {
		if err := sched.AddJob(job); err != nil {
			d.Close()
			return nil, nil, fmt.Errorf("register job %s: %w", job.Name(), err)
		}
	}

	return d, sched, nil
}
