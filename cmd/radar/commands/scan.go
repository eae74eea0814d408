package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/internal/pipeline"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one sourcing scan now",
	Long: `Runs one scan for the given search terms and prints the run summary.

The scan obeys the same gates as scheduled runs: a cooldown after a
blocked or failed run always holds; the minimum-interval gate can be
bypassed with --force.

Example:
  go run ./cmd/radar scan --terms "lego technic"
  go run ./cmd/radar scan --terms "playmobil" --pages 3 --enrich --force`,
	RunE: runScan,
}

var (
	scanTerms    []string
	scanPlatform string
	scanPages    int
	scanEnrich   bool
	scanForce    bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	// Flags
	scanCmd.Flags().StringSliceVar(&scanTerms, "terms", nil, "search terms (repeatable)")
	scanCmd.Flags().StringVar(&scanPlatform, "platform", "kleinanzeigen", "marketplace platform")
	scanCmd.Flags().IntVar(&scanPages, "pages", 2, "maximum result pages per term")
	scanCmd.Flags().BoolVar(&scanEnrich, "enrich", false, "fetch listing detail pages after the scan")
	scanCmd.Flags().BoolVar(&scanForce, "force", false, "bypass the minimum-interval gate")
	_ = scanCmd.MarkFlagRequired("terms")
}

func runScan(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	runner := d.runner(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if ok, reason := runner.ShouldRun(ctx, scanPlatform, scanForce); !ok {
		return fmt.Errorf("scan gated: %s", reason)
	}

	fmt.Printf("Scanning %s for %v...\n", scanPlatform, scanTerms)

	run, err := runner.Execute(ctx, pipeline.Request{
		Trigger:  contracts.TriggerManual,
		Platform: scanPlatform,
		Terms:    scanTerms,
		Paging:   contracts.PagingOptions{MaxPages: scanPages},
		Enrich:   scanEnrich,
	})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	fmt.Println("\nRun summary:")
	fmt.Printf("   Outcome: %s\n", run.Outcome)
	fmt.Printf("   Listings scraped: %d\n", run.ListingsScraped)
	fmt.Printf("   New candidates: %d\n", run.CandidatesNew)
	fmt.Printf("   Ready candidates: %d\n", run.CandidatesReady)
	if run.ErrorMessage != "" {
		fmt.Printf("   Error: %s\n", run.ErrorMessage)
	}

	return nil
}
