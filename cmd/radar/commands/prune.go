package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// pruneCmd represents the prune command
var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Prune terminal candidates now",
	Long: `Deletes LOW_VALUE, DISCARDED and ERROR candidates older than the
configured retention window. READY and CONVERTED candidates are never
touched.

Example:
  go run ./cmd/radar prune`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	deleted, err := d.pruner.RunAll(ctx)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}

	fmt.Printf("Pruned %d candidates\n", deleted)
	return nil
}
