package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database health and leases",
	Long: `Prints the database health check and the current lease table.

Example:
  go run ./cmd/radar status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := d.db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("database health check: %w", err)
	}

	fmt.Println("Database:")
	fmt.Printf("   Healthy: %v\n", health.Healthy)
	fmt.Printf("   Response Time: %s\n", health.ResponseTime)
	fmt.Printf("   Connections: %d acquired / %d total / %d idle\n",
		health.Stats.AcquiredConns, health.Stats.TotalConns, health.Stats.IdleConns)

	leases, err := d.lock.Status(ctx)
	if err != nil {
		return fmt.Errorf("read leases: %w", err)
	}

	fmt.Println("\nLeases:")
	if len(leases) == 0 {
		fmt.Println("   (none)")
		return nil
	}

	now := time.Now()
	for _, l := range leases {
		state := "live"
		if l.ExpiresAt.Before(now) {
			state = "expired"
		}
		fmt.Printf("   %-16s %s (%s, expires %s)\n",
			l.Name, l.Holder, state, l.ExpiresAt.Format("15:04:05"))
	}

	return nil
}
