package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "radar",
	Short: "Sourcing radar for second-hand arbitrage",
	Long: `Sourcing Radar CLI

Scrapes classifieds listings, matches them against the market-priced
catalog and surfaces profitable acquisition candidates.

Usage:
  go run ./cmd/radar [command]

Examples:
  go run ./cmd/radar api
  go run ./cmd/radar worker start
  go run ./cmd/radar scan --terms "lego technic"
  go run ./cmd/radar status`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
