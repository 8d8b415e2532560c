package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sift",
	Short: "Sift - social signal intelligence pipeline",
	Long: `Sift Unified CLI

Turns scraped social and market chatter into scored, evidence-backed
trading signals. Extraction, clustering, convergence, synthesis and
the scoring cascade run as one pipeline on a cron schedule.

Usage:
  go run ./cmd/sift [command]

Examples:
  go run ./cmd/sift start
  go run ./cmd/sift cycle
  go run ./cmd/sift worker
  go run ./cmd/sift status`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
