package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run one corroboration sweep",
	Long: `Drains the stalled-cluster queue and re-checks near-miss signals
for new corroborating evidence.

The daemon runs this every 15 minutes; running it by hand is useful
after a large scrape lands.

Example:
  go run ./cmd/sift worker`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Println("=== Sift Corroboration Sweep ===")

	stats, err := rt.worker.Run(context.Background())
	if err != nil {
		return fmt.Errorf("run worker: %w", err)
	}

	fmt.Printf("\n  Tasks seen:       %d\n", stats.TasksSeen)
	fmt.Printf("  Clusters watched: %d\n", stats.ClustersWatched)
	fmt.Printf("  Signals checked:  %d\n", stats.SignalsChecked)
	fmt.Printf("  Signals enriched: %d\n", stats.SignalsEnriched)
	fmt.Printf("  Sources added:    %d\n", stats.SourcesAdded)

	return nil
}
