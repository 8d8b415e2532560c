package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// cycleCmd represents the cycle command
var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one pipeline cycle and print the outcome",
	Long: `Runs a single end-to-end pipeline cycle outside the scheduler.

Useful for backfills and for inspecting what the current post window
would produce.

Example:
  go run ./cmd/sift cycle`,
	RunE: runCycle,
}

func init() {
	rootCmd.AddCommand(cycleCmd)
}

func runCycle(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Println("=== Sift Pipeline Cycle ===")

	outcome, err := rt.pipeline.RunCycle(context.Background())
	if err != nil {
		return fmt.Errorf("run cycle: %w", err)
	}

	fmt.Printf("\nCycle %s\n", outcome.CycleID)
	fmt.Printf("  Duration:        %s\n", outcome.FinishedAt.Sub(outcome.StartedAt))
	fmt.Printf("  Posts in:        %d\n", outcome.PostsIn)
	fmt.Printf("  Clusters scored: %d\n", outcome.ClustersScored)
	fmt.Printf("  Clusters active: %d\n", outcome.ClustersActive)
	fmt.Printf("  Candidates:      %d\n", outcome.CandidatesTotal)
	fmt.Printf("  Persisted:       %d\n", outcome.Persisted)
	fmt.Printf("  Noise filtered:  %d\n", outcome.NoiseFiltered)

	if len(outcome.TopDropReasons) > 0 {
		fmt.Printf("  Top drops:       %s\n", strings.Join(outcome.TopDropReasons, ", "))
	}
	for _, id := range outcome.PersistedIDs {
		fmt.Printf("  Signal: %s\n", id)
	}

	return nil
}
