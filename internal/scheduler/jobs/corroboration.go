package jobs

import (
	"context"

	"github.com/siftlabs/sift/internal/corroborate"
	"github.com/siftlabs/sift/pkg/logger"
)

// CorroborationJob sweeps near-miss signals and stalled clusters for
// fresh corroborating evidence.
type CorroborationJob struct {
	worker *corroborate.Worker
	logger *logger.Logger
}

// NewCorroborationJob creates a new corroboration job.
func NewCorroborationJob(worker *corroborate.Worker, log *logger.Logger) *CorroborationJob {
	return &CorroborationJob{
		worker: worker,
		logger: log,
	}
}

// Name returns the job name.
func (j *CorroborationJob) Name() string {
	return "corroboration_sweep"
}

// Schedule returns the cron schedule (every 15 minutes).
func (j *CorroborationJob) Schedule() string {
	return "0 */15 * * * *"
}

// Run executes one corroboration sweep.
func (j *CorroborationJob) Run(ctx context.Context) error {
	stats, err := j.worker.Run(ctx)
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"tasks":    stats.TasksSeen,
		"checked":  stats.SignalsChecked,
		"enriched": stats.SignalsEnriched,
		"added":    stats.SourcesAdded,
	}).Info("Corroboration sweep completed")
	return nil
}
