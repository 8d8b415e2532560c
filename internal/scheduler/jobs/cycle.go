package jobs

import (
	"context"

	"github.com/siftlabs/sift/internal/pipeline"
	"github.com/siftlabs/sift/pkg/logger"
)

// CycleJob runs one full pipeline cycle on schedule.
type CycleJob struct {
	pipeline *pipeline.Pipeline
	logger   *logger.Logger
	schedule string
}

// NewCycleJob creates a new pipeline cycle job.
func NewCycleJob(p *pipeline.Pipeline, log *logger.Logger, schedule string) *CycleJob {
	return &CycleJob{
		pipeline: p,
		logger:   log,
		schedule: schedule,
	}
}

// Name returns the job name.
func (j *CycleJob) Name() string {
	return "pipeline_cycle"
}

// Schedule returns the cron schedule.
func (j *CycleJob) Schedule() string {
	return j.schedule
}

// Run executes one pipeline cycle.
func (j *CycleJob) Run(ctx context.Context) error {
	outcome, err := j.pipeline.RunCycle(ctx)
	if err != nil {
		return err
	}

	if outcome.Persisted == 0 && outcome.CandidatesTotal > 0 {
		j.logger.WithField("drops", outcome.DropCounts).Warn("Cycle produced candidates but persisted nothing")
	}
	return nil
}
