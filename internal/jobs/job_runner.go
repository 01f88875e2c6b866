package jobs

import (
	"meeting-gate/internal/config"
	"meeting-gate/internal/logger"
	"meeting-gate/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	membership service.MembershipService
	config     *config.Config
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(membership service.MembershipService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		membership: membership,
		config:     cfg,
	}
}

// Config returns the configuration the jobs were registered with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ExpirePendingRequests()
}
