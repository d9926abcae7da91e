package jobs

import (
	"context"

	"reservation-engine/internal/config"
	"reservation-engine/internal/logger"
	"reservation-engine/internal/repository"
	"reservation-engine/internal/service"
)

// batchSize caps how many reconciliation items a single run touches.
const batchSize = 200

// AssetSyncRetrier re-applies asset status writes that failed inline.
type AssetSyncRetrier interface {
	RetryOpen(ctx context.Context, limit int32) (service.RetryResult, error)
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	sync   AssetSyncRetrier
	recon  repository.ReconciliationRepository
	config *config.Config
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(sync AssetSyncRetrier, recon repository.ReconciliationRepository, cfg *config.Config) *JobRunner {
	return &JobRunner{
		sync:   sync,
		recon:  recon,
		config: cfg,
	}
}

// Config exposes the schedule settings to the scheduler.
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
	jr.RetryAssetSync()
	jr.ReportPaymentAnomalies()
}
