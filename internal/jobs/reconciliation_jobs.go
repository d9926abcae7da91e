package jobs

import (
	"context"

	"reservation-engine/internal/logger"
	"reservation-engine/internal/service"
)

// RetryAssetSync re-applies asset status writes queued after an inline failure.
func (jr *JobRunner) RetryAssetSync() {
	jr.runWithRecovery("RetryAssetSync", func() {
		res, err := jr.sync.RetryOpen(context.Background(), batchSize)
		if err != nil {
			logger.Error("Failed to retry asset sync items", "error", err)
			return
		}
		logger.Info("Retried asset sync items",
			"applied", res.Applied, "obsolete", res.Obsolete, "failed", res.Failed)
	})
}

// ReportPaymentAnomalies surfaces completed payments whose reservation could
// not be activated. These need a human: refund or manual activation.
func (jr *JobRunner) ReportPaymentAnomalies() {
	jr.runWithRecovery("ReportPaymentAnomalies", func() {
		n, err := service.ReportAnomalies(context.Background(), jr.recon, batchSize)
		if err != nil {
			logger.Error("Failed to list payment anomalies", "error", err)
			return
		}
		if n > 0 {
			logger.Warn("Open payment anomalies need manual resolution", "count", n)
			return
		}
		logger.Info("No open payment anomalies")
	})
}
