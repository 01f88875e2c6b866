package jobs

import (
	"context"

	"meeting-gate/internal/logger"
)

// ExpirePendingRequests marks pending join requests older than the expiry
// ceiling as expired. It covers guests that gave up without withdrawing.
func (jr *JobRunner) ExpirePendingRequests() {
	jr.runWithRecovery("ExpirePendingRequests", func() {
		ctx := context.Background()
		ceiling := jr.config.Admission.ExpiryCeiling

		count, err := jr.membership.ExpireStale(ctx, ceiling)
		if err != nil {
			logger.Error("Failed to expire pending requests", "error", err)
			return
		}

		logger.Info("Expired stale join requests", "count", count, "ceiling", ceiling)
	})
}
