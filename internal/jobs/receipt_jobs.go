package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// referenceBatch bounds the IN list of a single ReferencedReceipts query.
const referenceBatch = 500

// SweepOrphanReceipts deletes stored receipts that no reimbursement references
// once they are older than the grace period. Submissions clean up after
// themselves; this catches files left behind by a crash mid-submission.
func (jr *JobRunner) SweepOrphanReceipts() {
	jr.runWithRecovery("SweepOrphanReceipts", func() {
		deleted, err := jr.sweepOrphanReceipts(context.Background())
		if err != nil {
			jr.logger.Error("failed to sweep orphan receipts", zap.Error(err))
			return
		}
		if deleted > 0 {
			jr.logger.Info("swept orphan receipts", zap.Int("deleted", deleted))
		}
	})
}

func (jr *JobRunner) sweepOrphanReceipts(ctx context.Context) (int, error) {
	objs, err := jr.files.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := jr.now().Add(-jr.cfg.Grace)
	var stale []string
	for _, o := range objs {
		if o.ModTime.Before(cutoff) {
			stale = append(stale, o.Key)
		}
	}

	deleted := 0
	for start := 0; start < len(stale); start += referenceBatch {
		batch := stale[start:min(start+referenceBatch, len(stale))]

		referenced, err := jr.store.Reimbursements().ReferencedReceipts(ctx, batch)
		if err != nil {
			return deleted, fmt.Errorf("look up receipt references: %w", err)
		}
		keep := make(map[string]struct{}, len(referenced))
		for _, k := range referenced {
			keep[k] = struct{}{}
		}

		for _, key := range batch {
			if _, ok := keep[key]; ok {
				continue
			}
			if err := jr.files.Delete(ctx, key); err != nil {
				jr.logger.Warn("failed to delete orphan receipt", zap.String("key", key), zap.Error(err))
				continue
			}
			deleted++
		}
	}
	return deleted, nil
}
