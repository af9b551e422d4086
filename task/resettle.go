package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Resettler interface {
	ResettlePending(ctx context.Context) (int, error)
}

// ResettleOnce settles every completed period that still has pending bets.
func ResettleOnce(ctx context.Context, log *zap.Logger, resettlers ...Resettler) int {
	total := 0
	for _, r := range resettlers {
		n, err := r.ResettlePending(ctx)
		if err != nil {
			log.Error("❌ Failed to resettle pending bets", zap.Error(err))
			continue
		}
		total += n
	}
	if total > 0 {
		log.Info("✅ Resettled periods with pending bets", zap.Int("periods", total))
	}
	return total
}

// RunResettleSweep calls ResettleOnce every interval until ctx is done.
func RunResettleSweep(ctx context.Context, interval time.Duration, log *zap.Logger, resettlers ...Resettler) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			ResettleOnce(ctx, log, resettlers...)
		}
	}
}
