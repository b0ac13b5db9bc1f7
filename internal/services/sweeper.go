package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper is the fallback reconciliation pass: on a fixed period, and once at
// startup, it converges every overdue undistributed campaign. It is the safety
// net behind lost timers and the source of the at-least-once guarantee, so it
// catches everything and never crashes the process.
type Sweeper struct {
	campaigns CampaignStore
	processor CampaignProcessor
	interval  time.Duration
	log       *zap.Logger
	now       func() time.Time
}

func NewSweeper(campaigns CampaignStore, processor CampaignProcessor, interval time.Duration, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		campaigns: campaigns,
		processor: processor,
		interval:  interval,
		log:       log,
		now:       time.Now,
	}
}

// Start runs an immediate sweep and then sweeps on every tick until ctx is
// cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		if err := s.RunNow(ctx); err != nil {
			s.log.Error("startup sweep failed", zap.Error(err))
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.RunNow(ctx); err != nil {
					s.log.Error("sweep run failed", zap.Error(err))
				}
			}
		}
	}()
}

// RunNow processes every overdue undistributed campaign sequentially. Per-item
// failures are logged and do not abort the remainder of the batch; only a
// batch fetch failure aborts the run.
func (s *Sweeper) RunNow(ctx context.Context) error {
	due, err := s.campaigns.ListDue(ctx, s.now())
	if err != nil {
		return err
	}

	if len(due) == 0 {
		return nil
	}

	s.log.Info("sweeping overdue campaigns", zap.Int("count", len(due)))

	for _, c := range due {
		if err := s.processor.Process(ctx, c.TopicID); err != nil {
			s.log.Error("sweep item failed",
				zap.String("topic_id", c.TopicID),
				zap.Error(err),
			)
		}
	}

	return nil
}
