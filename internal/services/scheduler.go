package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler holds one cancellable timer per campaign, firing end-of-life
// processing at the campaign's end date. The timer registry is process-local
// and volatile; Rehydrate recovers scheduling intent after a restart.
type Scheduler struct {
	campaigns CampaignStore
	processor CampaignProcessor
	log       *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer

	now func() time.Time
}

func NewScheduler(campaigns CampaignStore, processor CampaignProcessor, log *zap.Logger) *Scheduler {
	return &Scheduler{
		campaigns: campaigns,
		processor: processor,
		log:       log,
		timers:    make(map[string]*time.Timer),
		now:       time.Now,
	}
}

// Arm guarantees the processor will run for topicID at or shortly after
// endDate, barring process death. A past end date kicks off processing
// immediately in the background. Re-arming the same topic replaces the pending
// timer, it never stacks.
func (s *Scheduler) Arm(topicID string, endDate time.Time) {
	delay := endDate.Sub(s.now())
	if delay <= 0 {
		s.log.Info("campaign end date already passed, processing now",
			zap.String("topic_id", topicID),
			zap.Time("end_date", endDate),
		)
		go s.fire(topicID)
		return
	}

	s.mu.Lock()
	if t, ok := s.timers[topicID]; ok {
		t.Stop()
	}
	s.timers[topicID] = time.AfterFunc(delay, func() { s.fire(topicID) })
	s.mu.Unlock()

	s.log.Info("campaign end processing scheduled",
		zap.String("topic_id", topicID),
		zap.Duration("delay", delay),
	)
}

// fire runs the processor and drops the timer handle regardless of outcome;
// a failed run is left for the fallback sweep to retry.
func (s *Scheduler) fire(topicID string) {
	defer func() {
		s.mu.Lock()
		delete(s.timers, topicID)
		s.mu.Unlock()
	}()

	if err := s.processor.Process(context.Background(), topicID); err != nil {
		s.log.Error("timed campaign processing failed, sweep will retry",
			zap.String("topic_id", topicID),
			zap.Error(err),
		)
	}
}

// Rehydrate re-arms timers for every undistributed campaign that has not yet
// ended. Called once at process start; a query failure is reported but must
// not block startup.
func (s *Scheduler) Rehydrate(ctx context.Context) error {
	campaigns, err := s.campaigns.ListPendingAfter(ctx, s.now())
	if err != nil {
		return err
	}

	for _, c := range campaigns {
		s.Arm(c.TopicID, c.EndDate)
	}

	s.log.Info("scheduler rehydrated", zap.Int("campaigns", len(campaigns)))
	return nil
}

// Stop cancels all pending timers. In-flight processor runs are unaffected.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for topicID, t := range s.timers {
		t.Stop()
		delete(s.timers, topicID)
	}
}

func (s *Scheduler) armed(topicID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[topicID]
	return ok
}
