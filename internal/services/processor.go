package services

import (
	"context"
	"time"

	"github.com/topicrally/backend/internal/apperrors"
	"github.com/topicrally/backend/internal/events"
	"github.com/topicrally/backend/internal/models"
	"go.uber.org/zap"
)

// Processor finalizes reward distribution for one campaign. It is invoked by
// the timer scheduler and by the fallback sweep; the two paths may overlap, so
// the commit is a conditional update and the reward engine must be idempotent
// per topic.
type Processor struct {
	campaigns CampaignStore
	engine    RewardEngine
	audit     AuditLogger
	publisher events.Publisher
	log       *zap.Logger
	now       func() time.Time
}

func NewProcessor(
	campaigns CampaignStore,
	engine RewardEngine,
	audit AuditLogger,
	publisher events.Publisher,
	log *zap.Logger,
) *Processor {
	return &Processor{
		campaigns: campaigns,
		engine:    engine,
		audit:     audit,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// Process attempts to distribute rewards for the campaign. No-op if the
// campaign is unknown or already distributed. A failure leaves the campaign
// undistributed for the next sweep cycle.
func (p *Processor) Process(ctx context.Context, topicID string) error {
	campaign, err := p.campaigns.GetPendingByTopicID(ctx, topicID)
	if apperrors.IsKind(err, apperrors.KindNotFound) {
		p.log.Debug("no pending campaign to process", zap.String("topic_id", topicID))
		return nil
	}
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "fetch pending campaign", err)
	}

	// Guards against clock races between scheduling and firing.
	if !campaign.EndedAt(p.now()) {
		p.log.Warn("campaign has not ended yet, skipping",
			zap.String("topic_id", topicID),
			zap.Time("end_date", campaign.EndDate),
		)
		return nil
	}

	result, err := p.engine.Distribute(ctx, topicID)
	if err != nil {
		return apperrors.Wrap(apperrors.KindExternal, "reward distribution failed", err)
	}

	committed, err := p.campaigns.MarkDistributed(ctx, topicID, result.ResultTxID, result.Results)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "commit distributed flag", err)
	}
	if !committed {
		// The concurrent path won the race; the engine is idempotent, so the
		// duplicate call is harmless.
		p.log.Info("rewards already committed by a concurrent invocation",
			zap.String("topic_id", topicID),
		)
		return nil
	}

	_ = p.audit.Log(ctx, models.AuditLog{
		ActorType:  "system",
		Action:     "rewards_distributed",
		EntityType: "campaign",
		EntityID:   &topicID,
	})

	_ = p.publisher.Publish(ctx, events.StreamCampaigns, events.Event{
		Type: events.EventRewardsDistributed,
		Payload: map[string]any{
			"topic_id":     topicID,
			"result_tx_id": result.ResultTxID,
		},
	})

	p.log.Info("campaign rewards distributed",
		zap.String("topic_id", topicID),
		zap.Int("results", len(result.Results)),
	)
	return nil
}
