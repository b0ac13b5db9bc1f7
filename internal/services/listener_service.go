package services

import (
	"context"

	"github.com/topicrally/backend/internal/apperrors"
	"github.com/topicrally/backend/internal/events"
	"github.com/topicrally/backend/internal/models"
	"github.com/topicrally/backend/internal/ton"
	"go.uber.org/zap"
)

// ListenerService keeps one live subscription per active topic and durably
// records every inbound broadcast message. The registry row is the best-effort
// guard against duplicate subscriptions; there is no cross-process lock.
type ListenerService struct {
	listeners ListenerStore
	messages  MessageStore
	gateway   LedgerGateway
	publisher events.Publisher
	log       *zap.Logger

	// runCtx scopes subscriptions and consumers to the process lifetime rather
	// than to the request that opened them.
	runCtx context.Context
}

func NewListenerService(
	runCtx context.Context,
	listeners ListenerStore,
	messages MessageStore,
	gateway LedgerGateway,
	publisher events.Publisher,
	log *zap.Logger,
) *ListenerService {
	return &ListenerService{
		runCtx:    runCtx,
		listeners: listeners,
		messages:  messages,
		gateway:   gateway,
		publisher: publisher,
		log:       log,
	}
}

// Setup ensures messages on the topic are being recorded. Returns a conflict
// error if a listener is already active. A subscription failure deactivates
// the registry row so a later Setup can retry.
func (s *ListenerService) Setup(ctx context.Context, topicID string) error {
	existing, err := s.listeners.GetByTopic(ctx, topicID)
	if err != nil && !apperrors.IsKind(err, apperrors.KindNotFound) {
		return err
	}
	if existing != nil && existing.IsActive {
		return apperrors.New(apperrors.KindConflict, "already listening to this topic")
	}

	if err := s.listeners.SetActive(ctx, topicID, true); err != nil {
		return err
	}

	if err := s.subscribe(topicID); err != nil {
		if derr := s.listeners.SetActive(ctx, topicID, false); derr != nil {
			s.log.Error("failed to deactivate listener after subscribe error",
				zap.String("topic_id", topicID),
				zap.Error(derr),
			)
		}
		return apperrors.Wrap(apperrors.KindExternal, "failed to open topic subscription", err)
	}

	s.log.Info("topic listener started", zap.String("topic_id", topicID))
	return nil
}

// Status reports the registry row; a topic with no row is inactive.
func (s *ListenerService) Status(ctx context.Context, topicID string) (*models.TopicListener, error) {
	l, err := s.listeners.GetByTopic(ctx, topicID)
	if apperrors.IsKind(err, apperrors.KindNotFound) {
		return &models.TopicListener{TopicID: topicID, IsActive: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Resume reopens subscriptions for every active registry row. Called at
// process start: subscriptions are process-local, so a restart would otherwise
// leave active rows without live listeners. Rows that cannot be reopened are
// deactivated for a later Setup to retry.
func (s *ListenerService) Resume(ctx context.Context) error {
	active, err := s.listeners.ListActive(ctx)
	if err != nil {
		return err
	}

	resumed := 0
	for _, l := range active {
		if err := s.subscribe(l.TopicID); err != nil {
			s.log.Error("failed to resume topic listener",
				zap.String("topic_id", l.TopicID),
				zap.Error(err),
			)
			if derr := s.listeners.SetActive(ctx, l.TopicID, false); derr != nil {
				s.log.Error("failed to deactivate unresumable listener",
					zap.String("topic_id", l.TopicID),
					zap.Error(derr),
				)
			}
			continue
		}
		resumed++
	}

	s.log.Info("topic listeners resumed", zap.Int("resumed", resumed), zap.Int("active_rows", len(active)))
	return nil
}

// subscribe opens the ledger subscription and starts the consumer that drains
// inbound messages into the message store.
func (s *ListenerService) subscribe(topicID string) error {
	ch, err := s.gateway.Subscribe(s.runCtx, topicID)
	if err != nil {
		return err
	}

	go s.consume(topicID, ch)
	return nil
}

func (s *ListenerService) consume(topicID string, ch <-chan ton.Message) {
	for msg := range ch {
		row := &models.TopicMessage{
			TopicID:            topicID,
			Message:            msg.Body,
			ConsensusTimestamp: msg.ConsensusTimestamp,
		}
		if err := s.messages.Append(s.runCtx, row); err != nil {
			s.log.Error("failed to persist topic message",
				zap.String("topic_id", topicID),
				zap.Error(err),
			)
			continue
		}

		_ = s.publisher.Publish(s.runCtx, events.StreamMessages, events.Event{
			Type: events.EventTopicMessage,
			Payload: map[string]any{
				"topic_id":            topicID,
				"message":             msg.Body,
				"consensus_timestamp": msg.ConsensusTimestamp,
			},
		})
	}

	s.log.Info("topic message stream closed", zap.String("topic_id", topicID))
}
