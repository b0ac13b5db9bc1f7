package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/topicrally/backend/internal/apperrors"
	"github.com/topicrally/backend/internal/events"
	"github.com/topicrally/backend/internal/models"
	"go.uber.org/zap"
)

// Creation gate failure reasons, reported verbatim to the API client so it can
// correct and retry.
const (
	ReasonInvalidFormat       = "invalid_format"
	ReasonUserNotValidated    = "user_not_validated"
	ReasonInvalidSignature    = "invalid_signature"
	ReasonTopicNotFound       = "topic_not_found"
	ReasonDepositInsufficient = "deposit_insufficient"
	ReasonDuplicateCampaign   = "duplicate_campaign"
)

// CreationMessage is the signed application payload a creator submits. The
// signature covers the exact raw bytes, so the message is parsed but never
// re-serialized before verification.
type CreationMessage struct {
	TxID        string    `json:"tx_id"`
	TopicID     string    `json:"topic_id"`
	Name        string    `json:"name"`
	AccountID   string    `json:"account_id"`
	PrizePool   string    `json:"prize_pool"`
	Requirement string    `json:"requirement"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

// ParseCreationMessage decodes and validates the structured campaign fields.
func ParseCreationMessage(raw []byte) (*CreationMessage, error) {
	var m CreationMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	switch {
	case m.TxID == "":
		return nil, fmt.Errorf("tx_id is required")
	case m.TopicID == "":
		return nil, fmt.Errorf("topic_id is required")
	case m.Name == "":
		return nil, fmt.Errorf("name is required")
	case m.AccountID == "":
		return nil, fmt.Errorf("account_id is required")
	case m.PrizePool == "":
		return nil, fmt.Errorf("prize_pool is required")
	case m.StartDate.IsZero() || m.EndDate.IsZero():
		return nil, fmt.Errorf("start_date and end_date are required")
	case !m.EndDate.After(m.StartDate):
		return nil, fmt.Errorf("end_date must be after start_date")
	}

	return &m, nil
}

// CampaignService runs the creation pipeline: an ordered gate sequence ending
// in a committed campaign with armed scheduling and an active topic listener.
type CampaignService struct {
	campaigns CampaignStore
	users     UserStore
	gateway   LedgerGateway
	verifier  SignatureVerifier
	deposits  DepositOracle
	scheduler *Scheduler
	listeners *ListenerService
	audit     AuditLogger
	publisher events.Publisher
	log       *zap.Logger
}

func NewCampaignService(
	campaigns CampaignStore,
	users UserStore,
	gateway LedgerGateway,
	verifier SignatureVerifier,
	deposits DepositOracle,
	scheduler *Scheduler,
	listeners *ListenerService,
	audit AuditLogger,
	publisher events.Publisher,
	log *zap.Logger,
) *CampaignService {
	return &CampaignService{
		campaigns: campaigns,
		users:     users,
		gateway:   gateway,
		verifier:  verifier,
		deposits:  deposits,
		scheduler: scheduler,
		listeners: listeners,
		audit:     audit,
		publisher: publisher,
		log:       log,
	}
}

// VerifyAndCreate runs the gates in order, short-circuiting on the first
// failure with no side effects. On a successful insert it arms end-of-life
// processing and starts the topic listener; a listener failure after the
// insert is returned alongside the committed campaign (the sweep still covers
// reward processing, message capture needs a listener retry).
func (s *CampaignService) VerifyAndCreate(ctx context.Context, message []byte, signature string) (*models.Campaign, error) {
	// Gate 1: structure.
	msg, err := ParseCreationMessage(message)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, ReasonInvalidFormat, err)
	}

	// Gate 2: creator must have completed wallet validation.
	user, err := s.users.GetByAccountID(ctx, msg.AccountID)
	if apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil, apperrors.Wrap(apperrors.KindNotFound, ReasonUserNotValidated, err)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "lookup creator", err)
	}

	// Gate 3: signature over the raw message bytes.
	if err := s.verifier.VerifyMessage(message, signature, user.PublicKey); err != nil {
		return nil, apperrors.Wrap(apperrors.KindAuthentication, ReasonInvalidSignature, err)
	}

	// Gate 4: the topic must exist on the ledger.
	exists, err := s.gateway.TopicExists(ctx, msg.TopicID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindExternal, "topic existence check failed", err)
	}
	if !exists {
		return nil, apperrors.New(apperrors.KindNotFound, ReasonTopicNotFound)
	}

	// Gate 5: escrow deposit must cover the prize pool.
	funded, err := s.deposits.VerifyDeposit(ctx, user.WalletAddress, msg.TopicID, msg.PrizePool)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindExternal, "deposit verification failed", err)
	}
	if !funded {
		return nil, apperrors.New(apperrors.KindValidation, ReasonDepositInsufficient)
	}

	// Gate 6: commit. Uniqueness of topic_id and tx_id is enforced by the store.
	campaign := &models.Campaign{
		TopicID:     msg.TopicID,
		TxID:        msg.TxID,
		Name:        msg.Name,
		AccountID:   msg.AccountID,
		PrizePool:   msg.PrizePool,
		Requirement: msg.Requirement,
		StartDate:   msg.StartDate.UTC(),
		EndDate:     msg.EndDate.UTC(),
	}
	if err := s.campaigns.Create(ctx, campaign); err != nil {
		if apperrors.IsKind(err, apperrors.KindConflict) {
			return nil, apperrors.Wrap(apperrors.KindConflict, ReasonDuplicateCampaign, err)
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "insert campaign", err)
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorAccountID: &campaign.AccountID,
		ActorType:      "user",
		Action:         "campaign_created",
		EntityType:     "campaign",
		EntityID:       &campaign.TopicID,
	})

	_ = s.publisher.Publish(ctx, events.StreamCampaigns, events.Event{
		Type: events.EventCampaignCreated,
		Payload: map[string]any{
			"topic_id":   campaign.TopicID,
			"account_id": campaign.AccountID,
			"end_date":   campaign.EndDate,
		},
	})

	s.log.Info("campaign created",
		zap.String("topic_id", campaign.TopicID),
		zap.String("account_id", campaign.AccountID),
		zap.Time("end_date", campaign.EndDate),
	)

	// Step 7: arm scheduling, then start message capture.
	s.scheduler.Arm(campaign.TopicID, campaign.EndDate)

	if err := s.listeners.Setup(ctx, campaign.TopicID); err != nil && !apperrors.IsKind(err, apperrors.KindConflict) {
		s.log.Error("campaign committed but listener setup failed",
			zap.String("topic_id", campaign.TopicID),
			zap.Error(err),
		)
		return campaign, err
	}

	return campaign, nil
}
