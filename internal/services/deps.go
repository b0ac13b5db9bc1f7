package services

import (
	"context"
	"time"

	"github.com/topicrally/backend/internal/models"
	"github.com/topicrally/backend/internal/ton"
)

// Collaborator contracts consumed by the lifecycle services. The pgx repos and
// the ledger client satisfy these; tests substitute fakes.

type CampaignStore interface {
	Create(ctx context.Context, c *models.Campaign) error
	GetPendingByTopicID(ctx context.Context, topicID string) (*models.Campaign, error)
	ListDue(ctx context.Context, now time.Time) ([]models.Campaign, error)
	ListPendingAfter(ctx context.Context, now time.Time) ([]models.Campaign, error)
	MarkDistributed(ctx context.Context, topicID string, resultTxID *string, results []models.RewardResult) (bool, error)
}

type MessageStore interface {
	Append(ctx context.Context, m *models.TopicMessage) error
}

type ListenerStore interface {
	GetByTopic(ctx context.Context, topicID string) (*models.TopicListener, error)
	SetActive(ctx context.Context, topicID string, active bool) error
	ListActive(ctx context.Context) ([]models.TopicListener, error)
}

type UserStore interface {
	GetByAccountID(ctx context.Context, accountID string) (*models.User, error)
}

type AuditLogger interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

// LedgerGateway is the distributed ledger surface the lifecycle needs: topic
// existence checks and per-topic message subscriptions.
type LedgerGateway interface {
	TopicExists(ctx context.Context, topicID string) (bool, error)
	Subscribe(ctx context.Context, topicID string) (<-chan ton.Message, error)
}

type SignatureVerifier interface {
	VerifyMessage(message []byte, signatureHex, publicKeyHex string) error
}

type DepositOracle interface {
	VerifyDeposit(ctx context.Context, payerAddress, topicID, requiredTON string) (bool, error)
}

// DistributionResult is what the external reward engine returns on success.
type DistributionResult struct {
	ResultTxID *string
	Results    []models.RewardResult
}

// RewardEngine computes and pays out campaign rewards. It must be idempotent
// per topic: the lifecycle may invoke it more than once for the same campaign.
type RewardEngine interface {
	Distribute(ctx context.Context, topicID string) (*DistributionResult, error)
}

// CampaignProcessor is the shared end-of-life routine invoked by both the timer
// scheduler and the fallback sweep.
type CampaignProcessor interface {
	Process(ctx context.Context, topicID string) error
}

// EdVerifier verifies ed25519 signatures over raw message bytes.
type EdVerifier struct{}

func (EdVerifier) VerifyMessage(message []byte, signatureHex, publicKeyHex string) error {
	return ton.VerifyMessageSignature(message, signatureHex, publicKeyHex)
}
