package models

import (
	"time"

	"github.com/google/uuid"
)

// Campaign statuses are derived from the clock, never stored. RewardsDistributed
// tracks the terminal action independently of status.
const (
	CampaignStatusUpcoming = "upcoming"
	CampaignStatusActive   = "active"
	CampaignStatusEnded    = "ended"
)

type Campaign struct {
	ID                 uuid.UUID      `json:"id"`
	TopicID            string         `json:"topic_id"`
	TxID               string         `json:"tx_id"`
	Name               string         `json:"name"`
	AccountID          string         `json:"account_id"`
	PrizePool          string         `json:"prize_pool"` // decimal TON string
	Requirement        string         `json:"requirement"`
	StartDate          time.Time      `json:"start_date"`
	EndDate            time.Time      `json:"end_date"`
	RewardsDistributed bool           `json:"rewards_distributed"`
	ResultTxID         *string        `json:"result_tx_id,omitempty"`
	Results            []RewardResult `json:"results,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// RewardResult is one line of the reward engine's output, recorded verbatim.
type RewardResult struct {
	Participant string `json:"participant"`
	Handle      string `json:"handle"`
	Amount      string `json:"amount"`
}

// StatusAt computes the campaign's lifecycle status at the given instant.
func (c *Campaign) StatusAt(now time.Time) string {
	switch {
	case now.Before(c.StartDate):
		return CampaignStatusUpcoming
	case now.Before(c.EndDate):
		return CampaignStatusActive
	default:
		return CampaignStatusEnded
	}
}

// EndedAt reports whether the campaign's end date has been reached.
func (c *Campaign) EndedAt(now time.Time) bool {
	return !now.Before(c.EndDate)
}
