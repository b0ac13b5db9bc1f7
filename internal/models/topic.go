package models

import (
	"time"

	"github.com/google/uuid"
)

// TopicListener guards against duplicate subscriptions for the same topic.
// At most one row per topic; is_active means a live subscription should exist.
type TopicListener struct {
	TopicID   string    `json:"topic_id"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TopicMessage is one inbound broadcast message, append-only. ConsensusTimestamp
// is assigned by the ledger and may be absent if not yet available.
type TopicMessage struct {
	ID                 uuid.UUID  `json:"id"`
	TopicID            string     `json:"topic_id"`
	Message            string     `json:"message"`
	ConsensusTimestamp *time.Time `json:"consensus_timestamp,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}
