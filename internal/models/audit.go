package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID             uuid.UUID      `json:"id"`
	ActorAccountID *string        `json:"actor_account_id,omitempty"`
	ActorType      string         `json:"actor_type"` // user / system
	Action         string         `json:"action"`
	EntityType     string         `json:"entity_type"`
	EntityID       *string        `json:"entity_id,omitempty"`
	Meta           map[string]any `json:"meta,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
