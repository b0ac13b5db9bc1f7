package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a validated campaign creator: someone who proved control of a ledger
// wallet. PublicKey is the ed25519 key campaign creation messages must be signed with.
type User struct {
	ID            uuid.UUID `json:"id"`
	AccountID     string    `json:"account_id"`
	WalletAddress string    `json:"wallet_address"`
	PublicKey     string    `json:"public_key"` // hex
	CreatedAt     time.Time `json:"created_at"`
	LastActiveAt  time.Time `json:"last_active_at"`
}
