package dto

import (
	"encoding/json"

	"github.com/topicrally/backend/internal/ton"
)

type AuthWalletRequest struct {
	Address   string    `json:"address"` // raw form: workchain:hash
	Network   string    `json:"network"`
	PublicKey string    `json:"public_key"` // hex
	Proof     ton.Proof `json:"proof"`
}

type CreateCampaignRequest struct {
	Message   json.RawMessage `json:"message"`
	Signature string          `json:"signature"` // hex, over the raw message bytes
}

type SetupListenerRequest struct {
	TopicID string `json:"topic_id"`
}
