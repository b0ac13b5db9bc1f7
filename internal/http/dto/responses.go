package dto

import "github.com/topicrally/backend/internal/models"

type AuthResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

// CampaignResponse decorates a campaign row with its time-derived status.
type CampaignResponse struct {
	*models.Campaign
	Status string `json:"status"` // upcoming / active / ended
}

type ListenerStatusResponse struct {
	TopicID  string `json:"topic_id"`
	IsActive bool   `json:"is_active"`
}

type SweepResponse struct {
	OK bool `json:"ok"`
}
