package events

import "context"

// Streams
const (
	StreamCampaigns = "events:campaigns"
	StreamMessages  = "events:messages"
)

// Event types
const (
	EventCampaignCreated    = "campaign_created"
	EventRewardsDistributed = "rewards_distributed"
	EventTopicMessage       = "topic_message"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
