package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/topicrally/backend/internal/models"
)

type TopicMessageRepo struct {
	pool *pgxpool.Pool
}

func NewTopicMessageRepo(pool *pgxpool.Pool) *TopicMessageRepo {
	return &TopicMessageRepo{pool: pool}
}

// Append records one inbound broadcast message. Rows are never updated or deleted.
func (r *TopicMessageRepo) Append(ctx context.Context, m *models.TopicMessage) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO topic_messages (topic_id, message, consensus_timestamp)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, m.TopicID, m.Message, m.ConsensusTimestamp).Scan(&m.ID, &m.CreatedAt)
}

// ListByTopic returns the newest messages for a topic, consensus order first.
func (r *TopicMessageRepo) ListByTopic(ctx context.Context, topicID string, limit int) ([]models.TopicMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, topic_id, message, consensus_timestamp, created_at
		FROM topic_messages
		WHERE topic_id = $1
		ORDER BY consensus_timestamp DESC NULLS LAST, created_at DESC
		LIMIT $2
	`, topicID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.TopicMessage
	for rows.Next() {
		var m models.TopicMessage
		if err := rows.Scan(&m.ID, &m.TopicID, &m.Message, &m.ConsensusTimestamp, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
