package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/topicrally/backend/internal/apperrors"
	"github.com/topicrally/backend/internal/models"
)

type ListenerRepo struct {
	pool *pgxpool.Pool
}

func NewListenerRepo(pool *pgxpool.Pool) *ListenerRepo {
	return &ListenerRepo{pool: pool}
}

func (r *ListenerRepo) GetByTopic(ctx context.Context, topicID string) (*models.TopicListener, error) {
	var l models.TopicListener
	err := r.pool.QueryRow(ctx, `
		SELECT topic_id, is_active, updated_at
		FROM topic_listeners WHERE topic_id = $1
	`, topicID).Scan(&l.TopicID, &l.IsActive, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New(apperrors.KindNotFound, "listener not found")
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// SetActive upserts the listener row's active flag.
func (r *ListenerRepo) SetActive(ctx context.Context, topicID string, active bool) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO topic_listeners (topic_id, is_active)
		VALUES ($1, $2)
		ON CONFLICT (topic_id) DO UPDATE SET is_active = EXCLUDED.is_active, updated_at = now()
	`, topicID, active)
	return err
}

// ListActive returns topics whose listener should have a live subscription,
// used to resume message capture after a restart.
func (r *ListenerRepo) ListActive(ctx context.Context) ([]models.TopicListener, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT topic_id, is_active, updated_at
		FROM topic_listeners WHERE is_active
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listeners []models.TopicListener
	for rows.Next() {
		var l models.TopicListener
		if err := rows.Scan(&l.TopicID, &l.IsActive, &l.UpdatedAt); err != nil {
			return nil, err
		}
		listeners = append(listeners, l)
	}
	return listeners, rows.Err()
}
