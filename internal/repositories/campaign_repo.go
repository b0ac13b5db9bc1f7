package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/topicrally/backend/internal/apperrors"
	"github.com/topicrally/backend/internal/models"
)

const campaignColumns = `
	id, topic_id, tx_id, name, account_id, prize_pool, requirement,
	start_date, end_date, rewards_distributed, result_tx_id, results,
	created_at, updated_at`

type CampaignRepo struct {
	pool *pgxpool.Pool
}

func NewCampaignRepo(pool *pgxpool.Pool) *CampaignRepo {
	return &CampaignRepo{pool: pool}
}

// Create inserts a new campaign. A duplicate topic_id or tx_id surfaces as a
// conflict error rather than a raw constraint violation.
func (r *CampaignRepo) Create(ctx context.Context, c *models.Campaign) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO campaigns (topic_id, tx_id, name, account_id, prize_pool, requirement, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, c.TopicID, c.TxID, c.Name, c.AccountID, c.PrizePool, c.Requirement,
		c.StartDate, c.EndDate,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperrors.Wrap(apperrors.KindConflict, "campaign already exists for this topic or transaction", err)
	}
	return err
}

func (r *CampaignRepo) GetByTopicID(ctx context.Context, topicID string) (*models.Campaign, error) {
	return r.queryOne(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE topic_id = $1`, topicID)
}

// GetPendingByTopicID returns the campaign only if its rewards have not been
// distributed yet. Absence means already processed or unknown.
func (r *CampaignRepo) GetPendingByTopicID(ctx context.Context, topicID string) (*models.Campaign, error) {
	return r.queryOne(ctx, `
		SELECT `+campaignColumns+` FROM campaigns
		WHERE topic_id = $1 AND NOT rewards_distributed
	`, topicID)
}

// ListDue returns campaigns past their end date that still await distribution.
func (r *CampaignRepo) ListDue(ctx context.Context, now time.Time) ([]models.Campaign, error) {
	return r.queryMany(ctx, `
		SELECT `+campaignColumns+` FROM campaigns
		WHERE end_date <= $1 AND NOT rewards_distributed
		ORDER BY end_date
	`, now)
}

// ListPendingAfter returns undistributed campaigns ending after now, for
// timer rehydration at process start.
func (r *CampaignRepo) ListPendingAfter(ctx context.Context, now time.Time) ([]models.Campaign, error) {
	return r.queryMany(ctx, `
		SELECT `+campaignColumns+` FROM campaigns
		WHERE end_date > $1 AND NOT rewards_distributed
		ORDER BY end_date
	`, now)
}

type CampaignFilter struct {
	AccountID *string
	Limit     int
	Offset    int
}

func (r *CampaignRepo) List(ctx context.Context, f CampaignFilter) ([]models.Campaign, error) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	if f.AccountID != nil {
		return r.queryMany(ctx, `
			SELECT `+campaignColumns+` FROM campaigns
			WHERE account_id = $1
			ORDER BY created_at DESC LIMIT $2 OFFSET $3
		`, *f.AccountID, limit, f.Offset)
	}
	return r.queryMany(ctx, `
		SELECT `+campaignColumns+` FROM campaigns
		ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, f.Offset)
}

// MarkDistributed flips rewards_distributed and stores the engine's output.
// The WHERE clause makes the flip conditional: the returned bool reports whether
// this call committed the transition (false when another path got there first).
func (r *CampaignRepo) MarkDistributed(ctx context.Context, topicID string, resultTxID *string, results []models.RewardResult) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns
		SET rewards_distributed = true, result_tx_id = $1, results = $2, updated_at = now()
		WHERE topic_id = $3 AND NOT rewards_distributed
	`, resultTxID, results, topicID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *CampaignRepo) queryOne(ctx context.Context, query string, args ...any) (*models.Campaign, error) {
	var c models.Campaign
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&c.ID, &c.TopicID, &c.TxID, &c.Name, &c.AccountID, &c.PrizePool, &c.Requirement,
		&c.StartDate, &c.EndDate, &c.RewardsDistributed, &c.ResultTxID, &c.Results,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New(apperrors.KindNotFound, "campaign not found")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepo) queryMany(ctx context.Context, query string, args ...any) ([]models.Campaign, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		var c models.Campaign
		if err := rows.Scan(
			&c.ID, &c.TopicID, &c.TxID, &c.Name, &c.AccountID, &c.PrizePool, &c.Requirement,
			&c.StartDate, &c.EndDate, &c.RewardsDistributed, &c.ResultTxID, &c.Results,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}
