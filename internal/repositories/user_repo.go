package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/topicrally/backend/internal/apperrors"
	"github.com/topicrally/backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// UpsertByAccountID registers or refreshes a validated creator. Re-proving with
// a different wallet or key replaces the stored credentials.
func (r *UserRepo) UpsertByAccountID(ctx context.Context, accountID, walletAddress, publicKey string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (account_id, wallet_address, public_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO UPDATE SET
			wallet_address = EXCLUDED.wallet_address,
			public_key = EXCLUDED.public_key,
			last_active_at = now()
		RETURNING id, account_id, wallet_address, public_key, created_at, last_active_at
	`, accountID, walletAddress, publicKey).Scan(
		&u.ID, &u.AccountID, &u.WalletAddress, &u.PublicKey, &u.CreatedAt, &u.LastActiveAt,
	)
	return &u, err
}

func (r *UserRepo) GetByAccountID(ctx context.Context, accountID string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, account_id, wallet_address, public_key, created_at, last_active_at
		FROM users WHERE account_id = $1
	`, accountID).Scan(&u.ID, &u.AccountID, &u.WalletAddress, &u.PublicKey, &u.CreatedAt, &u.LastActiveAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New(apperrors.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UpdateLastActive(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_active_at = $1 WHERE id = $2`, time.Now(), id)
	return err
}
