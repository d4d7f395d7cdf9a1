package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"healthtracker/internal/models"
)

// RefreshTokenRepository manages a user's set of live refresh-token ids.
// Every change is a single-row insert or delete, never a rewrite of the set,
// so concurrent sessions of one user cannot clobber each other.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	// Delete removes one id; ErrNotFound when it is not (or no longer) in the set.
	Delete(ctx context.Context, userID, tokenID uuid.UUID) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.RefreshToken, error)
}

type refreshTokenRepository struct {
	DB DBTX
}

func NewRefreshTokenRepository(db DBTX) RefreshTokenRepository {
	return &refreshTokenRepository{DB: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	const q = `
		INSERT INTO refresh_tokens (user_id, token_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	if err := r.DB.QueryRowContext(ctx, q, token.UserID, token.TokenID, token.ExpiresAt).Scan(&token.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

func (r *refreshTokenRepository) Delete(ctx context.Context, userID, tokenID uuid.UUID) error {
	const q = `DELETE FROM refresh_tokens WHERE user_id = $1 AND token_id = $2`
	res, err := r.DB.ExecContext(ctx, q, userID, tokenID)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return requireAffected(res)
}

func (r *refreshTokenRepository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete refresh tokens: %w", err)
	}
	return res.RowsAffected()
}

func (r *refreshTokenRepository) DeleteExpired(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	const q = `DELETE FROM refresh_tokens WHERE user_id = $1 AND expires_at <= $2`
	res, err := r.DB.ExecContext(ctx, q, userID, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return res.RowsAffected()
}

func (r *refreshTokenRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.RefreshToken, error) {
	const q = `
		SELECT user_id, token_id, expires_at, created_at
		FROM refresh_tokens
		WHERE user_id = $1
		ORDER BY created_at
	`
	rows, err := r.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list refresh tokens: %w", err)
	}
	defer rows.Close()

	var res []*models.RefreshToken
	for rows.Next() {
		t := &models.RefreshToken{}
		if err := rows.Scan(&t.UserID, &t.TokenID, &t.ExpiresAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan refresh token: %w", err)
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
