package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"healthtracker/internal/models"
)

type PasswordResetRepository interface {
	Create(ctx context.Context, userID uuid.UUID, codeHash string, expiresAt time.Time) (*models.PasswordReset, error)
	// GetLatestUnused returns the newest reset of the user that was not consumed yet.
	GetLatestUnused(ctx context.Context, userID uuid.UUID) (*models.PasswordReset, error)
	// ConsumeAttempt reserves one code check against an unused reset and
	// returns the new attempt count. ErrNotFound once maxAttempts checks were
	// made or the reset was consumed.
	ConsumeAttempt(ctx context.Context, id int64, maxAttempts int) (int, error)
	// MarkUsed consumes the reset; ErrNotFound if it was already consumed.
	MarkUsed(ctx context.Context, id int64) error
}

type passwordResetRepository struct {
	DB DBTX
}

func NewPasswordResetRepository(db DBTX) PasswordResetRepository {
	return &passwordResetRepository{DB: db}
}

func (r *passwordResetRepository) Create(ctx context.Context, userID uuid.UUID, codeHash string, expiresAt time.Time) (*models.PasswordReset, error) {
	const q = `
		INSERT INTO password_resets (user_id, code_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	pr := &models.PasswordReset{UserID: userID, CodeHash: codeHash, ExpiresAt: expiresAt}
	if err := r.DB.QueryRowContext(ctx, q, userID, codeHash, expiresAt).Scan(&pr.ID, &pr.CreatedAt); err != nil {
		return nil, fmt.Errorf("create password reset: %w", err)
	}
	return pr, nil
}

func (r *passwordResetRepository) GetLatestUnused(ctx context.Context, userID uuid.UUID) (*models.PasswordReset, error) {
	const q = `
		SELECT id, user_id, code_hash, expires_at, attempts, used_at, created_at
		FROM password_resets
		WHERE user_id = $1 AND used_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	pr := &models.PasswordReset{}
	var usedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, q, userID).
		Scan(&pr.ID, &pr.UserID, &pr.CodeHash, &pr.ExpiresAt, &pr.Attempts, &usedAt, &pr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get password reset: %w", err)
	}
	if usedAt.Valid {
		pr.UsedAt = &usedAt.Time
	}
	return pr, nil
}

func (r *passwordResetRepository) ConsumeAttempt(ctx context.Context, id int64, maxAttempts int) (int, error) {
	const q = `
		UPDATE password_resets SET attempts = attempts + 1
		WHERE id = $1 AND used_at IS NULL AND attempts < $2
		RETURNING attempts
	`
	var attempts int
	if err := r.DB.QueryRowContext(ctx, q, id, maxAttempts).Scan(&attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("consume reset attempt: %w", err)
	}
	return attempts, nil
}

func (r *passwordResetRepository) MarkUsed(ctx context.Context, id int64) error {
	const q = `UPDATE password_resets SET used_at = NOW() WHERE id = $1 AND used_at IS NULL`
	res, err := r.DB.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	return requireAffected(res)
}
