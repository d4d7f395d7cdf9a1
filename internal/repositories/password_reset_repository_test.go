package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordResetRepository_Flow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPasswordResetRepository(db)
	userID := uuid.New()
	exp := time.Now().Add(15 * time.Minute)
	now := time.Now()

	mock.ExpectQuery(`INSERT\s+INTO\s+password_resets`).
		WithArgs(userID, "codehash", exp).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))
	mock.ExpectQuery(`(?s)FROM password_resets\s+WHERE user_id = \$1 AND used_at IS NULL`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "code_hash", "expires_at", "attempts", "used_at", "created_at"}).
			AddRow(int64(7), userID.String(), "codehash", exp, 2, nil, now))
	mock.ExpectExec(`UPDATE password_resets SET used_at = NOW\(\) WHERE id = \$1 AND used_at IS NULL`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE password_resets SET used_at`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	pr, err := repo.Create(ctx, userID, "codehash", exp)
	require.NoError(t, err)
	assert.EqualValues(t, 7, pr.ID)

	got, err := repo.GetLatestUnused(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "codehash", got.CodeHash)
	assert.Nil(t, got.UsedAt)
	assert.Equal(t, 2, got.Attempts)

	require.NoError(t, repo.MarkUsed(ctx, 7))
	assert.ErrorIs(t, repo.MarkUsed(ctx, 7), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_NoneActive(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPasswordResetRepository(db)

	mock.ExpectQuery(`FROM password_resets`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "code_hash", "expires_at", "attempts", "used_at", "created_at"}))

	_, err := repo.GetLatestUnused(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPasswordResetRepository_ConsumeAttempt(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPasswordResetRepository(db)

	mock.ExpectQuery(`(?s)UPDATE password_resets SET attempts = attempts \+ 1\s+WHERE id = \$1 AND used_at IS NULL AND attempts < \$2`).
		WithArgs(int64(7), 5).
		WillReturnRows(sqlmock.NewRows([]string{"attempts"}).AddRow(3))
	mock.ExpectQuery(`UPDATE password_resets SET attempts`).
		WithArgs(int64(7), 5).
		WillReturnRows(sqlmock.NewRows([]string{"attempts"}))

	ctx := context.Background()
	n, err := repo.ConsumeAttempt(ctx, 7, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = repo.ConsumeAttempt(ctx, 7, 5)
	assert.ErrorIs(t, err, ErrNotFound, "budget spent")
	require.NoError(t, mock.ExpectationsWereMet())
}
