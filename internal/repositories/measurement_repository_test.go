package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthtracker/internal/models"
)

var measurementCols = []string{"id", "user_id", "kind", "value", "unit", "measured_at", "note", "created_at"}

func TestMeasurementRepository_ListBuildsFilter(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMeasurementRepository(db)
	userID, id := uuid.New(), uuid.New()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	mock.ExpectQuery(`(?s)WHERE user_id = \$1 AND kind = \$2 AND measured_at >= \$3 AND measured_at < \$4.*LIMIT \$5 OFFSET \$6`).
		WithArgs(userID, "weight", from, to, 10, 20).
		WillReturnRows(sqlmock.NewRows(measurementCols).
			AddRow(id.String(), userID.String(), "weight", 71.5, "kg", from, "", from))

	list, err := repo.List(context.Background(), userID, models.MeasurementFilter{
		Kind: models.KindWeight, From: &from, To: &to, Limit: 10, Offset: 20,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.KindWeight, list[0].Kind)
	assert.Equal(t, 71.5, list[0].Value)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeasurementRepository_ListWithoutFilter(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMeasurementRepository(db)
	userID := uuid.New()

	mock.ExpectQuery(`(?s)WHERE user_id = \$1\s+ORDER BY.*LIMIT \$2 OFFSET \$3`).
		WithArgs(userID, 50, 0).
		WillReturnRows(sqlmock.NewRows(measurementCols))

	list, err := repo.List(context.Background(), userID, models.MeasurementFilter{Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)
}

func TestMeasurementRepository_OwnerScoped(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMeasurementRepository(db)
	userID, id := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM measurements WHERE id = \$1 AND user_id = \$2`).
		WithArgs(id, userID).
		WillReturnRows(sqlmock.NewRows(measurementCols))
	mock.ExpectExec(`DELETE FROM measurements WHERE id = \$1 AND user_id = \$2`).
		WithArgs(id, userID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.GetByID(context.Background(), userID, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), userID, id), ErrNotFound)
}

func TestProfileRepository_Upsert(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepository(db)
	userID := uuid.New()
	now := time.Now()
	h := 180.0

	mock.ExpectQuery(`(?s)INSERT INTO profiles.*ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs(userID, "Ann", "Lee", nil, "female", 180.0).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))

	p := &models.Profile{UserID: userID, FirstName: "Ann", LastName: "Lee", Sex: "female", HeightCM: &h}
	require.NoError(t, repo.Upsert(context.Background(), p))
	assert.Equal(t, now, p.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeasurementRepository_CreateForMissingUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMeasurementRepository(db)

	mock.ExpectQuery(`INSERT INTO measurements`).
		WillReturnError(&pq.Error{Code: "23503", Message: "violates foreign key constraint"})

	err := repo.Create(context.Background(), &models.Measurement{UserID: uuid.New(), Kind: models.KindSteps, Value: 1000, MeasuredAt: time.Now()})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
