package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthtracker/internal/logging"
	"healthtracker/internal/models"
	"healthtracker/internal/repositories"
)

func seedUser(t *testing.T, store repositories.Store, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "hash"}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return u
}

func TestProfileService(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := NewProfileService(store)
	ctx := context.Background()
	u := seedUser(t, store, testEmail)

	_, err := svc.Get(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	height := 180.5
	p, err := svc.Upsert(ctx, u.ID, models.ProfileRequest{FirstName: " Ada ", LastName: "Lovelace", Sex: "female", HeightCM: &height})
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.FirstName)

	_, err = svc.Upsert(ctx, u.ID, models.ProfileRequest{FirstName: "Ada"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FirstName)
	assert.Empty(t, got.LastName, "upsert replaces the whole profile")
	assert.Nil(t, got.HeightCM)

	_, err = svc.Upsert(ctx, uuid.New(), models.ProfileRequest{FirstName: "Ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMeasurementService_CRUD(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := NewMeasurementService(store)
	ctx := context.Background()
	u := seedUser(t, store, testEmail)
	other := seedUser(t, store, "b@x.com")

	m, err := svc.Create(ctx, u.ID, models.MeasurementRequest{Kind: models.KindWeight, Value: 72.4})
	require.NoError(t, err)
	assert.Equal(t, "kg", m.Unit, "default unit")
	assert.False(t, m.MeasuredAt.IsZero())

	got, err := svc.Get(ctx, u.ID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 72.4, got.Value)

	_, err = svc.Get(ctx, other.ID, m.ID)
	assert.ErrorIs(t, err, ErrNotFound, "other users' records are invisible")

	updated, err := svc.Update(ctx, u.ID, m.ID, models.MeasurementRequest{Kind: models.KindWeight, Value: 71.9, Unit: "kg", Note: "after run"})
	require.NoError(t, err)
	assert.Equal(t, 71.9, updated.Value)
	assert.True(t, m.MeasuredAt.Equal(updated.MeasuredAt), "measured_at kept when omitted")

	_, err = svc.Update(ctx, other.ID, m.ID, models.MeasurementRequest{Kind: models.KindWeight, Value: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, other.ID, m.ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, u.ID, m.ID))
	assert.ErrorIs(t, svc.Delete(ctx, u.ID, m.ID), ErrNotFound)
}

func TestMeasurementService_Validation(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := NewMeasurementService(store)
	ctx := context.Background()
	u := seedUser(t, store, testEmail)

	_, err := svc.Create(ctx, u.ID, models.MeasurementRequest{Kind: "mood", Value: 3})
	assert.ErrorIs(t, err, ErrInvalidMeasurement)

	_, err = svc.Create(ctx, u.ID, models.MeasurementRequest{Kind: models.KindSteps, Value: -1})
	assert.ErrorIs(t, err, ErrInvalidMeasurement)

	_, err = svc.List(ctx, u.ID, models.MeasurementFilter{Kind: "mood"})
	assert.ErrorIs(t, err, ErrInvalidMeasurement)

	from := time.Now()
	to := from.Add(-time.Hour)
	_, err = svc.List(ctx, u.ID, models.MeasurementFilter{From: &from, To: &to})
	assert.ErrorIs(t, err, ErrInvalidMeasurement)

	_, err = svc.Create(ctx, uuid.New(), models.MeasurementRequest{Kind: models.KindSteps, Value: 10})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMeasurementService_ListDefaults(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := NewMeasurementService(store)
	ctx := context.Background()
	u := seedUser(t, store, testEmail)

	base := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	for i := 0; i < defaultListLimit+5; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		_, err := svc.Create(ctx, u.ID, models.MeasurementRequest{Kind: models.KindHeartRate, Value: 60, MeasuredAt: &at})
		require.NoError(t, err)
	}

	list, err := svc.List(ctx, u.ID, models.MeasurementFilter{})
	require.NoError(t, err)
	assert.Len(t, list, defaultListLimit)

	list, err = svc.List(ctx, u.ID, models.MeasurementFilter{Limit: 10_000, Offset: -3})
	require.NoError(t, err)
	assert.Len(t, list, defaultListLimit+5)
}

func TestUserService(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := NewUserService(store, logging.Discard())
	measurements := NewMeasurementService(store)
	ctx := context.Background()
	u := seedUser(t, store, testEmail)

	me, err := svc.GetMe(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, testEmail, me.Email)

	m, err := measurements.Create(ctx, u.ID, models.MeasurementRequest{Kind: models.KindSteps, Value: 9000})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, u.ID))
	_, err = svc.GetMe(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = measurements.Get(ctx, u.ID, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.DeleteAccount(ctx, u.ID), ErrNotFound)
}
