package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"healthtracker/internal/models"
	"healthtracker/internal/repositories"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type ProfileService struct {
	store repositories.Store
}

func NewProfileService(store repositories.Store) *ProfileService {
	return &ProfileService{store: store}
}

func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p, err := s.store.Profiles().Get(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

// Upsert replaces the whole profile of userID.
func (s *ProfileService) Upsert(ctx context.Context, userID uuid.UUID, req models.ProfileRequest) (*models.Profile, error) {
	p := &models.Profile{
		UserID:    userID,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		BirthDate: req.BirthDate,
		Sex:       req.Sex,
		HeightCM:  req.HeightCM,
	}
	if err := s.store.Profiles().Upsert(ctx, p); err != nil {
		// profile row references a user that no longer exists
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

type MeasurementService struct {
	store repositories.Store
	now   func() time.Time
}

func NewMeasurementService(store repositories.Store) *MeasurementService {
	return &MeasurementService{store: store, now: time.Now}
}

func (s *MeasurementService) Create(ctx context.Context, userID uuid.UUID, req models.MeasurementRequest) (*models.Measurement, error) {
	m, err := s.build(req)
	if err != nil {
		return nil, err
	}
	m.UserID = userID
	if err := s.store.Measurements().Create(ctx, m); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *MeasurementService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Measurement, error) {
	m, err := s.store.Measurements().GetByID(ctx, userID, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	return m, err
}

func (s *MeasurementService) List(ctx context.Context, userID uuid.UUID, f models.MeasurementFilter) ([]*models.Measurement, error) {
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidMeasurement, f.Kind)
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, fmt.Errorf("%w: to is before from", ErrInvalidMeasurement)
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	switch {
	case f.Limit <= 0:
		f.Limit = defaultListLimit
	case f.Limit > maxListLimit:
		f.Limit = maxListLimit
	}
	return s.store.Measurements().List(ctx, userID, f)
}

func (s *MeasurementService) Update(ctx context.Context, userID, id uuid.UUID, req models.MeasurementRequest) (*models.Measurement, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	m, err := s.build(req)
	if err != nil {
		return nil, err
	}
	m.ID = existing.ID
	m.UserID = userID
	m.CreatedAt = existing.CreatedAt
	if req.MeasuredAt == nil {
		m.MeasuredAt = existing.MeasuredAt
	}
	if err := s.store.Measurements().Update(ctx, m); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *MeasurementService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	err := s.store.Measurements().Delete(ctx, userID, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *MeasurementService) build(req models.MeasurementRequest) (*models.Measurement, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidMeasurement, req.Kind)
	}
	if req.Value < 0 {
		return nil, fmt.Errorf("%w: value must not be negative", ErrInvalidMeasurement)
	}
	m := &models.Measurement{
		Kind:  req.Kind,
		Value: req.Value,
		Unit:  strings.TrimSpace(req.Unit),
		Note:  strings.TrimSpace(req.Note),
	}
	if m.Unit == "" {
		m.Unit = req.Kind.DefaultUnit()
	}
	if req.MeasuredAt != nil {
		m.MeasuredAt = req.MeasuredAt.UTC()
	} else {
		m.MeasuredAt = s.now().UTC()
	}
	return m, nil
}
