package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"healthtracker/internal/models"
)

type ProfileRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) error
}

type profileRepository struct {
	DB DBTX
}

func NewProfileRepository(db DBTX) ProfileRepository {
	return &profileRepository{DB: db}
}

func (r *profileRepository) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	const q = `
		SELECT user_id, first_name, last_name, birth_date, sex, height_cm, updated_at
		FROM profiles
		WHERE user_id = $1
	`
	p := &models.Profile{}
	var (
		birthDate sql.NullTime
		height    sql.NullFloat64
	)
	err := r.DB.QueryRowContext(ctx, q, userID).
		Scan(&p.UserID, &p.FirstName, &p.LastName, &birthDate, &p.Sex, &height, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if birthDate.Valid {
		t := birthDate.Time
		p.BirthDate = &t
	}
	if height.Valid {
		h := height.Float64
		p.HeightCM = &h
	}
	return p, nil
}

func (r *profileRepository) Upsert(ctx context.Context, p *models.Profile) error {
	const q = `
		INSERT INTO profiles (user_id, first_name, last_name, birth_date, sex, height_cm, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name  = EXCLUDED.last_name,
			birth_date = EXCLUDED.birth_date,
			sex        = EXCLUDED.sex,
			height_cm  = EXCLUDED.height_cm,
			updated_at = NOW()
		RETURNING updated_at
	`
	var (
		birthDate sql.NullTime
		height    sql.NullFloat64
	)
	if p.BirthDate != nil {
		birthDate = sql.NullTime{Time: *p.BirthDate, Valid: true}
	}
	if p.HeightCM != nil {
		height = sql.NullFloat64{Float64: *p.HeightCM, Valid: true}
	}
	err := r.DB.QueryRowContext(ctx, q, p.UserID, p.FirstName, p.LastName, birthDate, p.Sex, height).
		Scan(&p.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
