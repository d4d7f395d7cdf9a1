package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"healthtracker/internal/models"
)

type MeasurementRepository interface {
	Create(ctx context.Context, m *models.Measurement) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Measurement, error)
	List(ctx context.Context, userID uuid.UUID, f models.MeasurementFilter) ([]*models.Measurement, error)
	Update(ctx context.Context, m *models.Measurement) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type measurementRepository struct {
	DB DBTX
}

func NewMeasurementRepository(db DBTX) MeasurementRepository {
	return &measurementRepository{DB: db}
}

const measurementColumns = `id, user_id, kind, value, unit, measured_at, note, created_at`

func scanMeasurement(row rowScanner) (*models.Measurement, error) {
	m := &models.Measurement{}
	var kind string
	if err := row.Scan(&m.ID, &m.UserID, &kind, &m.Value, &m.Unit, &m.MeasuredAt, &m.Note, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Kind = models.MeasurementKind(kind)
	return m, nil
}

func (r *measurementRepository) Create(ctx context.Context, m *models.Measurement) error {
	const q = `
		INSERT INTO measurements (id, user_id, kind, value, unit, measured_at, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	err := r.DB.QueryRowContext(ctx, q, m.ID, m.UserID, string(m.Kind), m.Value, m.Unit, m.MeasuredAt, m.Note).
		Scan(&m.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("create measurement: %w", err)
	}
	return nil
}

// GetByID only finds measurements owned by userID.
func (r *measurementRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Measurement, error) {
	q := `SELECT ` + measurementColumns + ` FROM measurements WHERE id = $1 AND user_id = $2`
	m, err := scanMeasurement(r.DB.QueryRowContext(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get measurement: %w", err)
	}
	return m, nil
}

func (r *measurementRepository) List(ctx context.Context, userID uuid.UUID, f models.MeasurementFilter) ([]*models.Measurement, error) {
	var (
		where = []string{"user_id = $1"}
		args  = []any{userID}
	)
	if f.Kind != "" {
		args = append(args, string(f.Kind))
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("measured_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("measured_at < $%d", len(args)))
	}
	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf(`
		SELECT %s
		FROM measurements
		WHERE %s
		ORDER BY measured_at DESC, id
		LIMIT $%d OFFSET $%d
	`, measurementColumns, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	defer rows.Close()

	res := make([]*models.Measurement, 0)
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r *measurementRepository) Update(ctx context.Context, m *models.Measurement) error {
	const q = `
		UPDATE measurements
		SET kind = $1, value = $2, unit = $3, measured_at = $4, note = $5
		WHERE id = $6 AND user_id = $7
	`
	res, err := r.DB.ExecContext(ctx, q, string(m.Kind), m.Value, m.Unit, m.MeasuredAt, m.Note, m.ID, m.UserID)
	if err != nil {
		return fmt.Errorf("update measurement: %w", err)
	}
	return requireAffected(res)
}

func (r *measurementRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM measurements WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete measurement: %w", err)
	}
	return requireAffected(res)
}
