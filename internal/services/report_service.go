package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"healthtracker/internal/models"
	"healthtracker/internal/pdf"
	"healthtracker/internal/repositories"
)

// maxReportRows caps how many measurements go into one report.
const maxReportRows = 2000

// ReportService renders a user's measurements as a PDF.
type ReportService struct {
	store    repositories.Store
	renderer pdf.Renderer
	log      *slog.Logger
	now      func() time.Time
}

func NewReportService(store repositories.Store, renderer pdf.Renderer, log *slog.Logger) *ReportService {
	return &ReportService{store: store, renderer: renderer, log: log, now: time.Now}
}

// WriteReport renders measurements matching f (limit and offset are ignored)
// into w. A missing profile is not an error.
func (s *ReportService) WriteReport(ctx context.Context, userID uuid.UUID, f models.MeasurementFilter, w io.Writer) error {
	if f.Kind != "" && !f.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidMeasurement, f.Kind)
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return fmt.Errorf("%w: to is before from", ErrInvalidMeasurement)
	}
	f.Limit, f.Offset = maxReportRows, 0

	user, err := s.store.Users().GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	profile, err := s.store.Profiles().Get(ctx, userID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	list, err := s.store.Measurements().List(ctx, userID, f)
	if err != nil {
		return err
	}

	if err := s.renderer.RenderReport(w, pdf.ReportData{
		Email:        user.Email,
		Profile:      profile,
		From:         f.From,
		To:           f.To,
		GeneratedAt:  s.now(),
		Measurements: list,
	}); err != nil {
		return err
	}
	s.log.Info("[report] rendered", "user_id", userID, "rows", len(list))
	return nil
}
