package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthtracker/internal/models"
)

func measurement(kind models.MeasurementKind, v float64, at time.Time) *models.Measurement {
	return &models.Measurement{ID: uuid.New(), Kind: kind, Value: v, Unit: kind.DefaultUnit(), MeasuredAt: at}
}

func TestSummarize(t *testing.T) {
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	got := Summarize([]*models.Measurement{
		measurement(models.KindWeight, 61, at),
		measurement(models.KindHeartRate, 70, at),
		measurement(models.KindWeight, 59, at),
		measurement(models.KindWeight, 63, at),
	})
	require.Len(t, got, 2)

	assert.Equal(t, models.KindHeartRate, got[0].Kind)
	assert.Equal(t, 1, got[0].Count)

	w := got[1]
	assert.Equal(t, models.KindWeight, w.Kind)
	assert.Equal(t, 3, w.Count)
	assert.Equal(t, 59.0, w.Min)
	assert.Equal(t, 63.0, w.Max)
	assert.InDelta(t, 61.0, w.Avg, 1e-9)
	assert.Equal(t, "kg", w.Unit)

	assert.Empty(t, Summarize(nil))
}

func TestRenderReport(t *testing.T) {
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	height := 168.0
	from := at.Add(-24 * time.Hour)

	var ms []*models.Measurement
	for i := 0; i < 120; i++ {
		m := measurement(models.KindWeight, 60+float64(i%5), at.Add(time.Duration(i)*time.Hour))
		m.Note = "after breakfast, Zoë"
		ms = append(ms, m)
	}

	var buf bytes.Buffer
	err := NewReportGenerator("").RenderReport(&buf, ReportData{
		Email:        "a@x.com",
		Profile:      &models.Profile{FirstName: "Alice", LastName: "Smith", Sex: "female", HeightCM: &height, BirthDate: &from},
		From:         &from,
		GeneratedAt:  at,
		Measurements: ms,
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestRenderReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReportGenerator("").RenderReport(&buf, ReportData{Email: "a@x.com", GeneratedAt: time.Now()}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestRenderReport_MissingFont(t *testing.T) {
	var buf bytes.Buffer
	err := NewReportGenerator("/nonexistent/font.ttf").RenderReport(&buf, ReportData{Email: "a@x.com"})
	assert.Error(t, err)
}

func TestPeriod(t *testing.T) {
	a := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "all time", period(nil, nil))
	assert.Equal(t, "since 01.03.2024", period(&a, nil))
	assert.Equal(t, "until 08.03.2024", period(nil, &b))
	assert.Equal(t, "01.03.2024 - 08.03.2024", period(&a, &b))
}
