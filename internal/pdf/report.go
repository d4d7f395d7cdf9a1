package pdf

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"healthtracker/internal/models"
)

// Renderer writes a measurement report.
type Renderer interface {
	RenderReport(w io.Writer, data ReportData) error
}

type ReportData struct {
	Email        string
	Profile      *models.Profile
	From, To     *time.Time
	GeneratedAt  time.Time
	Measurements []*models.Measurement
}

// KindSummary aggregates the values of one measurement kind.
type KindSummary struct {
	Kind          models.MeasurementKind
	Unit          string
	Count         int
	Min, Max, Avg float64
}

// ReportGenerator renders A4 reports with gofpdf.
type ReportGenerator struct {
	// FontPath is an optional TTF for non-Latin text; without it the core
	// Helvetica font with cp1252 translation is used.
	FontPath string
	fontName string
}

func NewReportGenerator(fontPath string) *ReportGenerator {
	g := &ReportGenerator{FontPath: fontPath, fontName: "Helvetica"}
	if fontPath != "" {
		g.fontName = "DejaVu"
	}
	return g
}

func (g *ReportGenerator) RenderReport(w io.Writer, data ReportData) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Health report", true)
	pdf.SetAuthor("healthtracker", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	tr := func(s string) string { return s }
	if g.FontPath != "" {
		pdf.AddUTF8Font(g.fontName, "", g.FontPath)
		pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
	} else {
		tr = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	// ===== Header
	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, "HEALTH REPORT", "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 7, "Generated "+data.GeneratedAt.UTC().Format("02.01.2006 15:04 MST"), "", 1, "C", false, 0, "")
	g.hr(pdf)

	// ===== Patient
	g.sectionTitle(pdf, "Patient")
	g.kvLine(pdf, "Email", tr(data.Email))
	if p := data.Profile; p != nil {
		if name := p.FirstName + " " + p.LastName; name != " " {
			g.kvLine(pdf, "Name", tr(name))
		}
		if p.BirthDate != nil {
			g.kvLine(pdf, "Born", p.BirthDate.Format("02.01.2006"))
		}
		if p.Sex != "" {
			g.kvLine(pdf, "Sex", p.Sex)
		}
		if p.HeightCM != nil {
			g.kvLine(pdf, "Height", fmt.Sprintf("%.1f cm", *p.HeightCM))
		}
	}
	g.kvLine(pdf, "Period", period(data.From, data.To))
	g.hr(pdf)

	// ===== Summary
	g.sectionTitle(pdf, "Summary")
	summary := Summarize(data.Measurements)
	if len(summary) == 0 {
		pdf.CellFormat(0, 6, "No measurements in this period.", "", 1, "L", false, 0, "")
	} else {
		widths := []float64{50, 20, 30, 30, 40}
		g.tableHeader(pdf, widths, "Kind", "Count", "Min", "Max", "Average")
		for _, s := range summary {
			g.tableRow(pdf, widths,
				string(s.Kind),
				fmt.Sprintf("%d", s.Count),
				fmt.Sprintf("%.1f", s.Min),
				fmt.Sprintf("%.1f", s.Max),
				fmt.Sprintf("%.1f %s", s.Avg, tr(s.Unit)),
			)
		}
	}
	pdf.Ln(3)
	g.hr(pdf)

	// ===== Details
	if len(data.Measurements) > 0 {
		g.sectionTitle(pdf, "Measurements")
		widths := []float64{35, 50, 30, 55}
		g.tableHeader(pdf, widths, "Date", "Kind", "Value", "Note")
		for _, m := range data.Measurements {
			g.tableRow(pdf, widths,
				m.MeasuredAt.UTC().Format("02.01.2006 15:04"),
				string(m.Kind),
				fmt.Sprintf("%.1f %s", m.Value, tr(m.Unit)),
				tr(truncate(m.Note, 40)),
			)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// Summarize groups measurements by kind, ordered by kind name.
func Summarize(ms []*models.Measurement) []KindSummary {
	byKind := map[models.MeasurementKind]*KindSummary{}
	for _, m := range ms {
		s, ok := byKind[m.Kind]
		if !ok {
			s = &KindSummary{Kind: m.Kind, Unit: m.Unit, Min: m.Value, Max: m.Value}
			byKind[m.Kind] = s
		}
		s.Count++
		s.Avg += m.Value
		if m.Value < s.Min {
			s.Min = m.Value
		}
		if m.Value > s.Max {
			s.Max = m.Value
		}
	}
	res := make([]KindSummary, 0, len(byKind))
	for _, s := range byKind {
		s.Avg /= float64(s.Count)
		res = append(res, *s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Kind < res[j].Kind })
	return res
}

// ===== helpers =====

func period(from, to *time.Time) string {
	const layout = "02.01.2006"
	switch {
	case from != nil && to != nil:
		return from.Format(layout) + " - " + to.Format(layout)
	case from != nil:
		return "since " + from.Format(layout)
	case to != nil:
		return "until " + to.Format(layout)
	}
	return "all time"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func (g *ReportGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *ReportGenerator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(35, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *ReportGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

func (g *ReportGenerator) tableHeader(pdf *gofpdf.Fpdf, widths []float64, cols ...string) {
	pdf.SetFont(g.fontName, "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, c := range cols {
		pdf.CellFormat(widths[i], 7, c, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont(g.fontName, "", 10)
}

func (g *ReportGenerator) tableRow(pdf *gofpdf.Fpdf, widths []float64, cols ...string) {
	for i, c := range cols {
		pdf.CellFormat(widths[i], 6, c, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
}
