package reporting

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
)

// maxVerdictRows bounds the history table; older verdicts are summarized.
const maxVerdictRows = 200

// PDFExporter exports controller history to PDF format
type PDFExporter struct{}

// NewPDFExporter creates a new PDF exporter instance
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ExportHistory renders the current verdict, monitor registry and verdict history.
func (e *PDFExporter) ExportHistory(s *domain.HistorySummary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	e.addHeader(pdf, s)
	e.addCurrentVerdict(pdf, s)
	e.addCounters(pdf, s)
	e.addMonitors(pdf, s)
	e.addHistory(pdf, s)
	e.addFooter(pdf, s)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, s *domain.HistorySummary) {
	title := s.Title
	if title == "" {
		title = "Interest Flooding Detection Report"
	}
	pdf.SetFont("Arial", "B", 20)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 12, title, "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 6, fmt.Sprintf("Controller: %s", s.Node), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", s.GeneratedAt.Format("2006-01-02 15:04:05")), "", 1, "L", false, 0, "")
	pdf.Ln(6)
}

func (e *PDFExporter) section(pdf *gofpdf.Fpdf, title string) {
	if pdf.GetY() > 250 {
		pdf.AddPage()
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func (e *PDFExporter) addCurrentVerdict(pdf *gofpdf.Fpdf, s *domain.HistorySummary) {
	e.section(pdf, "Names Under Attack")

	if len(s.Current) == 0 {
		pdf.SetFillColor(52, 199, 89) // Green
	} else {
		pdf.SetFillColor(220, 53, 69) // Red
	}
	y := pdf.GetY()
	pdf.Rect(20, y, 170, 14, "F")
	pdf.SetXY(25, y+2)
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(160, 10, fmt.Sprintf("%d malicious name(s)", len(s.Current)), "", 0, "L", false, 0, "")
	pdf.SetY(y + 18)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(60, 60, 60)
	for _, n := range s.Current {
		pdf.CellFormat(0, 6, "- "+string(n), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func (e *PDFExporter) addCounters(pdf *gofpdf.Fpdf, s *domain.HistorySummary) {
	e.section(pdf, "Current Statistics Period")

	stats := []struct {
		label string
		value string
	}{
		{domain.SignalNumReceived, fmt.Sprintf("%d", s.Counters.MessagesReceived)},
		{domain.SignalNumSent, fmt.Sprintf("%d", s.Counters.MessagesSent)},
		{domain.SignalSizeReceived, fmt.Sprintf("%.0f B", s.Counters.BytesReceived)},
		{domain.SignalSizeSent, fmt.Sprintf("%.0f B", s.Counters.BytesSent)},
	}
	for i, stat := range stats {
		x := 20.0
		if i%2 == 1 {
			x = 105.0
		}
		pdf.SetXY(x, pdf.GetY())
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(50, 7, stat.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(0, 102, 204)
		pdf.CellFormat(35, 7, stat.value, "", 0, "R", false, 0, "")
		if i%2 == 1 {
			pdf.Ln(7)
		}
	}
	pdf.Ln(6)
}

func (e *PDFExporter) addMonitors(pdf *gofpdf.Fpdf, s *domain.HistorySummary) {
	e.section(pdf, "Monitors")

	if len(s.Monitors) == 0 {
		e.emptyNote(pdf, "No monitor has reported yet")
		return
	}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(60, 8, "Monitor", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Reachable", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "Names", "1", 0, "C", true, 0, "")
	pdf.CellFormat(60, 8, "Last Report", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, m := range s.Monitors {
		if pdf.GetY() > 270 {
			pdf.AddPage()
		}
		reachable := "no"
		if m.Bound {
			reachable = "yes"
		}
		last := "-"
		if !m.LastReportAt.IsZero() {
			last = m.LastReportAt.Format("2006-01-02 15:04:05")
		}
		pdf.CellFormat(60, 7, truncate(string(m.ID), 32), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, reachable, "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", m.TrackedNames), "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 7, last, "1", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func (e *PDFExporter) addHistory(pdf *gofpdf.Fpdf, s *domain.HistorySummary) {
	e.section(pdf, "Verdict History")

	if len(s.Verdicts) == 0 {
		e.emptyNote(pdf, "No verdict announced yet")
		return
	}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(45, 8, "Announced", "1", 0, "L", true, 0, "")
	pdf.CellFormat(95, 8, "Names", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Delivered", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for i, v := range s.Verdicts {
		if i >= maxVerdictRows {
			e.emptyNote(pdf, fmt.Sprintf("%d older verdict(s) omitted", len(s.Verdicts)-maxVerdictRows))
			break
		}
		if pdf.GetY() > 270 {
			pdf.AddPage()
		}
		names := "(cleared)"
		if !v.Cleared() {
			parts := make([]string, len(v.Names))
			for j, n := range v.Names {
				parts[j] = string(n)
			}
			names = strings.Join(parts, ", ")
		}
		if v.Cleared() {
			pdf.SetTextColor(52, 199, 89)
		} else {
			pdf.SetTextColor(220, 53, 69)
		}
		pdf.CellFormat(45, 7, v.AnnouncedAt.Format("2006-01-02 15:04:05"), "1", 0, "L", false, 0, "")
		pdf.CellFormat(95, 7, truncate(names, 55), "1", 0, "L", false, 0, "")
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(30, 7, fmt.Sprintf("%d/%d", v.Delivered, v.Monitors), "1", 1, "C", false, 0, "")
	}
}

func (e *PDFExporter) emptyNote(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Arial", "I", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 7, text, "", 1, "L", false, 0, "")
	pdf.Ln(5)
}

func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf, s *domain.HistorySummary) {
	pdf.SetY(-20)
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(3)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 5, fmt.Sprintf("floodctl | %d verdict(s) | %d monitor(s)", len(s.Verdicts), len(s.Monitors)), "", 1, "C", false, 0, "")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
