// Package report renders the downloadable credit report PDF.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/opensource-finance/lendscore/internal/domain"
)

// ContentType of rendered reports.
const ContentType = "application/pdf"

// Section titles.
const (
	Title                  = "Credit Scoring & Eligibility Report"
	TitleAssessment        = "Assessment Result"
	TitleReasons           = "Key Factors for Ineligibility"
	TitleImprovement       = "Suggestions for Improvement"
	TitleMaintainGoodScore = "Recommendations to Maintain Your Good Score"
)

// Document is everything a report shows.
type Document struct {
	Score       int
	Probability float64
	Verdict     string
	Reasons     []string
	Suggestions []string
}

// FromAssessment builds a Document from an assessment.
func FromAssessment(a *domain.Assessment) Document {
	return Document{
		Score:       a.Prediction.CreditScore,
		Probability: a.Prediction.ProbabilityOfDefault,
		Verdict:     a.Report.Verdict,
		Reasons:     a.Report.Reasons(),
		Suggestions: a.Report.Suggestions(),
	}
}

// FileName is the download name of a report for score.
func FileName(score int) string {
	return fmt.Sprintf("credit_report_score_%d.pdf", score)
}

// Renderer lays out reports on A4 pages.
type Renderer struct {
	// Compress deflates page streams. Tests turn it off to inspect text.
	Compress bool

	// CreatedAt is stamped into the PDF metadata when set.
	CreatedAt time.Time
}

// NewRenderer returns a renderer with compression on.
func NewRenderer() *Renderer {
	return &Renderer{Compress: true}
}

// Render produces the PDF bytes for doc. The suggestions title depends on
// whether there are reasons.
func (r *Renderer) Render(doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.Compress)
	if !r.CreatedAt.IsZero() {
		pdf.SetCreationDate(r.CreatedAt)
	}
	pdf.SetTitle(Title, true)
	pdf.AddPage()

	// Core fonts are cp1252.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(0, 12, tr(Title), "", 1, "C", true, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, tr(TitleAssessment), "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, tr(fmt.Sprintf("Predicted Credit Score: %d", doc.Score)), "", "L", false)
	pdf.MultiCell(0, 6, tr(fmt.Sprintf("Probability of Default: %.2f%%", doc.Probability*100)), "", "L", false)
	pdf.MultiCell(0, 6, tr(fmt.Sprintf("Eligibility Status: %s", doc.Verdict)), "", "L", false)
	pdf.Ln(5)

	if len(doc.Reasons) > 0 || len(doc.Suggestions) > 0 {
		y := pdf.GetY()
		pdf.Line(10, y, 200, y)
		pdf.Ln(5)
	}

	if len(doc.Reasons) > 0 {
		section(pdf, tr, TitleReasons, [3]int{220, 50, 50}, doc.Reasons)
	}

	if len(doc.Suggestions) > 0 {
		title := TitleMaintainGoodScore
		if len(doc.Reasons) > 0 {
			title = TitleImprovement
		}
		section(pdf, tr, title, [3]int{0, 100, 0}, doc.Suggestions)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

// section writes a coloured heading followed by a numbered list.
func section(pdf *fpdf.Fpdf, tr func(string) string, title string, rgb [3]int, items []string) {
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(rgb[0], rgb[1], rgb[2])
	pdf.CellFormat(0, 8, tr(title), "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.SetTextColor(0, 0, 0)
	for i, item := range items {
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, item)), "", "L", false)
	}
	pdf.Ln(5)
}
