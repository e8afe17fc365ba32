package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// SectionNote is one reviewer annotation rendered in the report.
type SectionNote struct {
	Section string
	Channel string
	Notes   string
}

// HistoryLine is one status transition rendered in the report.
type HistoryLine struct {
	Status    string
	ChangedBy string
	Notes     string
	At        time.Time
}

// ReviewReport aggregates everything the folder review report contains.
type ReviewReport struct {
	FolderID    string
	CourseCode  string
	CourseTitle string
	Faculty     string
	Term        string
	Status      string
	GeneratedAt time.Time
	Feedback    []SectionNote
	History     []HistoryLine
}

// ReviewReportRenderer renders folder review reports as PDF bytes.
type ReviewReportRenderer struct{}

// NewReviewReportRenderer constructs a renderer.
func NewReviewReportRenderer() *ReviewReportRenderer {
	return &ReviewReportRenderer{}
}

// Render produces the PDF document for a folder review report.
func (r *ReviewReportRenderer) Render(report ReviewReport) ([]byte, error) {
	if report.FolderID == "" {
		return nil, fmt.Errorf("report requires a folder id")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 15, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "COURSE FOLDER REVIEW REPORT", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	writeMeta := func(label, value string) {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(45, 7, label, "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 7, value, "", 1, "", false, 0, "")
	}
	writeMeta("Course", fmt.Sprintf("%s - %s", report.CourseCode, report.CourseTitle))
	writeMeta("Faculty", report.Faculty)
	writeMeta("Term", report.Term)
	writeMeta("Status", report.Status)
	writeMeta("Generated", report.GeneratedAt.Format("2006-01-02 15:04 MST"))
	pdf.Ln(6)

	if len(report.Feedback) > 0 {
		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(0, 8, "Reviewer Feedback", "B", 1, "", false, 0, "")
		pdf.Ln(2)
		for _, note := range report.Feedback {
			if strings.TrimSpace(note.Notes) == "" {
				continue
			}
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(0, 6, fmt.Sprintf("%s (%s)", sectionTitle(note.Section), note.Channel), "", 1, "", false, 0, "")
			pdf.SetFont("Arial", "", 10)
			pdf.MultiCell(0, 5, note.Notes, "", "", false)
			pdf.Ln(2)
		}
		pdf.Ln(4)
	}

	if len(report.History) > 0 {
		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(0, 8, "Status History", "B", 1, "", false, 0, "")
		pdf.Ln(2)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(40, 7, "Date", "1", 0, "C", false, 0, "")
		pdf.CellFormat(55, 7, "Status", "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, "Changed By", "1", 0, "C", false, 0, "")
		pdf.CellFormat(51, 7, "Notes", "1", 1, "C", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, line := range report.History {
			pdf.CellFormat(40, 6, line.At.Format("2006-01-02 15:04"), "1", 0, "", false, 0, "")
			pdf.CellFormat(55, 6, line.Status, "1", 0, "", false, 0, "")
			pdf.CellFormat(40, 6, line.ChangedBy, "1", 0, "", false, 0, "")
			pdf.CellFormat(51, 6, truncate(line.Notes, 40), "1", 1, "", false, 0, "")
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render review report: %w", err)
	}
	return buf.Bytes(), nil
}

func sectionTitle(key string) string {
	words := strings.Split(strings.ToLower(key), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
