// Package render writes interview reports as PDF documents.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/stemsi/exstem-interview/internal/apperr"
	"github.com/stemsi/exstem-interview/internal/model"
)

// ErrBadFilename rejects names that are not a plain .pdf file name.
var ErrBadFilename = errors.New("invalid artifact filename")

// Verdict is the integrity rating for one violation category.
type Verdict struct {
	Label  string
	Count  int
	Status string
}

// IntegrityVerdicts rates each category: no face under 3, no multiple
// faces at all, looking away under 5 and tab switches under 3 are Good.
func IntegrityVerdicts(c model.ViolationCounters) []Verdict {
	rate := func(n, limit int, bad string) string {
		if n < limit {
			return "Good"
		}
		return bad
	}
	return []Verdict{
		{"Face not detected", c[model.ViolationNoFace], rate(c[model.ViolationNoFace], 3, "Warning")},
		{"Multiple faces", c[model.ViolationMultipleFaces], rate(c[model.ViolationMultipleFaces], 1, "Alert")},
		{"Looking away", c[model.ViolationLookingAway], rate(c[model.ViolationLookingAway], 5, "Warning")},
		{"Tab switches", c[model.ViolationTabSwitch], rate(c[model.ViolationTabSwitch], 3, "Warning")},
		{"Copy / paste", c[model.ViolationCopyPaste], rate(c[model.ViolationCopyPaste], 1, "Warning")},
	}
}

// ProficiencyLevel names the band a 0-100 skill score falls in.
func ProficiencyLevel(score int) string {
	switch {
	case score >= 80:
		return "Expert"
	case score >= 60:
		return "Proficient"
	case score >= 40:
		return "Intermediate"
	default:
		return "Beginner"
	}
}

// PDFRenderer renders reports into files under a directory.
type PDFRenderer struct {
	dir string
}

func NewPDFRenderer(dir string) (*PDFRenderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &PDFRenderer{dir: dir}, nil
}

func (r *PDFRenderer) path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || !strings.HasSuffix(filename, ".pdf") || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("%w: %q", ErrBadFilename, filename)
	}
	return filepath.Join(r.dir, filename), nil
}

// Render writes the document for rep. tr adds candidate, timing and integrity sections.
func (r *PDFRenderer) Render(ctx context.Context, filename string, rep *model.Report, tr *model.Transcript) error {
	target, err := r.path(filename)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	pdf := buildDocument(rep, tr)

	tmp := target + ".tmp"
	if err := pdf.OutputFileAndClose(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write pdf: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish pdf: %w", err)
	}
	return nil
}

// Open returns the rendered file for download.
func (r *PDFRenderer) Open(filename string) (io.ReadCloser, error) {
	target, err := r.path(filename)
	if err != nil {
		return nil, apperr.Validation("render.Open", "%v", err)
	}
	f, err := os.Open(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.NotFound("render.Open", "artifact %s not found", filename)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func buildDocument(rep *model.Report, tr *model.Transcript) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Interview Performance Report", true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "Interview Performance Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	if tr != nil {
		pdf.Cell(0, 7, "Candidate: "+tr.CandidateRef)
		pdf.Ln(7)
		pdf.Cell(0, 7, "Date: "+tr.EndedAt.Format("January 2, 2006 15:04"))
		pdf.Ln(7)
		pdf.Cell(0, 7, "Duration: "+tr.Duration().Round(time.Second).String())
		pdf.Ln(7)
		pdf.Cell(0, 7, fmt.Sprintf("Questions answered: %d of %d", len(tr.Answers), len(tr.Questions)))
		pdf.Ln(7)
	}
	pdf.Cell(0, 7, "Report ID: "+rep.ID.String())
	pdf.Ln(10)

	section(pdf, "Overall Score")
	pdf.SetFont("Arial", "B", 28)
	pdf.CellFormat(0, 14, fmt.Sprintf("%d / 100", rep.OverallScore), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	section(pdf, "Summary")
	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, rep.Summary, "", "L", false)
	pdf.Ln(4)

	bullets(pdf, "Strengths", rep.Strengths)
	bullets(pdf, "Areas for Improvement", rep.Improvements)

	if len(rep.SkillScores) > 0 {
		section(pdf, "Skill Assessment")
		names := make([]string, 0, len(rep.SkillScores))
		for name := range rep.SkillScores {
			names = append(names, name)
		}
		sort.Strings(names)

		pdf.SetFont("Arial", "", 11)
		for _, name := range names {
			score := rep.SkillScores[name]
			pdf.CellFormat(90, 7, name, "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 7, fmt.Sprintf("%d", score), "1", 0, "C", false, 0, "")
			pdf.CellFormat(60, 7, ProficiencyLevel(score), "1", 1, "C", false, 0, "")
		}
		pdf.Ln(4)
	}

	if tr != nil {
		section(pdf, "Interview Integrity")
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(90, 7, "Metric", "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, "Count", "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 7, "Status", "1", 1, "C", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		for _, v := range IntegrityVerdicts(tr.Proctoring) {
			pdf.CellFormat(90, 7, v.Label, "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 7, fmt.Sprintf("%d", v.Count), "1", 0, "C", false, 0, "")
			pdf.CellFormat(60, 7, v.Status, "1", 1, "C", false, 0, "")
		}
	}

	pdf.SetY(-20)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 6, "Generated "+rep.GeneratedAt.UTC().Format(time.RFC3339), "", 0, "C", false, 0, "")
	return pdf
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 9, title)
	pdf.Ln(9)
}

func bullets(pdf *gofpdf.Fpdf, title string, items []string) {
	if len(items) == 0 {
		return
	}
	section(pdf, title)
	pdf.SetFont("Arial", "", 11)
	for _, item := range items {
		pdf.MultiCell(0, 6, "- "+item, "", "L", false)
	}
	pdf.Ln(4)
}
