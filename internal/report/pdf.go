package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/DukeRupert/defectlens/internal/domain"
	"github.com/DukeRupert/defectlens/internal/presentation"
	"github.com/go-pdf/fpdf"
)

// ErrNoResult is returned when asked to render data without a completed analysis.
var ErrNoResult = errors.New("report has no completed analysis")

// =============================================================================
// PDF Generator
// =============================================================================

// PDFGenerator generates PDF reports from analysis data.
type PDFGenerator struct {
	// Page dimensions (A4 in mm)
	pageWidth  float64
	pageHeight float64
	margin     float64

	// Content area
	contentWidth float64

	// Width of the embedded preview
	imageWidth float64
}

// NewPDFGenerator creates a new PDF generator with default settings.
func NewPDFGenerator() *PDFGenerator {
	margin := 15.0
	pageWidth := 210.0 // A4 width in mm
	return &PDFGenerator{
		pageWidth:    pageWidth,
		pageHeight:   297.0, // A4 height in mm
		margin:       margin,
		contentWidth: pageWidth - (2 * margin),
		imageWidth:   120,
	}
}

// ContentType returns the MIME type of generated reports.
func (g *PDFGenerator) ContentType() string {
	return "application/pdf"
}

// Generate creates a PDF report and writes it to the provided writer.
func (g *PDFGenerator) Generate(ctx context.Context, data *Data, w io.Writer) (int64, error) {
	if !data.HasResult() {
		return 0, ErrNoResult
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Set document metadata
	pdf.SetTitle("Building Defect Report", true)
	pdf.SetAuthor("DefectLens", true)
	pdf.SetCreator("DefectLens", true)

	// Enable automatic page breaks with footer space
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		g.addFooter(pdf, data)
	})

	pdf.AddPage()
	g.addHeader(pdf, data, tr)
	g.addImage(pdf, data)
	g.addCondition(pdf, data, tr)
	g.addDefects(pdf, data, tr)

	if err := pdf.Error(); err != nil {
		return 0, fmt.Errorf("pdf generation error: %w", err)
	}

	// Write to buffer to count bytes
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("pdf output error: %w", err)
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// =============================================================================
// Header
// =============================================================================

func (g *PDFGenerator) addHeader(pdf *fpdf.Fpdf, data *Data, tr func(string) string) {
	// Navy header bar
	r, gr, b := HexToRGB(BrandColors.Navy)
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(0, 0, g.pageWidth, 40, "F")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetXY(g.margin, 12)
	pdf.Cell(0, 10, "Building Defect Report")

	if img := data.Report.Image; img != nil {
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetXY(g.margin, 25)
		pdf.Cell(0, 6, tr(fmt.Sprintf("%s (%.1f MB)", TruncateText(img.Filename, 60), img.SizeMB)))
	}

	r, gr, b = HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)
	pdf.SetY(50)
}

// =============================================================================
// Preview Image
// =============================================================================

// addImage embeds the preview. Images the PDF writer cannot embed, or that
// do not decode, are skipped.
func (g *PDFGenerator) addImage(pdf *fpdf.Fpdf, data *Data) {
	if data.Image == nil || len(data.Image.Data) == 0 {
		return
	}

	var imageType string
	switch domain.NormalizeContentType(data.Image.ContentType) {
	case "image/jpeg":
		imageType = "JPG"
	case "image/png":
		imageType = "PNG"
	default:
		return
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data.Image.Data))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return
	}

	opts := fpdf.ImageOptions{ImageType: imageType}
	pdf.RegisterImageOptionsReader("preview", opts, bytes.NewReader(data.Image.Data))

	width := g.imageWidth
	height := width * float64(cfg.Height) / float64(cfg.Width)
	if maxHeight := 100.0; height > maxHeight {
		width = width * maxHeight / height
		height = maxHeight
	}

	x := (g.pageWidth - width) / 2
	pdf.ImageOptions("preview", x, pdf.GetY(), width, height, false, opts, 0, "")
	pdf.SetY(pdf.GetY() + height + 8)
}

// =============================================================================
// Overall Condition
// =============================================================================

func (g *PDFGenerator) addCondition(pdf *fpdf.Fpdf, data *Data, tr func(string) string) {
	cond := data.Report.Condition

	g.addSectionHeader(pdf, "Overall Condition")

	// Condition badge
	r, gr, b := HexToRGB(PaletteColor(cond.Color))
	pdf.SetFillColor(r, gr, b)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(40, 9, tr(cond.Label), "", 1, "C", true, 0, "")
	pdf.Ln(4)

	r, gr, b = HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)
	if cond.Summary != "" {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(g.contentWidth, 6, tr(cond.Summary), "", "L", false)
	}
	pdf.Ln(8)
}

// =============================================================================
// Defects
// =============================================================================

func (g *PDFGenerator) addDefects(pdf *fpdf.Fpdf, data *Data, tr func(string) string) {
	g.addSectionHeader(pdf, fmt.Sprintf("Detected Defects (%d)", len(data.Report.Defects)))

	if len(data.Report.Defects) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Cell(0, 10, "No defects were detected in this image.")
		return
	}

	for i, defect := range data.Report.Defects {
		// Keep each defect's heading with its confidence bar
		if pdf.GetY() > g.pageHeight-52 {
			pdf.AddPage()
		}
		g.addDefect(pdf, defect, tr)

		if i < len(data.Report.Defects)-1 {
			pdf.Ln(5)
			r, gr, b := HexToRGB(BrandColors.Border)
			pdf.SetDrawColor(r, gr, b)
			pdf.Line(g.margin, pdf.GetY(), g.pageWidth-g.margin, pdf.GetY())
			pdf.Ln(5)
		}
	}
}

func (g *PDFGenerator) addDefect(pdf *fpdf.Fpdf, defect presentation.DefectCard, tr func(string) string) {
	accent := PaletteColor(defect.Color)

	// Accent bar beside the label
	r, gr, b := HexToRGB(accent)
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(g.margin, pdf.GetY(), 3, 7, "F")

	pdf.SetX(g.margin + 6)
	pdf.SetFont("Helvetica", "B", 12)
	r, gr, b = HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)
	pdf.CellFormat(g.contentWidth-46, 7, tr(defect.Label), "", 0, "L", false, 0, "")

	// Confidence, right aligned
	pdf.SetFont("Helvetica", "B", 10)
	r, gr, b = HexToRGB(accent)
	pdf.SetTextColor(r, gr, b)
	pdf.CellFormat(40, 7, fmt.Sprintf("%d%% (%s)", defect.Percent, defect.Bucket), "", 1, "R", false, 0, "")
	pdf.Ln(2)

	// Confidence bar
	r, gr, b = HexToRGB(BrandColors.Border)
	pdf.SetFillColor(r, gr, b)
	barY := pdf.GetY()
	pdf.Rect(g.margin+6, barY, g.contentWidth-6, 2, "F")
	r, gr, b = HexToRGB(accent)
	pdf.SetFillColor(r, gr, b)
	if defect.Percent > 0 {
		pdf.Rect(g.margin+6, barY, (g.contentWidth-6)*float64(defect.Percent)/100, 2, "F")
	}
	pdf.SetY(barY + 5)

	r, gr, b = HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetX(g.margin + 6)
	pdf.MultiCell(g.contentWidth-6, 5, tr(defect.Description), "", "L", false)
}

// =============================================================================
// Helper Methods
// =============================================================================

func (g *PDFGenerator) addSectionHeader(pdf *fpdf.Fpdf, title string) {
	// Draw navy underline
	r, gr, b := HexToRGB(BrandColors.Navy)
	pdf.SetDrawColor(r, gr, b)
	pdf.SetLineWidth(0.5)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(r, gr, b)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)

	pdf.Line(g.margin, pdf.GetY(), g.pageWidth-g.margin, pdf.GetY())
	pdf.SetLineWidth(0.2)
	pdf.Ln(6)

	// Reset text color
	r, gr, b = HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)
}

func (g *PDFGenerator) addFooter(pdf *fpdf.Fpdf, data *Data) {
	pdf.SetY(-15)

	// Draw separator line
	r, gr, b := HexToRGB(BrandColors.Border)
	pdf.SetDrawColor(r, gr, b)
	pdf.Line(g.margin, pdf.GetY()-3, g.pageWidth-g.margin, pdf.GetY()-3)

	// Footer text
	r, gr, b = HexToRGB(BrandColors.TextMuted)
	pdf.SetTextColor(r, gr, b)
	pdf.SetFont("Helvetica", "", 8)

	// Left: generation date
	pdf.Cell(0, 10, "Generated: "+FormatDateTime(data.GeneratedAt)+". AI findings should be confirmed by a qualified surveyor.")

	// Right: page number
	pdf.SetX(-g.margin - 30)
	pdf.CellFormat(30, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
}
