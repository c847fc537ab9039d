package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// =============================================================================
// PDF Renderer
// =============================================================================

// PDFRenderer renders documents to A4 PDFs.
type PDFRenderer struct {
	// Page dimensions (A4 in mm)
	pageWidth  float64
	pageHeight float64
	margin     float64

	// Content area
	contentWidth float64
}

// NewPDFRenderer creates a new PDF renderer with default settings.
func NewPDFRenderer() *PDFRenderer {
	margin := 18.0
	pageWidth := 210.0 // A4 width in mm
	return &PDFRenderer{
		pageWidth:    pageWidth,
		pageHeight:   297.0, // A4 height in mm
		margin:       margin,
		contentWidth: pageWidth - (2 * margin),
	}
}

// Render produces the PDF bytes for doc using tmpl.
func (g *PDFRenderer) Render(ctx context.Context, doc *Document, tmpl Template) ([]byte, error) {
	if doc == nil || strings.TrimSpace(doc.Name) == "" {
		return nil, ErrEmptyDocument
	}
	colors, ok := palettes[tmpl]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, tmpl)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(g.margin, g.margin, g.margin)
	pdf.SetAutoPageBreak(true, 20)

	// Core fonts are cp1252; translate so accented names survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(doc.Name+" - Resume", true)
	pdf.SetAuthor(doc.Name, true)
	pdf.SetCreator("Folio", true)

	pdf.SetFooterFunc(func() {
		g.addFooter(pdf, colors)
	})

	pdf.AddPage()
	switch tmpl {
	case TemplateModern:
		g.addModernHeader(pdf, doc, colors, tr)
	default:
		g.addClassicHeader(pdf, doc, colors, tr)
	}

	if doc.Summary != "" {
		g.addSectionHeader(pdf, "Summary", colors, tr)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(g.contentWidth, 5, tr(doc.Summary), "", "L", false)
		pdf.Ln(4)
	}

	for _, section := range doc.Sections {
		g.addSection(pdf, section, colors, tr)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("pdf generation error: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output error: %w", err)
	}
	return buf.Bytes(), nil
}

// =============================================================================
// Headers
// =============================================================================

func (g *PDFRenderer) addClassicHeader(pdf *fpdf.Fpdf, doc *Document, colors palette, tr func(string) string) {
	r, gr, b := HexToRGB(colors.TextDark)
	pdf.SetTextColor(r, gr, b)
	pdf.SetFont("Times", "B", 24)
	pdf.CellFormat(g.contentWidth, 12, tr(doc.Name), "", 1, "C", false, 0, "")

	if doc.Headline != "" {
		r, gr, b = HexToRGB(colors.TextMuted)
		pdf.SetTextColor(r, gr, b)
		pdf.SetFont("Times", "I", 12)
		pdf.CellFormat(g.contentWidth, 7, tr(doc.Headline), "", 1, "C", false, 0, "")
	}
	if len(doc.Contact) > 0 {
		pdf.SetFont("Times", "", 10)
		pdf.CellFormat(g.contentWidth, 6, tr(strings.Join(doc.Contact, "  |  ")), "", 1, "C", false, 0, "")
	}

	pdf.Ln(3)
	r, gr, b = HexToRGB(colors.Border)
	pdf.SetDrawColor(r, gr, b)
	pdf.Line(g.margin, pdf.GetY(), g.pageWidth-g.margin, pdf.GetY())
	pdf.Ln(6)
}

func (g *PDFRenderer) addModernHeader(pdf *fpdf.Fpdf, doc *Document, colors palette, tr func(string) string) {
	// Accent bar across the top of the first page
	r, gr, b := HexToRGB(colors.Accent)
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(0, 0, g.pageWidth, 42, "F")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetXY(g.margin, 12)
	pdf.Cell(0, 10, tr(doc.Name))

	if doc.Headline != "" {
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetXY(g.margin, 24)
		pdf.Cell(0, 7, tr(doc.Headline))
	}
	if len(doc.Contact) > 0 {
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetXY(g.margin, 32)
		pdf.Cell(0, 6, tr(strings.Join(doc.Contact, "   ")))
	}

	r, gr, b = HexToRGB(colors.TextDark)
	pdf.SetTextColor(r, gr, b)
	pdf.SetXY(g.margin, 52)
}

// =============================================================================
// Sections
// =============================================================================

func (g *PDFRenderer) addSection(pdf *fpdf.Fpdf, section Section, colors palette, tr func(string) string) {
	g.addSectionHeader(pdf, section.Heading, colors, tr)

	for _, e := range section.Entries {
		if e.Title != "" || e.Period != "" {
			pdf.SetFont("Helvetica", "B", 11)
			pdf.CellFormat(g.contentWidth-40, 6, tr(e.Title), "", 0, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 9)
			pdf.CellFormat(40, 6, tr(e.Period), "", 1, "R", false, 0, "")
		}
		if e.Subtitle != "" {
			r, gr, b := HexToRGB(colors.TextMuted)
			pdf.SetTextColor(r, gr, b)
			pdf.SetFont("Helvetica", "I", 10)
			pdf.Cell(0, 5, tr(e.Subtitle))
			pdf.Ln(5)
			r, gr, b = HexToRGB(colors.TextDark)
			pdf.SetTextColor(r, gr, b)
		}

		pdf.SetFont("Helvetica", "", 10)
		for _, line := range e.Lines {
			pdf.SetX(g.margin + 4)
			pdf.MultiCell(g.contentWidth-4, 5, tr("- "+line), "", "L", false)
		}
		pdf.Ln(3)
	}
	pdf.Ln(2)
}

// =============================================================================
// Helper Methods
// =============================================================================

func (g *PDFRenderer) addSectionHeader(pdf *fpdf.Fpdf, title string, colors palette, tr func(string) string) {
	r, gr, b := HexToRGB(colors.Accent)
	pdf.SetDrawColor(r, gr, b)
	pdf.SetLineWidth(0.4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(r, gr, b)
	pdf.Cell(0, 8, tr(strings.ToUpper(title)))
	pdf.Ln(9)

	pdf.Line(g.margin, pdf.GetY(), g.pageWidth-g.margin, pdf.GetY())
	pdf.Ln(4)

	r, gr, b = HexToRGB(colors.TextDark)
	pdf.SetTextColor(r, gr, b)
}

func (g *PDFRenderer) addFooter(pdf *fpdf.Fpdf, colors palette) {
	pdf.SetY(-15)

	r, gr, b := HexToRGB(colors.TextMuted)
	pdf.SetTextColor(r, gr, b)
	pdf.SetFont("Helvetica", "", 8)

	pdf.SetX(-g.margin - 30)
	pdf.CellFormat(30, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
}

var _ Renderer = (*PDFRenderer)(nil)
