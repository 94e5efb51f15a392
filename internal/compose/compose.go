// Package compose renders issued cheat sheets as PDF documents.
package compose

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/kwarc/cheatsheets/internal/identity"
	"github.com/kwarc/cheatsheets/internal/logging"
	"github.com/kwarc/cheatsheets/internal/qr"
	"github.com/kwarc/cheatsheets/internal/watermark"
)

// A4 portrait in points.
const (
	pageW  = 595.28
	pageH  = 841.89
	margin = 36.0

	headerH   = 180.0
	headerQR  = 150.0
	footerQR  = 90.0
	rowHeight = 18.0
)

// Note is printed in red between the header and the write area.
var Note = []string{
	"NOTE: Only the lower box should contain your cheatsheet.",
	"The top part is reserved for reference and will not appear after scanning.",
}

// PlaceholderText replaces the QR code when no code could be rendered.
const PlaceholderText = "QR code unavailable"

const qrImageName = "identity-qr"

// Composer lays out a sheet.
type Composer struct {
	encoder *qr.Encoder
	logger  logging.Logger
}

// New builds a Composer.
func New(encoder *qr.Encoder, l logging.Logger) *Composer {
	return &Composer{encoder: encoder, logger: l.With("module", "compose")}
}

// Rows returns the labelled header lines in print order.
func Rows(s identity.Sheet) [][2]string {
	return [][2]string{
		{"Course Name", s.CourseName},
		{watermark.LabelCourseID, s.CourseID},
		{watermark.LabelInstanceID, s.InstanceID},
		{watermark.LabelUniversityID, s.UniversityID},
		{watermark.LabelStudentName, s.StudentName},
		{"Student Id", s.StudentID},
		{watermark.LabelQuizID, s.WeekID},
		{watermark.LabelDownloadedAt, s.DownloadDate},
	}
}

// WatermarkText is the tiled background line.
func WatermarkText(s identity.Sheet) string {
	return fmt.Sprintf("%s | %s | %s", s.StudentName, s.StudentID, s.WeekID)
}

// Render lays out the sheet. qrContent is embedded twice, in the header and
// the footer; when it is empty or cannot be encoded a visible placeholder is
// drawn instead and rendering continues.
func (c *Composer) Render(ctx context.Context, s identity.Sheet, qrContent []byte) ([]byte, error) {
	doc := gofpdf.New("P", "pt", "A4", "")
	doc.SetTitle("Cheat sheet "+s.CourseID+" "+s.WeekID, true)
	doc.SetAutoPageBreak(false, 0)
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.AddPage()

	c.watermark(doc, tr(WatermarkText(s)))

	// header
	doc.SetDrawColor(0, 0, 0)
	doc.SetLineWidth(1)
	doc.Rect(margin, margin, pageW-2*margin, headerH, "D")
	doc.SetFont("Helvetica", "", 11)
	doc.SetTextColor(0, 0, 0)
	for i, row := range Rows(s) {
		doc.Text(margin+12, margin+24+float64(i)*rowHeight, tr(row[0]+": "+row[1]))
	}

	hasQR := c.registerQR(ctx, doc, qrContent)
	c.drawQR(doc, hasQR, pageW-margin-headerQR-10, margin+(headerH-headerQR)/2, headerQR)

	// note
	noteY := margin + headerH + 18
	doc.SetFont("Helvetica", "B", 10)
	doc.SetTextColor(200, 0, 0)
	for i, line := range Note {
		doc.Text(margin, noteY+float64(i)*13, line)
	}

	// write area
	areaY := noteY + 26
	areaH := pageH - margin - footerQR - 12 - areaY
	doc.SetDrawColor(60, 60, 60)
	doc.Rect(margin, areaY, pageW-2*margin, areaH, "D")

	c.drawQR(doc, hasQR, pageW-margin-footerQR, pageH-margin-footerQR, footerQR)

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("compose output: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Composer) registerQR(ctx context.Context, doc *gofpdf.Fpdf, content []byte) bool {
	if len(content) == 0 {
		c.logger.Warn(ctx, "no qr content, drawing placeholder")
		return false
	}
	png, err := c.encoder.PNG(content)
	if err != nil {
		c.logger.Warn(ctx, "qr encoding failed, drawing placeholder", "error", err)
		return false
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader(qrImageName, opts, bytes.NewReader(png))
	if err := doc.Error(); err != nil {
		c.logger.Warn(ctx, "qr image rejected, drawing placeholder", "error", err)
		doc.ClearError()
		return false
	}
	return true
}

func (c *Composer) drawQR(doc *gofpdf.Fpdf, hasQR bool, x, y, size float64) {
	if hasQR {
		doc.ImageOptions(qrImageName, x, y, size, size, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		return
	}
	doc.SetDrawColor(150, 150, 150)
	doc.SetDashPattern([]float64{4, 3}, 0)
	doc.Rect(x, y, size, size, "D")
	doc.SetDashPattern([]float64{}, 0)
	doc.SetFont("Helvetica", "", 8)
	doc.SetTextColor(150, 150, 150)
	doc.SetXY(x, y+size/2-5)
	doc.CellFormat(size, 10, PlaceholderText, "", 0, "C", false, 0, "")
}

// watermark tiles text across the page, rotated and translucent.
func (c *Composer) watermark(doc *gofpdf.Fpdf, text string) {
	doc.SetFont("Helvetica", "", 14)
	doc.SetTextColor(128, 128, 128)
	doc.SetAlpha(0.13, "Normal")
	tw := doc.GetStringWidth(text) + 60
	for y := 80.0; y < pageH+100; y += 120 {
		for x := -100.0; x < pageW; x += tw {
			doc.TransformBegin()
			doc.TransformRotate(35, x, y)
			doc.Text(x, y, text)
			doc.TransformEnd()
		}
	}
	doc.SetAlpha(1, "Normal")
}
