package certgen

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// A4 landscape in points.
const (
	pageWidth  = 841.89
	pageHeight = 595.28
)

// QR footer box geometry.
const (
	qrBoxSize   = 80.0
	qrBoxFrame  = 5.0
	qrBoxBottom = 50.0
)

// Document carries everything the composer needs to lay out one
// certificate. Dates and GPA are optional; body copy degrades when they are
// missing.
type Document struct {
	HolderName      string
	CourseName      string
	CertificateType string
	RefNo           string
	VerificationURL string
	StartDate       *time.Time
	EndDate         *time.Time
	GPA             string
	Template        TemplateInfo
}

// Composer renders Documents to PDF bytes. The QR encoder is a field so
// tests can force the degraded path.
type Composer struct {
	templateDir string
	encodeQR    func(url string) ([]byte, error)
}

func NewComposer(templateDir string) *Composer {
	return &Composer{
		templateDir: templateDir,
		encodeQR:    EncodeQR,
	}
}

// ComposePDF lays out one landscape page: background (template image or
// synthesized fallback), holder name, body paragraph, QR box, reference
// footer. A QR encoding failure degrades to a placeholder box; any other
// failure aborts composition.
func (c *Composer) ComposePDF(d Document) ([]byte, error) {
	pdf := gofpdf.New("L", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(fmt.Sprintf("Certificate - %s", d.HolderName), true)
	pdf.SetSubject(fmt.Sprintf("%s Certificate", d.CertificateType), true)
	pdf.SetAuthor("SURE Trust Certificate System", true)
	pdf.SetCreator("Certificate Automation System", true)
	pdf.AddPage()

	if d.Template.Exists {
		opts := gofpdf.ImageOptions{ReadDpi: false}
		pdf.ImageOptions(filepath.Join(c.templateDir, d.Template.Filename),
			0, 0, pageWidth, pageHeight, false, opts, 0, "")
	} else {
		c.drawFallbackBackground(pdf, d.Template.Filename)
	}

	c.drawOverlay(pdf, d)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("pdf compose: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

// drawFallbackBackground synthesizes a bordered page with a diagonal
// TEMPLATE MISSING watermark when the template asset is absent.
func (c *Composer) drawFallbackBackground(pdf *gofpdf.Fpdf, templateName string) {
	pdf.SetFillColor(253, 253, 250)
	pdf.Rect(0, 0, pageWidth, pageHeight, "F")

	pdf.SetDrawColor(44, 62, 80)
	pdf.SetLineWidth(3)
	pdf.Rect(20, 20, pageWidth-40, pageHeight-40, "D")
	pdf.SetLineWidth(1)
	pdf.Rect(30, 30, pageWidth-60, pageHeight-60, "D")

	pdf.SetAlpha(0.15, "Normal")
	pdf.TransformBegin()
	pdf.TransformRotate(30, pageWidth/2, pageHeight/2)
	pdf.SetFont("Helvetica", "B", 48)
	pdf.SetTextColor(255, 0, 0)
	pdf.SetXY(0, pageHeight/2-30)
	pdf.CellFormat(pageWidth, 50, "TEMPLATE MISSING", "", 0, "C", false, 0, "")
	pdf.TransformEnd()
	pdf.SetAlpha(1.0, "Normal")

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(255, 0, 0)
	centeredText(pdf, 50, fmt.Sprintf("Missing Template: %s", templateName))

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Times", "B", 32)
	centeredText(pdf, 100, "SURE Trust")
	pdf.SetFont("Times", "", 14)
	centeredText(pdf, 140, "(Skill Upgradation for Rural - Youth Empowerment)")
	pdf.SetFont("Times", "", 18)
	centeredText(pdf, 170, "Certificate of Completion")
}

func (c *Composer) drawOverlay(pdf *gofpdf.Fpdf, d Document) {
	nameY, contentY := 250.0, 320.0
	if !d.Template.Exists {
		nameY, contentY = 220.0, 280.0
	}

	holder := d.HolderName
	if holder == "" {
		holder = "Certificate Holder"
	}
	pdf.SetFont("Times", "B", 32)
	pdf.SetTextColor(0, 0, 0)
	centeredText(pdf, nameY, holder)

	pdf.SetFont("Times", "", 16)
	pdf.SetXY(80, contentY)
	pdf.MultiCell(pageWidth-160, 22, bodyText(d), "", "J", false)

	c.drawQRBox(pdf, d.VerificationURL)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(51, 51, 51)
	centeredText(pdf, 557, fmt.Sprintf("Reference No: %s", d.RefNo))
	pdf.SetFont("Helvetica", "", 8)
	centeredText(pdf, 572, fmt.Sprintf("Verify at: %s", d.VerificationURL))
}

// bodyText builds the paragraph under the holder name, with fallback copy
// when the training dates are missing.
func bodyText(d Document) string {
	course := d.CourseName
	if course == "" {
		course = "Unknown Course"
	}

	if d.StartDate != nil && d.EndDate != nil {
		gpa := d.GPA
		if gpa == "" {
			gpa = "8.5"
		}
		return fmt.Sprintf(
			"For successful completion of four months training in \"%s\" from %s to %s securing %s GPA, "+
				"attending the mandatory \"Life Skills Training\" sessions, and completing the services to "+
				"community launched by SURE Trust",
			course, formatDate(*d.StartDate), formatDate(*d.EndDate), gpa)
	}

	return fmt.Sprintf(
		"For successful completion of training in \"%s\" demonstrating exceptional skills and "+
			"commitment to excellence in learning at SURE Trust", course)
}

// drawQRBox embeds the QR image bottom-center inside a white frame. On
// encoder failure it draws a grey placeholder instead; the certificate is
// still produced.
func (c *Composer) drawQRBox(pdf *gofpdf.Fpdf, verificationURL string) {
	qrX := (pageWidth - qrBoxSize) / 2
	qrY := pageHeight - qrBoxSize - qrBoxBottom

	png, err := c.encodeQR(verificationURL)
	if err != nil {
		pdf.SetFillColor(240, 240, 240)
		pdf.SetDrawColor(204, 204, 204)
		pdf.Rect(qrX, qrY, qrBoxSize, qrBoxSize, "FD")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(102, 102, 102)
		pdf.SetXY(qrX, qrY+qrBoxSize/2-6)
		pdf.CellFormat(qrBoxSize, 12, "QR Code", "", 0, "C", false, 0, "")
		return
	}

	pdf.SetFillColor(255, 255, 255)
	pdf.SetDrawColor(204, 204, 204)
	pdf.Rect(qrX-qrBoxFrame, qrY-qrBoxFrame, qrBoxSize+2*qrBoxFrame, qrBoxSize+2*qrBoxFrame, "FD")

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("verification-qr", opts, bytes.NewReader(png))
	pdf.ImageOptions("verification-qr", qrX, qrY, qrBoxSize, qrBoxSize, false, opts, 0, "")
}

func centeredText(pdf *gofpdf.Fpdf, y float64, text string) {
	pdf.SetXY(0, y)
	pdf.CellFormat(pageWidth, 20, text, "", 0, "C", false, 0, "")
}

func formatDate(t time.Time) string {
	return t.Format("January 2, 2006")
}
