package export

import (
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin     = 20.0
	pdfLineHeight = 5.0
)

// PDFExporter lays the conversation out on A4 pages: a grey header line,
// then each turn as a bold upper-case role followed by the wrapped content.
type PDFExporter struct{}

// Export writes doc as a PDF.
func (e *PDFExporter) Export(w io.Writer, doc Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	maxWidth := pageW - 2*pdfMargin
	y := pdfMargin

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.Text(pdfMargin, y, tr("EchoFlow Export - "+doc.Exported.Format("1/2/2006, 3:04:05 PM")))
	y += 10

	for _, m := range doc.Messages {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(0, 0, 0)
		pdf.Text(pdfMargin, y, strings.ToUpper(string(m.Role)))
		y += pdfLineHeight

		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(50, 50, 50)
		for _, line := range pdf.SplitText(tr(m.Content), maxWidth) {
			if y > pageH-pdfMargin {
				pdf.AddPage()
				y = pdfMargin
			}
			pdf.Text(pdfMargin, y, line)
			y += pdfLineHeight
		}
		y += pdfLineHeight
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

// Extension returns the file extension for this format.
func (e *PDFExporter) Extension() string {
	return "pdf"
}
