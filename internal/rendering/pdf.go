package rendering

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Renderer turns documents into PDF bytes.
type Renderer struct {
	opts Options
}

func NewRenderer(opts Options) *Renderer {
	return &Renderer{opts: opts.withDefaults()}
}

func (r *Renderer) Layout(doc Document) []Page {
	return Layout(doc, r.opts)
}

// Render lays the document out and draws it. The whole PDF is produced in
// memory before it is returned.
func (r *Renderer) Render(doc Document) ([]byte, error) {
	pages := r.Layout(doc)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: PageWidth, Ht: PageHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("Invoice "+doc.InvoiceNumber, true)
	pdf.SetCreator(r.opts.BrandName, true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, page := range pages {
		pdf.AddPage()
		for _, el := range page.Elements {
			drawElement(pdf, tr, el)
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render invoice %s: %w", doc.InvoiceNumber, err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write invoice %s: %w", doc.InvoiceNumber, err)
	}
	return buf.Bytes(), nil
}

func drawElement(pdf *gofpdf.Fpdf, tr func(string) string, el Element) {
	switch el.Kind {
	case KindRect:
		pdf.SetFillColor(el.Color.R, el.Color.G, el.Color.B)
		pdf.Rect(el.X, el.Y, el.W, el.H, "F")
	case KindLine:
		pdf.SetDrawColor(el.Color.R, el.Color.G, el.Color.B)
		pdf.SetLineWidth(1)
		pdf.Line(el.X, el.Y, el.X2, el.Y2)
	case KindText:
		style := ""
		if el.Bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, el.Size)
		pdf.SetTextColor(el.Color.R, el.Color.G, el.Color.B)

		text := tr(el.Text)
		if el.MaxWidth <= 0 {
			pdf.Text(el.X, el.Y, text)
			return
		}
		// Wrapped lines continue below the baseline, as the description
		// column and note lines allow.
		for i, line := range pdf.SplitText(text, el.MaxWidth) {
			pdf.Text(el.X, el.Y+float64(i)*(el.Size+2), line)
		}
	}
}
