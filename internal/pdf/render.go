// ABOUTME: Draws a laid-out document with fpdf.
// ABOUTME: Colour roles map to a fixed palette; images are embedded as JPEG.

package pdf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/harper/eureka/internal/layout"
)

type rgb struct{ r, g, b int }

var background = rgb{255, 255, 255}

var palette = map[layout.Color]rgb{
	layout.ColorText:    {33, 37, 41},
	layout.ColorMuted:   {120, 124, 130},
	layout.ColorHeading: {17, 24, 39},
	layout.ColorAccent:  {59, 130, 246},
	layout.ColorDanger:  {200, 40, 40},
	layout.ColorSuccess: {22, 140, 70},
	layout.ColorLink:    {37, 99, 235},
	layout.ColorRule:    {205, 208, 214},
}

func colorOf(c layout.Color) rgb {
	if v, ok := palette[c]; ok {
		return v
	}
	return palette[layout.ColorText]
}

var jpegOptions = fpdf.ImageOptions{ImageType: "JPG"}

// Render writes doc as a PDF to w.
func Render(doc *layout.Document, fc FontConfig, w io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render: %v", r)
		}
	}()

	g := doc.Geometry
	p := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: g.Width, Ht: g.Height},
	})
	p.SetMargins(g.Margins.Left, g.Margins.Top, g.Margins.Right)
	p.SetAutoPageBreak(false, 0)
	p.SetTitle(doc.Title, true)
	p.SetCreator("eureka", true)

	fonts, err := setupFonts(p, fc)
	if err != nil {
		return err
	}

	registered := map[string]bool{}
	for _, page := range doc.Pages {
		p.AddPage()
		p.SetFillColor(background.r, background.g, background.b)
		p.Rect(0, 0, g.Width, g.Height, "F")

		for _, op := range page.Ops {
			switch op.Kind {
			case layout.OpText:
				drawText(p, fonts, op)
			case layout.OpRule:
				c := colorOf(op.Color)
				p.SetDrawColor(c.r, c.g, c.b)
				p.SetLineWidth(0.15)
				p.Line(op.X, op.Y, op.X+op.W, op.Y)
			case layout.OpImage:
				if op.Image == nil {
					continue
				}
				if !registered[op.Image.ID] {
					p.RegisterImageOptionsReader(op.Image.ID, jpegOptions, bytes.NewReader(op.Image.Data))
					registered[op.Image.ID] = true
				}
				p.ImageOptions(op.Image.ID, op.X, op.Y, op.W, op.H, false, jpegOptions, 0, "")
			}
		}
		if err := p.Error(); err != nil {
			return fmt.Errorf("page %d: %w", page.Number, err)
		}
	}
	return p.Output(w)
}

func drawText(p *fpdf.Fpdf, fonts fontSet, op layout.Op) {
	if op.Text == "" {
		return
	}
	c := colorOf(op.Color)
	p.SetTextColor(c.r, c.g, c.b)
	p.SetFont(fonts.family, fonts.style(op.Font), op.Font.Size)

	// Centre the glyphs vertically in the line box.
	size := op.Font.Size * layout.PtToMM
	baseline := op.Y + op.H/2 + size*0.35
	p.Text(op.X, baseline, fonts.translate(op.Text))

	if op.Link != "" {
		p.LinkString(op.X, op.Y, op.W, op.H, op.Link)
	}
}
