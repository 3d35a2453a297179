// Package render implements view.Painter for PNG images and terminal cells.
package render

import (
	"fmt"
	"image"
	"io"

	"github.com/fogleman/gg"

	"nodeflow/internal/geometry"
	"nodeflow/internal/style"
	"nodeflow/internal/view"
)

// PNG paints onto an in-memory RGBA image.
type PNG struct {
	dc      *gg.Context
	metrics *geometry.FontMetrics
}

func NewPNG(width, height int, m *geometry.FontMetrics) *PNG {
	return &PNG{dc: gg.NewContext(width, height), metrics: m}
}

// Snapshot returns the image painted so far.
func (p *PNG) Snapshot() image.Image { return p.dc.Image() }

func (p *PNG) Clear(bg style.Color) {
	p.dc.SetColor(bg)
	p.dc.Clear()
}

// finish fills and strokes the current path.
func (p *PNG) finish(fill style.Color, pen view.Pen) {
	if fill.A > 0 {
		p.dc.SetColor(fill)
		p.dc.FillPreserve()
	}
	if pen.Width > 0 && pen.Color.A > 0 {
		p.dc.SetColor(pen.Color)
		p.dc.SetLineWidth(pen.Width)
		p.dc.StrokePreserve()
	}
	p.dc.ClearPath()
}

func (p *PNG) RoundedRect(r geometry.Rect, radius float64, fill style.Color, pen view.Pen) {
	if radius > 0 {
		p.dc.DrawRoundedRectangle(r.X, r.Y, r.W, r.H, radius)
	} else {
		p.dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	}
	p.finish(fill, pen)
}

func (p *PNG) Ellipse(c geometry.Point, rx, ry float64, fill style.Color, pen view.Pen) {
	p.dc.DrawEllipse(c.X, c.Y, rx, ry)
	p.finish(fill, pen)
}

func (p *PNG) Line(a, b geometry.Point, pen view.Pen) {
	p.dc.DrawLine(a.X, a.Y, b.X, b.Y)
	p.finish(style.Color{}, pen)
}

func (p *PNG) Curve(c geometry.Bezier, pen view.Pen) {
	p.dc.MoveTo(c.P0.X, c.P0.Y)
	p.dc.CubicTo(c.C1.X, c.C1.Y, c.C2.X, c.C2.Y, c.P3.X, c.P3.Y)
	p.finish(style.Color{}, pen)
}

func (p *PNG) Text(at geometry.Point, text string, c style.Color, bold bool) {
	if text == "" {
		return
	}
	p.dc.SetFontFace(p.metrics.Face(bold))
	p.dc.SetColor(c)
	p.dc.DrawStringAnchored(text, at.X, at.Y, 0, 1)
}

func (p *PNG) Image(r geometry.Rect, img image.Image) {
	b := img.Bounds()
	if b.Empty() || r.W <= 0 || r.H <= 0 {
		return
	}
	p.dc.Push()
	p.dc.Translate(r.X, r.Y)
	p.dc.Scale(r.W/float64(b.Dx()), r.H/float64(b.Dy()))
	p.dc.DrawImage(img, 0, 0)
	p.dc.Pop()
}

func (p *PNG) SavePNG(path string) error {
	if err := p.dc.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save PNG: %v", err)
	}
	return nil
}

func (p *PNG) EncodePNG(w io.Writer) error {
	return p.dc.EncodePNG(w)
}
