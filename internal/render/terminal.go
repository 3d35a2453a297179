package render

import (
	"image"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"

	"nodeflow/internal/geometry"
	"nodeflow/internal/style"
	"nodeflow/internal/view"
)

type cell struct {
	r    rune
	fg   style.Color
	bg   style.Color
	bold bool
	// cont marks the second column of a wide rune.
	cont bool
}

// Terminal paints onto a grid of character cells, each covering
// CellWidth x CellHeight pixels of the view.
type Terminal struct {
	cols, rows int
	m          geometry.CellMetrics
	cells      [][]cell
}

func NewTerminal(cols, rows int, m geometry.CellMetrics) *Terminal {
	cols = max(cols, 1)
	rows = max(rows, 1)
	t := &Terminal{cols: cols, rows: rows, m: m}
	t.cells = make([][]cell, rows)
	for y := range t.cells {
		t.cells[y] = make([]cell, cols)
	}
	t.Clear(style.Color{})
	return t
}

func (t *Terminal) Cols() int { return t.cols }
func (t *Terminal) Rows() int { return t.rows }

// cellAt converts a pixel position to a cell position.
func (t *Terminal) cellAt(p geometry.Point) (int, int) {
	return int(math.Floor(p.X / t.m.CellWidth)), int(math.Floor(p.Y / t.m.CellHeight))
}

func (t *Terminal) at(x, y int) *cell {
	if x < 0 || y < 0 || x >= t.cols || y >= t.rows {
		return nil
	}
	return &t.cells[y][x]
}

func (t *Terminal) set(x, y int, r rune, fg style.Color) {
	if c := t.at(x, y); c != nil {
		c.r, c.fg, c.bold, c.cont = r, fg, false, false
	}
}

// tint blends a background color into a cell, honouring alpha.
func (t *Terminal) tint(x, y int, bg style.Color) {
	c := t.at(x, y)
	if c == nil || bg.A == 0 {
		return
	}
	if bg.A == 0xff {
		c.bg = bg
		return
	}
	under, _ := colorful.MakeColor(c.bg.WithAlpha(0xff))
	over, _ := colorful.MakeColor(bg.WithAlpha(0xff))
	r, g, b := under.BlendRgb(over, float64(bg.A)/0xff).Clamped().RGB255()
	c.bg = style.RGB(r, g, b)
}

func (t *Terminal) Clear(bg style.Color) {
	for y := range t.cells {
		for x := range t.cells[y] {
			t.cells[y][x] = cell{r: ' ', bg: bg}
		}
	}
}

func (t *Terminal) RoundedRect(r geometry.Rect, radius float64, fill style.Color, pen view.Pen) {
	x0, y0 := t.cellAt(r.Min())
	x1, y1 := t.cellAt(r.Max().Sub(geometry.Pt(1, 1)))
	if fill.A > 0 {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				t.tint(x, y, fill)
				t.set(x, y, ' ', pen.Color)
			}
		}
	}
	if pen.Width <= 0 {
		return
	}
	tl, tr, bl, br := '┌', '┐', '└', '┘'
	if radius > 0 {
		tl, tr, bl, br = '╭', '╮', '╰', '╯'
	}
	h, v := '─', '│'
	if pen.Width > 1 {
		h, v = '━', '┃'
		tl, tr, bl, br = '┏', '┓', '┗', '┛'
	}
	for x := x0 + 1; x < x1; x++ {
		t.set(x, y0, h, pen.Color)
		t.set(x, y1, h, pen.Color)
	}
	for y := y0 + 1; y < y1; y++ {
		t.set(x0, y, v, pen.Color)
		t.set(x1, y, v, pen.Color)
	}
	t.set(x0, y0, tl, pen.Color)
	t.set(x1, y0, tr, pen.Color)
	t.set(x0, y1, bl, pen.Color)
	t.set(x1, y1, br, pen.Color)
}

// Ellipse draws a dot in the cell holding the center; large radii use a
// heavier glyph.
func (t *Terminal) Ellipse(c geometry.Point, rx, ry float64, fill style.Color, pen view.Pen) {
	x, y := t.cellAt(c)
	col := fill
	if col.A == 0 {
		col = pen.Color
	}
	r := '•'
	if rx >= t.m.CellWidth/2 {
		r = '●'
	}
	t.set(x, y, r, col)
}

// Line tints the cells under thin lines and draws glyphs for thick ones.
func (t *Terminal) Line(a, b geometry.Point, pen view.Pen) {
	t.polyline([]geometry.Point{a, b}, pen)
}

func (t *Terminal) Curve(c geometry.Bezier, pen view.Pen) {
	n := int(c.P0.Dist(c.P3)/t.m.CellWidth) + 8
	t.polyline(c.Polyline(n), pen)
}

func (t *Terminal) polyline(pts []geometry.Point, pen view.Pen) {
	thin := pen.Width <= 1
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		glyph := segmentGlyph(b.Sub(a), t.m)
		steps := int(math.Max(math.Abs(b.X-a.X)/t.m.CellWidth, math.Abs(b.Y-a.Y)/t.m.CellHeight)*2) + 1
		for s := 0; s <= steps; s++ {
			p := a.Add(b.Sub(a).Scale(float64(s) / float64(steps)))
			x, y := t.cellAt(p)
			if thin {
				t.tint(x, y, pen.Color)
				continue
			}
			t.set(x, y, glyph, pen.Color)
		}
	}
}

// segmentGlyph picks a box drawing character for a direction, measured in
// cells rather than pixels.
func segmentGlyph(d geometry.Point, m geometry.CellMetrics) rune {
	dx, dy := d.X/m.CellWidth, d.Y/m.CellHeight
	switch {
	case math.Abs(dx) >= 2*math.Abs(dy):
		return '─'
	case math.Abs(dy) >= 2*math.Abs(dx):
		return '│'
	case (dx > 0) == (dy > 0):
		return '╲'
	default:
		return '╱'
	}
}

func (t *Terminal) Text(at geometry.Point, text string, c style.Color, bold bool) {
	x, y := t.cellAt(at)
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if cl := t.at(x, y); cl != nil {
			cl.r, cl.fg, cl.bold, cl.cont = r, c, bold, false
		}
		if w == 2 {
			if cl := t.at(x+1, y); cl != nil {
				cl.r, cl.cont = 0, true
			}
		}
		x += w
	}
}

// Image samples the image at the center of every covered cell.
func (t *Terminal) Image(r geometry.Rect, img image.Image) {
	b := img.Bounds()
	if b.Empty() || r.W <= 0 || r.H <= 0 {
		return
	}
	x0, y0 := t.cellAt(r.Min())
	x1, y1 := t.cellAt(r.Max().Sub(geometry.Pt(1, 1)))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			px := (float64(x)+0.5)*t.m.CellWidth - r.X
			py := (float64(y)+0.5)*t.m.CellHeight - r.Y
			ix := b.Min.X + int(px*float64(b.Dx())/r.W)
			iy := b.Min.Y + int(py*float64(b.Dy())/r.H)
			cr, cg, cb, ca := img.At(ix, iy).RGBA()
			if ca < 0x8000 {
				continue
			}
			// Un-premultiply and drop to 8 bits.
			col := style.RGB(uint8(cr*0xffff/ca>>8), uint8(cg*0xffff/ca>>8), uint8(cb*0xffff/ca>>8))
			t.set(x, y, '█', col)
		}
	}
}

// Plain returns the cells as text without colors.
func (t *Terminal) Plain() []string {
	out := make([]string, t.rows)
	var sb strings.Builder
	for y, row := range t.cells {
		sb.Reset()
		for _, c := range row {
			if c.cont {
				continue
			}
			sb.WriteRune(c.r)
		}
		out[y] = sb.String()
	}
	return out
}

// Rune returns the character at a cell.
func (t *Terminal) Rune(x, y int) rune {
	if c := t.at(x, y); c != nil {
		return c.r
	}
	return 0
}

// Render returns the cells styled with lipgloss, one line per row.
func (t *Terminal) Render() string {
	lines := make([]string, t.rows)
	var run strings.Builder
	for y, row := range t.cells {
		var sb strings.Builder
		var cur cell
		flush := func() {
			if run.Len() == 0 {
				return
			}
			st := lipgloss.NewStyle().
				Foreground(lipgloss.Color(cur.fg.Hex())).
				Background(lipgloss.Color(cur.bg.Hex())).
				Bold(cur.bold)
			sb.WriteString(st.Render(run.String()))
			run.Reset()
		}
		for x, c := range row {
			if c.cont {
				continue
			}
			if x == 0 || c.fg != cur.fg || c.bg != cur.bg || c.bold != cur.bold {
				flush()
				cur = c
			}
			run.WriteRune(c.r)
		}
		flush()
		lines[y] = sb.String()
	}
	return strings.Join(lines, "\n")
}

// Highlight swaps the colors of one cell, for a text cursor.
func (t *Terminal) Highlight(x, y int) {
	if c := t.at(x, y); c != nil {
		c.fg, c.bg = c.bg.WithAlpha(0xff), c.fg.WithAlpha(0xff)
	}
}
