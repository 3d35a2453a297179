package render

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodeflow/internal/command"
	"nodeflow/internal/geometry"
	"nodeflow/internal/graph"
	"nodeflow/internal/scene"
	"nodeflow/internal/style"
	"nodeflow/internal/view"
)

var (
	cells  = geometry.CellMetrics{CellWidth: 8, CellHeight: 16}
	number = graph.DataType{ID: "number", Name: "Number"}
	red    = style.RGB(255, 0, 0)
	white  = style.RGB(255, 255, 255)
)

func adder() *graph.Basic {
	return &graph.Basic{
		Title:   "Add",
		Inputs:  []graph.Port{{Type: number, Caption: "a"}, {Type: number, Caption: "b"}},
		Outputs: []graph.Port{{Type: number, Caption: "sum"}},
	}
}

func sampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	a := g.AddNode(adder(), geometry.Pt(0, 0))
	b := g.AddNode(adder(), geometry.Pt(200, 40))
	_, err := g.Connect(a, 0, b, 1)
	require.NoError(t, err)
	return g
}

func TestTerminalBox(t *testing.T) {
	term := NewTerminal(20, 5, cells)
	term.RoundedRect(geometry.R(8, 16, 80, 48), 3, style.RGB(80, 80, 80), view.Pen{Color: white, Width: 1})

	assert.Equal(t, '╭', term.Rune(1, 1))
	assert.Equal(t, '╮', term.Rune(10, 1))
	assert.Equal(t, '╰', term.Rune(1, 3))
	assert.Equal(t, '╯', term.Rune(10, 3))
	assert.Equal(t, '─', term.Rune(5, 1))
	assert.Equal(t, '│', term.Rune(1, 2))
	assert.Equal(t, ' ', term.Rune(5, 2))
	assert.Equal(t, style.RGB(80, 80, 80), term.cells[2][5].bg)

	term.RoundedRect(geometry.R(0, 0, 24, 48), 0, style.Color{}, view.Pen{Color: white, Width: 2})
	assert.Equal(t, '┏', term.Rune(0, 0), "thick pens use heavy glyphs")
}

func TestTerminalText(t *testing.T) {
	term := NewTerminal(10, 3, cells)
	term.Text(geometry.Pt(16, 32), "hi", red, true)
	assert.Equal(t, 'h', term.Rune(2, 2))
	assert.Equal(t, 'i', term.Rune(3, 2))
	assert.True(t, term.cells[2][2].bold)

	term.Text(geometry.Pt(0, 0), "世界", white, false)
	plain := term.Plain()
	assert.True(t, strings.HasPrefix(plain[0], "世界"))
	assert.Equal(t, 10, len([]rune(plain[0]))+2, "wide runes take two cells")

	out := term.Render()
	assert.Contains(t, out, "hi")
	assert.Len(t, strings.Split(out, "\n"), 3)
}

func TestTerminalLines(t *testing.T) {
	term := NewTerminal(20, 3, cells)
	term.Line(geometry.Pt(0, 8), geometry.Pt(159, 8), view.Pen{Color: red, Width: 1})
	assert.Equal(t, ' ', term.Rune(5, 0), "thin lines only tint")
	assert.Equal(t, red, term.cells[0][5].bg)

	curve := geometry.Bezier{P0: geometry.Pt(0, 24), C1: geometry.Pt(50, 24), C2: geometry.Pt(100, 24), P3: geometry.Pt(159, 24)}
	term.Curve(curve, view.Pen{Color: red, Width: 3})
	for x := 0; x < 20; x++ {
		assert.Equal(t, '─', term.Rune(x, 1), "column %d", x)
	}
	term.Line(geometry.Pt(4, 0), geometry.Pt(4, 47), view.Pen{Color: red, Width: 2})
	assert.Equal(t, '│', term.Rune(0, 2))
}

func TestTerminalImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	term := NewTerminal(4, 2, cells)
	term.Image(geometry.R(0, 0, 16, 16), img)
	assert.Equal(t, '█', term.Rune(0, 0))
	assert.Equal(t, '█', term.Rune(1, 0))
	assert.Equal(t, ' ', term.Rune(2, 0))
	assert.Equal(t, red, term.cells[0][0].fg)
}

func TestTerminalPaintsView(t *testing.T) {
	ctrl := scene.New(command.NewStack(graph.New()), cells)
	defer ctrl.Close()
	v := view.New(ctrl)
	v.Resize(160, 160)
	_, err := ctrl.AddNode(adder(), geometry.Pt(16, 16))
	require.NoError(t, err)

	term := NewTerminal(20, 10, cells)
	v.Paint(term)
	plain := term.Plain()
	assert.Contains(t, plain[1], "Add")
	assert.Contains(t, plain[2], "a")
	assert.Contains(t, plain[2], "sum")
}

func TestPNGPrimitives(t *testing.T) {
	m, err := geometry.NewFontMetrics(12)
	require.NoError(t, err)
	p := NewPNG(40, 40, m)
	p.Clear(style.RGB(0, 0, 0))
	p.RoundedRect(geometry.R(0, 0, 10, 10), 0, red, view.Pen{})
	assert.Equal(t, color.RGBA{R: 255, A: 255}, p.Snapshot().At(5, 5))
	assert.Equal(t, color.RGBA{A: 255}, p.Snapshot().At(30, 5))

	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	p.Image(geometry.R(20, 20, 10, 10), src)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, p.Snapshot().At(25, 25))
}

func TestDraw(t *testing.T) {
	g := sampleGraph(t)
	m, err := geometry.NewFontMetrics(12)
	require.NoError(t, err)

	ctrl := scene.New(command.NewStack(g), m)
	want := ctrl.SceneRect().Pad(ExportMargin)
	ctrl.Close()

	p, err := Draw(g, style.Default(), m)
	require.NoError(t, err)
	b := p.Snapshot().Bounds()
	assert.InDelta(t, want.W, b.Dx(), 1)
	assert.InDelta(t, want.H, b.Dy(), 1)
}

func TestExportPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.png")
	require.NoError(t, ExportPNG(path, sampleGraph(t), style.Default(), 12))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 200)

	err = ExportPNG(filepath.Join(t.TempDir(), "empty.png"), graph.New(), style.Default(), 12)
	assert.ErrorIs(t, err, ErrNothingToExport)
}

func TestExportText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.txt")
	require.NoError(t, ExportText(path, sampleGraph(t), style.Default(), cells))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	assert.Equal(t, 2, strings.Count(string(data), "Add"))
	for i, l := range lines {
		assert.Equal(t, strings.TrimRight(l, " "), l, "line %d keeps no trailing blanks", i)
	}

	term, err := DrawText(sampleGraph(t), style.Default(), cells)
	require.NoError(t, err)
	assert.Len(t, lines, term.Rows())

	err = ExportText(filepath.Join(t.TempDir(), "empty.txt"), graph.New(), style.Default(), cells)
	assert.ErrorIs(t, err, ErrNothingToExport)
}
