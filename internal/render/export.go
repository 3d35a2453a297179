package render

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"nodeflow/internal/command"
	"nodeflow/internal/geometry"
	"nodeflow/internal/graph"
	"nodeflow/internal/scene"
	"nodeflow/internal/style"
	"nodeflow/internal/view"
)

// ExportMargin is the space left around the scene in exported images.
const ExportMargin = 20.0

var ErrNothingToExport = errors.New("nothing to export")

// Draw paints every item of g onto an image sized to fit them.
func Draw(g *graph.Graph, st style.Style, m *geometry.FontMetrics) (*PNG, error) {
	if g.NodeCount() == 0 {
		return nil, ErrNothingToExport
	}
	opts := []scene.Option{scene.WithConstants(st.Constants())}
	if st.Group.Margin > 0 {
		opts = append(opts, scene.WithGroupMargin(st.Group.Margin))
	}
	ctrl := scene.New(command.NewStack(g), m, opts...)
	defer ctrl.Close()

	v := view.New(ctrl, view.WithStyle(st))
	r := ctrl.SceneRect().Pad(ExportMargin)
	w, h := math.Ceil(r.W), math.Ceil(r.H)
	v.Resize(w, h)
	v.CenterOn(r.Center())

	p := NewPNG(int(w), int(h), m)
	v.Paint(p)
	return p, nil
}

// ExportPNG renders g to a PNG file at path.
func ExportPNG(path string, g *graph.Graph, st style.Style, fontSize float64) error {
	m, err := geometry.NewFontMetrics(fontSize)
	if err != nil {
		return err
	}
	p, err := Draw(g, st, m)
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := p.SavePNG(path); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return nil
}

// DrawText paints every item of g onto a grid of terminal cells sized to
// fit them.
func DrawText(g *graph.Graph, st style.Style, m geometry.CellMetrics) (*Terminal, error) {
	if g.NodeCount() == 0 {
		return nil, ErrNothingToExport
	}
	opts := []scene.Option{scene.WithConstants(st.Constants())}
	if st.Group.Margin > 0 {
		opts = append(opts, scene.WithGroupMargin(st.Group.Margin))
	}
	ctrl := scene.New(command.NewStack(g), m, opts...)
	defer ctrl.Close()

	v := view.New(ctrl, view.WithStyle(st))
	r := ctrl.SceneRect().Pad(ExportMargin)
	cols, rows := int(math.Ceil(r.W/m.CellWidth)), int(math.Ceil(r.H/m.CellHeight))
	v.Resize(float64(cols)*m.CellWidth, float64(rows)*m.CellHeight)
	v.CenterOn(r.Center())

	t := NewTerminal(cols, rows, m)
	v.Paint(t)
	return t, nil
}

// ExportText writes g as plain text, one line per cell row.
func ExportText(path string, g *graph.Graph, st style.Style, m geometry.CellMetrics) error {
	t, err := DrawText(g, st, m)
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, line := range t.Plain() {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return file.Close()
}
