package geometry

import (
	"fmt"

	"github.com/golang/freetype/truetype"
	"github.com/mattn/go-runewidth"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// TextMetrics measures caption and port label text.
type TextMetrics interface {
	Width(text string, bold bool) float64
	LineHeight(bold bool) float64
}

// FontMetrics measures text with the Go font family rendered at a fixed size.
// Faces are not safe for concurrent use; give each goroutine its own.
type FontMetrics struct {
	size    float64
	regular font.Face
	bold    font.Face
}

func NewFontMetrics(size float64) (*FontMetrics, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid font size %v", size)
	}
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %v", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %v", err)
	}
	opts := &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}
	return &FontMetrics{
		size:    size,
		regular: truetype.NewFace(regular, opts),
		bold:    truetype.NewFace(bold, opts),
	}, nil
}

func (m *FontMetrics) Size() float64 {
	return m.size
}

// Face returns the face used for measuring, so painters draw with the same glyphs.
func (m *FontMetrics) Face(bold bool) font.Face {
	if bold {
		return m.bold
	}
	return m.regular
}

func (m *FontMetrics) Width(text string, bold bool) float64 {
	if text == "" {
		return 0
	}
	return float64(font.MeasureString(m.Face(bold), text).Ceil())
}

func (m *FontMetrics) LineHeight(bold bool) float64 {
	return float64(m.Face(bold).Metrics().Height.Ceil())
}

// CellMetrics measures text on a fixed terminal grid: every column is
// CellWidth pixels wide and every line CellHeight pixels high.
type CellMetrics struct {
	CellWidth  float64
	CellHeight float64
}

func (m CellMetrics) Width(text string, _ bool) float64 {
	return float64(runewidth.StringWidth(text)) * m.CellWidth
}

func (m CellMetrics) LineHeight(bool) float64 {
	return m.CellHeight
}
