package view

import (
	"image"
	"math"

	"github.com/fogleman/gg"

	"nodeflow/internal/graph"
	"nodeflow/internal/style"
)

// iconSet draws the processing status icons once per status.
type iconSet struct {
	style style.NodeStyle
	size  int
	cache map[graph.ProcessingStatus]image.Image
}

func newIconSet(s style.NodeStyle) *iconSet {
	size := int(s.StatusIconSize)
	if size <= 0 {
		size = 32
	}
	return &iconSet{style: s, size: size, cache: make(map[graph.ProcessingStatus]image.Image)}
}

func (s *iconSet) icon(st graph.ProcessingStatus) image.Image {
	if img, ok := s.cache[st]; ok {
		return img
	}
	img := drawIcon(st, s.style, s.size)
	s.cache[st] = img
	return img
}

func drawIcon(st graph.ProcessingStatus, ns style.NodeStyle, size int) image.Image {
	dc := gg.NewContext(size, size)
	c := float64(size) / 2
	r := c - 2
	white := style.RGB(255, 255, 255)
	dc.SetLineWidth(math.Max(1, float64(size)/10))
	dc.SetLineCapRound()

	switch st {
	case graph.Processing:
		dc.SetColor(ns.StatusProcessing)
		dc.DrawArc(c, c, r-1, 0, 1.5*math.Pi)
		dc.Stroke()
	case graph.Pending:
		dc.SetColor(ns.StatusPending)
		dc.DrawCircle(c, c, r)
		dc.Fill()
		dc.SetColor(white)
		dc.MoveTo(c, c-r/2)
		dc.LineTo(c, c)
		dc.LineTo(c+r/2, c)
		dc.Stroke()
	case graph.Empty:
		dc.SetColor(ns.StatusEmpty)
		dc.DrawCircle(c, c, r-1)
		dc.Stroke()
	case graph.Failed:
		dc.SetColor(ns.Error)
		dc.DrawCircle(c, c, r)
		dc.Fill()
		dc.SetColor(white)
		d := r / 2
		dc.DrawLine(c-d, c-d, c+d, c+d)
		dc.DrawLine(c-d, c+d, c+d, c-d)
		dc.Stroke()
	case graph.Partial:
		dc.SetColor(ns.StatusPartial)
		dc.DrawCircle(c, c, r-1)
		dc.Stroke()
		dc.MoveTo(c, c)
		dc.DrawArc(c, c, r-1, -math.Pi/2, math.Pi/2)
		dc.ClosePath()
		dc.Fill()
	default:
		dc.SetColor(ns.StatusUpdated)
		dc.DrawCircle(c, c, r)
		dc.Fill()
		dc.SetColor(white)
		dc.MoveTo(c-r/2, c)
		dc.LineTo(c-r/8, c+r/2)
		dc.LineTo(c+r/2, c-r/2)
		dc.Stroke()
	}
	return dc.Image()
}
