package geometry

import "math"

// PortType tells input ports from output ports.
type PortType int

const (
	PortNone PortType = iota
	PortIn
	PortOut
)

func (t PortType) String() string {
	switch t {
	case PortIn:
		return "in"
	case PortOut:
		return "out"
	default:
		return "none"
	}
}

// Opposite returns the direction a connection needs on its other end.
func (t PortType) Opposite() PortType {
	switch t {
	case PortIn:
		return PortOut
	case PortOut:
		return PortIn
	default:
		return PortNone
	}
}

const (
	DefaultVerticalSpacing         = 20
	DefaultConnectionPointDiameter = 8
	DefaultStatusIconSize          = 32
	DefaultResizeHandleSize        = 7
)

// Constants are the style numbers the layout depends on.
type Constants struct {
	VerticalSpacing         float64
	ConnectionPointDiameter float64
	StatusIconSize          float64
	ResizeHandleSize        float64
}

func DefaultConstants() Constants {
	return Constants{
		VerticalSpacing:         DefaultVerticalSpacing,
		ConnectionPointDiameter: DefaultConnectionPointDiameter,
		StatusIconSize:          DefaultStatusIconSize,
		ResizeHandleSize:        DefaultResizeHandleSize,
	}
}

// Params is everything about a node that influences its layout.
type Params struct {
	InLabels  []string
	OutLabels []string

	Caption         string
	CaptionVisible  bool
	Nickname        string
	NicknameVisible bool

	Widget     Size
	StatusIcon bool

	// UserSize replaces the computed size when non-empty (resized nodes).
	UserSize Size
}

// Layout is the computed geometry of one node in node-local coordinates,
// where (0,0) is the top-left corner of the node body.
type Layout struct {
	size Size

	inCount, outCount int
	inWidth           float64

	entryHeight    float64
	captionHeight  float64
	captionWidth   float64
	nicknameHeight float64
	nicknameWidth  float64
	statusIcon     Size
	widget         Size

	c Constants
}

// Compute lays out a node.
func Compute(p Params, m TextMetrics, c Constants) Layout {
	l := Layout{
		inCount:     len(p.InLabels),
		outCount:    len(p.OutLabels),
		entryHeight: m.LineHeight(false),
		widget:      p.Widget,
		c:           c,
	}
	if p.StatusIcon {
		l.statusIcon = Size{W: c.StatusIconSize, H: c.StatusIconSize}
	}
	if p.CaptionVisible {
		// The caption is set in bold unless a nickname sits below it.
		bold := !p.NicknameVisible
		l.captionHeight = m.LineHeight(bold)
		l.captionWidth = m.Width(p.Caption, true)
	}
	if p.NicknameVisible {
		l.nicknameHeight = m.LineHeight(false)
		l.nicknameWidth = m.Width(p.Nickname, false)
	}

	l.inWidth = labelsWidth(p.InLabels, m)
	outWidth := labelsWidth(p.OutLabels, m)

	if !p.UserSize.Empty() {
		l.size = p.UserSize
		return l
	}

	entries := math.Max(float64(l.inCount), float64(l.outCount))
	height := entries*l.step() + l.statusIcon.H + l.captionHeight + l.nicknameHeight
	height = math.Max(height, p.Widget.H)

	width := math.Max(l.inWidth+outWidth, l.statusIcon.W)
	width = math.Max(width, l.captionWidth)
	width = math.Max(width, l.nicknameWidth)
	width += p.Widget.W + 2*c.VerticalSpacing

	l.size = Size{W: width, H: height}
	return l
}

func labelsWidth(labels []string, m TextMetrics) float64 {
	var w float64
	for _, s := range labels {
		w = math.Max(w, m.Width(s, false))
	}
	return w
}

func (l Layout) step() float64 {
	return l.entryHeight + l.c.VerticalSpacing
}

func (l Layout) Size() Size               { return l.size }
func (l Layout) Constants() Constants     { return l.c }
func (l Layout) EntryHeight() float64     { return l.entryHeight }
func (l Layout) CaptionHeight() float64   { return l.captionHeight }
func (l Layout) CaptionWidth() float64    { return l.captionWidth }
func (l Layout) NicknameHeight() float64  { return l.nicknameHeight }
func (l Layout) NicknameWidth() float64   { return l.nicknameWidth }
func (l Layout) StatusIconSize() Size     { return l.statusIcon }
func (l Layout) PortCount(t PortType) int { return l.count(t) }

func (l Layout) count(t PortType) int {
	switch t {
	case PortIn:
		return l.inCount
	case PortOut:
		return l.outCount
	}
	return 0
}

// Body returns the node rectangle without the connection point margin.
func (l Layout) Body() Rect {
	return Rect{W: l.size.W, H: l.size.H}
}

// PortPosition returns the center of a connection point. Out ports sit
// right of the body, in ports left of it.
func (l Layout) PortPosition(t PortType, index int) Point {
	d := l.c.ConnectionPointDiameter
	y := l.captionHeight + l.nicknameHeight + float64(index)*l.step() + l.step()/2
	switch t {
	case PortOut:
		return Point{X: l.size.W + d, Y: y}
	case PortIn:
		return Point{X: -d, Y: y}
	}
	return Point{}
}

// BoundingRect is the body padded to leave room for connection points.
func (l Layout) BoundingRect() Rect {
	return l.Body().Pad(2 * l.c.ConnectionPointDiameter)
}

func (l Layout) ResizeRect() Rect {
	s := l.c.ResizeHandleSize
	return Rect{X: l.size.W - s, Y: l.size.H - s, W: s, H: s}
}

// StatusIconRect places the icon below the last port row, right-aligned.
func (l Layout) StatusIconRect() Rect {
	rows := l.inCount
	if l.outCount > rows {
		rows = l.outCount
	}
	p := l.PortPosition(PortOut, rows)
	return Rect{
		X: p.X - l.statusIcon.W - l.c.VerticalSpacing/2,
		Y: p.Y,
		W: l.statusIcon.W,
		H: l.statusIcon.H,
	}
}

// WidgetPosition centers the embedded widget vertically below the caption.
func (l Layout) WidgetPosition() Point {
	if l.widget.Empty() {
		return Point{}
	}
	top := l.captionHeight + l.nicknameHeight
	return Point{
		X: l.c.VerticalSpacing + l.inWidth,
		Y: (top + l.size.H - l.widget.H) / 2,
	}
}

// HitTolerance is the radius within which a point picks a port.
func (l Layout) HitTolerance() float64 {
	return 2 * l.c.ConnectionPointDiameter
}

// HitPort finds the port under a node-local point using HitTolerance.
func (l Layout) HitPort(p Point) (PortType, int, bool) {
	return l.HitPortWithin(p, l.HitTolerance())
}

// HitPortWithin scans out ports and then in ports and returns the first one
// closer than tolerance. It is not a nearest-port search.
func (l Layout) HitPortWithin(p Point, tolerance float64) (PortType, int, bool) {
	if tolerance <= 0 {
		return PortNone, -1, false
	}
	for _, t := range []PortType{PortOut, PortIn} {
		for i := 0; i < l.count(t); i++ {
			if l.PortPosition(t, i).Dist(p) < tolerance {
				return t, i, true
			}
		}
	}
	return PortNone, -1, false
}
