package view

import (
	"image"
	"math"

	"nodeflow/internal/geometry"
	"nodeflow/internal/graph"
	"nodeflow/internal/scene"
	"nodeflow/internal/style"
)

// Pen strokes outlines. A zero Width draws no outline.
type Pen struct {
	Color style.Color
	Width float64
}

// Painter draws in screen coordinates. Fills with zero alpha are skipped.
type Painter interface {
	Clear(bg style.Color)
	RoundedRect(r geometry.Rect, radius float64, fill style.Color, pen Pen)
	Ellipse(center geometry.Point, rx, ry float64, fill style.Color, pen Pen)
	Line(a, b geometry.Point, pen Pen)
	Curve(c geometry.Bezier, pen Pen)
	// Text draws a single line with its top-left corner at at.
	Text(at geometry.Point, text string, c style.Color, bold bool)
	Image(r geometry.Rect, img image.Image)
}

// Paint draws the whole visible scene back to front.
func (v *View) Paint(p Painter) {
	p.Clear(v.style.View.Background)
	v.paintGrid(p)
	for _, gr := range v.ctrl.Groups() {
		v.paintGroup(p, gr)
	}
	for _, it := range v.ctrl.Connections() {
		v.paintConnection(p, it)
	}
	if pc, ok := v.ctrl.PendingConnection(); ok {
		cs := v.style.Connection
		pen := Pen{Color: cs.Construction, Width: cs.ConstructionWidth}
		if pc.Possible {
			pen = Pen{Color: cs.Normal, Width: cs.LineWidth}
		}
		p.Curve(v.mapCurve(pc.Curve), pen)
	}
	for _, n := range v.ctrl.Nodes() {
		if n.BoundingRect().Intersects(v.VisibleRect()) {
			v.paintNode(p, n)
		}
	}
	if band, ok := v.ctrl.RubberBand(); ok {
		c := v.style.View.RubberBand
		p.RoundedRect(v.mapRect(band), 0, c.WithAlpha(0x30), Pen{Color: c, Width: 1})
	}
}

func (v *View) paintGrid(p Painter) {
	vis := v.VisibleRect()
	grid := func(step float64, c style.Color) {
		if step*v.scale < GridMinSpacing {
			return
		}
		pen := Pen{Color: c, Width: 1}
		left := math.Floor(vis.X/step - 0.5)
		right := math.Floor((vis.X+vis.W)/step + 1)
		top := math.Floor(vis.Y/step - 0.5)
		bottom := math.Floor((vis.Y+vis.H)/step + 1)
		for x := left; x <= right; x++ {
			p.Line(v.MapFromScene(geometry.Pt(x*step, top*step)), v.MapFromScene(geometry.Pt(x*step, bottom*step)), pen)
		}
		for y := top; y <= bottom; y++ {
			p.Line(v.MapFromScene(geometry.Pt(left*step, y*step)), v.MapFromScene(geometry.Pt(right*step, y*step)), pen)
		}
	}
	grid(FineGrid, v.style.View.FineGrid)
	grid(CoarseGrid, v.style.View.CoarseGrid)
}

func (v *View) paintGroup(p Painter, gr *scene.GroupItem) {
	gs := v.style.Group
	pen := Pen{Color: gs.Boundary, Width: 1}
	if gr.Locked {
		pen.Color = gs.Locked
	}
	if v.ctrl.Selection().HasGroup(gr.ID) {
		pen = Pen{Color: gs.Selected, Width: 2}
	}
	r := v.mapRect(v.ctrl.GroupFrame(gr))
	p.RoundedRect(r, 5*v.scale, gs.Fill, pen)
	title := gr.Name
	if gr.Locked {
		title += " (locked)"
	}
	p.Text(r.Min().Add(geometry.Pt(4, 0)), title, gs.Title, true)
}

func (v *View) mapCurve(b geometry.Bezier) geometry.Bezier {
	return geometry.Bezier{
		P0: v.MapFromScene(b.P0),
		C1: v.MapFromScene(b.C1),
		C2: v.MapFromScene(b.C2),
		P3: v.MapFromScene(b.P3),
	}
}

// portType is the data type id carried by a port, if the node still exists.
func (v *View) portType(id graph.NodeID, t graph.PortType, index int) string {
	n, ok := v.ctrl.Graph().Node(id)
	if !ok {
		return ""
	}
	ports := n.Ports(t)
	if index < 0 || index >= len(ports) {
		return ""
	}
	return ports[index].Type.ID
}

func (v *View) paintConnection(p Painter, it *scene.ConnectionItem) {
	cs := v.style.Connection
	curve := v.mapCurve(it.Curve)
	hover := v.ctrl.Hover()
	switch {
	case v.ctrl.Selection().HasConnection(it.ID):
		p.Curve(curve, Pen{Color: cs.SelectedHalo, Width: 2 * cs.LineWidth})
		p.Curve(curve, Pen{Color: cs.Selected, Width: cs.LineWidth})
	case hover.Kind == scene.HitConnection && hover.Connection == it.ID:
		p.Curve(curve, Pen{Color: cs.Hovered, Width: cs.LineWidth})
	default:
		c := cs.ConnectionColor(v.portType(it.SourceNode, graph.Out, it.SourcePort))
		p.Curve(curve, Pen{Color: c, Width: cs.LineWidth})
	}
}

func (v *View) paintNode(p Painter, n *scene.NodeItem) {
	node, ok := v.ctrl.Graph().Node(n.ID)
	if !ok {
		return
	}
	ns := v.style.Node
	cs := v.style.Connection
	l := n.Layout
	d := l.Constants().ConnectionPointDiameter
	selected := v.ctrl.Selection().HasNode(n.ID)
	hover := v.ctrl.Hover()
	hovered := hover.Node == n.ID && hover.Kind != scene.HitNone

	pen := Pen{Color: ns.NormalBoundary, Width: ns.PenWidth}
	fill := ns.Fill
	if selected {
		pen.Color = ns.SelectedBoundary
		fill = ns.SelectedFill
	}
	if hovered {
		pen.Width = ns.HoveredPenWidth
	}
	if node.Status == graph.Failed {
		pen.Color = ns.Error
	}
	fill = fill.WithAlpha(uint8(math.Round(255 * clamp01(ns.Opacity))))
	p.RoundedRect(v.mapRect(n.Rect().Pad(d)), ns.CornerRadius*v.scale, fill, pen)

	m := v.ctrl.Metrics()
	g := v.ctrl.Graph()
	for _, t := range []graph.PortType{graph.Out, graph.In} {
		for i, port := range node.Ports(t) {
			at := v.MapFromScene(n.PortPosition(t, i))
			connected := len(g.ConnectionsAt(n.ID, t, i)) > 0

			c := ns.ConnectionPoint
			if cs.DataDefinedColors {
				c = cs.DataTypeColor(port.Type.ID)
			}
			r := 0.8 * d * v.ctrl.PortReaction(n.ID, t, i) * v.scale / 2
			p.Ellipse(at, r, r, c, Pen{})
			if connected {
				fc := ns.FilledPoint
				if cs.DataDefinedColors {
					fc = cs.DataTypeColor(port.Type.ID)
				}
				fr := 0.8 * d * v.scale / 2
				p.Ellipse(at, fr, fr, fc, Pen{Color: fc, Width: 1})
			}

			label := port.Label()
			local := l.PortPosition(t, i)
			x := d / 2
			if t == graph.Out {
				x = l.Size().W - m.Width(label, false) - d/2
			}
			tc := ns.FontFaded
			if connected {
				tc = ns.Font
			}
			top := n.Position.Add(geometry.Pt(x, local.Y-l.EntryHeight()/2))
			p.Text(v.MapFromScene(top), label, tc, false)
		}
	}

	if node.CaptionVisible {
		x := (l.Size().W - l.CaptionWidth()) / 2
		p.Text(v.MapFromScene(n.Position.Add(geometry.Pt(x, 0))), node.Caption, ns.Font, !node.NicknameVisible)
	}
	if node.NicknameVisible {
		x := (l.Size().W - l.NicknameWidth()) / 2
		at := n.Position.Add(geometry.Pt(x, l.CaptionHeight()))
		p.Text(v.MapFromScene(at), node.Nickname, ns.FontFaded, false)
	}

	if n.Resizable {
		hr := v.mapRect(l.ResizeRect().Translate(n.Position))
		p.Ellipse(hr.Center(), hr.W/2, hr.H/2, ns.HandleColor, Pen{})
	}
	if node.Status != graph.NoStatus {
		p.Image(v.mapRect(l.StatusIconRect().Translate(n.Position)), v.icons.icon(node.Status))
	}
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
