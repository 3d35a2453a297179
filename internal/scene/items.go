package scene

import (
	"nodeflow/internal/geometry"
	"nodeflow/internal/graph"
)

// NodeItem is the scene-side mirror of a node: its position and current
// layout.
type NodeItem struct {
	ID        graph.NodeID
	Position  geometry.Point
	Layout    geometry.Layout
	Resizable bool
	Group     graph.GroupID
}

// Rect is the node body in scene coordinates.
func (n *NodeItem) Rect() geometry.Rect {
	return n.Layout.Body().Translate(n.Position)
}

// BoundingRect includes the connection points around the body.
func (n *NodeItem) BoundingRect() geometry.Rect {
	return n.Layout.BoundingRect().Translate(n.Position)
}

// PortPosition returns a port's connection point in scene coordinates.
func (n *NodeItem) PortPosition(t graph.PortType, index int) geometry.Point {
	return n.Position.Add(n.Layout.PortPosition(t, index))
}

func (n *NodeItem) local(p geometry.Point) geometry.Point {
	return p.Sub(n.Position)
}

type ConnectionItem struct {
	ID graph.ConnectionID
	graph.Endpoints
	Curve geometry.Bezier
}

type GroupItem struct {
	ID      graph.GroupID
	Name    string
	Locked  bool
	Members []graph.NodeID
	// Rect encloses the members plus a margin and a title strip.
	Rect geometry.Rect
}

// PendingConnection is the connection being dragged out of a port.
type PendingConnection struct {
	Curve geometry.Bezier
	// Possible reports whether releasing on the nearest port would connect.
	Possible bool
	// Reconnecting is the existing connection picked up from an input, if any.
	Reconnecting graph.ConnectionID
}

// ReactionRadius scales a connection point near a dragged connection end.
// Compatible ports grow as the end approaches; incompatible ones shrink.
func ReactionRadius(dist float64, possible bool) float64 {
	const (
		growRange   = 40.0
		shrinkRange = 80.0
	)
	if possible {
		if dist < growRange {
			return 2 - dist/growRange
		}
		return 1
	}
	if dist < shrinkRange {
		return dist / shrinkRange
	}
	return 1
}
