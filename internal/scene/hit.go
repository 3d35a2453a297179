package scene

import (
	"math"

	"nodeflow/internal/geometry"
	"nodeflow/internal/graph"
)

type HitKind int

const (
	HitNone HitKind = iota
	HitNode
	HitResize
	HitPort
	HitConnection
	HitGroup
)

var hitNames = [...]string{"none", "node", "resize", "port", "connection", "group"}

func (k HitKind) String() string {
	if k < 0 || int(k) >= len(hitNames) {
		return "unknown"
	}
	return hitNames[k]
}

// Hit is the result of a hit test. Only the fields that matter for Kind are
// set.
type Hit struct {
	Kind       HitKind
	Node       graph.NodeID
	Port       graph.PortType
	Index      int
	Connection graph.ConnectionID
	Group      graph.GroupID
}

// HitTest finds what lies under p: the topmost node first (resize handle,
// then ports, then body), then connections, then groups.
func (c *Controller) HitTest(p geometry.Point) Hit {
	for i := len(c.order) - 1; i >= 0; i-- {
		n := c.nodes[c.order[i]]
		local := n.local(p)
		if n.Resizable && n.Layout.ResizeRect().Contains(local) {
			return Hit{Kind: HitResize, Node: n.ID}
		}
		if t, idx, ok := n.Layout.HitPort(local); ok {
			return Hit{Kind: HitPort, Node: n.ID, Port: t, Index: idx}
		}
		if n.Layout.Body().Contains(local) {
			return Hit{Kind: HitNode, Node: n.ID}
		}
	}
	for _, it := range c.Connections() {
		if !it.Curve.Bounds().Pad(DefaultConnectionTolerance).Contains(p) {
			continue
		}
		if it.Curve.Distance(p) <= DefaultConnectionTolerance {
			return Hit{Kind: HitConnection, Connection: it.ID}
		}
	}
	groups := c.Groups()
	for i := len(groups) - 1; i >= 0; i-- {
		if groups[i].Rect.Contains(p) {
			return Hit{Kind: HitGroup, Group: groups[i].ID}
		}
	}
	return Hit{}
}

// portTarget is the port nearest to a dragged connection end.
type portTarget struct {
	node     graph.NodeID
	port     graph.PortType
	index    int
	dist     float64
	possible bool
}

// nearestPort finds the closest port of type t to p over every node except
// skip.
func (c *Controller) nearestPort(p geometry.Point, t graph.PortType, skip graph.NodeID) (portTarget, bool) {
	best := portTarget{dist: math.Inf(1)}
	for _, id := range c.order {
		if id == skip {
			continue
		}
		n := c.nodes[id]
		for i := range n.Layout.PortCount(t) {
			if d := n.PortPosition(t, i).Dist(p); d < best.dist {
				best = portTarget{node: id, port: t, index: i, dist: d}
			}
		}
	}
	return best, !math.IsInf(best.dist, 1)
}

// portAt returns the port of type t under p, searching nodes top down.
func (c *Controller) portAt(p geometry.Point, t graph.PortType) (graph.NodeID, int, bool) {
	for i := len(c.order) - 1; i >= 0; i-- {
		n := c.nodes[c.order[i]]
		local := n.local(p)
		tol := n.Layout.HitTolerance()
		for idx := range n.Layout.PortCount(t) {
			if n.Layout.PortPosition(t, idx).Dist(local) < tol {
				return n.ID, idx, true
			}
		}
	}
	return 0, 0, false
}
