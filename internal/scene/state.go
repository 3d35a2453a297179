package scene

import (
	"slices"

	"nodeflow/internal/command"
	"nodeflow/internal/geometry"
	"nodeflow/internal/graph"
)

type State int

const (
	Idle State = iota
	Hovering
	Dragging
	Resizing
	Connecting
	RubberBand
	GroupDragging
	Panning
)

var stateNames = [...]string{
	"idle", "hovering", "dragging", "resizing", "connecting",
	"rubber-band", "group-dragging", "panning",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// gesture is the bookkeeping of the press/move/release sequence in progress.
type gesture struct {
	press, last geometry.Point
	tx          *command.Transaction

	// dragging
	ids     []graph.NodeID
	refused bool

	// resizing
	node    graph.NodeID
	base    geometry.Size
	minimum geometry.Size

	// connecting: the fixed end and the port the free end is near
	fixed     graph.NodeID
	fixedType graph.PortType
	fixedIdx  int
	reconnect graph.ConnectionID
	origin    portTarget
	cursor    geometry.Point
	target    portTarget
	hasTarget bool

	// rubber band
	band  geometry.Rect
	prior Selection
}

// Press starts a gesture at scene point p.
func (c *Controller) Press(p geometry.Point, mods Modifiers) {
	if c.state != Idle && c.state != Hovering {
		c.Cancel()
	}
	c.drag = gesture{press: p, last: p}
	hit := c.HitTest(p)

	switch hit.Kind {
	case HitResize:
		c.sel.Clear()
		c.sel.AddNode(hit.Node)
		c.raise(hit.Node)
		c.startResize(hit.Node)

	case HitPort:
		c.startConnect(hit, p)

	case HitNode:
		c.raise(hit.Node)
		if mods.Has(Ctrl) {
			if !c.sel.ToggleNode(hit.Node) {
				return
			}
		} else if !c.sel.HasNode(hit.Node) {
			c.sel.Clear()
			c.sel.AddNode(hit.Node)
		}
		c.begin(Dragging, "Move")

	case HitConnection:
		if mods.Has(Ctrl) {
			c.sel.ToggleConnection(hit.Connection)
		} else {
			c.sel.Clear()
			c.sel.AddConnection(hit.Connection)
		}

	case HitGroup:
		if mods.Has(Ctrl) {
			c.sel.ToggleGroup(hit.Group)
		} else if !c.sel.HasGroup(hit.Group) {
			c.sel.Clear()
			c.sel.AddGroup(hit.Group)
		}
		if c.sel.HasGroup(hit.Group) {
			c.begin(GroupDragging, "Move Group")
		}

	default:
		if c.emptyCanvas == DragSelect || mods.Has(Shift) {
			c.drag.prior = newSelection()
			if mods.Has(Ctrl) {
				c.drag.prior = c.sel.clone()
			} else {
				c.sel.Clear()
			}
			c.drag.band = geometry.RectFromPoints(p, p)
			c.state = RubberBand
			return
		}
		if !mods.Has(Ctrl) {
			c.sel.Clear()
		}
		c.state = Panning
	}
}

func (c *Controller) begin(s State, name string) {
	tx, err := c.stack.Begin(name)
	if err != nil {
		c.log.Warn("gesture not started", "state", s, "error", err)
		return
	}
	c.drag.tx = tx
	c.state = s
}

func (c *Controller) startResize(id graph.NodeID) {
	n, ok := c.g.Node(id)
	if !ok {
		return
	}
	c.drag.node = id
	c.drag.base = c.nodes[id].Layout.Size()
	auto := n.LayoutParams()
	auto.UserSize = geometry.Size{}
	c.drag.minimum = geometry.Compute(auto, c.metrics, c.consts).Size()
	c.begin(Resizing, "Resize")
}

func (c *Controller) startConnect(hit Hit, p geometry.Point) {
	c.drag.fixed, c.drag.fixedType, c.drag.fixedIdx = hit.Node, hit.Port, hit.Index
	c.drag.origin = portTarget{node: hit.Node, port: hit.Port, index: hit.Index}
	if hit.Port == graph.In {
		if cid, ok := c.g.InputConnection(hit.Node, hit.Index); ok {
			// pick the connection up by its input end
			conn, _ := c.g.Connection(cid)
			c.drag.reconnect = cid
			c.drag.fixed, c.drag.fixedType, c.drag.fixedIdx = conn.SourceNode, graph.Out, conn.SourcePort
		}
	}
	c.drag.cursor = p
	c.state = Connecting
	c.updateTarget(p)
}

// freeType is the port type the loose end of a pending connection needs.
func (c *Controller) freeType() graph.PortType {
	return c.drag.fixedType.Opposite()
}

func (c *Controller) endpoints(t portTarget) graph.Endpoints {
	if c.drag.fixedType == graph.Out {
		return graph.Endpoints{SourceNode: c.drag.fixed, SourcePort: c.drag.fixedIdx, TargetNode: t.node, TargetPort: t.index}
	}
	return graph.Endpoints{SourceNode: t.node, SourcePort: t.index, TargetNode: c.drag.fixed, TargetPort: c.drag.fixedIdx}
}

func (c *Controller) updateTarget(p geometry.Point) {
	t, ok := c.nearestPort(p, c.freeType(), 0)
	c.drag.hasTarget = ok
	if !ok {
		return
	}
	t.possible = c.g.CheckConnectionIgnoring(c.endpoints(t), c.drag.reconnect) == nil
	c.drag.target = t
}

// Move advances the current gesture, or updates hover state when idle.
func (c *Controller) Move(p geometry.Point, mods Modifiers) {
	switch c.state {
	case Idle, Hovering:
		c.hover = c.HitTest(p)
		if c.hover.Kind == HitNone {
			c.state = Idle
		} else {
			c.state = Hovering
		}

	case Dragging, GroupDragging:
		c.dragTo(p)

	case Resizing:
		c.resizeTo(p)

	case Connecting:
		c.drag.cursor = p
		c.updateTarget(p)

	case RubberBand:
		c.drag.band = geometry.RectFromPoints(c.drag.press, p)
		c.selectBand(c.drag.band)
	}
	c.drag.last = p
}

// dragSet is every node a drag moves: selected nodes, members of selected
// groups and every member of a group any of those belong to.
func (c *Controller) dragSet() ([]graph.NodeID, bool) {
	set := map[graph.NodeID]bool{}
	locked := false
	addGroup := func(gid graph.GroupID) {
		if it, ok := c.groups[gid]; ok {
			for _, m := range it.Members {
				set[m] = true
			}
		}
	}
	for _, id := range c.sel.NodeIDs() {
		set[id] = true
		if it, ok := c.nodes[id]; ok && it.Group != (graph.GroupID{}) {
			if gr, ok := c.groups[it.Group]; ok && gr.Locked && c.groupLocking && c.state == Dragging {
				locked = true
			}
			addGroup(it.Group)
		}
	}
	for _, gid := range c.sel.GroupIDs() {
		addGroup(gid)
	}
	ids := make([]graph.NodeID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, locked
}

func (c *Controller) dragTo(p geometry.Point) {
	if c.drag.tx == nil || c.drag.refused {
		return
	}
	delta := p.Sub(c.drag.last)
	if delta == (geometry.Point{}) {
		return
	}
	if c.drag.ids == nil {
		ids, locked := c.dragSet()
		if locked {
			c.drag.refused = true
			c.log.Debug("drag refused by locked group")
			return
		}
		c.drag.ids = ids
	}
	if err := c.drag.tx.Apply(command.Translate(c.g, c.drag.ids, delta)); err != nil {
		c.log.Warn("move failed", "error", err)
	}
}

func (c *Controller) resizeTo(p geometry.Point) {
	if c.drag.tx == nil {
		return
	}
	d := p.Sub(c.drag.press)
	size := geometry.Size{
		W: max(c.drag.base.W+d.X, c.drag.minimum.W),
		H: max(c.drag.base.H+d.Y, c.drag.minimum.H),
	}
	n, ok := c.g.Node(c.drag.node)
	if !ok || n.UserSize == size {
		return
	}
	cmd := &command.ResizeNode{ID: c.drag.node, From: n.UserSize, To: size}
	if err := c.drag.tx.Apply(cmd); err != nil {
		c.log.Warn("resize failed", "error", err)
	}
}

func (c *Controller) selectBand(band geometry.Rect) {
	c.sel.Clear()
	c.sel.union(c.drag.prior)
	for _, n := range c.nodes {
		if n.BoundingRect().Intersects(band) {
			c.sel.AddNode(n.ID)
		}
	}
	for _, it := range c.conns {
		if it.Curve.IntersectsRect(band) {
			c.sel.AddConnection(it.ID)
		}
	}
	for _, gr := range c.groups {
		if gr.Rect.Intersects(band) {
			c.sel.AddGroup(gr.ID)
		}
	}
}

// Release finishes the current gesture at p and returns to Idle; hover
// is picked up again by the next pointer move.
func (c *Controller) Release(p geometry.Point, mods Modifiers) {
	switch c.state {
	case Dragging, GroupDragging:
		if c.drag.tx != nil {
			if c.state == Dragging && c.drag.tx.Len() > 0 {
				c.dropIntoGroup()
			}
			c.drag.tx.Commit()
		}
	case Resizing:
		if c.drag.tx != nil {
			c.drag.tx.Commit()
		}
	case Connecting:
		c.drag.cursor = p
		c.finishConnect(p)
	case RubberBand:
		c.drag.band = geometry.RectFromPoints(c.drag.press, p)
		c.selectBand(c.drag.band)
	}
	c.drag = gesture{}
	c.state = Idle
	c.hover = Hit{}
}

// dropIntoGroup adds a single dragged ungrouped node to the group it was
// dropped on, as part of the same gesture.
func (c *Controller) dropIntoGroup() {
	node, gid, ok := c.PossibleChild()
	if !ok {
		return
	}
	if err := c.drag.tx.Apply(&command.AddToGroup{Node: node, Group: gid}); err != nil {
		c.log.Warn("add to group failed", "error", err)
	}
}

// PossibleChild reports the node being dragged and the group it would join
// if released now. Only a single ungrouped node can join a group.
func (c *Controller) PossibleChild() (graph.NodeID, graph.GroupID, bool) {
	if c.state != Dragging || len(c.drag.ids) != 1 {
		return 0, graph.GroupID{}, false
	}
	n, ok := c.nodes[c.drag.ids[0]]
	if !ok || n.Group != (graph.GroupID{}) {
		return 0, graph.GroupID{}, false
	}
	center := n.Rect().Center()
	groups := c.Groups()
	for i := len(groups) - 1; i >= 0; i-- {
		if groups[i].Rect.Contains(center) {
			return n.ID, groups[i].ID, true
		}
	}
	return 0, graph.GroupID{}, false
}

// GroupFrame is the rect to draw for a group: its own frame, grown to
// take in a node that would join it on release.
func (c *Controller) GroupFrame(gr *GroupItem) geometry.Rect {
	node, gid, ok := c.PossibleChild()
	if !ok || gid != gr.ID {
		return gr.Rect
	}
	return gr.Rect.Union(c.nodes[node].BoundingRect().Pad(c.groupMargin))
}

func (c *Controller) finishConnect(p geometry.Point) {
	node, idx, ok := c.portAt(p, c.freeType())
	target := portTarget{node: node, port: c.freeType(), index: idx}

	if c.drag.reconnect.Valid() {
		switch {
		case ok && target.node == c.drag.origin.node && target.index == c.drag.origin.index && target.port == c.drag.origin.port:
			return
		case ok && c.g.CheckConnectionIgnoring(c.endpoints(target), c.drag.reconnect) == nil:
			c.push(command.Reconnect(c.drag.reconnect, c.endpoints(target)))
		default:
			c.push(&command.DeleteConnection{ID: c.drag.reconnect})
		}
		return
	}
	if !ok {
		return
	}
	e := c.endpoints(target)
	if err := c.g.CheckConnection(e); err != nil {
		c.log.Info("connection rejected", "error", err)
		return
	}
	c.push(&command.AddConnection{Endpoints: e})
}

func (c *Controller) push(cmd command.Command) bool {
	if err := c.stack.Push(cmd); err != nil {
		c.log.Warn("command failed", "command", cmd.Name(), "error", err)
		return false
	}
	return true
}

// DoubleClick toggles the lock of a group when group locking is enabled.
// It reports whether anything changed.
func (c *Controller) DoubleClick(p geometry.Point) bool {
	hit := c.HitTest(p)
	if hit.Kind != HitGroup || !c.groupLocking {
		return false
	}
	it := c.groups[hit.Group]
	return c.push(&command.SetGroupLocked{Group: hit.Group, Locked: !it.Locked})
}

// Cancel aborts the current gesture and reverts what it changed.
func (c *Controller) Cancel() {
	switch c.state {
	case Dragging, GroupDragging, Resizing:
		if c.drag.tx != nil {
			if err := c.drag.tx.Rollback(); err != nil {
				c.log.Warn("rollback failed", "error", err)
			}
		}
	case RubberBand:
		c.sel.Clear()
		c.sel.union(c.drag.prior)
	}
	c.drag = gesture{}
	c.state = Idle
}

// PendingConnection reports the connection being dragged, if any.
func (c *Controller) PendingConnection() (PendingConnection, bool) {
	if c.state != Connecting {
		return PendingConnection{}, false
	}
	n, ok := c.nodes[c.drag.fixed]
	if !ok {
		return PendingConnection{}, false
	}
	fixed := n.PortPosition(c.drag.fixedType, c.drag.fixedIdx)
	pc := PendingConnection{Reconnecting: c.drag.reconnect}
	if c.drag.fixedType == graph.Out {
		pc.Curve = geometry.ConnectionCurve(fixed, c.drag.cursor)
	} else {
		pc.Curve = geometry.ConnectionCurve(c.drag.cursor, fixed)
	}
	if c.drag.hasTarget {
		pc.Possible = c.drag.target.possible && c.drag.target.dist < n.Layout.HitTolerance()
	}
	return pc, true
}

// PortReaction is the scale of a port's connection point: 1 normally, and
// following ReactionRadius for the port nearest a dragged connection end.
func (c *Controller) PortReaction(node graph.NodeID, t graph.PortType, index int) float64 {
	if c.state != Connecting || !c.drag.hasTarget {
		return 1
	}
	tg := c.drag.target
	if tg.node != node || tg.port != t || tg.index != index {
		return 1
	}
	return ReactionRadius(tg.dist, tg.possible)
}

// RubberBand returns the selection band while one is being dragged.
func (c *Controller) RubberBand() (geometry.Rect, bool) {
	if c.state != RubberBand {
		return geometry.Rect{}, false
	}
	return c.drag.band, true
}
