// Package scene keeps the visual items of a graph in step with the model
// and turns pointer gestures into commands.
package scene

import (
	"log/slog"
	"slices"

	"nodeflow/internal/command"
	"nodeflow/internal/geometry"
	"nodeflow/internal/graph"
)

// DragPolicy decides what a drag on empty canvas does.
type DragPolicy int

const (
	// DragPan pans the view; Shift switches to rubber band selection.
	DragPan DragPolicy = iota
	// DragSelect always starts a rubber band.
	DragSelect
)

type Modifiers uint8

const (
	Shift Modifiers = 1 << iota
	Ctrl
	Alt
)

func (m Modifiers) Has(o Modifiers) bool { return m&o != 0 }

const (
	DefaultGroupMargin         = 15.0
	DefaultConnectionTolerance = 5.0
)

type Option func(*Controller)

func WithEmptyCanvas(p DragPolicy) Option {
	return func(c *Controller) { c.emptyCanvas = p }
}

// WithGroupLocking lets a double click lock a group against member drags.
func WithGroupLocking(on bool) Option {
	return func(c *Controller) { c.groupLocking = on }
}

func WithGroupMargin(m float64) Option {
	return func(c *Controller) { c.groupMargin = m }
}

func WithConstants(k geometry.Constants) Option {
	return func(c *Controller) { c.consts = k }
}

func WithClipboard(cb Clipboard) Option {
	return func(c *Controller) { c.clipboard = cb }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// Controller owns the scene items, the selection and the gesture state.
// All mutations of the graph go through its command stack.
type Controller struct {
	g       *graph.Graph
	stack   *command.Stack
	metrics geometry.TextMetrics
	consts  geometry.Constants
	cache   *geometry.Cache[graph.NodeID]

	nodes  map[graph.NodeID]*NodeItem
	order  []graph.NodeID // z-order, topmost last
	conns  map[graph.ConnectionID]*ConnectionItem
	groups map[graph.GroupID]*GroupItem

	sel   Selection
	state State
	hover Hit
	drag  gesture

	emptyCanvas  DragPolicy
	groupLocking bool
	groupMargin  float64
	clipboard    Clipboard

	unsubscribe func()
	log         *slog.Logger
}

func New(stack *command.Stack, m geometry.TextMetrics, opts ...Option) *Controller {
	c := &Controller{
		g:           stack.Graph(),
		stack:       stack,
		metrics:     m,
		consts:      geometry.DefaultConstants(),
		cache:       geometry.NewCache[graph.NodeID](),
		sel:         newSelection(),
		groupMargin: DefaultGroupMargin,
		log:         slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.clipboard == nil {
		c.clipboard = &MemoryClipboard{}
	}
	c.rebuild()
	c.unsubscribe = c.g.Subscribe(c.handle)
	return c
}

// Close detaches the controller from the graph.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *Controller) Graph() *graph.Graph           { return c.g }
func (c *Controller) Stack() *command.Stack         { return c.stack }
func (c *Controller) Metrics() geometry.TextMetrics { return c.metrics }
func (c *Controller) Constants() geometry.Constants { return c.consts }
func (c *Controller) State() State                  { return c.state }
func (c *Controller) Hover() Hit                    { return c.hover }
func (c *Controller) Selection() *Selection         { return &c.sel }

// Recomputations counts node layouts computed so far.
func (c *Controller) Recomputations() int { return c.cache.Recomputations() }

// SetMetrics swaps the text metrics, as after a font change, and lays
// every node out again.
func (c *Controller) SetMetrics(m geometry.TextMetrics) {
	c.metrics = m
	c.cache.InvalidateAll()
	c.rebuild()
}

// SetConstants swaps the layout constants and lays everything out again.
func (c *Controller) SetConstants(k geometry.Constants) {
	c.consts = k
	c.cache.InvalidateAll()
	c.rebuild()
}

func (c *Controller) SetEmptyCanvas(p DragPolicy) { c.emptyCanvas = p }
func (c *Controller) SetGroupLocking(on bool)     { c.groupLocking = on }

// Node returns the item of a node.
func (c *Controller) Node(id graph.NodeID) (*NodeItem, bool) {
	n, ok := c.nodes[id]
	return n, ok
}

// Nodes lists node items bottom to top.
func (c *Controller) Nodes() []*NodeItem {
	out := make([]*NodeItem, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.nodes[id])
	}
	return out
}

func (c *Controller) Connection(id graph.ConnectionID) (*ConnectionItem, bool) {
	it, ok := c.conns[id]
	return it, ok
}

// Connections lists connection items by id.
func (c *Controller) Connections() []*ConnectionItem {
	ids := c.g.ConnectionIDs()
	out := make([]*ConnectionItem, 0, len(ids))
	for _, id := range ids {
		if it, ok := c.conns[id]; ok {
			out = append(out, it)
		}
	}
	return out
}

func (c *Controller) Group(id graph.GroupID) (*GroupItem, bool) {
	it, ok := c.groups[id]
	return it, ok
}

// Groups lists group items in creation order.
func (c *Controller) Groups() []*GroupItem {
	ids := c.g.GroupIDs()
	out := make([]*GroupItem, 0, len(ids))
	for _, id := range ids {
		if it, ok := c.groups[id]; ok {
			out = append(out, it)
		}
	}
	return out
}

// SceneRect bounds every item.
func (c *Controller) SceneRect() geometry.Rect {
	var r geometry.Rect
	for _, n := range c.nodes {
		r = r.Union(n.BoundingRect())
	}
	for _, gr := range c.groups {
		r = r.Union(gr.Rect)
	}
	return r
}

// ---- model notifications

func (c *Controller) handle(e graph.Event) {
	switch e.Kind {
	case graph.NodeCreated:
		c.refreshNode(e.Node)
	case graph.NodeDeleted:
		delete(c.nodes, e.Node)
		c.order = slices.DeleteFunc(c.order, func(id graph.NodeID) bool { return id == e.Node })
		c.cache.Invalidate(e.Node)
		c.sel.RemoveNode(e.Node)
		if c.hover.Node == e.Node {
			c.hover = Hit{}
		}
	case graph.NodeMoved:
		c.refreshNode(e.Node)
		c.refreshAround(e.Node)
	case graph.NodeUpdated:
		c.cache.Invalidate(e.Node)
		c.refreshNode(e.Node)
		c.refreshAround(e.Node)
	case graph.ConnectionCreated, graph.ConnectionUpdated:
		c.refreshConnection(e.Connection)
	case graph.ConnectionDeleted:
		delete(c.conns, e.Connection)
		c.sel.RemoveConnection(e.Connection)
	case graph.GroupCreated, graph.GroupUpdated:
		c.refreshGroup(e.Group)
		for _, it := range c.nodes {
			it.Group, _ = c.g.GroupOf(it.ID)
		}
	case graph.GroupDeleted:
		delete(c.groups, e.Group)
		c.sel.RemoveGroup(e.Group)
		for _, it := range c.nodes {
			if it.Group == e.Group {
				it.Group = graph.GroupID{}
			}
		}
	case graph.GraphReset:
		c.cache.InvalidateAll()
		c.sel.Clear()
		c.hover = Hit{}
		c.rebuild()
	}
}

func (c *Controller) rebuild() {
	c.nodes = make(map[graph.NodeID]*NodeItem)
	c.conns = make(map[graph.ConnectionID]*ConnectionItem)
	c.groups = make(map[graph.GroupID]*GroupItem)
	// Surviving nodes keep their stacking; refreshNode appends the rest.
	kept := c.order[:0]
	for _, id := range c.order {
		if _, dup := c.nodes[id]; dup || !c.g.HasNode(id) {
			continue
		}
		c.nodes[id] = &NodeItem{ID: id}
		kept = append(kept, id)
	}
	c.order = kept
	for _, id := range c.g.NodeIDs() {
		c.refreshNode(id)
	}
	for _, id := range c.g.ConnectionIDs() {
		c.refreshConnection(id)
	}
	for _, id := range c.g.GroupIDs() {
		c.refreshGroup(id)
	}
}

func (c *Controller) layout(id graph.NodeID) geometry.Layout {
	return c.cache.Layout(id, func() geometry.Params {
		n, _ := c.g.Node(id)
		return n.LayoutParams()
	}, c.metrics, c.consts)
}

func (c *Controller) refreshNode(id graph.NodeID) {
	n, ok := c.g.Node(id)
	if !ok {
		return
	}
	it, ok := c.nodes[id]
	if !ok {
		it = &NodeItem{ID: id}
		c.nodes[id] = it
		c.order = append(c.order, id)
	}
	it.Position = n.Position
	it.Layout = c.layout(id)
	it.Resizable = n.Resizable
	it.Group = n.Group
}

// refreshAround updates what depends on a node's geometry: its
// connections and its group frame.
func (c *Controller) refreshAround(id graph.NodeID) {
	for _, conn := range c.g.ConnectionsOf(id) {
		c.refreshConnection(conn.ID)
	}
	if gid, ok := c.g.GroupOf(id); ok {
		c.refreshGroup(gid)
	}
}

func (c *Controller) refreshConnection(id graph.ConnectionID) {
	conn, ok := c.g.Connection(id)
	if !ok {
		return
	}
	src, ok1 := c.nodes[conn.SourceNode]
	dst, ok2 := c.nodes[conn.TargetNode]
	if !ok1 || !ok2 {
		return
	}
	it, ok := c.conns[id]
	if !ok {
		it = &ConnectionItem{ID: id}
		c.conns[id] = it
	}
	it.Endpoints = conn.Endpoints
	it.Curve = geometry.ConnectionCurve(
		src.PortPosition(graph.Out, conn.SourcePort),
		dst.PortPosition(graph.In, conn.TargetPort),
	)
}

func (c *Controller) refreshGroup(id graph.GroupID) {
	gr, ok := c.g.Group(id)
	if !ok {
		return
	}
	it, ok := c.groups[id]
	if !ok {
		it = &GroupItem{ID: id}
		c.groups[id] = it
	}
	it.Name = gr.Name
	it.Locked = gr.Locked
	it.Members = gr.Members()

	var r geometry.Rect
	for _, m := range it.Members {
		if n, ok := c.nodes[m]; ok {
			r = r.Union(n.BoundingRect())
		}
	}
	r = r.Pad(c.groupMargin)
	title := c.metrics.LineHeight(true)
	r.Y -= title
	r.H += title
	it.Rect = r
}

// raise moves a node to the top of the z-order.
func (c *Controller) raise(id graph.NodeID) {
	i := slices.Index(c.order, id)
	if i < 0 || i == len(c.order)-1 {
		return
	}
	c.order = append(slices.Delete(c.order, i, i+1), id)
}
