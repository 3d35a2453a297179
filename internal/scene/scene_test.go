package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodeflow/internal/command"
	"nodeflow/internal/geometry"
	"nodeflow/internal/graph"
)

var (
	cells  = geometry.CellMetrics{CellWidth: 8, CellHeight: 16}
	number = graph.DataType{ID: "number", Name: "Number"}
	text   = graph.DataType{ID: "text", Name: "Text"}
)

// adder lays out as 72x88 with cells: in ports at (-8,34) and (-8,70),
// out port at (80,34).
func adder() *graph.Basic {
	return &graph.Basic{
		Title:   "Add",
		Inputs:  []graph.Port{{Type: number, Caption: "a"}, {Type: number, Caption: "b"}},
		Outputs: []graph.Port{{Type: number, Caption: "sum"}},
	}
}

func printer() *graph.Basic {
	return &graph.Basic{Title: "Say", Inputs: []graph.Port{{Type: text, Caption: "t"}}}
}

// panel is resizable; it lays out as 120x20 with its resize handle at
// (113,13).
type panel struct{ graph.Basic }

func (p *panel) SizeHint() geometry.Size { return geometry.Size{W: 40, H: 20} }
func (p *panel) Resizable() bool         { return true }
func (p *panel) Caption() string         { return "Panel" }

func newScene(t *testing.T, opts ...Option) *Controller {
	t.Helper()
	s := command.NewStack(graph.New())
	c := New(s, cells, opts...)
	t.Cleanup(c.Close)
	return c
}

func add(t *testing.T, c *Controller, m graph.NodeModel, x, y float64) graph.NodeID {
	t.Helper()
	id, err := c.AddNode(m, geometry.Pt(x, y))
	require.NoError(t, err)
	return id
}

func drag(c *Controller, from, to geometry.Point, mods Modifiers) {
	c.Press(from, mods)
	mid := from.Add(to.Sub(from).Scale(0.5))
	c.Move(mid, mods)
	c.Move(to, mods)
	c.Release(to, mods)
}

func TestItemsFollowModel(t *testing.T) {
	c := newScene(t)
	a := add(t, c, adder(), 0, 0)
	b := add(t, c, adder(), 200, 0)

	it, ok := c.Node(a)
	require.True(t, ok)
	assert.Equal(t, geometry.R(0, 0, 72, 88), it.Rect())
	assert.Len(t, c.Nodes(), 2)

	_, err := c.Graph().Connect(a, 0, b, 1)
	require.NoError(t, err)
	conns := c.Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, geometry.Pt(80, 34), conns[0].Curve.P0)
	assert.Equal(t, geometry.Pt(192, 70), conns[0].Curve.P3)

	c.Graph().MoveNode(b, geometry.Pt(300, 0))
	assert.Equal(t, geometry.Pt(292, 70), conns[0].Curve.P3)

	c.Graph().DeleteNode(a)
	assert.Empty(t, c.Connections())
	_, ok = c.Node(a)
	assert.False(t, ok)
}

func TestLayoutCacheInvalidation(t *testing.T) {
	c := newScene(t)
	a := add(t, c, adder(), 0, 0)
	add(t, c, adder(), 200, 0)
	assert.Equal(t, 2, c.Recomputations())

	c.Graph().MoveNode(a, geometry.Pt(10, 10))
	assert.Equal(t, 2, c.Recomputations(), "moving keeps the layout")

	c.Graph().SetStatus(a, graph.Processing)
	assert.Equal(t, 3, c.Recomputations())
	it, _ := c.Node(a)
	assert.Equal(t, 120.0, it.Layout.Size().H)

	c.SetMetrics(geometry.CellMetrics{CellWidth: 10, CellHeight: 20})
	assert.Equal(t, 5, c.Recomputations())
}

func TestHitTest(t *testing.T) {
	c := newScene(t)
	a := add(t, c, adder(), 0, 0)

	hit := c.HitTest(geometry.Pt(80, 34))
	assert.Equal(t, Hit{Kind: HitPort, Node: a, Port: graph.Out, Index: 0}, hit)

	hit = c.HitTest(geometry.Pt(36, 44))
	assert.Equal(t, Hit{Kind: HitNode, Node: a}, hit)

	assert.Equal(t, HitNone, c.HitTest(geometry.Pt(96, 34)).Kind, "just outside the tolerance")
	assert.Equal(t, HitNone, c.HitTest(geometry.Pt(500, 500)).Kind)
}

func TestHitTestTopmostFirst(t *testing.T) {
	c := newScene(t)
	a := add(t, c, adder(), 0, 0)
	b := add(t, c, adder(), 20, 20)

	assert.Equal(t, b, c.HitTest(geometry.Pt(40, 40)).Node)
	c.Press(geometry.Pt(10, 10), 0)
	c.Release(geometry.Pt(10, 10), 0)
	assert.Equal(t, a, c.HitTest(geometry.Pt(40, 40)).Node, "pressing raises")
}

func TestConnectByDrag(t *testing.T) {
	c := newScene(t)
	a := add(t, c, adder(), 0, 0)
	b := add(t, c, adder(), 200, 0)
	depth := c.Stack().Len()

	c.Press(geometry.Pt(80, 34), 0)
	assert.Equal(t, Connecting, c.State())

	c.Move(geometry.Pt(182, 70), 0)
	assert.InDelta(t, 1.75, c.PortReaction(b, graph.In, 1), 1e-9)
	assert.Equal(t, 1.0, c.PortReaction(b, graph.In, 0))
	pc, ok := c.PendingConnection()
	require.True(t, ok)
	assert.True(t, pc.Possible)
	assert.Equal(t, geometry.Pt(80, 34), pc.Curve.P0)

	c.Release(geometry.Pt(192, 70), 0)
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, depth+1, c.Stack().Len())
	conns := c.Graph().ConnectionsOf(b)
	require.Len(t, conns, 1)
	assert.Equal(t, graph.Endpoints{SourceNode: a, SourcePort: 0, TargetNode: b, TargetPort: 1}, conns[0].Endpoints)
}

func TestIncompatiblePortShrinks(t *testing.T) {
	c := newScene(t)
	add(t, c, adder(), 0, 0)
	p := add(t, c, printer(), 200, 0)
	depth := c.Stack().Len()

	c.Press(geometry.Pt(80, 34), 0)
	c.Move(geometry.Pt(172, 34), 0)
	assert.InDelta(t, 0.25, c.PortReaction(p, graph.In, 0), 1e-9)
	pc, _ := c.PendingConnection()
	assert.False(t, pc.Possible)

	c.Release(geometry.Pt(192, 34), 0)
	assert.Equal(t, depth, c.Stack().Len(), "rejected connection records nothing")
	assert.Equal(t, 0, c.Graph().ConnectionCount())
}

func TestReconnect(t *testing.T) {
	c := newScene(t)
	a := add(t, c, adder(), 0, 0)
	b := add(t, c, adder(), 200, 0)
	_, err := c.Graph().Connect(a, 0, b, 0)
	require.NoError(t, err)
	before := c.Graph().Save()
	depth := c.Stack().Len()

	drag(c, geometry.Pt(192, 34), geometry.Pt(192, 34), 0)
	assert.Equal(t, before, c.Graph().Save(), "dropped on the same port")
	assert.Equal(t, depth, c.Stack().Len())

	drag(c, geometry.Pt(192, 34), geometry.Pt(192, 70), 0)
	conns := c.Graph().ConnectionsOf(b)
	require.Len(t, conns, 1)
	assert.Equal(t, 1, conns[0].TargetPort)
	assert.Equal(t, depth+1, c.Stack().Len())

	require.NoError(t, c.Undo())
	assert.Equal(t, before, c.Graph().Save())

	drag(c, geometry.Pt(192, 34), geometry.Pt(400, 400), 0)
	assert.Equal(t, 0, c.Graph().ConnectionCount(), "dropped on empty canvas")
	require.NoError(t, c.Undo())
	assert.Equal(t, before, c.Graph().Save())
}

func TestDragMovesWholeGroup(t *testing.T) {
	c := newScene(t)
	var ids []graph.NodeID
	for i := range 5 {
		ids = append(ids, add(t, c, adder(), float64(i)*150, 0))
	}
	require.NoError(t, c.Stack().Push(&command.CreateGroup{Nodes: ids}))
	depth := c.Stack().Len()

	drag(c, geometry.Pt(336, 44), geometry.Pt(346, 54), 0)

	for i, id := range ids {
		n, _ := c.Graph().Node(id)
		assert.Equal(t, geometry.Pt(float64(i)*150+10, 10), n.Position)
	}
	assert.Equal(t, depth+1, c.Stack().Len(), "one entry per gesture")

	require.NoError(t, c.Undo())
	for i, id := range ids {
		n, _ := c.Graph().Node(id)
		assert.Equal(t, geometry.Pt(float64(i)*150, 0), n.Position)
	}
}

func TestLockedGroupRefusesMemberDrag(t *testing.T) {
	c := newScene(t, WithGroupLocking(true))
	a := add(t, c, adder(), 0, 0)
	require.NoError(t, c.Stack().Push(&command.CreateGroup{Nodes: []graph.NodeID{a}}))
	gid, _ := c.Graph().GroupOf(a)

	// the title strip of the group frame
	require.Equal(t, HitGroup, c.HitTest(geometry.Pt(-25, -40)).Kind)
	assert.True(t, c.DoubleClick(geometry.Pt(-25, -40)))
	gr, _ := c.Group(gid)
	assert.True(t, gr.Locked)

	drag(c, geometry.Pt(36, 44), geometry.Pt(86, 44), 0)
	n, _ := c.Graph().Node(a)
	assert.Equal(t, geometry.Pt(0, 0), n.Position)

	c.SetGroupLocking(false)
	assert.False(t, c.DoubleClick(geometry.Pt(-25, -40)))
}

func TestDropIntoGroup(t *testing.T) {
	c := newScene(t)
	a := add(t, c, adder(), 0, 0)
	require.NoError(t, c.Stack().Push(&command.CreateGroup{Nodes: []graph.NodeID{a}}))
	gid, _ := c.Graph().GroupOf(a)
	b := add(t, c, adder(), 300, 300)
	depth := c.Stack().Len()

	drag(c, geometry.Pt(336, 344), geometry.Pt(30, 60), 0)
	got, ok := c.Graph().GroupOf(b)
	require.True(t, ok)
	assert.Equal(t, gid, got)
	assert.Equal(t, depth+1, c.Stack().Len())

	require.NoError(t, c.Undo())
	_, ok = c.Graph().GroupOf(b)
	assert.False(t, ok)
	n, _ := c.Graph().Node(b)
	assert.Equal(t, geometry.Pt(300, 300), n.Position)
}

func TestPossibleChildGrowsGroupFrame(t *testing.T) {
	c := newScene(t)
	a := add(t, c, adder(), 0, 0)
	require.NoError(t, c.Stack().Push(&command.CreateGroup{Nodes: []graph.NodeID{a}}))
	gid, _ := c.Graph().GroupOf(a)
	b := add(t, c, adder(), 300, 300)
	gr, _ := c.Group(gid)
	frame := gr.Rect

	c.Press(geometry.Pt(336, 344), 0)
	c.Move(geometry.Pt(336, 350), 0)
	_, _, ok := c.PossibleChild()
	assert.False(t, ok, "still outside the group")
	assert.Equal(t, frame, c.GroupFrame(gr))

	c.Move(geometry.Pt(30, 60), 0)
	node, target, ok := c.PossibleChild()
	require.True(t, ok)
	assert.Equal(t, b, node)
	assert.Equal(t, gid, target)
	item, _ := c.Node(b)
	grown, br := c.GroupFrame(gr), item.BoundingRect()
	assert.LessOrEqual(t, grown.X, br.X)
	assert.LessOrEqual(t, grown.Y, br.Y)
	assert.GreaterOrEqual(t, grown.X+grown.W, br.X+br.W)
	assert.GreaterOrEqual(t, grown.Y+grown.H, br.Y+br.H)
	assert.Equal(t, frame, gr.Rect, "the item keeps its own frame")

	c.Release(geometry.Pt(30, 60), 0)
	_, _, ok = c.PossibleChild()
	assert.False(t, ok)
}

func TestHoverNeverMutates(t *testing.T) {
	c := newScene(t)
	a := add(t, c, adder(), 0, 0)
	depth := c.Stack().Len()
	before := c.Graph().Save()

	c.Move(geometry.Pt(36, 44), 0)
	assert.Equal(t, Hovering, c.State())
	assert.Equal(t, Hit{Kind: HitNode, Node: a}, c.Hover())

	c.Move(geometry.Pt(80, 34), 0)
	assert.Equal(t, Hovering, c.State())
	assert.Equal(t, HitPort, c.Hover().Kind)

	c.Move(geometry.Pt(500, 500), 0)
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, HitNone, c.Hover().Kind)

	assert.Equal(t, depth, c.Stack().Len())
	assert.Equal(t, before, c.Graph().Save())
}

func TestReleaseEndsIdle(t *testing.T) {
	c := newScene(t)
	add(t, c, adder(), 0, 0)
	drag(c, geometry.Pt(36, 44), geometry.Pt(46, 44), 0)
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, HitNone, c.Hover().Kind)

	c.Move(geometry.Pt(46, 44), 0)
	assert.Equal(t, Hovering, c.State())
}

func TestRebuildKeepsOneItemPerNode(t *testing.T) {
	s := command.NewStack(graph.New())
	g := s.Graph()
	a := g.AddNode(adder(), geometry.Pt(0, 0))
	b := g.AddNode(adder(), geometry.Pt(20, 20))

	c := New(s, cells)
	t.Cleanup(c.Close)
	assert.Len(t, c.Nodes(), 2)

	c.Press(geometry.Pt(10, 10), 0)
	c.Release(geometry.Pt(10, 10), 0)
	c.SetConstants(c.Constants())
	c.SetMetrics(geometry.CellMetrics{CellWidth: 10, CellHeight: 20})
	nodes := c.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, []graph.NodeID{b, a}, []graph.NodeID{nodes[0].ID, nodes[1].ID}, "stacking survives a relayout")

	require.NoError(t, g.Load(g.Save()))
	assert.Len(t, c.Nodes(), 2)
}

func TestResize(t *testing.T) {
	c := newScene(t)
	p := add(t, c, &panel{}, 0, 0)
	a := add(t, c, adder(), 0, 200)

	assert.Equal(t, HitResize, c.HitTest(geometry.Pt(116, 16)).Kind)
	assert.Equal(t, HitNode, c.HitTest(geometry.Pt(68, 284)).Kind, "fixed-size nodes have no handle")
	_ = a

	drag(c, geometry.Pt(116, 16), geometry.Pt(136, 26), 0)
	n, _ := c.Graph().Node(p)
	assert.Equal(t, geometry.Size{W: 140, H: 30}, n.UserSize)
	it, _ := c.Node(p)
	assert.Equal(t, geometry.Size{W: 140, H: 30}, it.Layout.Size())

	drag(c, geometry.Pt(136, 26), geometry.Pt(0, 0), 0)
	n, _ = c.Graph().Node(p)
	assert.Equal(t, geometry.Size{W: 120, H: 20}, n.UserSize, "clamped to the computed size")

	require.NoError(t, c.Undo())
	require.NoError(t, c.Undo())
	n, _ = c.Graph().Node(p)
	assert.True(t, n.UserSize.Empty())
}

func TestEmptyCanvasPolicy(t *testing.T) {
	c := newScene(t)
	a := add(t, c, adder(), 0, 0)
	c.ClearSelection()

	c.Press(geometry.Pt(500, 500), 0)
	assert.Equal(t, Panning, c.State())
	c.Release(geometry.Pt(400, 400), 0)
	assert.True(t, c.Selection().Empty())

	c.Press(geometry.Pt(500, 500), Shift)
	assert.Equal(t, RubberBand, c.State())
	c.Move(geometry.Pt(50, 50), Shift)
	band, ok := c.RubberBand()
	require.True(t, ok)
	assert.Equal(t, geometry.R(50, 50, 450, 450), band)
	c.Release(geometry.Pt(50, 50), Shift)
	assert.Equal(t, []graph.NodeID{a}, c.Selection().NodeIDs())

	s := newScene(t, WithEmptyCanvas(DragSelect))
	s.Press(geometry.Pt(500, 500), 0)
	assert.Equal(t, RubberBand, s.State())
}

func TestCancelRevertsDrag(t *testing.T) {
	c := newScene(t)
	a := add(t, c, adder(), 0, 0)
	depth := c.Stack().Len()

	c.Press(geometry.Pt(36, 44), 0)
	c.Move(geometry.Pt(100, 100), 0)
	c.Cancel()

	n, _ := c.Graph().Node(a)
	assert.Equal(t, geometry.Pt(0, 0), n.Position)
	assert.Equal(t, depth, c.Stack().Len())
	assert.Equal(t, Idle, c.State())
}

func TestDeleteSelectionUndo(t *testing.T) {
	c := newScene(t)
	a := add(t, c, adder(), 0, 0)
	b := add(t, c, adder(), 200, 0)
	_, err := c.Graph().Connect(a, 0, b, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Graph().ConnectionCount())
	before := c.Graph().Save()

	c.ClearSelection()
	c.Selection().AddNode(a)
	require.NoError(t, c.DeleteSelection())
	assert.Equal(t, 0, c.Graph().ConnectionCount())
	assert.True(t, c.Selection().Empty())

	require.NoError(t, c.Undo())
	assert.Equal(t, before, c.Graph().Save())
	assert.Len(t, c.Connections(), 1)
}

func TestCopyPaste(t *testing.T) {
	c := newScene(t)
	a := add(t, c, adder(), 0, 0)
	b := add(t, c, adder(), 200, 0)
	_, err := c.Graph().Connect(a, 0, b, 0)
	require.NoError(t, err)

	c.SelectAll()
	ok, err := c.Copy()
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.Paste(geometry.Pt(500, 500)))
	assert.Equal(t, 4, c.Graph().NodeCount())
	assert.Equal(t, 2, c.Graph().ConnectionCount())
	pasted := c.Selection().NodeIDs()
	require.Len(t, pasted, 2)
	n, _ := c.Graph().Node(pasted[0])
	assert.Equal(t, geometry.Pt(500, 500), n.Position)

	require.NoError(t, c.Duplicate(geometry.Pt(0, 300)))
	assert.Equal(t, 6, c.Graph().NodeCount())

	require.NoError(t, c.Cut())
	assert.Equal(t, 4, c.Graph().NodeCount())
	require.NoError(t, c.Paste(geometry.Pt(0, 600)))
	assert.Equal(t, 6, c.Graph().NodeCount())
}

func TestGroupSelection(t *testing.T) {
	c := newScene(t)
	a := add(t, c, adder(), 0, 0)
	b := add(t, c, adder(), 200, 0)
	c.Selection().AddNode(a)
	c.Selection().AddNode(b)

	require.NoError(t, c.GroupSelection())
	gids := c.Selection().GroupIDs()
	require.Len(t, gids, 1)
	gr, ok := c.Group(gids[0])
	require.True(t, ok)
	assert.Equal(t, "Group 1", gr.Name)
	assert.True(t, gr.Rect.Contains(geometry.Pt(0, 0)))
	assert.True(t, gr.Rect.Contains(geometry.Pt(272, 88)))

	require.NoError(t, c.UngroupSelection())
	assert.Empty(t, c.Groups())
	require.NoError(t, c.Undo())
	assert.Len(t, c.Groups(), 1)
}

func TestReactionRadius(t *testing.T) {
	assert.Equal(t, 2.0, ReactionRadius(0, true))
	assert.Equal(t, 1.5, ReactionRadius(20, true))
	assert.Equal(t, 1.0, ReactionRadius(40, true))
	assert.Equal(t, 0.0, ReactionRadius(0, false))
	assert.Equal(t, 0.5, ReactionRadius(40, false))
	assert.Equal(t, 1.0, ReactionRadius(80, false))
}
