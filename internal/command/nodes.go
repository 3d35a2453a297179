package command

import (
	"fmt"
	"slices"

	"nodeflow/internal/geometry"
	"nodeflow/internal/graph"
)

// AddNode creates a node. Undo captures it so redo brings back the same id.
type AddNode struct {
	Model graph.NodeModel
	At    geometry.Point

	id   graph.NodeID
	snap graph.Record
}

func (c *AddNode) Name() string { return "Add Node" }

func (c *AddNode) Do(g *graph.Graph) error {
	if c.id.Valid() {
		return g.Restore(c.snap)
	}
	c.id = g.AddNode(c.Model, c.At)
	return nil
}

func (c *AddNode) Undo(g *graph.Graph) error {
	c.snap = g.Snapshot([]graph.NodeID{c.id}, nil)
	if !g.DeleteNode(c.id) {
		return fmt.Errorf("%w: node %s", ErrStale, c.id)
	}
	return nil
}

// ID is the created node, valid after the first Do.
func (c *AddNode) ID() graph.NodeID { return c.id }

// Delete removes nodes and connections and dissolves groups. Everything the
// deletion destroys is captured first, so undo restores the exact state.
type Delete struct {
	Nodes       []graph.NodeID
	Connections []graph.ConnectionID
	Groups      []graph.GroupID

	snap   graph.Record
	groups []graph.GroupRecord
}

func (c *Delete) Name() string { return "Delete" }

func (c *Delete) Empty() bool {
	return len(c.Nodes) == 0 && len(c.Connections) == 0 && len(c.Groups) == 0
}

func (c *Delete) Do(g *graph.Graph) error {
	c.groups = g.GroupRecords(c.Groups)
	c.snap = g.Snapshot(c.Nodes, c.Connections)
	for _, id := range c.Groups {
		g.DissolveGroup(id)
	}
	for _, id := range c.Connections {
		g.DeleteConnection(id)
	}
	for _, id := range c.Nodes {
		g.DeleteNode(id)
	}
	return nil
}

func (c *Delete) Undo(g *graph.Graph) error {
	if err := g.Restore(c.snap); err != nil {
		return err
	}
	return g.Restore(graph.Record{Groups: c.groups})
}

// Move is one node's displacement.
type Move struct {
	ID       graph.NodeID
	From, To geometry.Point
}

// MoveNodes repositions nodes. Consecutive moves of the same nodes merge,
// keeping the first From and the last To.
type MoveNodes struct {
	Moves []Move
}

func (c *MoveNodes) Name() string { return "Move" }

func (c *MoveNodes) Do(g *graph.Graph) error {
	for _, m := range c.Moves {
		g.MoveNode(m.ID, m.To)
	}
	return nil
}

func (c *MoveNodes) Undo(g *graph.Graph) error {
	for _, m := range c.Moves {
		g.MoveNode(m.ID, m.From)
	}
	return nil
}

func (c *MoveNodes) Merge(next Command) bool {
	n, ok := next.(*MoveNodes)
	if !ok || len(n.Moves) != len(c.Moves) {
		return false
	}
	for i := range c.Moves {
		if c.Moves[i].ID != n.Moves[i].ID {
			return false
		}
	}
	for i := range c.Moves {
		c.Moves[i].To = n.Moves[i].To
	}
	return true
}

// Translate builds a MoveNodes shifting ids by delta from their current
// positions. Unknown ids are skipped.
func Translate(g *graph.Graph, ids []graph.NodeID, delta geometry.Point) *MoveNodes {
	c := &MoveNodes{}
	for _, id := range ids {
		if n, ok := g.Node(id); ok {
			c.Moves = append(c.Moves, Move{ID: id, From: n.Position, To: n.Position.Add(delta)})
		}
	}
	return c
}

type ResizeNode struct {
	ID       graph.NodeID
	From, To geometry.Size
}

func (c *ResizeNode) Name() string { return "Resize" }

func (c *ResizeNode) Do(g *graph.Graph) error {
	if !g.SetNodeSize(c.ID, c.To) {
		return fmt.Errorf("%w: node %s cannot be resized", ErrStale, c.ID)
	}
	return nil
}

func (c *ResizeNode) Undo(g *graph.Graph) error {
	g.SetNodeSize(c.ID, c.From)
	return nil
}

func (c *ResizeNode) Merge(next Command) bool {
	n, ok := next.(*ResizeNode)
	if !ok || n.ID != c.ID {
		return false
	}
	c.To = n.To
	return true
}

// Paste imports a record with its top-left at At.
type Paste struct {
	Record graph.Record
	At     geometry.Point

	nodes []graph.NodeID
	conns []graph.ConnectionID
	snap  graph.Record
}

func NewPaste(rec graph.Record, at geometry.Point) *Paste {
	return &Paste{Record: rec, At: at}
}

func (c *Paste) Name() string { return "Paste" }

func (c *Paste) Do(g *graph.Graph) error {
	if c.nodes != nil {
		return g.Restore(c.snap)
	}
	nodes, conns, err := g.Import(c.Record, c.At.Sub(c.Record.Origin()))
	if err != nil {
		return err
	}
	c.nodes, c.conns = nodes, conns
	return nil
}

func (c *Paste) Undo(g *graph.Graph) error {
	c.snap = g.Snapshot(c.nodes, nil)
	for _, id := range c.nodes {
		g.DeleteNode(id)
	}
	return nil
}

// NodeIDs lists the pasted nodes.
func (c *Paste) NodeIDs() []graph.NodeID { return slices.Clone(c.nodes) }

func (c *Paste) ConnectionIDs() []graph.ConnectionID { return slices.Clone(c.conns) }
