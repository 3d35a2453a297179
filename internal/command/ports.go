package command

import (
	"fmt"

	"nodeflow/internal/graph"
)

type InsertPort struct {
	Node  graph.NodeID
	Type  graph.PortType
	Index int
	Port  graph.Port
}

func (c *InsertPort) Name() string { return "Insert Port" }

func (c *InsertPort) Do(g *graph.Graph) error {
	return g.InsertPort(c.Node, c.Type, c.Index, c.Port)
}

func (c *InsertPort) Undo(g *graph.Graph) error {
	_, err := g.ErasePort(c.Node, c.Type, c.Index)
	return err
}

// ErasePort removes a port with its connections; undo puts both back.
type ErasePort struct {
	Node  graph.NodeID
	Type  graph.PortType
	Index int

	port graph.Port
	snap graph.Record
}

func (c *ErasePort) Name() string { return "Erase Port" }

func (c *ErasePort) Do(g *graph.Graph) error {
	n, ok := g.Node(c.Node)
	if !ok {
		return fmt.Errorf("%w: node %s", ErrStale, c.Node)
	}
	ports := n.Ports(c.Type)
	if c.Index < 0 || c.Index >= len(ports) {
		return fmt.Errorf("%w: %s index %d", graph.ErrInvalidPort, c.Type, c.Index)
	}
	c.port = ports[c.Index]
	var ids []graph.ConnectionID
	for _, conn := range g.ConnectionsAt(c.Node, c.Type, c.Index) {
		ids = append(ids, conn.ID)
	}
	c.snap = g.Snapshot(nil, ids)
	_, err := g.ErasePort(c.Node, c.Type, c.Index)
	return err
}

func (c *ErasePort) Undo(g *graph.Graph) error {
	if err := g.InsertPort(c.Node, c.Type, c.Index, c.port); err != nil {
		return err
	}
	return g.Restore(c.snap)
}
