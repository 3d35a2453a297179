package command

import (
	"fmt"

	"nodeflow/internal/graph"
)

type AddConnection struct {
	graph.Endpoints

	id   graph.ConnectionID
	snap graph.Record
}

func (c *AddConnection) Name() string { return "Connect" }

func (c *AddConnection) Do(g *graph.Graph) error {
	if c.id.Valid() {
		return g.Restore(c.snap)
	}
	id, err := g.AddConnection(c.Endpoints)
	if err != nil {
		return err
	}
	c.id = id
	return nil
}

func (c *AddConnection) Undo(g *graph.Graph) error {
	c.snap = g.Snapshot(nil, []graph.ConnectionID{c.id})
	if !g.DeleteConnection(c.id) {
		return fmt.Errorf("%w: connection %s", ErrStale, c.id)
	}
	return nil
}

func (c *AddConnection) ID() graph.ConnectionID { return c.id }

type DeleteConnection struct {
	ID graph.ConnectionID

	snap graph.Record
}

func (c *DeleteConnection) Name() string { return "Disconnect" }

func (c *DeleteConnection) Do(g *graph.Graph) error {
	c.snap = g.Snapshot(nil, []graph.ConnectionID{c.ID})
	if !g.DeleteConnection(c.ID) {
		return fmt.Errorf("%w: connection %s", ErrStale, c.ID)
	}
	return nil
}

func (c *DeleteConnection) Undo(g *graph.Graph) error {
	return g.Restore(c.snap)
}

// Reconnect moves an existing connection to new endpoints as one entry.
func Reconnect(id graph.ConnectionID, to graph.Endpoints) *Macro {
	return NewMacro("Reconnect", &DeleteConnection{ID: id}, &AddConnection{Endpoints: to})
}
