package command

import (
	"fmt"

	"nodeflow/internal/graph"
)

// CreateGroup groups nodes, taking them out of their previous groups.
type CreateGroup struct {
	Nodes []graph.NodeID
	// Label names the group; empty picks the next "Group N".
	Label string

	id    graph.GroupID
	rec   graph.GroupRecord
	prior []graph.GroupRecord
}

func (c *CreateGroup) Name() string { return "Group" }

func (c *CreateGroup) Do(g *graph.Graph) error {
	c.prior = g.GroupRecords(groupsOf(g, c.Nodes))
	if c.rec.ID != "" {
		return g.Restore(graph.Record{Groups: []graph.GroupRecord{c.rec}})
	}
	id, err := g.CreateGroup(c.Nodes, c.Label)
	if err != nil {
		return err
	}
	c.id = id
	return nil
}

func (c *CreateGroup) Undo(g *graph.Graph) error {
	recs := g.GroupRecords([]graph.GroupID{c.id})
	if len(recs) == 0 {
		return fmt.Errorf("%w: group %s", ErrStale, c.id)
	}
	c.rec = recs[0]
	g.DissolveGroup(c.id)
	return g.Restore(graph.Record{Groups: c.prior})
}

func (c *CreateGroup) ID() graph.GroupID { return c.id }

func groupsOf(g *graph.Graph, nodes []graph.NodeID) []graph.GroupID {
	var out []graph.GroupID
	seen := map[graph.GroupID]bool{}
	for _, id := range nodes {
		if gid, ok := g.GroupOf(id); ok && !seen[gid] {
			seen[gid] = true
			out = append(out, gid)
		}
	}
	return out
}

// Ungroup dissolves a group and keeps its nodes.
type Ungroup struct {
	Group graph.GroupID

	rec []graph.GroupRecord
}

func (c *Ungroup) Name() string { return "Ungroup" }

func (c *Ungroup) Do(g *graph.Graph) error {
	c.rec = g.GroupRecords([]graph.GroupID{c.Group})
	if !g.DissolveGroup(c.Group) {
		return fmt.Errorf("%w: group %s", ErrStale, c.Group)
	}
	return nil
}

func (c *Ungroup) Undo(g *graph.Graph) error {
	return g.Restore(graph.Record{Groups: c.rec})
}

type AddToGroup struct {
	Node  graph.NodeID
	Group graph.GroupID

	prior []graph.GroupRecord
}

func (c *AddToGroup) Name() string { return "Add to Group" }

func (c *AddToGroup) Do(g *graph.Graph) error {
	c.prior = g.GroupRecords(groupsOf(g, []graph.NodeID{c.Node}))
	return g.AddNodeToGroup(c.Node, c.Group)
}

func (c *AddToGroup) Undo(g *graph.Graph) error {
	g.RemoveNodeFromGroup(c.Node)
	return g.Restore(graph.Record{Groups: c.prior})
}

type RemoveFromGroup struct {
	Node graph.NodeID

	rec []graph.GroupRecord
}

func (c *RemoveFromGroup) Name() string { return "Remove from Group" }

func (c *RemoveFromGroup) Do(g *graph.Graph) error {
	c.rec = g.GroupRecords(groupsOf(g, []graph.NodeID{c.Node}))
	if !g.RemoveNodeFromGroup(c.Node) {
		return fmt.Errorf("%w: node %s is not grouped", ErrStale, c.Node)
	}
	return nil
}

func (c *RemoveFromGroup) Undo(g *graph.Graph) error {
	return g.Restore(graph.Record{Groups: c.rec})
}

type SetGroupLocked struct {
	Group  graph.GroupID
	Locked bool
}

func (c *SetGroupLocked) Name() string {
	if c.Locked {
		return "Lock Group"
	}
	return "Unlock Group"
}

func (c *SetGroupLocked) Do(g *graph.Graph) error {
	if !g.SetGroupLocked(c.Group, c.Locked) {
		return fmt.Errorf("%w: group %s", ErrStale, c.Group)
	}
	return nil
}

func (c *SetGroupLocked) Undo(g *graph.Graph) error {
	g.SetGroupLocked(c.Group, !c.Locked)
	return nil
}

type RenameGroup struct {
	Group graph.GroupID
	To    string

	from string
}

func (c *RenameGroup) Name() string { return "Rename Group" }

func (c *RenameGroup) Do(g *graph.Graph) error {
	gr, ok := g.Group(c.Group)
	if !ok {
		return fmt.Errorf("%w: group %s", ErrStale, c.Group)
	}
	c.from = gr.Name
	g.RenameGroup(c.Group, c.To)
	return nil
}

func (c *RenameGroup) Undo(g *graph.Graph) error {
	g.RenameGroup(c.Group, c.from)
	return nil
}
