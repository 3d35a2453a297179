package scene

import (
	"fmt"

	"nodeflow/internal/command"
	"nodeflow/internal/geometry"
	"nodeflow/internal/graph"
)

// Clipboard stores copied graph fragments.
type Clipboard interface {
	Put(rec graph.Record) error
	Get() (graph.Record, error)
}

// MemoryClipboard keeps the last copied fragment in the process.
type MemoryClipboard struct {
	rec graph.Record
}

func (m *MemoryClipboard) Put(rec graph.Record) error {
	m.rec = rec
	return nil
}

func (m *MemoryClipboard) Get() (graph.Record, error) {
	return m.rec, nil
}

// DeleteSelection deletes the selected nodes and connections and
// dissolves the selected groups, as one undo entry.
func (c *Controller) DeleteSelection() error {
	cmd := &command.Delete{
		Nodes:       c.sel.NodeIDs(),
		Connections: c.sel.ConnectionIDs(),
		Groups:      c.sel.GroupIDs(),
	}
	if cmd.Empty() {
		return nil
	}
	c.Cancel()
	if err := c.stack.Push(cmd); err != nil {
		return fmt.Errorf("delete selection: %w", err)
	}
	c.sel.Clear()
	return nil
}

// Copy puts the selected nodes and the connections between them on the
// clipboard. It reports whether there was anything to copy.
func (c *Controller) Copy() (bool, error) {
	ids := c.copyIDs()
	if len(ids) == 0 {
		return false, nil
	}
	if err := c.clipboard.Put(c.g.Extract(ids)); err != nil {
		return false, fmt.Errorf("copy: %w", err)
	}
	return true, nil
}

// copyIDs is the selected nodes plus the members of selected groups.
func (c *Controller) copyIDs() []graph.NodeID {
	ids := c.sel.NodeIDs()
	for _, gid := range c.sel.GroupIDs() {
		if it, ok := c.groups[gid]; ok {
			for _, m := range it.Members {
				if !c.sel.HasNode(m) {
					ids = append(ids, m)
				}
			}
		}
	}
	return ids
}

// Cut copies the selection and then deletes it.
func (c *Controller) Cut() error {
	ok, err := c.Copy()
	if err != nil || !ok {
		return err
	}
	return c.DeleteSelection()
}

// Paste inserts the clipboard contents with their top-left corner at at
// and selects what was pasted.
func (c *Controller) Paste(at geometry.Point) error {
	rec, err := c.clipboard.Get()
	if err != nil {
		return fmt.Errorf("paste: %w", err)
	}
	return c.paste(rec, at)
}

// Duplicate copies the selection straight into the graph at at, leaving
// the clipboard alone.
func (c *Controller) Duplicate(at geometry.Point) error {
	ids := c.copyIDs()
	if len(ids) == 0 {
		return nil
	}
	return c.paste(c.g.Extract(ids), at)
}

func (c *Controller) paste(rec graph.Record, at geometry.Point) error {
	if len(rec.Nodes) == 0 {
		return nil
	}
	c.Cancel()
	p := command.NewPaste(rec, at)
	if err := c.stack.Push(p); err != nil {
		return fmt.Errorf("paste: %w", err)
	}
	c.sel.Clear()
	for _, id := range p.NodeIDs() {
		c.sel.AddNode(id)
		c.raise(id)
	}
	return nil
}

// GroupSelection groups the selected nodes and selects the new group.
func (c *Controller) GroupSelection() error {
	ids := c.copyIDs()
	if len(ids) == 0 {
		return nil
	}
	cmd := &command.CreateGroup{Nodes: ids}
	if err := c.stack.Push(cmd); err != nil {
		return fmt.Errorf("group: %w", err)
	}
	c.sel.Clear()
	c.sel.AddGroup(cmd.ID())
	return nil
}

// UngroupSelection dissolves the selected groups and the groups of the
// selected nodes.
func (c *Controller) UngroupSelection() error {
	seen := map[graph.GroupID]bool{}
	var cmds []command.Command
	add := func(gid graph.GroupID) {
		if !seen[gid] {
			seen[gid] = true
			cmds = append(cmds, &command.Ungroup{Group: gid})
		}
	}
	for _, gid := range c.sel.GroupIDs() {
		add(gid)
	}
	for _, id := range c.sel.NodeIDs() {
		if gid, ok := c.g.GroupOf(id); ok {
			add(gid)
		}
	}
	var err error
	switch len(cmds) {
	case 0:
		return nil
	case 1:
		err = c.stack.Push(cmds[0])
	default:
		err = c.stack.Push(command.NewMacro("Ungroup", cmds...))
	}
	if err != nil {
		return fmt.Errorf("ungroup: %w", err)
	}
	return nil
}

func (c *Controller) SelectAll() {
	for id := range c.nodes {
		c.sel.AddNode(id)
	}
	for id := range c.conns {
		c.sel.AddConnection(id)
	}
	for id := range c.groups {
		c.sel.AddGroup(id)
	}
}

func (c *Controller) ClearSelection() { c.sel.Clear() }

// Undo reverts the last command. A gesture in progress is cancelled first.
func (c *Controller) Undo() error {
	c.Cancel()
	return c.stack.Undo()
}

func (c *Controller) Redo() error {
	c.Cancel()
	return c.stack.Redo()
}

// AddNode creates a node at pos through the undo stack and selects it.
func (c *Controller) AddNode(m graph.NodeModel, pos geometry.Point) (graph.NodeID, error) {
	cmd := &command.AddNode{Model: m, At: pos}
	if err := c.stack.Push(cmd); err != nil {
		return 0, err
	}
	c.sel.Clear()
	c.sel.AddNode(cmd.ID())
	return cmd.ID(), nil
}
