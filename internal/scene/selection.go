package scene

import (
	"maps"
	"slices"

	"nodeflow/internal/graph"
)

// Selection is the transient set of selected items.
type Selection struct {
	nodes  map[graph.NodeID]struct{}
	conns  map[graph.ConnectionID]struct{}
	groups map[graph.GroupID]struct{}
}

func newSelection() Selection {
	return Selection{
		nodes:  make(map[graph.NodeID]struct{}),
		conns:  make(map[graph.ConnectionID]struct{}),
		groups: make(map[graph.GroupID]struct{}),
	}
}

func (s *Selection) Clear() {
	clear(s.nodes)
	clear(s.conns)
	clear(s.groups)
}

func (s *Selection) Empty() bool {
	return s.Len() == 0
}

func (s *Selection) Len() int {
	return len(s.nodes) + len(s.conns) + len(s.groups)
}

func (s *Selection) HasNode(id graph.NodeID) bool             { _, ok := s.nodes[id]; return ok }
func (s *Selection) HasConnection(id graph.ConnectionID) bool { _, ok := s.conns[id]; return ok }
func (s *Selection) HasGroup(id graph.GroupID) bool           { _, ok := s.groups[id]; return ok }

func (s *Selection) AddNode(id graph.NodeID)             { s.nodes[id] = struct{}{} }
func (s *Selection) AddConnection(id graph.ConnectionID) { s.conns[id] = struct{}{} }
func (s *Selection) AddGroup(id graph.GroupID)           { s.groups[id] = struct{}{} }

func (s *Selection) RemoveNode(id graph.NodeID)             { delete(s.nodes, id) }
func (s *Selection) RemoveConnection(id graph.ConnectionID) { delete(s.conns, id) }
func (s *Selection) RemoveGroup(id graph.GroupID)           { delete(s.groups, id) }

// ToggleNode flips a node's selection and reports whether it is now selected.
func (s *Selection) ToggleNode(id graph.NodeID) bool {
	if s.HasNode(id) {
		s.RemoveNode(id)
		return false
	}
	s.AddNode(id)
	return true
}

func (s *Selection) ToggleConnection(id graph.ConnectionID) {
	if s.HasConnection(id) {
		s.RemoveConnection(id)
	} else {
		s.AddConnection(id)
	}
}

func (s *Selection) ToggleGroup(id graph.GroupID) {
	if s.HasGroup(id) {
		s.RemoveGroup(id)
	} else {
		s.AddGroup(id)
	}
}

func (s *Selection) NodeIDs() []graph.NodeID {
	ids := slices.Collect(maps.Keys(s.nodes))
	slices.Sort(ids)
	return ids
}

func (s *Selection) ConnectionIDs() []graph.ConnectionID {
	ids := slices.Collect(maps.Keys(s.conns))
	slices.Sort(ids)
	return ids
}

func (s *Selection) GroupIDs() []graph.GroupID {
	ids := slices.Collect(maps.Keys(s.groups))
	slices.SortFunc(ids, func(a, b graph.GroupID) int { return slices.Compare(a[:], b[:]) })
	return ids
}

func (s *Selection) clone() Selection {
	return Selection{
		nodes:  maps.Clone(s.nodes),
		conns:  maps.Clone(s.conns),
		groups: maps.Clone(s.groups),
	}
}

func (s *Selection) union(o Selection) {
	maps.Copy(s.nodes, o.nodes)
	maps.Copy(s.conns, o.conns)
	maps.Copy(s.groups, o.groups)
}
