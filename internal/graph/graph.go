package graph

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"nodeflow/internal/geometry"
)

// Compatibility decides whether an output of type out may feed an input of
// type in.
type Compatibility func(out, in DataType) bool

// SameType is the default compatibility: equal data type ids.
func SameType(out, in DataType) bool {
	return out.ID == in.ID
}

type portKey struct {
	node  NodeID
	index int
}

// Graph owns nodes, connections and groups and enforces their invariants.
// It is not safe for concurrent use.
type Graph struct {
	nodes arena[*Node]
	conns arena[*Connection]

	groups     map[GroupID]*Group
	groupOrder []GroupID
	// groupCounter numbers auto-named groups and only ever grows.
	groupCounter int

	inputs   map[portKey]ConnectionID
	attached map[NodeID]map[ConnectionID]struct{}

	registry   *Registry
	compatible Compatibility

	observers    []observer
	nextObserver int
}

type Option func(*Graph)

func WithRegistry(r *Registry) Option {
	return func(g *Graph) { g.registry = r }
}

func WithCompatibility(c Compatibility) Option {
	return func(g *Graph) { g.compatible = c }
}

func New(opts ...Option) *Graph {
	g := &Graph{}
	for _, o := range opts {
		o(g)
	}
	if g.registry == nil {
		g.registry = NewRegistry()
	}
	if g.compatible == nil {
		g.compatible = SameType
	}
	g.reset()
	return g
}

func (g *Graph) reset() {
	g.nodes = arena[*Node]{}
	g.conns = arena[*Connection]{}
	g.groups = make(map[GroupID]*Group)
	g.groupOrder = nil
	g.inputs = make(map[portKey]ConnectionID)
	g.attached = make(map[NodeID]map[ConnectionID]struct{})
}

func (g *Graph) Registry() *Registry { return g.registry }

func (g *Graph) node(id NodeID) (*Node, bool) {
	return g.nodes.get(uint64(id))
}

func (g *Graph) conn(id ConnectionID) (*Connection, bool) {
	return g.conns.get(uint64(id))
}

func unknown(what string, id fmt.Stringer) error {
	return fmt.Errorf("%w: %s %s", ErrUnknownEntity, what, id)
}

// ---- nodes

// AddNode creates a node for model at pos and returns its id.
func (g *Graph) AddNode(m NodeModel, pos geometry.Point) NodeID {
	n := &Node{
		Type:           m.Name(),
		Caption:        m.Caption(),
		CaptionVisible: true,
		In:             m.Ports(In),
		Out:            m.Ports(Out),
		Position:       pos,
		Resizable:      m.Resizable(),
		Widget:         m.SizeHint(),
		Model:          m,
	}
	id := NodeID(g.nodes.alloc(n))
	n.ID = id
	g.emit(Event{Kind: NodeCreated, Node: id})
	return id
}

// CreateNode instantiates a registered node type.
func (g *Graph) CreateNode(typeName string, pos geometry.Point) (NodeID, error) {
	m, err := g.registry.Create(typeName)
	if err != nil {
		return 0, err
	}
	return g.AddNode(m, pos), nil
}

// Node returns a copy of the node. Port slices are not shared.
func (g *Graph) Node(id NodeID) (Node, bool) {
	n, ok := g.node(id)
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

func (g *Graph) HasNode(id NodeID) bool {
	return g.nodes.has(uint64(id))
}

func (g *Graph) NodeIDs() []NodeID {
	raw := g.nodes.ids()
	out := make([]NodeID, len(raw))
	for i, id := range raw {
		out[i] = NodeID(id)
	}
	return out
}

func (g *Graph) NodeCount() int { return g.nodes.live }

// DeleteNode removes the node, every connection touching it and its group
// membership. A group left empty is destroyed.
func (g *Graph) DeleteNode(id NodeID) bool {
	n, ok := g.node(id)
	if !ok {
		return false
	}
	for _, c := range g.ConnectionsOf(id) {
		g.DeleteConnection(c.ID)
	}
	if n.Grouped() {
		g.detach(n)
	}
	g.nodes.release(uint64(id))
	delete(g.attached, id)
	g.emit(Event{Kind: NodeDeleted, Node: id})
	return true
}

func (g *Graph) MoveNode(id NodeID, pos geometry.Point) bool {
	n, ok := g.node(id)
	if !ok {
		return false
	}
	if n.Position == pos {
		return true
	}
	n.Position = pos
	g.emit(Event{Kind: NodeMoved, Node: id})
	return true
}

// SetNodeSize stores a user size. Only resizable nodes accept one; the zero
// size returns the node to its computed size.
func (g *Graph) SetNodeSize(id NodeID, size geometry.Size) bool {
	n, ok := g.node(id)
	if !ok || !n.Resizable {
		return false
	}
	n.UserSize = size
	g.emit(Event{Kind: NodeUpdated, Node: id})
	return true
}

func (g *Graph) SetStatus(id NodeID, s ProcessingStatus) bool {
	n, ok := g.node(id)
	if !ok || !s.Valid() {
		return false
	}
	if n.Status != s {
		n.Status = s
		g.emit(Event{Kind: NodeUpdated, Node: id})
	}
	return true
}

func (g *Graph) SetCaption(id NodeID, text string, visible bool) bool {
	n, ok := g.node(id)
	if !ok {
		return false
	}
	n.Caption, n.CaptionVisible = text, visible
	g.emit(Event{Kind: NodeUpdated, Node: id})
	return true
}

func (g *Graph) SetNickname(id NodeID, text string, visible bool) bool {
	n, ok := g.node(id)
	if !ok {
		return false
	}
	n.Nickname, n.NicknameVisible = text, visible
	g.emit(Event{Kind: NodeUpdated, Node: id})
	return true
}

// ---- ports

// InsertPort inserts p at index on one side of the node. Connections on
// ports at or after index move up by one.
func (g *Graph) InsertPort(id NodeID, t PortType, index int, p Port) error {
	n, ok := g.node(id)
	if !ok {
		return unknown("node", id)
	}
	ports := n.Ports(t)
	if t != In && t != Out {
		return fmt.Errorf("%w: port type %s", ErrInvalidPort, t)
	}
	if index < 0 || index > len(ports) {
		return fmt.Errorf("%w: %s index %d of %d", ErrInvalidPort, t, index, len(ports))
	}
	ports = slices.Insert(ports, index, p)
	g.setPorts(n, t, ports)

	shifted := g.reindex(id, t, func(i int) (int, bool) {
		if i >= index {
			return i + 1, true
		}
		return i, false
	})
	g.emit(Event{Kind: NodeUpdated, Node: id})
	for _, cid := range shifted {
		g.emit(Event{Kind: ConnectionUpdated, Connection: cid})
	}
	return nil
}

// ErasePort removes the port at index. Connections on it are deleted and
// returned; connections on later ports move down by one.
func (g *Graph) ErasePort(id NodeID, t PortType, index int) ([]Connection, error) {
	n, ok := g.node(id)
	if !ok {
		return nil, unknown("node", id)
	}
	if t != In && t != Out {
		return nil, fmt.Errorf("%w: port type %s", ErrInvalidPort, t)
	}
	ports := n.Ports(t)
	if index < 0 || index >= len(ports) {
		return nil, fmt.Errorf("%w: %s index %d of %d", ErrInvalidPort, t, index, len(ports))
	}
	removed := g.ConnectionsAt(id, t, index)
	for _, c := range removed {
		g.DeleteConnection(c.ID)
	}
	g.setPorts(n, t, slices.Delete(slices.Clone(ports), index, index+1))

	shifted := g.reindex(id, t, func(i int) (int, bool) {
		if i > index {
			return i - 1, true
		}
		return i, false
	})
	g.emit(Event{Kind: NodeUpdated, Node: id})
	for _, cid := range shifted {
		g.emit(Event{Kind: ConnectionUpdated, Connection: cid})
	}
	return removed, nil
}

func (g *Graph) setPorts(n *Node, t PortType, ports []Port) {
	if t == In {
		n.In = ports
	} else {
		n.Out = ports
	}
}

// reindex rewrites the endpoint index of every connection on one side of
// node through shift, keeping the input occupancy index in step. It
// returns the connections that changed.
func (g *Graph) reindex(node NodeID, t PortType, shift func(int) (int, bool)) []ConnectionID {
	var changed []ConnectionID
	moved := map[portKey]ConnectionID{}
	for _, c := range g.connsOf(node) {
		switch {
		case t == Out && c.SourceNode == node:
			if i, ok := shift(c.SourcePort); ok {
				c.SourcePort = i
				changed = append(changed, c.ID)
			}
		case t == In && c.TargetNode == node:
			if i, ok := shift(c.TargetPort); ok {
				delete(g.inputs, portKey{node, c.TargetPort})
				c.TargetPort = i
				moved[portKey{node, i}] = c.ID
				changed = append(changed, c.ID)
			}
		}
	}
	for k, id := range moved {
		g.inputs[k] = id
	}
	slices.Sort(changed)
	return changed
}

// ---- connections

// CheckConnection returns nil when e could be added, or an error wrapping
// ErrInvalidConnection with the reason.
func (g *Graph) CheckConnection(e Endpoints) error {
	return g.CheckConnectionIgnoring(e, 0)
}

// CheckConnectionIgnoring is CheckConnection with one existing connection
// treated as absent, as when an input's connection is being dragged away.
func (g *Graph) CheckConnectionIgnoring(e Endpoints, ignore ConnectionID) error {
	if err := g.checkEndpoints(e, g.node); err != nil {
		return err
	}
	if cid, ok := g.inputs[portKey{e.TargetNode, e.TargetPort}]; ok && cid != ignore {
		return fmt.Errorf("%w: input %d of %s is taken by %s", ErrInvalidConnection, e.TargetPort, e.TargetNode, cid)
	}
	return nil
}

// checkEndpoints validates everything but input occupancy, resolving nodes
// through lookup.
func (g *Graph) checkEndpoints(e Endpoints, lookup func(NodeID) (*Node, bool)) error {
	src, ok := lookup(e.SourceNode)
	if !ok {
		return fmt.Errorf("%w: %w", ErrInvalidConnection, unknown("source node", e.SourceNode))
	}
	dst, ok := lookup(e.TargetNode)
	if !ok {
		return fmt.Errorf("%w: %w", ErrInvalidConnection, unknown("target node", e.TargetNode))
	}
	if e.SourceNode == e.TargetNode {
		return fmt.Errorf("%w: node %s connected to itself", ErrInvalidConnection, e.SourceNode)
	}
	if e.SourcePort < 0 || e.SourcePort >= len(src.Out) {
		return fmt.Errorf("%w: %w: output %d of %s", ErrInvalidConnection, ErrInvalidPort, e.SourcePort, e.SourceNode)
	}
	if e.TargetPort < 0 || e.TargetPort >= len(dst.In) {
		return fmt.Errorf("%w: %w: input %d of %s", ErrInvalidConnection, ErrInvalidPort, e.TargetPort, e.TargetNode)
	}
	out, in := src.Out[e.SourcePort].Type, dst.In[e.TargetPort].Type
	if !g.compatible(out, in) {
		return fmt.Errorf("%w: %s does not accept %s", ErrInvalidConnection, in.ID, out.ID)
	}
	return nil
}

func (g *Graph) ConnectionPossible(e Endpoints) bool {
	return g.CheckConnection(e) == nil
}

func (g *Graph) AddConnection(e Endpoints) (ConnectionID, error) {
	if err := g.CheckConnection(e); err != nil {
		return 0, err
	}
	c := &Connection{Endpoints: e}
	c.ID = ConnectionID(g.conns.alloc(c))
	g.link(c)
	g.emit(Event{Kind: ConnectionCreated, Connection: c.ID})
	return c.ID, nil
}

// Connect is AddConnection spelled out by port.
func (g *Graph) Connect(src NodeID, out int, dst NodeID, in int) (ConnectionID, error) {
	return g.AddConnection(Endpoints{SourceNode: src, SourcePort: out, TargetNode: dst, TargetPort: in})
}

func (g *Graph) link(c *Connection) {
	g.inputs[portKey{c.TargetNode, c.TargetPort}] = c.ID
	for _, n := range []NodeID{c.SourceNode, c.TargetNode} {
		set, ok := g.attached[n]
		if !ok {
			set = make(map[ConnectionID]struct{})
			g.attached[n] = set
		}
		set[c.ID] = struct{}{}
	}
}

func (g *Graph) DeleteConnection(id ConnectionID) bool {
	c, ok := g.conn(id)
	if !ok {
		return false
	}
	delete(g.inputs, portKey{c.TargetNode, c.TargetPort})
	delete(g.attached[c.SourceNode], id)
	delete(g.attached[c.TargetNode], id)
	g.conns.release(uint64(id))
	g.emit(Event{Kind: ConnectionDeleted, Connection: id})
	return true
}

func (g *Graph) Connection(id ConnectionID) (Connection, bool) {
	c, ok := g.conn(id)
	if !ok {
		return Connection{}, false
	}
	return *c, true
}

func (g *Graph) HasConnection(id ConnectionID) bool {
	return g.conns.has(uint64(id))
}

func (g *Graph) ConnectionIDs() []ConnectionID {
	raw := g.conns.ids()
	out := make([]ConnectionID, len(raw))
	for i, id := range raw {
		out[i] = ConnectionID(id)
	}
	return out
}

func (g *Graph) ConnectionCount() int { return g.conns.live }

func (g *Graph) connsOf(node NodeID) []*Connection {
	set := g.attached[node]
	out := make([]*Connection, 0, len(set))
	for id := range set {
		if c, ok := g.conn(id); ok {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b *Connection) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// ConnectionsOf lists every connection touching node, ordered by id.
func (g *Graph) ConnectionsOf(node NodeID) []Connection {
	cs := g.connsOf(node)
	out := make([]Connection, len(cs))
	for i, c := range cs {
		out[i] = *c
	}
	return out
}

// ConnectionsAt lists the connections on one port.
func (g *Graph) ConnectionsAt(node NodeID, t PortType, index int) []Connection {
	var out []Connection
	for _, c := range g.connsOf(node) {
		if (t == Out && c.SourceNode == node && c.SourcePort == index) ||
			(t == In && c.TargetNode == node && c.TargetPort == index) {
			out = append(out, *c)
		}
	}
	return out
}

// InputConnection returns the connection occupying an input, if any.
func (g *Graph) InputConnection(node NodeID, index int) (ConnectionID, bool) {
	id, ok := g.inputs[portKey{node, index}]
	return id, ok
}

// ---- groups

func (g *Graph) nextGroupName() string {
	g.groupCounter++
	return fmt.Sprintf("Group %d", g.groupCounter)
}

// CreateGroup makes a group of ids. Nodes already in another group move to
// the new one. An empty name picks the next "Group N".
func (g *Graph) CreateGroup(ids []NodeID, name string) (GroupID, error) {
	if len(ids) == 0 {
		return GroupID{}, ErrEmptyGroup
	}
	for _, id := range ids {
		if !g.HasNode(id) {
			return GroupID{}, unknown("node", id)
		}
	}
	if name == "" {
		name = g.nextGroupName()
	}
	gr := &Group{ID: uuid.New(), Name: name, members: make(map[NodeID]struct{})}
	g.insertGroup(gr)
	for _, id := range ids {
		n, _ := g.node(id)
		g.attach(n, gr)
	}
	return gr.ID, nil
}

func (g *Graph) insertGroup(gr *Group) {
	g.groups[gr.ID] = gr
	g.groupOrder = append(g.groupOrder, gr.ID)
	g.emit(Event{Kind: GroupCreated, Group: gr.ID})
}

// attach moves n into gr, leaving any previous group first.
func (g *Graph) attach(n *Node, gr *Group) {
	if n.Group == gr.ID {
		return
	}
	if n.Grouped() {
		g.detach(n)
	}
	gr.members[n.ID] = struct{}{}
	n.Group = gr.ID
	g.emit(Event{Kind: GroupUpdated, Group: gr.ID})
}

// detach removes n from its group and destroys the group when it empties.
func (g *Graph) detach(n *Node) {
	gr, ok := g.groups[n.Group]
	n.Group = GroupID{}
	if !ok {
		return
	}
	delete(gr.members, n.ID)
	if len(gr.members) == 0 {
		g.removeGroup(gr.ID)
		return
	}
	g.emit(Event{Kind: GroupUpdated, Group: gr.ID})
}

func (g *Graph) removeGroup(id GroupID) {
	delete(g.groups, id)
	g.groupOrder = slices.DeleteFunc(g.groupOrder, func(x GroupID) bool { return x == id })
	g.emit(Event{Kind: GroupDeleted, Group: id})
}

func (g *Graph) AddNodeToGroup(node NodeID, group GroupID) error {
	n, ok := g.node(node)
	if !ok {
		return unknown("node", node)
	}
	gr, ok := g.groups[group]
	if !ok {
		return unknown("group", group)
	}
	g.attach(n, gr)
	return nil
}

// RemoveNodeFromGroup ungroups a single node. It reports false when the
// node does not exist or is not grouped.
func (g *Graph) RemoveNodeFromGroup(node NodeID) bool {
	n, ok := g.node(node)
	if !ok || !n.Grouped() {
		return false
	}
	g.detach(n)
	return true
}

// DissolveGroup ungroups every member and destroys the group. The nodes
// themselves stay.
func (g *Graph) DissolveGroup(id GroupID) bool {
	gr, ok := g.groups[id]
	if !ok {
		return false
	}
	for m := range gr.members {
		if n, ok := g.node(m); ok {
			n.Group = GroupID{}
		}
	}
	g.removeGroup(id)
	return true
}

func (g *Graph) RenameGroup(id GroupID, name string) bool {
	gr, ok := g.groups[id]
	if !ok {
		return false
	}
	gr.Name = name
	g.emit(Event{Kind: GroupUpdated, Group: id})
	return true
}

func (g *Graph) SetGroupLocked(id GroupID, locked bool) bool {
	gr, ok := g.groups[id]
	if !ok {
		return false
	}
	if gr.Locked != locked {
		gr.Locked = locked
		g.emit(Event{Kind: GroupUpdated, Group: id})
	}
	return true
}

// Group returns a copy of the group.
func (g *Graph) Group(id GroupID) (Group, bool) {
	gr, ok := g.groups[id]
	if !ok {
		return Group{}, false
	}
	return gr.clone(), true
}

// GroupIDs lists groups in creation order.
func (g *Graph) GroupIDs() []GroupID {
	return slices.Clone(g.groupOrder)
}

func (g *Graph) GroupOf(node NodeID) (GroupID, bool) {
	n, ok := g.node(node)
	if !ok || !n.Grouped() {
		return GroupID{}, false
	}
	return n.Group, true
}

// GroupCounter is the number of auto-named groups handed out so far.
func (g *Graph) GroupCounter() int { return g.groupCounter }
