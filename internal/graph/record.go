package graph

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"nodeflow/internal/geometry"
)

// Record is the serializable form of a graph or of a part of one.
type Record struct {
	Nodes        []NodeRecord       `json:"nodes" yaml:"nodes" msgpack:"nodes" validate:"dive"`
	Connections  []ConnectionRecord `json:"connections" yaml:"connections" msgpack:"connections" validate:"dive"`
	Groups       []GroupRecord      `json:"groups,omitempty" yaml:"groups,omitempty" msgpack:"groups,omitempty" validate:"dive"`
	GroupCounter int                `json:"group_counter,omitempty" yaml:"group_counter,omitempty" msgpack:"group_counter,omitempty" validate:"gte=0"`
}

type NodeRecord struct {
	ID              uint64         `json:"id" yaml:"id" msgpack:"id" validate:"required"`
	Type            string         `json:"type" yaml:"type" msgpack:"type" validate:"required"`
	Caption         string         `json:"caption,omitempty" yaml:"caption,omitempty" msgpack:"caption,omitempty"`
	CaptionVisible  bool           `json:"caption_visible" yaml:"caption_visible" msgpack:"caption_visible"`
	Nickname        string         `json:"nickname,omitempty" yaml:"nickname,omitempty" msgpack:"nickname,omitempty"`
	NicknameVisible bool           `json:"nickname_visible,omitempty" yaml:"nickname_visible,omitempty" msgpack:"nickname_visible,omitempty"`
	In              []PortRecord   `json:"in,omitempty" yaml:"in,omitempty" msgpack:"in,omitempty" validate:"dive"`
	Out             []PortRecord   `json:"out,omitempty" yaml:"out,omitempty" msgpack:"out,omitempty" validate:"dive"`
	Position        PointRecord    `json:"position" yaml:"position" msgpack:"position"`
	Size            SizeRecord     `json:"size,omitempty" yaml:"size,omitempty" msgpack:"size,omitempty"`
	Status          int            `json:"status,omitempty" yaml:"status,omitempty" msgpack:"status,omitempty" validate:"gte=0,lte=6"`
	Model           map[string]any `json:"model,omitempty" yaml:"model,omitempty" msgpack:"model,omitempty"`

	// model carries the live model through undo snapshots so a restored
	// node keeps its state without a save/load trip.
	model NodeModel
}

type PortRecord struct {
	TypeID   string `json:"type_id" yaml:"type_id" msgpack:"type_id" validate:"required"`
	TypeName string `json:"type_name,omitempty" yaml:"type_name,omitempty" msgpack:"type_name,omitempty"`
	Caption  string `json:"caption,omitempty" yaml:"caption,omitempty" msgpack:"caption,omitempty"`
}

type PointRecord struct {
	X float64 `json:"x" yaml:"x" msgpack:"x"`
	Y float64 `json:"y" yaml:"y" msgpack:"y"`
}

type SizeRecord struct {
	W float64 `json:"w" yaml:"w" msgpack:"w" validate:"gte=0"`
	H float64 `json:"h" yaml:"h" msgpack:"h" validate:"gte=0"`
}

type ConnectionRecord struct {
	ID         uint64 `json:"id" yaml:"id" msgpack:"id" validate:"required"`
	Source     uint64 `json:"source" yaml:"source" msgpack:"source" validate:"required"`
	SourcePort int    `json:"source_port" yaml:"source_port" msgpack:"source_port" validate:"gte=0"`
	Target     uint64 `json:"target" yaml:"target" msgpack:"target" validate:"required,nefield=Source"`
	TargetPort int    `json:"target_port" yaml:"target_port" msgpack:"target_port" validate:"gte=0"`
}

type GroupRecord struct {
	ID      string   `json:"id" yaml:"id" msgpack:"id" validate:"required,uuid"`
	Name    string   `json:"name" yaml:"name" msgpack:"name"`
	Locked  bool     `json:"locked,omitempty" yaml:"locked,omitempty" msgpack:"locked,omitempty"`
	Members []uint64 `json:"members" yaml:"members" msgpack:"members" validate:"min=1,dive,required"`
}

func (r ConnectionRecord) endpoints() Endpoints {
	return Endpoints{
		SourceNode: NodeID(r.Source), SourcePort: r.SourcePort,
		TargetNode: NodeID(r.Target), TargetPort: r.TargetPort,
	}
}

// Empty reports whether the record holds nothing.
func (r Record) Empty() bool {
	return len(r.Nodes) == 0 && len(r.Connections) == 0 && len(r.Groups) == 0
}

// Origin is the top-left of the recorded node positions.
func (r Record) Origin() geometry.Point {
	if len(r.Nodes) == 0 {
		return geometry.Point{}
	}
	o := geometry.Pt(r.Nodes[0].Position.X, r.Nodes[0].Position.Y)
	for _, n := range r.Nodes[1:] {
		o.X = min(o.X, n.Position.X)
		o.Y = min(o.Y, n.Position.Y)
	}
	return o
}

func portRecords(ports []Port) []PortRecord {
	if len(ports) == 0 {
		return nil
	}
	out := make([]PortRecord, len(ports))
	for i, p := range ports {
		out[i] = PortRecord{TypeID: p.Type.ID, TypeName: p.Type.Name, Caption: p.Caption}
	}
	return out
}

func portsFromRecords(recs []PortRecord) []Port {
	out := make([]Port, len(recs))
	for i, r := range recs {
		out[i] = Port{Type: DataType{ID: r.TypeID, Name: r.TypeName}, Caption: r.Caption}
	}
	return out
}

func nodeRecord(n *Node, live bool) NodeRecord {
	r := NodeRecord{
		ID:              uint64(n.ID),
		Type:            n.Type,
		Caption:         n.Caption,
		CaptionVisible:  n.CaptionVisible,
		Nickname:        n.Nickname,
		NicknameVisible: n.NicknameVisible,
		In:              portRecords(n.In),
		Out:             portRecords(n.Out),
		Position:        PointRecord{n.Position.X, n.Position.Y},
		Size:            SizeRecord{n.UserSize.W, n.UserSize.H},
		Status:          int(n.Status),
	}
	if n.Model != nil {
		if data := n.Model.Save(); len(data) > 0 {
			r.Model = data
		}
	}
	if live {
		r.model = n.Model
	}
	return r
}

func connectionRecord(c *Connection) ConnectionRecord {
	return ConnectionRecord{
		ID:         uint64(c.ID),
		Source:     uint64(c.SourceNode),
		SourcePort: c.SourcePort,
		Target:     uint64(c.TargetNode),
		TargetPort: c.TargetPort,
	}
}

func groupRecord(gr *Group, keep func(NodeID) bool) GroupRecord {
	r := GroupRecord{ID: gr.ID.String(), Name: gr.Name, Locked: gr.Locked}
	for _, id := range gr.Members() {
		if keep == nil || keep(id) {
			r.Members = append(r.Members, uint64(id))
		}
	}
	return r
}

// nodeFromRecord builds a detached node. The live model of a snapshot is
// reused unless fresh is set; otherwise the model comes from the registry.
func (g *Graph) nodeFromRecord(r NodeRecord, fresh bool) (*Node, error) {
	m := r.model
	if m == nil || fresh {
		var err error
		if m, err = g.registry.Create(r.Type); err != nil {
			return nil, fmt.Errorf("%w: node %d: %w", ErrInvalidRecord, r.ID, err)
		}
		if r.Model != nil {
			if err := m.Load(maps.Clone(r.Model)); err != nil {
				return nil, fmt.Errorf("%w: node %d: %w", ErrInvalidRecord, r.ID, err)
			}
		}
	}
	status := ProcessingStatus(r.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: node %d: status %d", ErrInvalidRecord, r.ID, r.Status)
	}
	return &Node{
		ID:              NodeID(r.ID),
		Type:            r.Type,
		Caption:         r.Caption,
		CaptionVisible:  r.CaptionVisible,
		Nickname:        r.Nickname,
		NicknameVisible: r.NicknameVisible,
		In:              portsFromRecords(r.In),
		Out:             portsFromRecords(r.Out),
		Position:        geometry.Pt(r.Position.X, r.Position.Y),
		UserSize:        geometry.Size{W: r.Size.W, H: r.Size.H},
		Resizable:       m.Resizable(),
		Widget:          m.SizeHint(),
		Status:          status,
		Model:           m,
	}, nil
}

// Save captures the whole graph.
func (g *Graph) Save() Record {
	rec := Record{GroupCounter: g.groupCounter}
	for _, id := range g.NodeIDs() {
		n, _ := g.node(id)
		rec.Nodes = append(rec.Nodes, nodeRecord(n, false))
	}
	for _, id := range g.ConnectionIDs() {
		c, _ := g.conn(id)
		rec.Connections = append(rec.Connections, connectionRecord(c))
	}
	for _, id := range g.groupOrder {
		rec.Groups = append(rec.Groups, groupRecord(g.groups[id], nil))
	}
	return rec
}

// Load replaces the graph with rec. On error the graph is unchanged.
// Observers get a single GraphReset.
func (g *Graph) Load(rec Record) error {
	tmp := New(WithRegistry(g.registry), WithCompatibility(g.compatible))
	if err := tmp.Restore(rec); err != nil {
		return err
	}
	g.nodes, g.conns = tmp.nodes, tmp.conns
	g.groups, g.groupOrder = tmp.groups, tmp.groupOrder
	g.inputs, g.attached = tmp.inputs, tmp.attached
	g.groupCounter = tmp.groupCounter
	g.emit(Event{Kind: GraphReset})
	return nil
}

// Extract captures ids and the connections running between them, for the
// clipboard. Groups are left out.
func (g *Graph) Extract(ids []NodeID) Record {
	set := g.liveSet(ids)
	var rec Record
	for _, id := range sortedIDs(set) {
		n, _ := g.node(id)
		rec.Nodes = append(rec.Nodes, nodeRecord(n, false))
	}
	seen := map[ConnectionID]bool{}
	for _, id := range sortedIDs(set) {
		for _, c := range g.connsOf(id) {
			if seen[c.ID] || !set[c.SourceNode] || !set[c.TargetNode] {
				continue
			}
			seen[c.ID] = true
			rec.Connections = append(rec.Connections, connectionRecord(c))
		}
	}
	slices.SortFunc(rec.Connections, byConnectionID)
	return rec
}

// Snapshot captures everything a deletion of nodes and conns destroys:
// the nodes, every connection touching them, the extra connections and
// the nodes' group memberships. Restore undoes the deletion exactly.
func (g *Graph) Snapshot(nodes []NodeID, conns []ConnectionID) Record {
	set := g.liveSet(nodes)
	var rec Record
	seen := map[ConnectionID]bool{}
	addConn := func(c *Connection) {
		if !seen[c.ID] {
			seen[c.ID] = true
			rec.Connections = append(rec.Connections, connectionRecord(c))
		}
	}
	groups := map[GroupID]bool{}
	for _, id := range sortedIDs(set) {
		n, _ := g.node(id)
		rec.Nodes = append(rec.Nodes, nodeRecord(n, true))
		for _, c := range g.connsOf(id) {
			addConn(c)
		}
		if n.Grouped() {
			groups[n.Group] = true
		}
	}
	for _, id := range conns {
		if c, ok := g.conn(id); ok {
			addConn(c)
		}
	}
	slices.SortFunc(rec.Connections, byConnectionID)
	for _, gid := range g.groupOrder {
		if groups[gid] {
			rec.Groups = append(rec.Groups, groupRecord(g.groups[gid], func(id NodeID) bool { return set[id] }))
		}
	}
	return rec
}

// GroupRecords captures whole groups with all of their members.
func (g *Graph) GroupRecords(ids []GroupID) []GroupRecord {
	var out []GroupRecord
	for _, id := range ids {
		if gr, ok := g.groups[id]; ok {
			out = append(out, groupRecord(gr, nil))
		}
	}
	return out
}

func byConnectionID(a, b ConnectionRecord) int {
	return cmp.Compare(a.ID, b.ID)
}

func (g *Graph) liveSet(ids []NodeID) map[NodeID]bool {
	set := make(map[NodeID]bool, len(ids))
	for _, id := range ids {
		if g.HasNode(id) {
			set[id] = true
		}
	}
	return set
}

func sortedIDs(set map[NodeID]bool) []NodeID {
	ids := slices.Collect(maps.Keys(set))
	slices.Sort(ids)
	return ids
}

// Restore puts recorded entities back under their recorded ids. Nodes and
// connections must not exist yet; groups that still exist gain the
// recorded members, the others are recreated. Either everything applies
// or nothing does.
func (g *Graph) Restore(rec Record) error {
	fresh := make(map[NodeID]*Node, len(rec.Nodes))
	nodes := make([]*Node, 0, len(rec.Nodes))
	nodeSlots := map[uint32]bool{}
	for _, r := range rec.Nodes {
		id := NodeID(r.ID)
		idx, _ := splitID(r.ID)
		if nodeSlots[idx] {
			return fmt.Errorf("%w: node %s reuses the slot of another recorded node", ErrInvalidRecord, id)
		}
		if !g.nodes.canPlace(r.ID) {
			return fmt.Errorf("%w: node %s already exists", ErrInvalidRecord, id)
		}
		nodeSlots[idx] = true
		n, err := g.nodeFromRecord(r, false)
		if err != nil {
			return err
		}
		fresh[id] = n
		nodes = append(nodes, n)
	}
	lookup := func(id NodeID) (*Node, bool) {
		if n, ok := fresh[id]; ok {
			return n, true
		}
		return g.node(id)
	}

	conns := make([]*Connection, 0, len(rec.Connections))
	connSlots := map[uint32]bool{}
	taken := map[portKey]bool{}
	for _, r := range rec.Connections {
		c := &Connection{ID: ConnectionID(r.ID), Endpoints: r.endpoints()}
		idx, _ := splitID(r.ID)
		if connSlots[idx] {
			return fmt.Errorf("%w: connection %s reuses the slot of another recorded connection", ErrInvalidRecord, c.ID)
		}
		if !g.conns.canPlace(r.ID) {
			return fmt.Errorf("%w: connection %s already exists", ErrInvalidRecord, c.ID)
		}
		if err := g.checkEndpoints(c.Endpoints, lookup); err != nil {
			return fmt.Errorf("%w: connection %s: %w", ErrInvalidRecord, c.ID, err)
		}
		key := portKey{c.TargetNode, c.TargetPort}
		if _, ok := g.inputs[key]; ok || taken[key] {
			return fmt.Errorf("%w: connection %s: input %d of %s is taken", ErrInvalidRecord, c.ID, c.TargetPort, c.TargetNode)
		}
		connSlots[idx], taken[key] = true, true
		conns = append(conns, c)
	}

	type groupPlan struct {
		id      GroupID
		rec     GroupRecord
		members []NodeID
	}
	plans := make([]groupPlan, 0, len(rec.Groups))
	member := map[NodeID]bool{}
	for _, r := range rec.Groups {
		gid, err := uuid.Parse(r.ID)
		if err != nil {
			return fmt.Errorf("%w: group %q: %w", ErrInvalidRecord, r.ID, err)
		}
		if len(r.Members) == 0 {
			return fmt.Errorf("%w: %w: group %s", ErrInvalidRecord, ErrEmptyGroup, gid)
		}
		p := groupPlan{id: gid, rec: r}
		for _, m := range r.Members {
			id := NodeID(m)
			if _, ok := lookup(id); !ok {
				return fmt.Errorf("%w: group %s: %w", ErrInvalidRecord, gid, unknown("node", id))
			}
			if member[id] {
				return fmt.Errorf("%w: node %s is in two groups", ErrInvalidRecord, id)
			}
			member[id] = true
			p.members = append(p.members, id)
		}
		plans = append(plans, p)
	}

	for _, n := range nodes {
		if !g.nodes.place(uint64(n.ID), n) {
			return fmt.Errorf("%w: node slot %s taken", ErrInvalidRecord, n.ID)
		}
		g.emit(Event{Kind: NodeCreated, Node: n.ID})
	}
	for _, c := range conns {
		if !g.conns.place(uint64(c.ID), c) {
			return fmt.Errorf("%w: connection slot %s taken", ErrInvalidRecord, c.ID)
		}
		g.link(c)
		g.emit(Event{Kind: ConnectionCreated, Connection: c.ID})
	}
	for _, p := range plans {
		gr, ok := g.groups[p.id]
		if !ok {
			gr = &Group{ID: p.id, Name: p.rec.Name, Locked: p.rec.Locked, members: make(map[NodeID]struct{})}
			g.insertGroup(gr)
		} else if gr.Name != p.rec.Name || gr.Locked != p.rec.Locked {
			gr.Name, gr.Locked = p.rec.Name, p.rec.Locked
			g.emit(Event{Kind: GroupUpdated, Group: gr.ID})
		}
		for _, id := range p.members {
			n, _ := g.node(id)
			g.attach(n, gr)
		}
	}
	g.groupCounter = max(g.groupCounter, rec.GroupCounter)
	return nil
}

// Import adds copies of the recorded nodes under new ids, shifted by
// offset, along with the connections among them and any recorded groups.
// Connections reaching outside the record are dropped.
func (g *Graph) Import(rec Record, offset geometry.Point) ([]NodeID, []ConnectionID, error) {
	fresh := make(map[NodeID]*Node, len(rec.Nodes))
	nodes := make([]*Node, 0, len(rec.Nodes))
	for _, r := range rec.Nodes {
		if _, dup := fresh[NodeID(r.ID)]; dup {
			return nil, nil, fmt.Errorf("%w: node %d recorded twice", ErrInvalidRecord, r.ID)
		}
		n, err := g.nodeFromRecord(r, true)
		if err != nil {
			return nil, nil, err
		}
		n.Position = n.Position.Add(offset)
		fresh[n.ID] = n
		nodes = append(nodes, n)
	}
	lookup := func(id NodeID) (*Node, bool) {
		n, ok := fresh[id]
		return n, ok
	}
	var edges []Endpoints
	taken := map[portKey]bool{}
	for _, r := range rec.Connections {
		e := r.endpoints()
		if fresh[e.SourceNode] == nil || fresh[e.TargetNode] == nil {
			continue
		}
		if err := g.checkEndpoints(e, lookup); err != nil {
			return nil, nil, fmt.Errorf("%w: connection %d: %w", ErrInvalidRecord, r.ID, err)
		}
		key := portKey{e.TargetNode, e.TargetPort}
		if taken[key] {
			return nil, nil, fmt.Errorf("%w: connection %d: input taken twice", ErrInvalidRecord, r.ID)
		}
		taken[key] = true
		edges = append(edges, e)
	}

	remap := make(map[NodeID]NodeID, len(nodes))
	newNodes := make([]NodeID, 0, len(nodes))
	for _, n := range nodes {
		old := n.ID
		n.ID = NodeID(g.nodes.alloc(n))
		remap[old] = n.ID
		newNodes = append(newNodes, n.ID)
		g.emit(Event{Kind: NodeCreated, Node: n.ID})
	}
	newConns := make([]ConnectionID, 0, len(edges))
	for _, e := range edges {
		e.SourceNode, e.TargetNode = remap[e.SourceNode], remap[e.TargetNode]
		c := &Connection{Endpoints: e}
		c.ID = ConnectionID(g.conns.alloc(c))
		g.link(c)
		newConns = append(newConns, c.ID)
		g.emit(Event{Kind: ConnectionCreated, Connection: c.ID})
	}
	for _, r := range rec.Groups {
		var members []NodeID
		for _, m := range r.Members {
			if id, ok := remap[NodeID(m)]; ok {
				members = append(members, id)
			}
		}
		if len(members) == 0 {
			continue
		}
		gid, _ := g.CreateGroup(members, r.Name)
		g.SetGroupLocked(gid, r.Locked)
	}
	return newNodes, newConns, nil
}
