package graph

import (
	"maps"
	"slices"

	"nodeflow/internal/geometry"
)

type PortType = geometry.PortType

const (
	In  = geometry.PortIn
	Out = geometry.PortOut
)

// ProcessingStatus is shown as an icon on nodes that report one.
type ProcessingStatus int

const (
	NoStatus ProcessingStatus = iota
	Updated
	Processing
	Pending
	Empty
	Failed
	Partial
)

var statusNames = [...]string{"none", "updated", "processing", "pending", "empty", "failed", "partial"}

func (s ProcessingStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

func (s ProcessingStatus) Valid() bool {
	return s >= NoStatus && s <= Partial
}

// DataType tags the values a port carries. Compatibility and port colors
// are derived from ID; Name is what users read.
type DataType struct {
	ID   string
	Name string
}

type Port struct {
	Type    DataType
	Caption string
}

// Label is the explicit caption, or the data type name when none is set.
func (p Port) Label() string {
	if p.Caption != "" {
		return p.Caption
	}
	return p.Type.Name
}

type Node struct {
	ID   NodeID
	Type string

	Caption         string
	CaptionVisible  bool
	Nickname        string
	NicknameVisible bool

	In  []Port
	Out []Port

	Position geometry.Point
	// UserSize is set once a resizable node has been resized by hand.
	UserSize  geometry.Size
	Resizable bool
	Widget    geometry.Size
	Status    ProcessingStatus

	// Group is the zero uuid when the node is not grouped.
	Group GroupID

	Model NodeModel
}

func (n *Node) Ports(t PortType) []Port {
	switch t {
	case In:
		return n.In
	case Out:
		return n.Out
	}
	return nil
}

func (n *Node) PortCount(t PortType) int {
	return len(n.Ports(t))
}

func (n *Node) Grouped() bool {
	return n.Group != (GroupID{})
}

// LayoutParams describes the node to the geometry engine.
func (n *Node) LayoutParams() geometry.Params {
	p := geometry.Params{
		InLabels:        labels(n.In),
		OutLabels:       labels(n.Out),
		Caption:         n.Caption,
		CaptionVisible:  n.CaptionVisible,
		Nickname:        n.Nickname,
		NicknameVisible: n.NicknameVisible,
		Widget:          n.Widget,
		StatusIcon:      n.Status != NoStatus,
	}
	if n.Resizable {
		p.UserSize = n.UserSize
	}
	return p
}

func labels(ports []Port) []string {
	out := make([]string, len(ports))
	for i, p := range ports {
		out[i] = p.Label()
	}
	return out
}

func (n *Node) clone() Node {
	c := *n
	c.In = slices.Clone(n.In)
	c.Out = slices.Clone(n.Out)
	return c
}

// Endpoints names the two ports a connection joins.
type Endpoints struct {
	SourceNode NodeID
	SourcePort int
	TargetNode NodeID
	TargetPort int
}

type Connection struct {
	ID ConnectionID
	Endpoints
}

// Touches reports whether either end of the connection is on node.
func (c Connection) Touches(node NodeID) bool {
	return c.SourceNode == node || c.TargetNode == node
}

type Group struct {
	ID      GroupID
	Name    string
	Locked  bool
	members map[NodeID]struct{}
}

func (g *Group) Contains(id NodeID) bool {
	_, ok := g.members[id]
	return ok
}

func (g *Group) Len() int {
	return len(g.members)
}

// Members returns the member ids in ascending order.
func (g *Group) Members() []NodeID {
	ids := slices.Collect(maps.Keys(g.members))
	slices.Sort(ids)
	return ids
}

func (g *Group) clone() Group {
	c := *g
	c.members = maps.Clone(g.members)
	return c
}
