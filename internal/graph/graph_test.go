package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodeflow/internal/geometry"
)

var (
	number = DataType{ID: "number", Name: "Number"}
	text   = DataType{ID: "text", Name: "Text"}
)

func adder() *Basic {
	return &Basic{
		Title:   "Add",
		Inputs:  []Port{{Type: number, Caption: "a"}, {Type: number, Caption: "b"}},
		Outputs: []Port{{Type: number, Caption: "sum"}},
	}
}

func printer() *Basic {
	return &Basic{Title: "Print", Inputs: []Port{{Type: text}}}
}

func TestConnectThenDeleteSource(t *testing.T) {
	g := New()
	a := g.AddNode(adder(), geometry.Pt(0, 0))
	b := g.AddNode(adder(), geometry.Pt(200, 0))

	cid, err := g.Connect(a, 0, b, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, g.ConnectionCount())
	assert.Equal(t, []Connection{{ID: cid, Endpoints: Endpoints{a, 0, b, 1}}}, g.ConnectionsOf(b))

	require.True(t, g.DeleteNode(a))
	assert.Equal(t, 0, g.ConnectionCount())
	assert.False(t, g.HasConnection(cid))
	assert.Empty(t, g.ConnectionsOf(b))
	_, taken := g.InputConnection(b, 1)
	assert.False(t, taken)
}

func TestConnectionRules(t *testing.T) {
	g := New()
	a := g.AddNode(adder(), geometry.Pt(0, 0))
	b := g.AddNode(adder(), geometry.Pt(200, 0))
	p := g.AddNode(printer(), geometry.Pt(400, 0))

	tests := []struct {
		name string
		e    Endpoints
		want error
	}{
		{"self loop", Endpoints{a, 0, a, 0}, ErrInvalidConnection},
		{"incompatible types", Endpoints{a, 0, p, 0}, ErrInvalidConnection},
		{"output out of range", Endpoints{a, 3, b, 0}, ErrInvalidPort},
		{"input out of range", Endpoints{a, 0, b, 2}, ErrInvalidPort},
		{"unknown node", Endpoints{NodeID(99), 0, b, 0}, ErrUnknownEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.CheckConnection(tt.e)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrInvalidConnection)
			assert.False(t, g.ConnectionPossible(tt.e))
		})
	}

	first, err := g.Connect(a, 0, b, 0)
	require.NoError(t, err)
	_, err = g.Connect(a, 0, b, 0)
	assert.ErrorIs(t, err, ErrInvalidConnection, "duplicate")

	c := g.AddNode(adder(), geometry.Pt(0, 200))
	_, err = g.Connect(c, 0, b, 0)
	assert.ErrorIs(t, err, ErrInvalidConnection, "occupied input")
	assert.NoError(t, g.CheckConnectionIgnoring(Endpoints{c, 0, b, 0}, first))

	_, err = g.Connect(a, 0, b, 1)
	assert.NoError(t, err, "outputs fan out")
}

func TestCustomCompatibility(t *testing.T) {
	g := New(WithCompatibility(func(out, in DataType) bool {
		return in.ID == "text" || out.ID == in.ID
	}))
	a := g.AddNode(adder(), geometry.Pt(0, 0))
	p := g.AddNode(printer(), geometry.Pt(200, 0))
	_, err := g.Connect(a, 0, p, 0)
	assert.NoError(t, err)
}

func TestStaleIDs(t *testing.T) {
	g := New()
	a := g.AddNode(adder(), geometry.Pt(0, 0))
	require.True(t, g.DeleteNode(a))

	b := g.AddNode(adder(), geometry.Pt(0, 0))
	assert.Equal(t, a.Index(), b.Index(), "slot reused")
	assert.NotEqual(t, a, b)

	assert.False(t, g.HasNode(a))
	assert.False(t, g.DeleteNode(a))
	assert.False(t, g.MoveNode(a, geometry.Pt(1, 1)))
	assert.False(t, g.DeleteConnection(ConnectionID(a)))
	assert.ErrorIs(t, g.InsertPort(a, In, 0, Port{Type: number}), ErrUnknownEntity)
	_, err := g.CreateGroup([]NodeID{a}, "")
	assert.ErrorIs(t, err, ErrUnknownEntity)
	assert.True(t, g.HasNode(b))
}

func TestInsertPortReindexes(t *testing.T) {
	g := New()
	a := g.AddNode(adder(), geometry.Pt(0, 0))
	b := g.AddNode(adder(), geometry.Pt(200, 0))
	c0, err := g.Connect(a, 0, b, 0)
	require.NoError(t, err)
	c1, err := g.Connect(a, 0, b, 1)
	require.NoError(t, err)

	require.NoError(t, g.InsertPort(b, In, 1, Port{Type: number, Caption: "x"}))
	n, _ := g.Node(b)
	assert.Equal(t, []string{"a", "x", "b"}, labels(n.In))

	got0, _ := g.Connection(c0)
	got1, _ := g.Connection(c1)
	assert.Equal(t, 0, got0.TargetPort)
	assert.Equal(t, 2, got1.TargetPort)
	id, ok := g.InputConnection(b, 2)
	assert.True(t, ok)
	assert.Equal(t, c1, id)
	_, ok = g.InputConnection(b, 1)
	assert.False(t, ok)

	assert.ErrorIs(t, g.InsertPort(b, In, 4, Port{Type: number}), ErrInvalidPort)
}

func TestErasePortReindexes(t *testing.T) {
	g := New()
	a := g.AddNode(adder(), geometry.Pt(0, 0))
	b := g.AddNode(adder(), geometry.Pt(200, 0))
	c0, _ := g.Connect(a, 0, b, 0)
	c1, _ := g.Connect(a, 0, b, 1)

	removed, err := g.ErasePort(b, In, 0)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, c0, removed[0].ID)
	assert.False(t, g.HasConnection(c0))

	got, _ := g.Connection(c1)
	assert.Equal(t, 0, got.TargetPort)
	id, ok := g.InputConnection(b, 0)
	assert.True(t, ok)
	assert.Equal(t, c1, id)

	removed, err = g.ErasePort(a, Out, 0)
	require.NoError(t, err)
	assert.Len(t, removed, 1)
	assert.Equal(t, 0, g.ConnectionCount())

	_, err = g.ErasePort(a, Out, 0)
	assert.ErrorIs(t, err, ErrInvalidPort)
}

func TestGroups(t *testing.T) {
	g := New()
	var ids []NodeID
	for i := range 3 {
		ids = append(ids, g.AddNode(adder(), geometry.Pt(float64(i)*100, 0)))
	}

	_, err := g.CreateGroup(nil, "")
	assert.ErrorIs(t, err, ErrEmptyGroup)

	g1, err := g.CreateGroup(ids[:2], "")
	require.NoError(t, err)
	gr, _ := g.Group(g1)
	assert.Equal(t, "Group 1", gr.Name)
	assert.Equal(t, ids[:2], gr.Members())

	g2, err := g.CreateGroup(ids[1:], "")
	require.NoError(t, err)
	gr2, _ := g.Group(g2)
	assert.Equal(t, "Group 2", gr2.Name)
	gid, _ := g.GroupOf(ids[1])
	assert.Equal(t, g2, gid, "a node belongs to one group")
	gr, _ = g.Group(g1)
	assert.Equal(t, []NodeID{ids[0]}, gr.Members())

	assert.True(t, g.RemoveNodeFromGroup(ids[0]))
	_, ok := g.Group(g1)
	assert.False(t, ok, "empty group destroyed")
	assert.Equal(t, []GroupID{g2}, g.GroupIDs())

	require.NoError(t, g.AddNodeToGroup(ids[0], g2))
	assert.True(t, g.DeleteNode(ids[1]))
	gr2, _ = g.Group(g2)
	assert.Equal(t, []NodeID{ids[0], ids[2]}, gr2.Members())

	assert.True(t, g.SetGroupLocked(g2, true))
	assert.True(t, g.RenameGroup(g2, "inputs"))
	gr2, _ = g.Group(g2)
	assert.True(t, gr2.Locked)
	assert.Equal(t, "inputs", gr2.Name)

	assert.True(t, g.DissolveGroup(g2))
	_, grouped := g.GroupOf(ids[0])
	assert.False(t, grouped)
	assert.True(t, g.HasNode(ids[0]), "dissolving keeps nodes")
}

func TestEvents(t *testing.T) {
	g := New()
	var got []EventKind
	unsubscribe := g.Subscribe(func(e Event) { got = append(got, e.Kind) })

	a := g.AddNode(adder(), geometry.Pt(0, 0))
	b := g.AddNode(adder(), geometry.Pt(200, 0))
	_, err := g.Connect(a, 0, b, 0)
	require.NoError(t, err)
	_, err = g.CreateGroup([]NodeID{a}, "")
	require.NoError(t, err)
	g.MoveNode(a, geometry.Pt(5, 5))
	g.DeleteNode(a)

	assert.Equal(t, []EventKind{
		NodeCreated, NodeCreated, ConnectionCreated,
		GroupCreated, GroupUpdated, NodeMoved,
		ConnectionDeleted, GroupDeleted, NodeDeleted,
	}, got)

	unsubscribe()
	g.MoveNode(b, geometry.Pt(1, 1))
	assert.Len(t, got, 9)
}

func TestNodeStateSetters(t *testing.T) {
	g := New()
	a := g.AddNode(adder(), geometry.Pt(0, 0))

	assert.False(t, g.SetNodeSize(a, geometry.Size{W: 300, H: 200}), "not resizable")
	assert.True(t, g.SetStatus(a, Failed))
	assert.False(t, g.SetStatus(a, ProcessingStatus(42)))
	assert.True(t, g.SetNickname(a, "total", true))

	n, _ := g.Node(a)
	assert.Equal(t, Failed, n.Status)
	p := n.LayoutParams()
	assert.True(t, p.StatusIcon)
	assert.True(t, p.NicknameVisible)
	assert.Equal(t, []string{"a", "b"}, p.InLabels)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("adder", func() NodeModel { return adder() })
	assert.Equal(t, []string{BasicModelName, "adder"}, r.Names())

	g := New(WithRegistry(r))
	id, err := g.CreateNode("adder", geometry.Pt(10, 10))
	require.NoError(t, err)
	n, _ := g.Node(id)
	assert.Equal(t, "Add", n.Caption)
	assert.Len(t, n.In, 2)

	_, err = g.CreateNode("missing", geometry.Point{})
	assert.ErrorIs(t, err, ErrUnknownModel)
}
