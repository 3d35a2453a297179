package clipboard

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodeflow/internal/command"
	"nodeflow/internal/geometry"
	"nodeflow/internal/graph"
	"nodeflow/internal/scene"
)

var number = graph.DataType{ID: "number", Name: "Number"}

// fake stands in for the operating system clipboard.
type fake struct {
	text string
	err  error
}

func newFake() (*fake, *System) {
	f := &fake{}
	s := &System{
		read:  func() (string, error) { return f.text, f.err },
		write: func(t string) error { f.text = t; return f.err },
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return f, s
}

func fragment(t *testing.T) graph.Record {
	t.Helper()
	g := graph.New()
	a := g.AddNode(&graph.Basic{Title: "Add", Outputs: []graph.Port{{Type: number}}}, geometry.Pt(10, 20))
	b := g.AddNode(&graph.Basic{Title: "Show", Inputs: []graph.Port{{Type: number}}}, geometry.Pt(200, 20))
	_, err := g.Connect(a, 0, b, 0)
	require.NoError(t, err)
	return g.Extract([]graph.NodeID{a, b})
}

func TestEncodeDecode(t *testing.T) {
	rec := fragment(t)
	text, err := Encode(rec)
	require.NoError(t, err)
	assert.Contains(t, text, `"kind": "nodeflow/fragment"`)

	got, err := Decode("\x00" + text + "\n")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestDecodeForeignText(t *testing.T) {
	for _, text := range []string{"", "hello", `{"nodes":[]}`, `{"kind":"other"}`, "{broken"} {
		_, err := Decode(text)
		assert.ErrorIs(t, err, ErrForeign, text)
	}

	_, err := Decode(`{"kind":"nodeflow/fragment","nodes":[{"id":1}],"connections":[]}`)
	assert.ErrorIs(t, err, graph.ErrInvalidRecord)
}

func TestSystemPutGet(t *testing.T) {
	f, s := newFake()
	rec := fragment(t)
	require.NoError(t, s.Put(rec))
	assert.Contains(t, f.text, Kind)

	got, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	f.text = "copied from elsewhere"
	_, err = s.Get()
	assert.ErrorIs(t, err, ErrForeign)
}

func TestSystemFallsBackToMemory(t *testing.T) {
	f, s := newFake()
	f.err = errors.New("no display")
	rec := fragment(t)
	require.NoError(t, s.Put(rec), "a failed system write is not fatal")

	got, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestCopyPasteThroughController(t *testing.T) {
	_, s := newFake()
	c := scene.New(command.NewStack(graph.New()), geometry.CellMetrics{CellWidth: 8, CellHeight: 16}, scene.WithClipboard(s))
	defer c.Close()

	a, err := c.AddNode(&graph.Basic{Title: "Add", Outputs: []graph.Port{{Type: number}}}, geometry.Pt(0, 0))
	require.NoError(t, err)
	b, err := c.AddNode(&graph.Basic{Title: "Show", Inputs: []graph.Port{{Type: number}}}, geometry.Pt(200, 0))
	require.NoError(t, err)
	_, err = c.Graph().Connect(a, 0, b, 0)
	require.NoError(t, err)

	c.SelectAll()
	ok, err := c.Copy()
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.Paste(geometry.Pt(0, 300)))
	assert.Equal(t, 4, c.Graph().NodeCount())
	assert.Equal(t, 2, c.Graph().ConnectionCount())
}
