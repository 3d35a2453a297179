package cmd

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodeflow/internal/config"
	"nodeflow/internal/geometry"
	"nodeflow/internal/graph"
	"nodeflow/internal/persist"
	"nodeflow/internal/scene"
	"nodeflow/internal/view"
)

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEditor(t *testing.T) *model {
	t.Helper()
	cfg := config.Default()
	cfg.Editor.SaveDirectory = t.TempDir()
	m, err := newEditor(cfg, "", &scene.MemoryClipboard{}, quietLog())
	require.NoError(t, err)
	t.Cleanup(m.ctrl.Close)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(m *model, s string) {
	for _, r := range s {
		m.Update(runes(string(r)))
	}
}

func mouseAt(action tea.MouseAction, button tea.MouseButton, x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: action, Button: button}
}

// cellOf returns the terminal cell showing scene point p.
func cellOf(m *model, p geometry.Point) (int, int) {
	s := m.view.MapFromScene(p)
	return int(s.X / m.cells.CellWidth), int(s.Y / m.cells.CellHeight)
}

func TestEditorAddNodeAndUndo(t *testing.T) {
	m := newTestEditor(t)

	m.Update(runes("n"))
	assert.Equal(t, ModeAdd, m.mode)
	assert.Contains(t, m.statusLine(), "2=sum")
	m.Update(runes("2"))
	assert.Equal(t, ModeNormal, m.mode)
	require.Equal(t, 1, m.graph.NodeCount())
	n, _ := m.graph.Node(m.graph.NodeIDs()[0])
	assert.Equal(t, "sum", n.Type)
	assert.False(t, m.stack.IsClean())
	assert.Contains(t, m.documentName(), "*")

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlZ})
	assert.Equal(t, 0, m.graph.NodeCount())
	assert.True(t, m.stack.IsClean())
}

func TestEditorSaveNewOpen(t *testing.T) {
	m := newTestEditor(t)
	_, err := m.ctrl.AddNode(demoModels[0].make(), geometry.Pt(10, 10))
	require.NoError(t, err)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Equal(t, ModeFileInput, m.mode)
	typeText(m, "flow")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ModeNormal, m.mode, m.errorMessage)

	saved := filepath.Join(m.cfg.Editor.SaveDirectory, "flow.json")
	assert.FileExists(t, saved)
	assert.Equal(t, saved, m.path)
	assert.True(t, m.stack.IsClean())

	m.Update(runes("N"))
	assert.Equal(t, 0, m.graph.NodeCount())
	assert.Empty(t, m.path)

	m.Update(runes("o"))
	require.Equal(t, ModeFileInput, m.mode)
	assert.Equal(t, []string{"flow.json"}, m.fileList)
	assert.Equal(t, "flow.json", m.filename)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ModeNormal, m.mode)
	assert.Equal(t, 1, m.graph.NodeCount())
	assert.Equal(t, 0, m.stack.Len())
}

func TestEditorOverwriteNeedsConfirmation(t *testing.T) {
	m := newTestEditor(t)
	existing := filepath.Join(m.cfg.Editor.SaveDirectory, "taken.yaml")
	require.NoError(t, persist.SaveFile(existing, graph.New()))
	_, err := m.ctrl.AddNode(demoModels[1].make(), geometry.Point{})
	require.NoError(t, err)

	m.Update(runes("S"))
	typeText(m, "taken.yaml")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ModeConfirm, m.mode)
	assert.Contains(t, m.statusLine(), "taken.yaml already exists")

	m.Update(runes("n"))
	assert.Equal(t, ModeFileInput, m.mode)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(runes("y"))
	assert.Equal(t, ModeNormal, m.mode)

	rec, err := persist.ReadFile(existing)
	require.NoError(t, err)
	assert.Len(t, rec.Nodes, 1)
}

func TestEditorQuitAsksWhenDirty(t *testing.T) {
	m := newTestEditor(t)
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)

	_, err := m.ctrl.AddNode(demoModels[0].make(), geometry.Point{})
	require.NoError(t, err)
	_, cmd = m.Update(runes("q"))
	assert.Nil(t, cmd)
	assert.Equal(t, ModeConfirm, m.mode)

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeNormal, m.mode)

	m.Update(runes("q"))
	_, cmd = m.Update(runes("y"))
	require.NotNil(t, cmd)
	_, ok = cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestEditorMouseDrag(t *testing.T) {
	m := newTestEditor(t)
	id, err := m.ctrl.AddNode(demoModels[1].make(), geometry.Pt(100, 100))
	require.NoError(t, err)

	x, y := cellOf(m, geometry.Pt(130, 130))
	m.Update(mouseAt(tea.MouseActionPress, tea.MouseButtonLeft, x, y))
	assert.Equal(t, scene.Dragging, m.ctrl.State())
	m.Update(mouseAt(tea.MouseActionMotion, tea.MouseButtonLeft, x+5, y))
	m.Update(mouseAt(tea.MouseActionRelease, tea.MouseButtonNone, x+5, y))

	n, _ := m.graph.Node(id)
	assert.Equal(t, geometry.Pt(140, 100), n.Position)
	assert.Equal(t, scene.Idle, m.ctrl.State())

	m.Update(mouseAt(tea.MouseActionMotion, tea.MouseButtonNone, x+5, y))
	assert.Equal(t, scene.Hovering, m.ctrl.State())
}

func TestEditorKeyboardDrag(t *testing.T) {
	m := newTestEditor(t)
	id, err := m.ctrl.AddNode(demoModels[1].make(), geometry.Pt(100, 100))
	require.NoError(t, err)

	m.cursorX, m.cursorY = cellOf(m, geometry.Pt(130, 130))
	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	require.True(t, m.holding)
	assert.Equal(t, "HOLD", m.modeString())
	m.Update(runes("j"))
	m.Update(runes("L"))
	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.False(t, m.holding)

	n, _ := m.graph.Node(id)
	assert.Equal(t, geometry.Pt(116, 116), n.Position)
}

func TestEditorPanMode(t *testing.T) {
	m := newTestEditor(t)
	before := m.view.Origin()
	m.Update(runes("z"))
	assert.Equal(t, "PAN", m.modeString())
	m.Update(runes("H"))
	assert.Equal(t, before.X-16, m.view.Origin().X)
	assert.Equal(t, 0, m.cursorX, "pan mode leaves the cursor alone")
}

func TestEditorStatusBarIgnoresMouse(t *testing.T) {
	m := newTestEditor(t)
	m.Update(mouseAt(tea.MouseActionPress, tea.MouseButtonLeft, 3, m.height-1))
	assert.Equal(t, scene.Idle, m.ctrl.State())
	assert.Equal(t, view.NoButton, m.pressed)
}

func TestEditorConfigReload(t *testing.T) {
	m := newTestEditor(t)
	c := config.Default()
	c.Editor.EmptyCanvasDrag = "select"
	c.Style.Connection.DataDefinedColors = true
	m.Update(configMsg{c})

	assert.True(t, m.view.Style().Connection.DataDefinedColors)
	assert.Equal(t, "config reloaded", m.successMessage)

	// Empty canvas drags now select.
	x, y := cellOf(m, geometry.Pt(-500, -500))
	m.Update(mouseAt(tea.MouseActionPress, tea.MouseButtonLeft, max(x, 0), max(y, 0)))
	assert.Equal(t, scene.RubberBand, m.ctrl.State())
}

func TestEditorView(t *testing.T) {
	m := newTestEditor(t)
	_, err := m.ctrl.AddNode(demoModels[1].make(), geometry.Pt(0, 0))
	require.NoError(t, err)

	out := m.View()
	assert.Contains(t, out, "Sum")
	assert.Contains(t, out, "Mode: NORMAL")

	m.Update(runes("?"))
	assert.Contains(t, m.View(), "nodeflow Help")
	m.Update(runes("?"))
	assert.False(t, m.help)
}

func TestEditorOpensFileFromCommandLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "start.flowz")
	g := graph.New(graph.WithRegistry(newRegistry()))
	_, err := g.CreateNode("source", geometry.Point{})
	require.NoError(t, err)
	require.NoError(t, persist.SaveFile(path, g))

	m, err := newEditor(config.Default(), path, &scene.MemoryClipboard{}, quietLog())
	require.NoError(t, err)
	defer m.ctrl.Close()
	assert.Equal(t, 1, m.graph.NodeCount())

	// A missing file starts a new graph that saves there.
	fresh := filepath.Join(dir, "new.json")
	m2, err := newEditor(config.Default(), fresh, &scene.MemoryClipboard{}, quietLog())
	require.NoError(t, err)
	defer m2.ctrl.Close()
	assert.Equal(t, 0, m2.graph.NodeCount())
	_, err = os.Stat(fresh)
	assert.True(t, os.IsNotExist(err))

	_, err = newEditor(config.Default(), filepath.Join(dir, "notes.txt"), &scene.MemoryClipboard{}, quietLog())
	assert.ErrorIs(t, err, persist.ErrUnknownFormat)
}

func TestClickTracker(t *testing.T) {
	var c clickTracker
	t0 := time.Unix(100, 0)
	assert.False(t, c.press(3, 4, t0))
	assert.True(t, c.press(3, 4, t0.Add(200*time.Millisecond)))
	assert.False(t, c.press(3, 4, t0.Add(300*time.Millisecond)), "a third press starts over")
	assert.False(t, c.press(5, 4, t0.Add(400*time.Millisecond)))
	assert.False(t, c.press(5, 4, t0.Add(time.Second)))
}

func TestMouseEvent(t *testing.T) {
	e, ok := mouseEvent(tea.MouseMsg{X: 2, Y: 1, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft, Shift: true}, terminalCells)
	require.True(t, ok)
	assert.Equal(t, view.Press, e.Kind)
	assert.Equal(t, view.LeftButton, e.Button)
	assert.Equal(t, geometry.Pt(20, 24), e.Pos)
	assert.True(t, e.Mods.Has(scene.Shift))

	e, ok = mouseEvent(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown}, terminalCells)
	require.True(t, ok)
	assert.Equal(t, view.Wheel, e.Kind)
	assert.Equal(t, -1.0, e.Delta)

	_, ok = mouseEvent(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonNone}, terminalCells)
	assert.False(t, ok)
}
