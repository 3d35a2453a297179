package cmd

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"nodeflow/internal/geometry"
	"nodeflow/internal/scene"
	"nodeflow/internal/view"
)

// doubleClickInterval is the longest gap between the presses of a double
// click.
const doubleClickInterval = 400 * time.Millisecond

// cellCenter maps a terminal cell to the view pixel at its middle.
func cellCenter(x, y int, m geometry.CellMetrics) geometry.Point {
	return geometry.Pt(float64(x)*m.CellWidth+m.CellWidth/2, float64(y)*m.CellHeight+m.CellHeight/2)
}

func mouseMods(msg tea.MouseMsg) scene.Modifiers {
	var mods scene.Modifiers
	if msg.Shift {
		mods |= scene.Shift
	}
	if msg.Ctrl {
		mods |= scene.Ctrl
	}
	if msg.Alt {
		mods |= scene.Alt
	}
	return mods
}

func mouseButton(b tea.MouseButton) view.Button {
	switch b {
	case tea.MouseButtonLeft:
		return view.LeftButton
	case tea.MouseButtonMiddle:
		return view.MiddleButton
	case tea.MouseButtonRight:
		return view.RightButton
	}
	return view.NoButton
}

// mouseEvent converts a terminal mouse report into a view event. Wheel
// reports become Wheel events; everything else keeps its cell position.
func mouseEvent(msg tea.MouseMsg, m geometry.CellMetrics) (view.Event, bool) {
	e := view.Event{Pos: cellCenter(msg.X, msg.Y, m), Mods: mouseMods(msg)}
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			e.Kind, e.Delta = view.Wheel, 1
		case tea.MouseButtonWheelDown:
			e.Kind, e.Delta = view.Wheel, -1
		default:
			e.Kind, e.Button = view.Press, mouseButton(msg.Button)
			if e.Button == view.NoButton {
				return e, false
			}
		}
	case tea.MouseActionRelease:
		e.Kind, e.Button = view.Release, mouseButton(msg.Button)
	case tea.MouseActionMotion:
		e.Kind, e.Button = view.Move, mouseButton(msg.Button)
	default:
		return e, false
	}
	return e, true
}

// clickTracker turns a second press in the same cell into a double click.
type clickTracker struct {
	x, y int
	at   time.Time
}

func (c *clickTracker) press(x, y int, now time.Time) bool {
	double := !c.at.IsZero() && x == c.x && y == c.y && now.Sub(c.at) <= doubleClickInterval
	if double {
		c.at = time.Time{}
		return true
	}
	c.x, c.y, c.at = x, y, now
	return false
}
