// Package view maps screen input onto a scene controller and paints the
// scene through a Painter.
package view

import (
	"log/slog"
	"math"

	"nodeflow/internal/geometry"
	"nodeflow/internal/scene"
	"nodeflow/internal/style"
)

const (
	ZoomStep = 1.2
	MaxScale = 2.0
	MinScale = 0.1

	FineGrid   = 15.0
	CoarseGrid = 150.0
	// GridMinSpacing is the smallest on-screen distance between grid lines
	// worth drawing.
	GridMinSpacing = 4.0
)

type Option func(*View)

func WithStyle(s style.Style) Option {
	return func(v *View) { v.style = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(v *View) { v.log = l }
}

// WithPasteOffset shifts repeated pastes at the same origin so copies do
// not stack exactly on top of each other.
func WithPasteOffset(d float64) Option {
	return func(v *View) { v.pasteOffset = d }
}

// View is a window onto a scene: screen = (scene - origin) * scale.
type View struct {
	ctrl  *scene.Controller
	style style.Style

	scale  float64
	origin geometry.Point
	size   geometry.Size

	cursor   geometry.Point
	cursorIn bool

	panning bool
	panFrom geometry.Point

	pasteOffset float64
	lastPaste   geometry.Point
	pasteCount  int

	icons   *iconSet
	lastErr error
	log     *slog.Logger
}

func New(ctrl *scene.Controller, opts ...Option) *View {
	v := &View{
		ctrl:  ctrl,
		style: style.Default(),
		scale: 1,
		log:   slog.Default(),
	}
	for _, o := range opts {
		o(v)
	}
	v.icons = newIconSet(v.style.Node)
	ctrl.SetConstants(v.style.Constants())
	return v
}

func (v *View) Controller() *scene.Controller { return v.ctrl }
func (v *View) Style() style.Style            { return v.style }
func (v *View) Scale() float64                { return v.scale }
func (v *View) Origin() geometry.Point        { return v.origin }
func (v *View) Size() geometry.Size           { return v.size }

// SetStyle swaps the style. Layout constants come from the style, so every
// node is laid out again.
func (v *View) SetStyle(s style.Style) {
	v.style = s
	v.icons = newIconSet(s.Node)
	v.ctrl.SetConstants(s.Constants())
}

// LastError returns the error of the last key command, if it failed.
func (v *View) LastError() error { return v.lastErr }

// Resize sets the viewport size in screen pixels.
func (v *View) Resize(w, h float64) {
	v.size = geometry.Size{W: w, H: h}
}

func (v *View) MapToScene(p geometry.Point) geometry.Point {
	return p.Scale(1 / v.scale).Add(v.origin)
}

func (v *View) MapFromScene(p geometry.Point) geometry.Point {
	return p.Sub(v.origin).Scale(v.scale)
}

func (v *View) mapRect(r geometry.Rect) geometry.Rect {
	return geometry.RectFromPoints(v.MapFromScene(r.Min()), v.MapFromScene(r.Max()))
}

// VisibleRect is the part of the scene inside the viewport.
func (v *View) VisibleRect() geometry.Rect {
	return geometry.RectFromPoints(v.MapToScene(geometry.Point{}), v.MapToScene(geometry.Point{X: v.size.W, Y: v.size.H}))
}

// Zoom scales by factor keeping the scene point under anchor fixed. It
// refuses to zoom in past MaxScale and out past MinScale.
func (v *View) Zoom(factor float64, anchor geometry.Point) bool {
	next := v.scale * factor
	if factor > 1 && v.scale > MaxScale {
		return false
	}
	if factor < 1 && next < MinScale {
		return false
	}
	fixed := v.MapToScene(anchor)
	v.scale = next
	v.origin = fixed.Sub(anchor.Scale(1 / v.scale))
	return true
}

func (v *View) center() geometry.Point {
	return geometry.Point{X: v.size.W / 2, Y: v.size.H / 2}
}

func (v *View) ZoomIn() bool  { return v.Zoom(ZoomStep, v.center()) }
func (v *View) ZoomOut() bool { return v.Zoom(1/ZoomStep, v.center()) }

// Pan moves the view by a screen-space delta.
func (v *View) Pan(d geometry.Point) {
	v.origin = v.origin.Sub(d.Scale(1 / v.scale))
}

// CenterOn puts scene point p in the middle of the viewport.
func (v *View) CenterOn(p geometry.Point) {
	v.origin = p.Sub(v.center().Scale(1 / v.scale))
}

// CenterScene centers the scene contents, shrinking the zoom when they do
// not fit.
func (v *View) CenterScene() {
	r := v.ctrl.SceneRect()
	if r.IsZero() {
		v.CenterOn(geometry.Point{})
		return
	}
	vis := v.VisibleRect()
	if r.W > vis.W || r.H > vis.H {
		v.FitScene()
		return
	}
	v.CenterOn(r.Center())
}

// FitScene scales the view so the scene contents fill the viewport.
func (v *View) FitScene() {
	r := v.ctrl.SceneRect()
	if r.IsZero() || v.size.Empty() {
		return
	}
	s := math.Min(v.size.W/r.W, v.size.H/r.H)
	v.scale = math.Max(MinScale, math.Min(s, MaxScale))
	v.CenterOn(r.Center())
}

// Cursor returns the last pointer position in scene coordinates and
// whether it lies inside the viewport.
func (v *View) Cursor() (geometry.Point, bool) {
	return v.MapToScene(v.cursor), v.cursorIn
}

// SetCursor records a pointer position without dispatching an event.
func (v *View) SetCursor(p geometry.Point) {
	v.cursor = p
	v.cursorIn = geometry.Rect{W: v.size.W, H: v.size.H}.Contains(p)
}

// PasteOrigin is where pasted nodes go: under the cursor, or the middle of
// the view when the cursor is outside it.
func (v *View) PasteOrigin() geometry.Point {
	if p, ok := v.Cursor(); ok {
		return p
	}
	return v.MapToScene(v.center())
}

func (v *View) nextPaste() geometry.Point {
	at := v.PasteOrigin()
	if v.pasteOffset == 0 {
		return at
	}
	if at == v.lastPaste {
		v.pasteCount++
	} else {
		v.lastPaste = at
		v.pasteCount = 0
	}
	d := float64(v.pasteCount) * v.pasteOffset
	return at.Add(geometry.Point{X: d, Y: d})
}

// Handle dispatches an input event and reports whether the view needs to
// be painted again.
func (v *View) Handle(e Event) bool {
	switch e.Kind {
	case Press:
		v.SetCursor(e.Pos)
		switch e.Button {
		case MiddleButton:
			v.panning = true
			v.panFrom = e.Pos
			return false
		case LeftButton:
			v.ctrl.Press(v.MapToScene(e.Pos), e.Mods)
			if v.ctrl.State() == scene.Panning {
				v.panning = true
				v.panFrom = e.Pos
			}
			return true
		}
		return false

	case Move:
		v.SetCursor(e.Pos)
		if v.panning {
			v.Pan(e.Pos.Sub(v.panFrom))
			v.panFrom = e.Pos
			return true
		}
		before := v.ctrl.Hover()
		state := v.ctrl.State()
		v.ctrl.Move(v.MapToScene(e.Pos), e.Mods)
		return state != scene.Idle && state != scene.Hovering || v.ctrl.Hover() != before

	case Release:
		v.SetCursor(e.Pos)
		if v.panning {
			v.panning = false
			if e.Button == MiddleButton {
				return true
			}
		}
		v.ctrl.Release(v.MapToScene(e.Pos), e.Mods)
		return true

	case DoubleClick:
		return v.ctrl.DoubleClick(v.MapToScene(e.Pos))

	case Wheel:
		switch {
		case e.Delta > 0:
			return v.Zoom(ZoomStep, e.Pos)
		case e.Delta < 0:
			return v.Zoom(1/ZoomStep, e.Pos)
		}
		return false

	case KeyDown:
		return v.key(e)
	}
	return false
}

// key runs the command bound to a key chord.
func (v *View) key(e Event) bool {
	ctrl := e.Mods.Has(scene.Ctrl)
	shift := e.Mods.Has(scene.Shift)
	var err error
	switch {
	case e.Key == "delete" || e.Key == "backspace":
		err = v.ctrl.DeleteSelection()
	case ctrl && e.Key == "c":
		_, err = v.ctrl.Copy()
	case ctrl && e.Key == "x":
		err = v.ctrl.Cut()
	case ctrl && e.Key == "v":
		err = v.ctrl.Paste(v.nextPaste())
	case ctrl && e.Key == "d":
		err = v.ctrl.Duplicate(v.PasteOrigin())
	case ctrl && e.Key == "z" && shift, ctrl && e.Key == "y":
		err = v.ctrl.Redo()
	case ctrl && e.Key == "z":
		err = v.ctrl.Undo()
	case ctrl && e.Key == "g" && shift:
		err = v.ctrl.UngroupSelection()
	case ctrl && e.Key == "g":
		err = v.ctrl.GroupSelection()
	case ctrl && e.Key == "a":
		v.ctrl.SelectAll()
	case e.Key == "+" || e.Key == "=":
		return v.ZoomIn()
	case e.Key == "-":
		return v.ZoomOut()
	case e.Key == "home":
		v.CenterScene()
	case e.Key == "esc" || e.Key == "escape":
		if v.ctrl.State() == scene.Idle || v.ctrl.State() == scene.Hovering {
			v.ctrl.ClearSelection()
		}
		v.ctrl.Cancel()
		v.panning = false
	default:
		return false
	}
	v.lastErr = err
	if err != nil {
		v.log.Warn("key command failed", "key", e.Key, "error", err)
	}
	return true
}
