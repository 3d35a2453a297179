package view

import (
	"strings"

	"nodeflow/internal/geometry"
	"nodeflow/internal/scene"
)

type EventKind int

const (
	Press EventKind = iota
	Move
	Release
	DoubleClick
	Wheel
	KeyDown
	KeyUp
)

var eventNames = [...]string{"press", "move", "release", "double-click", "wheel", "key-down", "key-up"}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

type Button int

const (
	NoButton Button = iota
	LeftButton
	MiddleButton
	RightButton
)

// Event is a toolkit-neutral input event. Pos is in view (screen) pixels.
type Event struct {
	Kind   EventKind
	Pos    geometry.Point
	Button Button
	Mods   scene.Modifiers
	// Delta is the wheel direction: positive zooms in.
	Delta float64
	// Key is the key name without modifiers, e.g. "c", "delete", "home".
	Key string
}

// ParseKey splits a key chord like "ctrl+shift+z" into its key and
// modifiers. Upper case letters imply shift.
func ParseKey(s string) (string, scene.Modifiers) {
	var mods scene.Modifiers
	parts := strings.Split(s, "+")
	key := parts[len(parts)-1]
	if key == "" && len(parts) > 1 {
		// "ctrl++" or "+"
		key = "+"
		parts = parts[:len(parts)-1]
	}
	for _, p := range parts[:len(parts)-1] {
		switch strings.ToLower(p) {
		case "ctrl":
			mods |= scene.Ctrl
		case "shift":
			mods |= scene.Shift
		case "alt":
			mods |= scene.Alt
		}
	}
	if len(key) == 1 && key[0] >= 'A' && key[0] <= 'Z' {
		mods |= scene.Shift
		key = strings.ToLower(key)
	}
	return key, mods
}

// KeyEvent builds a KeyDown event from a chord.
func KeyEvent(chord string) Event {
	key, mods := ParseKey(chord)
	return Event{Kind: KeyDown, Key: key, Mods: mods}
}
