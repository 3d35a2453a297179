package cmd

import "nodeflow/internal/geometry"

func isNavigationKey(key string) bool {
	switch key {
	case "h", "j", "k", "l", "H", "J", "K", "L",
		"left", "right", "up", "down",
		"shift+left", "shift+right", "shift+up", "shift+down":
		return true
	}
	return false
}

func (m *model) handleNavigation(key string, speed int) {
	if m.zPanMode {
		m.handlePan(key, speed)
		return
	}
	m.handleCursorMove(key, speed)
}

// handlePan scrolls the view by whole cells.
func (m *model) handlePan(key string, speed int) {
	var dx, dy int
	switch key {
	case "h", "left", "H", "shift+left":
		dx = speed
	case "l", "right", "L", "shift+right":
		dx = -speed
	case "k", "up", "K", "shift+up":
		dy = speed
	case "j", "down", "J", "shift+down":
		dy = -speed
	}
	m.view.Pan(geometry.Pt(float64(dx)*m.cells.CellWidth, float64(dy)*m.cells.CellHeight))
}

func (m *model) handleCursorMove(key string, speed int) {
	switch key {
	case "h", "left", "H", "shift+left":
		m.cursorX -= speed
	case "l", "right", "L", "shift+right":
		m.cursorX += speed
	case "k", "up", "K", "shift+up":
		m.cursorY -= speed
	case "j", "down", "J", "shift+down":
		m.cursorY += speed
	}
	m.ensureCursorInBounds()
	m.pointerMoved()
}

func (m *model) getMoveSpeed(key string) int {
	switch key {
	case "H", "L", "K", "J", "shift+left", "shift+right", "shift+up", "shift+down":
		return 2
	default:
		return 1
	}
}

func (m *model) ensureCursorInBounds() {
	m.cursorX = max(m.cursorX, 0)
	m.cursorY = max(m.cursorY, 0)
	if m.width > 0 && m.cursorX >= m.width {
		m.cursorX = m.width - 1
	}
	// Leave room for the status line.
	if maxY := max(m.canvasRows()-1, 0); m.cursorY > maxY {
		m.cursorY = maxY
	}
}
