package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nodeflow/internal/clipboard"
	"nodeflow/internal/command"
	"nodeflow/internal/config"
	"nodeflow/internal/geometry"
	"nodeflow/internal/graph"
	"nodeflow/internal/persist"
	"nodeflow/internal/render"
	"nodeflow/internal/scene"
	"nodeflow/internal/view"
)

type Mode int

const (
	ModeNormal Mode = iota
	ModeAdd
	ModeFileInput
	ModeConfirm
)

type FileOperation int

const (
	FileOpSave FileOperation = iota
	FileOpOpen
	FileOpExportPNG
)

type ConfirmAction int

const (
	ConfirmQuit ConfirmAction = iota
	ConfirmNewGraph
	ConfirmOpen
	ConfirmOverwriteFile
)

// terminalCells is the pixel size the view assumes for one terminal cell.
var terminalCells = geometry.CellMetrics{CellWidth: 8, CellHeight: 16}

// configMsg carries a reloaded configuration into the program.
type configMsg struct{ cfg *config.Config }

type model struct {
	width    int
	height   int
	cursorX  int
	cursorY  int
	zPanMode bool
	// holding is a keyboard press in progress, toggled with space.
	holding bool
	pressed view.Button
	clicks  clickTracker
	now     func() time.Time
	sized   bool

	mode              Mode
	help              bool
	helpScroll        int
	fileOp            FileOperation
	filename          string
	fileList          []string
	selectedFileIndex int
	confirmAction     ConfirmAction
	pendingPath       string
	errorMessage      string
	successMessage    string

	path  string
	cfg   *config.Config
	cells geometry.CellMetrics
	graph *graph.Graph
	stack *command.Stack
	ctrl  *scene.Controller
	view  *view.View
	log   *slog.Logger
}

func newEditor(cfg *config.Config, path string, cb scene.Clipboard, log *slog.Logger) (*model, error) {
	g := graph.New(graph.WithRegistry(newRegistry()))
	if path != "" {
		if _, err := persist.FormatFor(path); err != nil {
			return nil, err
		}
		err := persist.LoadFile(path, g)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	stack := command.NewStack(g, command.WithLimit(cfg.Editor.UndoLimit), command.WithLogger(log))
	opts := []scene.Option{
		scene.WithEmptyCanvas(cfg.DragPolicy()),
		scene.WithGroupLocking(cfg.Editor.GroupLocking),
		scene.WithClipboard(cb),
		scene.WithLogger(log),
	}
	if cfg.Style.Group.Margin > 0 {
		opts = append(opts, scene.WithGroupMargin(cfg.Style.Group.Margin))
	}
	ctrl := scene.New(stack, terminalCells, opts...)
	v := view.New(ctrl,
		view.WithStyle(cfg.Style),
		view.WithLogger(log),
		view.WithPasteOffset(cfg.Editor.PasteOffset),
	)
	return &model{
		path:              path,
		cfg:               cfg,
		cells:             terminalCells,
		graph:             g,
		stack:             stack,
		ctrl:              ctrl,
		view:              v,
		log:               log,
		now:               time.Now,
		selectedFileIndex: -1,
	}, nil
}

// runEditor opens path, or an empty graph, in the terminal editor.
func runEditor(cfg *config.Config, path string) error {
	log, closeLog, err := editorLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	m, err := newEditor(cfg, path, clipboard.Default(log), log)
	if err != nil {
		return err
	}
	defer m.ctrl.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	file := configPath
	if file == "" {
		file = config.Path()
	}
	if w, err := config.NewWatcher(file, log); err == nil {
		w.OnChange(func(c *config.Config) { p.Send(configMsg{c}) })
		if stop, err := w.Watch(); err == nil {
			defer stop()
		} else {
			log.Warn("config watch disabled", "error", err)
		}
	} else {
		log.Debug("no config to watch", "path", file, "error", err)
	}

	log.Info("editor started", "file", path, "nodes", m.graph.NodeCount())
	_, err = p.Run()
	return err
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) canvasRows() int {
	return max(m.height-1, 1)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.view.Resize(float64(m.width)*m.cells.CellWidth, float64(m.canvasRows())*m.cells.CellHeight)
		if !m.sized {
			m.sized = true
			m.view.CenterScene()
		}
		m.ensureCursorInBounds()
		return m, nil

	case configMsg:
		m.applyConfig(msg.cfg)
		return m, nil

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) applyConfig(c *config.Config) {
	m.cfg = c
	m.view.SetStyle(c.Style)
	m.ctrl.SetEmptyCanvas(c.DragPolicy())
	m.ctrl.SetGroupLocking(c.Editor.GroupLocking)
	m.successMessage = "config reloaded"
	m.log.Info("config reloaded")
}

func (m *model) handleMouse(msg tea.MouseMsg) {
	if m.help || m.mode != ModeNormal || msg.Y >= m.canvasRows() {
		return
	}
	e, ok := mouseEvent(msg, m.cells)
	if !ok {
		return
	}
	m.cursorX, m.cursorY = msg.X, msg.Y
	switch e.Kind {
	case view.Press:
		if e.Button == view.LeftButton && m.clicks.press(msg.X, msg.Y, m.now()) {
			e.Kind = view.DoubleClick
		}
		m.pressed = e.Button
	case view.Release:
		if e.Button == view.NoButton {
			e.Button = m.pressed
		}
		m.pressed = view.NoButton
	case view.Move:
		if m.pressed != view.NoButton {
			e.Button = m.pressed
		}
	}
	m.dispatch(e)
}

// dispatch hands an event to the view and surfaces command failures.
func (m *model) dispatch(e view.Event) {
	m.view.Handle(e)
	if e.Kind == view.KeyDown {
		if err := m.view.LastError(); err != nil {
			m.errorMessage = err.Error()
		}
	}
}

func (m *model) pointer() geometry.Point {
	return cellCenter(m.cursorX, m.cursorY, m.cells)
}

// pointerMoved reports a keyboard cursor move as pointer motion.
func (m *model) pointerMoved() {
	e := view.Event{Kind: view.Move, Pos: m.pointer()}
	if m.holding {
		e.Button = view.LeftButton
	}
	m.dispatch(e)
}

// togglePress presses or releases the left button at the keyboard cursor.
func (m *model) togglePress() {
	kind := view.Press
	if m.holding {
		kind = view.Release
	}
	m.holding = !m.holding
	m.dispatch(view.Event{Kind: kind, Pos: m.pointer(), Button: view.LeftButton})
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if m.help {
		switch key {
		case "esc", "q", "?":
			m.help = false
			m.helpScroll = 0
		case "j", "down":
			m.helpScroll = min(m.helpScroll+1, max(len(helpLines)-m.canvasRows(), 0))
		case "k", "up":
			m.helpScroll = max(m.helpScroll-1, 0)
		}
		return m, nil
	}

	switch m.mode {
	case ModeFileInput:
		return m.handleFileInput(msg)
	case ModeConfirm:
		return m.handleConfirm(key)
	case ModeAdd:
		m.handleAdd(key)
		return m, nil
	}

	m.errorMessage = ""
	m.successMessage = ""
	switch key {
	case "q", "ctrl+q":
		if !m.stack.IsClean() {
			m.askConfirm(ConfirmQuit)
			return m, nil
		}
		return m, tea.Quit
	case "?":
		m.help = true
	case "z":
		m.zPanMode = !m.zPanMode
	case " ", "space":
		m.togglePress()
	case "enter":
		m.dispatch(view.Event{Kind: view.DoubleClick, Pos: m.pointer(), Button: view.LeftButton})
	case "n":
		m.mode = ModeAdd
	case "ctrl+s":
		if m.path != "" {
			m.saveTo(m.path)
		} else {
			m.startFileInput(FileOpSave)
		}
	case "S":
		m.startFileInput(FileOpSave)
	case "o", "ctrl+o":
		if !m.stack.IsClean() {
			m.askConfirm(ConfirmOpen)
			return m, nil
		}
		m.startFileInput(FileOpOpen)
	case "e":
		m.startFileInput(FileOpExportPNG)
	case "N":
		if !m.stack.IsClean() {
			m.askConfirm(ConfirmNewGraph)
			return m, nil
		}
		m.newGraph()
	case "G":
		m.dispatch(view.KeyEvent("ctrl+shift+g"))
	case "esc":
		m.holding = false
		m.dispatch(view.KeyEvent(key))
	default:
		if isNavigationKey(key) {
			m.handleNavigation(key, m.getMoveSpeed(key))
			return m, nil
		}
		m.dispatch(view.KeyEvent(key))
	}
	return m, nil
}

func (m *model) handleAdd(key string) {
	if key == "esc" {
		m.mode = ModeNormal
		return
	}
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return
	}
	i := int(key[0] - '1')
	if i >= len(demoModels) {
		return
	}
	m.mode = ModeNormal
	if _, err := m.ctrl.AddNode(demoModels[i].make(), m.view.PasteOrigin()); err != nil {
		m.errorMessage = err.Error()
	}
}

func (m *model) askConfirm(a ConfirmAction) {
	m.confirmAction = a
	m.mode = ModeConfirm
}

func (m *model) handleConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "Y":
		m.mode = ModeNormal
		switch m.confirmAction {
		case ConfirmQuit:
			return m, tea.Quit
		case ConfirmNewGraph:
			m.newGraph()
		case ConfirmOpen:
			m.startFileInput(FileOpOpen)
		case ConfirmOverwriteFile:
			m.saveTo(m.pendingPath)
		}
	case "n", "N", "esc":
		m.mode = ModeNormal
		if m.confirmAction == ConfirmOverwriteFile {
			m.mode = ModeFileInput
		}
	}
	return m, nil
}

func (m *model) startFileInput(op FileOperation) {
	m.mode = ModeFileInput
	m.fileOp = op
	m.errorMessage = ""
	m.filename = ""
	switch op {
	case FileOpOpen:
		m.scanGraphFiles()
	case FileOpSave:
		if m.path != "" {
			m.filename = filepath.Base(m.path)
		}
	case FileOpExportPNG:
		base := "graph"
		if m.path != "" {
			base = strings.TrimSuffix(filepath.Base(m.path), filepath.Ext(m.path))
		}
		m.filename = base + ".png"
	}
}

// scanGraphFiles lists the loadable files of the save directory.
func (m *model) scanGraphFiles() {
	m.fileList = nil
	m.selectedFileIndex = -1
	dir := m.cfg.Editor.SaveDirectory
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return
		}
		dir = wd
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := persist.Extensions[strings.ToLower(filepath.Ext(entry.Name()))]; ok {
			m.fileList = append(m.fileList, entry.Name())
		}
	}
	sort.Strings(m.fileList)
	if len(m.fileList) > 0 {
		m.selectedFileIndex = 0
		m.filename = m.fileList[0]
	}
}

func (m *model) handleFileInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ModeNormal
		m.errorMessage = ""
	case "enter":
		m.confirmFile()
	case "backspace":
		if r := []rune(m.filename); len(r) > 0 {
			m.filename = string(r[:len(r)-1])
		}
	case "up":
		if m.fileOp == FileOpOpen && m.selectedFileIndex > 0 {
			m.selectedFileIndex--
			m.filename = m.fileList[m.selectedFileIndex]
		}
	case "down":
		if m.fileOp == FileOpOpen && m.selectedFileIndex < len(m.fileList)-1 {
			m.selectedFileIndex++
			m.filename = m.fileList[m.selectedFileIndex]
		}
	default:
		switch msg.Type {
		case tea.KeyRunes:
			m.filename += string(msg.Runes)
		case tea.KeySpace:
			m.filename += " "
		}
	}
	return m, nil
}

func (m *model) confirmFile() {
	name := strings.TrimSpace(m.filename)
	if name == "" {
		m.errorMessage = "enter a file name"
		return
	}
	switch m.fileOp {
	case FileOpSave:
		if filepath.Ext(name) == "" {
			name += ".json"
		}
		path := m.cfg.GetSavePath(name)
		if _, err := os.Stat(path); err == nil && path != m.path {
			m.pendingPath = path
			m.askConfirm(ConfirmOverwriteFile)
			return
		}
		m.saveTo(path)
	case FileOpOpen:
		m.open(m.cfg.GetSavePath(name))
	case FileOpExportPNG:
		if !strings.EqualFold(filepath.Ext(name), ".png") {
			name += ".png"
		}
		path := m.cfg.GetSavePath(name)
		if err := render.ExportPNG(path, m.graph, m.view.Style(), m.cfg.Font.Size); err != nil {
			m.errorMessage = err.Error()
			return
		}
		m.mode = ModeNormal
		m.successMessage = "exported " + filepath.Base(path)
	}
}

func (m *model) saveTo(path string) {
	if err := persist.SaveFile(path, m.graph); err != nil {
		m.errorMessage = err.Error()
		m.mode = ModeFileInput
		m.fileOp = FileOpSave
		m.log.Error("save failed", "path", path, "error", err)
		return
	}
	m.path = path
	m.stack.SetClean()
	m.mode = ModeNormal
	m.successMessage = "saved " + filepath.Base(path)
	m.log.Info("saved", "path", path)
}

func (m *model) open(path string) {
	if err := persist.LoadFile(path, m.graph); err != nil {
		m.errorMessage = err.Error()
		m.log.Error("open failed", "path", path, "error", err)
		return
	}
	m.path = path
	m.resetHistory()
	m.mode = ModeNormal
	m.successMessage = "opened " + filepath.Base(path)
	m.log.Info("opened", "path", path, "nodes", m.graph.NodeCount())
}

func (m *model) newGraph() {
	if err := m.graph.Load(graph.Record{}); err != nil {
		m.errorMessage = err.Error()
		return
	}
	m.path = ""
	m.resetHistory()
}

func (m *model) resetHistory() {
	m.holding = false
	m.ctrl.Cancel()
	m.ctrl.ClearSelection()
	m.stack.Clear()
	m.stack.SetClean()
	m.view.CenterScene()
}

func (m *model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.help {
		return m.helpView()
	}
	term := render.NewTerminal(m.width, m.canvasRows(), m.cells)
	m.view.Paint(term)
	if m.mode == ModeNormal {
		term.Highlight(m.cursorX, m.cursorY)
	}
	return term.Render() + "\n" + m.statusLine()
}

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#d0d0d8")).Background(lipgloss.Color("#2a2a38"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff6060")).Background(lipgloss.Color("#2a2a38")).Bold(true)
)

func (m *model) modeString() string {
	switch m.mode {
	case ModeAdd:
		return "ADD"
	case ModeFileInput:
		return "FILE"
	case ModeConfirm:
		return "CONFIRM"
	}
	switch {
	case m.holding:
		return "HOLD"
	case m.zPanMode:
		return "PAN"
	}
	return "NORMAL"
}

func (m *model) documentName() string {
	name := "[new]"
	if m.path != "" {
		name = filepath.Base(m.path)
	}
	if !m.stack.IsClean() {
		name += "*"
	}
	return name
}

func (m *model) statusLine() string {
	var status string
	switch m.mode {
	case ModeAdd:
		opts := make([]string, len(demoModels))
		for i, d := range demoModels {
			opts[i] = fmt.Sprintf("%d=%s", i+1, d.name)
		}
		status = fmt.Sprintf("Mode: ADD | %s | Esc=cancel", strings.Join(opts, " "))
	case ModeFileInput:
		var op string
		switch m.fileOp {
		case FileOpSave:
			op = "Save"
		case FileOpOpen:
			op = "Open"
		case FileOpExportPNG:
			op = "Export PNG"
		}
		status = fmt.Sprintf("Mode: FILE | %s filename: %s", op, m.filename)
		if m.fileOp == FileOpOpen {
			status += " | ↑/↓=navigate list"
		}
		status += " | Enter=confirm, Esc=cancel"
	case ModeConfirm:
		var message string
		switch m.confirmAction {
		case ConfirmQuit:
			message = "Quit with unsaved changes? (y/n)"
		case ConfirmNewGraph:
			message = "Start a new graph? Unsaved changes will be lost. (y/n)"
		case ConfirmOpen:
			message = "Open another file? Unsaved changes will be lost. (y/n)"
		case ConfirmOverwriteFile:
			message = fmt.Sprintf("File %s already exists. Overwrite? (y/n)", filepath.Base(m.pendingPath))
		}
		status = "Mode: CONFIRM | " + message
	default:
		status = fmt.Sprintf("Mode: %s | %s | Zoom: %d%% | Nodes: %d",
			m.modeString(), m.documentName(), int(m.view.Scale()*100+0.5), m.graph.NodeCount())
		if st := m.ctrl.State(); st != scene.Idle && st != scene.Hovering {
			status += " | " + st.String()
		}
		if m.successMessage != "" {
			status += " | " + m.successMessage
		} else if m.errorMessage == "" {
			status += " | ? for help | q to quit"
		}
	}
	line := statusStyle.Render(status)
	if m.errorMessage != "" {
		line += errorStyle.Render(" ERROR: " + m.errorMessage)
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(line)
}

var helpLines = []string{
	"nodeflow Help",
	"=============",
	"",
	"Mouse:",
	"------",
	"  Left drag on a node      Move the node (and the rest of the selection)",
	"  Left drag from a port    Draw a connection; drop on a compatible port",
	"  Left drag on empty space Pan the view (Shift: rubber band selection)",
	"  Double click a group     Lock or unlock it (when group locking is on)",
	"  Middle drag              Pan the view",
	"  Wheel                    Zoom at the pointer",
	"",
	"Keyboard pointer:",
	"-----------------",
	"  h/←/j/↓/k/↑/l/→          Move the cursor",
	"  Shift+h/j/k/l            Move the cursor 2x faster",
	"  z                        Toggle pan mode (movement keys scroll the view)",
	"  Space                    Press / release at the cursor",
	"  Enter                    Double click at the cursor",
	"",
	"Editing:",
	"--------",
	"  n                        Add a node at the cursor",
	"  Delete/Backspace         Delete the selection",
	"  Ctrl+C / Ctrl+X / Ctrl+V Copy / cut / paste at the cursor",
	"  Ctrl+D                   Duplicate the selection at the cursor",
	"  Ctrl+Z / Ctrl+Y          Undo / redo",
	"  Ctrl+G / G               Group / ungroup the selection",
	"  Ctrl+A / Esc             Select all / cancel and clear the selection",
	"",
	"View:",
	"-----",
	"  + / -                    Zoom in / out",
	"  Home                     Center the scene",
	"",
	"Files:",
	"------",
	"  Ctrl+S / S               Save / save as (.json, .yaml, .flowz)",
	"  o                        Open",
	"  e                        Export PNG",
	"  N                        New graph",
	"  q                        Quit",
	"",
	"Press ? or Esc to close this help",
}

func (m *model) helpView() string {
	rows := m.canvasRows()
	end := min(m.helpScroll+rows, len(helpLines))
	body := strings.Join(helpLines[m.helpScroll:end], "\n")
	return lipgloss.NewStyle().Width(m.width).Height(rows).Render(body) + "\n" +
		statusStyle.Render("Mode: HELP | j/k=scroll, ?/Esc=close")
}
