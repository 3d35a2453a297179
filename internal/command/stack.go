package command

import (
	"errors"
	"log/slog"

	"nodeflow/internal/graph"
)

var ErrTransactionOpen = errors.New("transaction already open")

// Stack is a linear undo history over one graph. Recording a new command
// discards everything that could have been redone.
type Stack struct {
	g         *graph.Graph
	undoStack []Command
	redoStack []Command

	limit int
	// clean is the undo depth at which the graph matched its saved state,
	// or -1 when that state is no longer reachable.
	clean int

	open     *Transaction
	onChange func()
	log      *slog.Logger
}

type Option func(*Stack)

// WithLimit caps the number of undo entries; 0 keeps everything.
func WithLimit(n int) Option {
	return func(s *Stack) { s.limit = max(n, 0) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Stack) { s.log = l }
}

// OnChange registers a callback run after every history change.
func OnChange(fn func()) Option {
	return func(s *Stack) { s.onChange = fn }
}

func NewStack(g *graph.Graph, opts ...Option) *Stack {
	s := &Stack{g: g, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Stack) Graph() *graph.Graph { return s.g }

// Push executes c and records it.
func (s *Stack) Push(c Command) error {
	if err := c.Do(s.g); err != nil {
		s.log.Debug("command rejected", "command", c.Name(), "error", err)
		return err
	}
	s.record(c)
	return nil
}

func (s *Stack) record(c Command) {
	if s.clean > len(s.undoStack) {
		s.clean = -1
	}
	s.undoStack = append(s.undoStack, c)
	s.redoStack = s.redoStack[:0]
	if s.limit > 0 && len(s.undoStack) > s.limit {
		drop := len(s.undoStack) - s.limit
		s.undoStack = append(s.undoStack[:0], s.undoStack[drop:]...)
		if s.clean >= 0 {
			s.clean -= drop
			if s.clean < 0 {
				s.clean = -1
			}
		}
	}
	s.log.Debug("command recorded", "command", c.Name(), "depth", len(s.undoStack))
	s.changed()
}

func (s *Stack) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Undo reverts the newest entry. It is a no-op on an empty history.
func (s *Stack) Undo() error {
	n := len(s.undoStack)
	if n == 0 {
		return nil
	}
	c := s.undoStack[n-1]
	if err := c.Undo(s.g); err != nil {
		return err
	}
	s.undoStack = s.undoStack[:n-1]
	s.redoStack = append(s.redoStack, c)
	s.log.Debug("undo", "command", c.Name())
	s.changed()
	return nil
}

// Redo reapplies the newest undone entry.
func (s *Stack) Redo() error {
	n := len(s.redoStack)
	if n == 0 {
		return nil
	}
	c := s.redoStack[n-1]
	if err := c.Do(s.g); err != nil {
		return err
	}
	s.redoStack = s.redoStack[:n-1]
	s.undoStack = append(s.undoStack, c)
	s.log.Debug("redo", "command", c.Name())
	s.changed()
	return nil
}

func (s *Stack) CanUndo() bool { return len(s.undoStack) > 0 }
func (s *Stack) CanRedo() bool { return len(s.redoStack) > 0 }

func (s *Stack) UndoName() string {
	if n := len(s.undoStack); n > 0 {
		return s.undoStack[n-1].Name()
	}
	return ""
}

func (s *Stack) RedoName() string {
	if n := len(s.redoStack); n > 0 {
		return s.redoStack[n-1].Name()
	}
	return ""
}

// Len is the number of undoable entries.
func (s *Stack) Len() int { return len(s.undoStack) }

// Clear drops the whole history, as after loading a file.
func (s *Stack) Clear() {
	s.undoStack = nil
	s.redoStack = nil
	s.clean = 0
	s.open = nil
	s.changed()
}

// SetClean marks the current state as saved.
func (s *Stack) SetClean() {
	s.clean = len(s.undoStack)
	s.changed()
}

func (s *Stack) IsClean() bool {
	return s.clean == len(s.undoStack)
}

// Transaction collects the commands of one gesture into a single history
// entry. Commands are applied as they arrive so the graph follows the
// gesture live.
type Transaction struct {
	s    *Stack
	name string
	cmds []Command
	done bool
}

// Begin opens a transaction. Only one may be open at a time.
func (s *Stack) Begin(name string) (*Transaction, error) {
	if s.open != nil {
		return nil, ErrTransactionOpen
	}
	s.open = &Transaction{s: s, name: name}
	return s.open, nil
}

// InTransaction reports whether a transaction is open.
func (s *Stack) InTransaction() bool { return s.open != nil }

// Apply executes c, merging it into the previous command when possible.
func (t *Transaction) Apply(c Command) error {
	if t.done {
		return errors.New("transaction finished")
	}
	if err := c.Do(t.s.g); err != nil {
		return err
	}
	if n := len(t.cmds); n > 0 {
		if m, ok := t.cmds[n-1].(Merger); ok && m.Merge(c) {
			return nil
		}
	}
	t.cmds = append(t.cmds, c)
	return nil
}

func (t *Transaction) Len() int { return len(t.cmds) }

// Commit records the collected commands. An empty transaction records
// nothing.
func (t *Transaction) Commit() {
	if t.done {
		return
	}
	t.done = true
	t.s.open = nil
	switch len(t.cmds) {
	case 0:
		return
	case 1:
		t.s.record(t.cmds[0])
	default:
		t.s.record(NewMacro(t.name, t.cmds...))
	}
}

// Rollback reverts everything applied so far and records nothing.
func (t *Transaction) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.open = nil
	return NewMacro(t.name, t.cmds...).Undo(t.s.g)
}
