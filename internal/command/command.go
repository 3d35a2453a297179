// Package command holds the reversible edits applied to a graph and the
// linear undo history they are recorded in.
package command

import (
	"errors"
	"fmt"

	"nodeflow/internal/graph"
)

// Command is one reversible edit. Do is called again for redo, so it must
// reproduce the same ids the first run produced.
type Command interface {
	Name() string
	Do(g *graph.Graph) error
	Undo(g *graph.Graph) error
}

// Merger is implemented by commands that can absorb the next command of a
// continuous gesture, such as the ticks of a drag.
type Merger interface {
	Merge(next Command) bool
}

// ErrStale reports that a command refers to an entity that is gone.
var ErrStale = errors.New("stale command")

// Macro runs several commands as one history entry.
type Macro struct {
	Label    string
	Commands []Command
}

func NewMacro(label string, cmds ...Command) *Macro {
	return &Macro{Label: label, Commands: cmds}
}

func (m *Macro) Name() string { return m.Label }

func (m *Macro) Do(g *graph.Graph) error {
	for i, c := range m.Commands {
		if err := c.Do(g); err != nil {
			// leave the graph as it was before the macro
			for j := i - 1; j >= 0; j-- {
				_ = m.Commands[j].Undo(g)
			}
			return fmt.Errorf("%s: %w", c.Name(), err)
		}
	}
	return nil
}

func (m *Macro) Undo(g *graph.Graph) error {
	for i := len(m.Commands) - 1; i >= 0; i-- {
		if err := m.Commands[i].Undo(g); err != nil {
			return fmt.Errorf("%s: %w", m.Commands[i].Name(), err)
		}
	}
	return nil
}
