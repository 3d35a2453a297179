// Package clipboard moves copied graph fragments through the system
// clipboard as JSON text.
package clipboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"

	"nodeflow/internal/graph"
	"nodeflow/internal/persist"
	"nodeflow/internal/scene"
)

// Kind tags clipboard text written by nodeflow.
const Kind = "nodeflow/fragment"

// ErrForeign is returned when the clipboard holds something other than a
// graph fragment.
var ErrForeign = errors.New("clipboard does not hold a graph fragment")

type envelope struct {
	Kind string `json:"kind"`
	graph.Record
}

// Encode renders a fragment as clipboard text.
func Encode(rec graph.Record) (string, error) {
	if err := persist.Validate(rec); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(envelope{Kind: Kind, Record: rec}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode parses clipboard text written by Encode.
func Decode(text string) (graph.Record, error) {
	text = strings.TrimSpace(cleanText(text))
	if !strings.HasPrefix(text, "{") {
		return graph.Record{}, ErrForeign
	}
	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil || env.Kind != Kind {
		return graph.Record{}, ErrForeign
	}
	if err := persist.Validate(env.Record); err != nil {
		return graph.Record{}, err
	}
	return env.Record, nil
}

// System uses the operating system clipboard. Writes are mirrored in memory
// and reads fall back to that copy when the system clipboard fails.
type System struct {
	read  func() (string, error)
	write func(string) error
	mem   scene.MemoryClipboard
	log   *slog.Logger
}

func NewSystem(log *slog.Logger) *System {
	if log == nil {
		log = slog.Default()
	}
	return &System{read: readText, write: clipboard.WriteAll, log: log}
}

// Default returns the system clipboard, or an in-process one where the
// platform has no clipboard utility.
func Default(log *slog.Logger) scene.Clipboard {
	if clipboard.Unsupported {
		return &scene.MemoryClipboard{}
	}
	return NewSystem(log)
}

func (s *System) Put(rec graph.Record) error {
	text, err := Encode(rec)
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	s.mem.Put(rec)
	if err := s.write(text); err != nil {
		s.log.Warn("system clipboard write failed", "error", err)
	}
	return nil
}

func (s *System) Get() (graph.Record, error) {
	text, err := s.read()
	if err != nil {
		s.log.Warn("system clipboard read failed", "error", err)
		return s.mem.Get()
	}
	return Decode(text)
}

func readText() (string, error) {
	if runtime.GOOS == "darwin" {
		if output, err := exec.Command("pbpaste", "-Prefer", "txt").Output(); err == nil {
			return string(output), nil
		}
	}
	return clipboard.ReadAll()
}

// cleanText drops control characters other than line breaks and tabs.
func cleanText(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\r' || r == '\t' || r >= 32 {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
