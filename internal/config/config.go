package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"nodeflow/internal/scene"
	"nodeflow/internal/style"
)

// Config holds nodeflow configuration.
type Config struct {
	Editor EditorConfig `toml:"editor"`
	Font   FontConfig   `toml:"font"`
	Log    LogConfig    `toml:"log"`
	Style  style.Style  `toml:"style"`
}

// EditorConfig controls editing behavior.
type EditorConfig struct {
	SaveDirectory   string  `toml:"save_directory"`
	EmptyCanvasDrag string  `toml:"empty_canvas_drag"` // "pan" or "select"
	GroupLocking    bool    `toml:"group_locking"`
	UndoLimit       int     `toml:"undo_limit"`
	PasteOffset     float64 `toml:"paste_offset"`
}

type FontConfig struct {
	Size float64 `toml:"size"`
}

type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"` // debug, info, warn, error
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Editor: EditorConfig{
			EmptyCanvasDrag: "pan",
			UndoLimit:       0,
			PasteOffset:     20,
		},
		Font:  FontConfig{Size: 12},
		Log:   LogConfig{Level: "info"},
		Style: style.Default(),
	}
}

// ConfigDir returns the nodeflow config directory path.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "nodeflow")
}

// Path is the default config file location.
func Path() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the default config file. A missing or broken file yields the
// defaults.
func Load() *Config {
	cfg, err := LoadFile(Path())
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile reads a config file over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	switch strings.ToLower(c.Editor.EmptyCanvasDrag) {
	case "", "pan":
		c.Editor.EmptyCanvasDrag = "pan"
	case "select":
		c.Editor.EmptyCanvasDrag = "select"
	default:
		return fmt.Errorf("empty_canvas_drag must be pan or select, got %q", c.Editor.EmptyCanvasDrag)
	}
	if c.Font.Size <= 0 {
		c.Font.Size = Default().Font.Size
	}
	if c.Editor.UndoLimit < 0 {
		c.Editor.UndoLimit = 0
	}
	c.Editor.SaveDirectory = expandPath(c.Editor.SaveDirectory)
	c.Log.File = expandPath(c.Log.File)
	return nil
}

// expandPath resolves "~" and makes the path absolute.
func expandPath(value string) string {
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			value = filepath.Join(home, strings.TrimPrefix(value, "~"))
		}
	}
	if !filepath.IsAbs(value) {
		if abs, err := filepath.Abs(value); err == nil {
			value = abs
		}
	}
	return value
}

// Save writes the config to the default location.
func Save(cfg *Config) error {
	return SaveFile(Path(), cfg)
}

func SaveFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// GetSavePath places a bare file name in the save directory.
func (c *Config) GetSavePath(filename string) string {
	if c.Editor.SaveDirectory == "" || filepath.IsAbs(filename) {
		return filename
	}
	os.MkdirAll(c.Editor.SaveDirectory, 0o755)
	return filepath.Join(c.Editor.SaveDirectory, filename)
}

func (c *Config) DragPolicy() scene.DragPolicy {
	if c.Editor.EmptyCanvasDrag == "select" {
		return scene.DragSelect
	}
	return scene.DragPan
}

func (c *Config) LogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
