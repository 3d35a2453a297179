package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodeflow/internal/scene"
	"nodeflow/internal/style"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg := Load()
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, scene.DragPan, cfg.DragPolicy())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `
[editor]
empty_canvas_drag = "Select"
group_locking = true
undo_limit = 50
save_directory = "flows"

[font]
size = 14

[log]
level = "debug"

[style.node]
selected_boundary = "#00ff00"
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, scene.DragSelect, cfg.DragPolicy())
	assert.True(t, cfg.Editor.GroupLocking)
	assert.Equal(t, 50, cfg.Editor.UndoLimit)
	assert.Equal(t, 20.0, cfg.Editor.PasteOffset, "unset keys keep defaults")
	assert.Equal(t, 14.0, cfg.Font.Size)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.True(t, filepath.IsAbs(cfg.Editor.SaveDirectory))
	assert.Equal(t, style.RGB(0, 255, 0), cfg.Style.Node.SelectedBoundary)
	assert.Equal(t, style.Default().Node.NormalBoundary, cfg.Style.Node.NormalBoundary)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.toml")
	writeFile(t, bad, "[editor\n")
	_, err = LoadFile(bad)
	assert.ErrorContains(t, err, "parse config")

	policy := filepath.Join(dir, "policy.toml")
	writeFile(t, policy, "[editor]\nempty_canvas_drag = \"zoom\"\n")
	_, err = LoadFile(policy)
	assert.ErrorContains(t, err, "empty_canvas_drag")

	color := filepath.Join(dir, "color.toml")
	writeFile(t, color, "[style.view]\nbackground = \"dark\"\n")
	_, err = LoadFile(color)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg := Default()
	cfg.Editor.GroupLocking = true
	cfg.Style.Connection.DataDefinedColors = true
	require.NoError(t, Save(cfg))

	got := Load()
	assert.Equal(t, cfg, got)
}

func TestGetSavePath(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "flow.json", cfg.GetSavePath("flow.json"))

	dir := filepath.Join(t.TempDir(), "saves")
	cfg.Editor.SaveDirectory = dir
	assert.Equal(t, filepath.Join(dir, "flow.json"), cfg.GetSavePath("flow.json"))
	assert.DirExists(t, dir)

	abs := filepath.Join(t.TempDir(), "x.json")
	assert.Equal(t, abs, cfg.GetSavePath(abs))
}

func TestWatcherReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[font]\nsize = 10\n")

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 10.0, w.Config().Font.Size)

	var seen []float64
	w.OnChange(func(c *Config) { seen = append(seen, c.Font.Size) })

	writeFile(t, path, "[font]\nsize = 16\n")
	_, err = w.Reload()
	require.NoError(t, err)
	assert.Equal(t, []float64{16}, seen)
	assert.Equal(t, 16.0, w.Config().Font.Size)

	writeFile(t, path, "[font\n")
	_, err = w.Reload()
	assert.Error(t, err)
	assert.Equal(t, 16.0, w.Config().Font.Size, "a broken file keeps the old config")
}

func TestWatcherWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[font]\nsize = 10\n")

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	changed := make(chan float64, 8)
	w.OnChange(func(c *Config) {
		select {
		case changed <- c.Font.Size:
		default:
		}
	})

	stop, err := w.Watch()
	require.NoError(t, err)
	defer stop()

	writeFile(t, path, "[font]\nsize = 18\n")
	// A write may be seen half done, so wait for the final content.
	timeout := time.After(5 * time.Second)
	for {
		select {
		case size := <-changed:
			if size == 18 {
				return
			}
		case <-timeout:
			t.Fatal("no reload after write")
		}
	}
}
