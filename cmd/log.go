package cmd

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"nodeflow/internal/config"
)

// editorLogger logs to the configured file, or nowhere: the editor owns
// the terminal.
func editorLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Log.File == "" {
		return slog.New(slog.NewTextHandler(io.Discard, opts)), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(slog.NewTextHandler(f, opts)), func() { f.Close() }, nil
}
