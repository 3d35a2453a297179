// Package cmd holds the nodeflow command line: the interactive editor and
// the batch export and check commands.
package cmd

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"nodeflow/internal/config"
)

var version = "0.3.0"

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "nodeflow [file]",
	Short:   "nodeflow: a node graph editor for the terminal",
	Long:    Brand.Sprint("nodeflow") + ": edit node graphs in the terminal\n" + Subtle.Sprint("Files ending in .json, .yaml or .flowz are supported"),
	Version: version,
	Args:    cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		return runEditor(cfg, path)
	},
}

func init() {
	rootCmd.SetVersionTemplate("nodeflow {{ .Version }}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.Path()+")")

	rootCmd.AddCommand(
		exportCmd(),
		checkCmd(),
		configCmd(),
	)
}

// loadConfig reads --config strictly apart from a missing file; the
// default location falls back to defaults on any error.
func loadConfig() error {
	if configPath == "" {
		cfg = config.Load()
		return nil
	}
	c, err := config.LoadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		// config init creates it.
		cfg = config.Default()
		return nil
	}
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
