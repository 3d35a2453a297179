package cmd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"nodeflow/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the active configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = config.Path()
			}
			fmt.Printf("  %s %s\n\n", Brand.Sprint("config"), Subtle.Sprint(path))
			return toml.NewEncoder(os.Stdout).Encode(cfg)
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = config.Path()
			}
			if _, err := os.Stat(path); err == nil && !force {
				Warn.Printf("  %s already exists (use --force to overwrite)\n", path)
				return nil
			}
			if err := config.SaveFile(path, config.Default()); err != nil {
				return err
			}
			Good.Printf("  wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}
