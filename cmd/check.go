package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nodeflow/internal/graph"
	"nodeflow/internal/persist"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Validate graph files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := cliLogger()
			failed := 0
			for _, path := range args {
				stats, err := checkFile(path)
				if err != nil {
					failed++
					log.Debug("check failed", "path", path, "error", err)
					fmt.Printf("  %s %s\n      %s\n", statusIcon(false), path, Bad.Sprint(err))
					continue
				}
				fmt.Printf("  %s %s %s\n", statusIcon(true), path,
					Subtle.Sprintf("%d nodes, %d connections, %d groups", stats.nodes, stats.connections, stats.groups))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files are invalid", failed, len(args))
			}
			return nil
		},
	}
}

type fileStats struct {
	nodes, connections, groups int
}

// checkFile loads path into a scratch graph, which runs every structural
// check a real load would.
func checkFile(path string) (fileStats, error) {
	g := graph.New(graph.WithRegistry(newRegistry()))
	if err := persist.LoadFile(path, g); err != nil {
		return fileStats{}, err
	}
	return fileStats{
		nodes:       g.NodeCount(),
		connections: g.ConnectionCount(),
		groups:      len(g.GroupIDs()),
	}, nil
}
