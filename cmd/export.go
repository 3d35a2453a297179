package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"nodeflow/internal/graph"
	"nodeflow/internal/persist"
	"nodeflow/internal/render"
	"nodeflow/internal/style"
)

// exportResult is the outcome of converting one file.
type exportResult struct {
	Source  string
	Target  string
	Err     error
	Elapsed time.Duration
}

func exportCmd() *cobra.Command {
	var (
		outDir   string
		format   string
		fontSize float64
		jobs     int
	)

	cmd := &cobra.Command{
		Use:   "export <file>...",
		Short: "Render graph files to PNG or text, or convert them to another format",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.TrimPrefix(strings.ToLower(format), ".")
			if format != "png" && format != "txt" {
				if _, err := persist.FormatFor("x." + format); err != nil {
					return err
				}
			}
			if fontSize <= 0 {
				fontSize = cfg.Font.Size
			}
			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return err
				}
			}

			banner("export")
			results := exportFiles(cmd.Context(), args, exportOptions{
				outDir:   outDir,
				format:   format,
				fontSize: fontSize,
				style:    cfg.Style,
				jobs:     jobs,
			})
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			fmt.Println()
			if failed > 0 {
				return fmt.Errorf("%d of %d exports failed", failed, len(results))
			}
			Good.Printf("  %d file(s) exported\n", len(results))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: next to each input)")
	cmd.Flags().StringVarP(&format, "format", "f", "png", "output format: png, txt, json, yaml or flowz")
	cmd.Flags().Float64Var(&fontSize, "font-size", 0, "font size for PNG text (default from config)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "files converted in parallel")
	return cmd
}

type exportOptions struct {
	outDir   string
	format   string
	fontSize float64
	style    style.Style
	jobs     int
}

// exportFiles converts every file in parallel. Results keep input order;
// one failure does not stop the others.
func exportFiles(ctx context.Context, paths []string, opts exportOptions) []exportResult {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.jobs < 1 {
		opts.jobs = 4
	}
	results := make([]exportResult, len(paths))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.jobs)
	for i, path := range paths {
		g.Go(func() error {
			start := time.Now()
			target := exportTarget(path, opts.outDir, opts.format)
			err := ctx.Err()
			if err == nil {
				err = exportFile(path, target, opts)
			}
			r := exportResult{Source: path, Target: target, Err: err, Elapsed: time.Since(start)}

			mu.Lock()
			results[i] = r
			if err != nil {
				fmt.Printf("  %s %s %s\n", statusIcon(false), path, Bad.Sprintf("(%v)", err))
			} else {
				fmt.Printf("  %s %s → %s %s\n", statusIcon(true), path, target, Subtle.Sprintf("%.2fs", r.Elapsed.Seconds()))
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func exportTarget(path, outDir, format string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "." + format
	if outDir == "" {
		return filepath.Join(filepath.Dir(path), base)
	}
	return filepath.Join(outDir, base)
}

// exportFile loads one file into its own graph and writes target.
func exportFile(path, target string, opts exportOptions) error {
	if filepath.Clean(path) == filepath.Clean(target) {
		return errors.New("source and target are the same file")
	}
	g := graph.New(graph.WithRegistry(newRegistry()))
	if err := persist.LoadFile(path, g); err != nil {
		return err
	}
	switch opts.format {
	case "png":
		return render.ExportPNG(target, g, opts.style, opts.fontSize)
	case "txt":
		return render.ExportText(target, g, opts.style, terminalCells)
	}
	return persist.SaveFile(target, g)
}
