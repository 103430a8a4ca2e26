package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"logistics-dashboard/internal/charts"
	"logistics-dashboard/internal/pipeline"
)

func newRenderCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "render [chart...]",
		Short: "Render charts as PNG files",
		Args: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				if !slices.Contains(charts.Names(), name) {
					return fmt.Errorf("unknown chart %q", name)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				names = charts.Names()
			}
			if err := ensureDir(dir); err != nil {
				return err
			}
			v, err := a.views(cmd)
			if err != nil {
				return err
			}

			var g errgroup.Group
			g.SetLimit(4)
			for _, name := range names {
				g.Go(func() error {
					return renderFile(filepath.Join(dir, name+".png"), name, v)
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(dir, name+".png"))
			}
			a.logger.Info("charts rendered", "dir", dir, "count", len(names))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "charts", "Output directory")
	return cmd
}

func renderFile(path, name string, v *pipeline.DerivedViews) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := charts.Render(f, name, v); err != nil {
		f.Close()
		return fmt.Errorf("chart %s: %w", name, err)
	}
	return f.Close()
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
