package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"logistics-dashboard/internal/config"
	"logistics-dashboard/internal/observability"
	"logistics-dashboard/internal/pipeline"
	"logistics-dashboard/internal/services"
)

const loadTimeout = 2 * time.Minute

// app carries what every subcommand needs once the dataset is loaded.
type app struct {
	dashboard *services.Dashboard
	logger    *slog.Logger

	filters filterFlags
}

type filterFlags struct {
	start    string
	end      string
	statuses []string
	ratioMin int
	ratioMax int
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "dashctl",
		Short:         "Compute delivery dashboard views from the configured dataset",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context(), cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.filters.start, "start", "", "First delivered date to include (YYYY-MM-DD)")
	flags.StringVar(&a.filters.end, "end", "", "Last delivered date to include (YYYY-MM-DD)")
	flags.StringSliceVar(&a.filters.statuses, "status", nil, "Delivery statuses to include, repeatable or comma separated")
	flags.IntVar(&a.filters.ratioMin, "ratio-min", 0, "Lowest freight-to-price ratio in percent")
	flags.IntVar(&a.filters.ratioMax, "ratio-max", 100, "Highest freight-to-price ratio in percent")

	root.AddCommand(newViewsCmd(a), newExportCmd(a), newRenderCmd(a))
	return root
}

// setup loads configuration and the dataset unless a dashboard was injected.
func (a *app) setup(ctx context.Context, cmd *cobra.Command) error {
	if a.dashboard != nil {
		if a.logger == nil {
			a.logger = slog.Default()
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	a.logger = observability.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logger)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	a.dashboard = services.NewDashboardFromConfig(cfg, a.logger)
	return a.dashboard.Load(ctx)
}

// params maps the filter flags onto dashboard parameters. Flags left at their
// defaults fall back to the dataset defaults.
func (a *app) params(cmd *cobra.Command) services.FilterParams {
	p := services.FilterParams{
		Start: a.filters.start,
		End:   a.filters.end,
	}
	flags := cmd.Flags()
	if flags.Changed("status") {
		p.Statuses = append([]string{}, a.filters.statuses...)
	}
	if flags.Changed("ratio-min") {
		v := a.filters.ratioMin
		p.RatioMin = &v
	}
	if flags.Changed("ratio-max") {
		v := a.filters.ratioMax
		p.RatioMax = &v
	}
	return p
}

func (a *app) views(cmd *cobra.Command) (*pipeline.DerivedViews, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return a.dashboard.ViewsFor(ctx, a.params(cmd))
}
