package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logistics-dashboard/internal/config"
	"logistics-dashboard/internal/dataset"
	"logistics-dashboard/internal/errors"
	"logistics-dashboard/internal/models"
	"logistics-dashboard/internal/observability"
	"logistics-dashboard/internal/pipeline"
)

// FilterParams is a filter selection as it arrives from a client, before
// defaults are applied. A nil field means "not supplied".
type FilterParams struct {
	Start    string
	End      string
	Statuses []string
	RatioMin *int
	RatioMax *int
}

// Dashboard owns the loaded session and answers view requests for the web
// and CLI front ends.
type Dashboard struct {
	mu      sync.RWMutex
	session *pipeline.Session

	loader  *dataset.Loader
	sources dataset.Sources
	opts    pipeline.Options
	logger  *slog.Logger

	recomputes    atomic.Int64
	lastRecompute atomic.Int64
}

func NewDashboard(loader *dataset.Loader, sources dataset.Sources, opts pipeline.Options, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		loader:  loader,
		sources: sources,
		opts:    opts,
		logger:  logger,
	}
}

// NewDashboardFromConfig wires a loader, the data sources and the pipeline
// options from cfg.
func NewDashboardFromConfig(cfg *config.Config, logger *slog.Logger) *Dashboard {
	return NewDashboard(dataset.NewLoader(logger), SourcesFrom(cfg.Data), OptionsFrom(cfg.Pipeline), logger)
}

func SourcesFrom(cfg config.DataConfig) dataset.Sources {
	return dataset.Sources{
		OrdersCSV:    cfg.OrdersCSV,
		CustomersCSV: cfg.CustomersCSV,
		SellersCSV:   cfg.SellersCSV,
		GeoSource:    cfg.GeoSource,
		Geo:          dataset.GeoOptions{CodeKey: cfg.GeoCodeKey, NameKey: cfg.GeoNameKey},
		CacheDir:     cfg.CacheDir,
	}
}

func OptionsFrom(cfg config.PipelineConfig) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.MinMonthlyOrders = cfg.MinMonthlyOrders
	opts.TopCategories = cfg.TopCategories
	opts.TopRegions = cfg.TopRegions
	opts.ExcludedBin = cfg.ExcludedFreightBin
	return opts
}

// Load reads the dataset and replaces the current session.
func (d *Dashboard) Load(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, "dataset.load")
	defer span.End(d.logger)

	ds, err := d.loader.Load(ctx, d.sources)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("load dataset: %w", err)
	}
	span.SetTag("order_lines", fmt.Sprint(len(ds.Orders)))

	d.SetDataset(ds)
	return nil
}

// SetDataset installs an already loaded dataset.
func (d *Dashboard) SetDataset(ds *models.Dataset) {
	session := pipeline.NewSession(ds, d.opts, d.logger)

	d.mu.Lock()
	d.session = session
	d.mu.Unlock()
}

func (d *Dashboard) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.session != nil
}

// Session returns the current session, or DATASET_UNAVAILABLE before the
// first successful load.
func (d *Dashboard) Session() (*pipeline.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.session == nil {
		return nil, errors.DatasetUnavailable("dataset has not been loaded")
	}
	return d.session, nil
}

// ResolveFilters turns client parameters into pipeline filters. Missing
// parameters fall back to the session defaults.
func (d *Dashboard) ResolveFilters(p FilterParams) (pipeline.Filters, error) {
	session, err := d.Session()
	if err != nil {
		return pipeline.Filters{}, err
	}
	f := session.DefaultFilters()

	if p.Start != "" {
		if f.Start, err = parseDate(p.Start); err != nil {
			return f, errors.InvalidFilter(fmt.Errorf("start: %w", err))
		}
	}
	if p.End != "" {
		if f.End, err = parseDate(p.End); err != nil {
			return f, errors.InvalidFilter(fmt.Errorf("end: %w", err))
		}
	}
	if p.Statuses != nil {
		f.Statuses = parseStatuses(p.Statuses)
	}
	if p.RatioMin != nil {
		f.RatioLowPct = *p.RatioMin
	}
	if p.RatioMax != nil {
		f.RatioHighPct = *p.RatioMax
	}

	if err := f.Validate(); err != nil {
		return f, errors.InvalidFilter(err)
	}
	return f, nil
}

// Views recomputes every derived view for f.
func (d *Dashboard) Views(ctx context.Context, f pipeline.Filters) (*pipeline.DerivedViews, error) {
	session, err := d.Session()
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, errors.InvalidFilter(err)
	}

	_, span := observability.StartSpan(ctx, "pipeline.recompute")
	defer span.End(observability.LoggerFrom(ctx, d.logger))

	start := time.Now()
	views := session.Recompute(f)
	d.recomputes.Add(1)
	d.lastRecompute.Store(int64(time.Since(start)))

	span.SetTag("order_lines", fmt.Sprint(views.FilteredOrderLineCount))
	return views, nil
}

// ViewsFor resolves p and recomputes in one step.
func (d *Dashboard) ViewsFor(ctx context.Context, p FilterParams) (*pipeline.DerivedViews, error) {
	f, err := d.ResolveFilters(p)
	if err != nil {
		return nil, err
	}
	return d.Views(ctx, f)
}

type Stats struct {
	Ready             bool          `json:"ready"`
	OrderLines        int           `json:"order_lines"`
	Customers         int           `json:"customers"`
	Sellers           int           `json:"sellers"`
	Regions           int           `json:"regions"`
	Statuses          []string      `json:"statuses"`
	LoadedAt          time.Time     `json:"loaded_at"`
	Recomputes        int64         `json:"recomputes"`
	LastRecomputeTime time.Duration `json:"last_recompute_ns"`
}

func (d *Dashboard) Stats() Stats {
	stats := Stats{
		Recomputes:        d.recomputes.Load(),
		LastRecomputeTime: time.Duration(d.lastRecompute.Load()),
		Statuses:          []string{},
	}

	session, err := d.Session()
	if err != nil {
		return stats
	}
	ds := session.Dataset()
	stats.Ready = true
	stats.OrderLines = len(ds.Orders)
	stats.Customers = len(ds.Customers)
	stats.Sellers = len(ds.Sellers)
	stats.Regions = len(ds.Regions)
	stats.LoadedAt = ds.LoadedAt
	for _, s := range session.Statuses() {
		stats.Statuses = append(stats.Statuses, string(s))
	}
	return stats
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", v)
	}
	return t, nil
}

// parseStatuses accepts repeated values as well as comma separated lists.
// The result is never nil, so an empty selection stays empty.
func parseStatuses(raw []string) []models.DeliveryStatus {
	out := make([]models.DeliveryStatus, 0, len(raw))
	seen := make(map[models.DeliveryStatus]struct{})
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			s := models.ParseDeliveryStatus(part)
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
