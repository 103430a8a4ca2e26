package services

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"logistics-dashboard/internal/config"
	"logistics-dashboard/internal/dataset"
	"logistics-dashboard/internal/errors"
	"logistics-dashboard/internal/models"
	"logistics-dashboard/internal/pipeline"
)

func day(month, d int) *time.Time {
	t := time.Date(2018, time.Month(month), d, 15, 4, 0, 0, time.UTC)
	return &t
}

func intPtr(v int) *int { return &v }

func newTestDashboard(t *testing.T) *Dashboard {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDashboard(nil, dataset.Sources{}, pipeline.DefaultOptions(), logger)
	d.SetDataset(&models.Dataset{
		Orders: []models.Order{
			{OrderID: "O1", CustomerID: "C1", Status: models.StatusDelayed, DeliveredAt: day(1, 3), ReviewScore: 2, FreightPriceRatio: 0.4},
			{OrderID: "O2", CustomerID: "C1", Status: models.StatusEarly, DeliveredAt: day(3, 9), ReviewScore: 5, FreightPriceRatio: 0.1},
			{OrderID: "O3", CustomerID: "C2", Status: models.StatusEarly, DeliveredAt: day(2, 1), ReviewScore: 4, FreightPriceRatio: 0.2},
		},
		Customers: []models.Customer{{CustomerID: "C1", State: "SP"}, {CustomerID: "C2", State: "RJ"}},
		Sellers:   []models.Seller{{SellerID: "S1", State: "SP"}},
		LoadedAt:  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	return d
}

func TestDashboard_NotLoaded(t *testing.T) {
	d := NewDashboard(nil, dataset.Sources{}, pipeline.DefaultOptions(), nil)

	if d.Ready() {
		t.Error("Ready() = true before any load")
	}
	_, err := d.ViewsFor(context.Background(), FilterParams{})
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) || appErr.Code != errors.CodeDatasetUnavailable {
		t.Fatalf("ViewsFor() error = %v, want DATASET_UNAVAILABLE", err)
	}

	stats := d.Stats()
	if stats.Ready || stats.OrderLines != 0 || stats.Statuses == nil {
		t.Errorf("Stats() = %+v, want empty not-ready stats", stats)
	}
}

func TestDashboard_Load_MissingSource(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDashboard(dataset.NewLoader(logger), dataset.Sources{
		OrdersCSV:    filepath.Join(t.TempDir(), "missing.csv"),
		CustomersCSV: filepath.Join(t.TempDir(), "missing.csv"),
		SellersCSV:   filepath.Join(t.TempDir(), "missing.csv"),
	}, pipeline.DefaultOptions(), logger)

	if err := d.Load(context.Background()); err == nil {
		t.Fatal("Load() error = nil, want error for missing files")
	}
	if d.Ready() {
		t.Error("Ready() = true after failed load")
	}
}

func TestDashboard_ResolveFilters_Defaults(t *testing.T) {
	d := newTestDashboard(t)

	f, err := d.ResolveFilters(FilterParams{})
	if err != nil {
		t.Fatalf("ResolveFilters() error = %v", err)
	}
	if want := time.Date(2018, 1, 3, 0, 0, 0, 0, time.UTC); !f.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", f.Start, want)
	}
	if want := time.Date(2018, 3, 9, 0, 0, 0, 0, time.UTC); !f.End.Equal(want) {
		t.Errorf("End = %v, want %v", f.End, want)
	}
	if want := []models.DeliveryStatus{models.StatusEarly, models.StatusDelayed}; !reflect.DeepEqual(f.Statuses, want) {
		t.Errorf("Statuses = %v, want %v", f.Statuses, want)
	}
	if f.RatioLowPct != 0 || f.RatioHighPct != 100 {
		t.Errorf("ratio range = %d-%d, want 0-100", f.RatioLowPct, f.RatioHighPct)
	}
}

func TestDashboard_ResolveFilters(t *testing.T) {
	d := newTestDashboard(t)

	tests := []struct {
		name     string
		params   FilterParams
		wantErr  bool
		statuses []models.DeliveryStatus
	}{
		{
			name:     "aliases and comma lists",
			params:   FilterParams{Statuses: []string{"terlambat, Early", "delayed"}},
			statuses: []models.DeliveryStatus{models.StatusDelayed, models.StatusEarly},
		},
		{
			name:     "empty selection stays empty",
			params:   FilterParams{Statuses: []string{}},
			statuses: []models.DeliveryStatus{},
		},
		{
			name:    "bad start date",
			params:  FilterParams{Start: "03/01/2018"},
			wantErr: true,
		},
		{
			name:    "end before start",
			params:  FilterParams{Start: "2018-02-01", End: "2018-01-01"},
			wantErr: true,
		},
		{
			name:    "inverted ratio range",
			params:  FilterParams{RatioMin: intPtr(60), RatioMax: intPtr(20)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := d.ResolveFilters(tt.params)
			if tt.wantErr {
				var appErr *errors.AppError
				if !stderrors.As(err, &appErr) || appErr.Code != errors.CodeInvalidFilter {
					t.Fatalf("ResolveFilters() error = %v, want INVALID_FILTER", err)
				}
				if appErr.Details == "" {
					t.Error("INVALID_FILTER should carry details")
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveFilters() error = %v", err)
			}
			if !reflect.DeepEqual(f.Statuses, tt.statuses) {
				t.Errorf("Statuses = %#v, want %#v", f.Statuses, tt.statuses)
			}
		})
	}
}

func TestDashboard_ViewsFor_CountsRecomputes(t *testing.T) {
	d := newTestDashboard(t)

	v, err := d.ViewsFor(context.Background(), FilterParams{Start: "2018-02-01", End: "2018-02-01"})
	if err != nil {
		t.Fatalf("ViewsFor() error = %v", err)
	}
	if v.FilteredOrderLineCount != 1 {
		t.Errorf("FilteredOrderLineCount = %d, want 1", v.FilteredOrderLineCount)
	}
	if v.Health.TotalOrders != 3 {
		t.Errorf("Health.TotalOrders = %d, want 3 regardless of filters", v.Health.TotalOrders)
	}

	if _, err := d.ViewsFor(context.Background(), FilterParams{RatioMin: intPtr(90), RatioMax: intPtr(10)}); err == nil {
		t.Fatal("ViewsFor() error = nil for inverted range")
	}

	stats := d.Stats()
	if stats.Recomputes != 1 {
		t.Errorf("Recomputes = %d, want 1", stats.Recomputes)
	}
	if !stats.Ready || stats.OrderLines != 3 || stats.Customers != 2 || stats.Sellers != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
	if want := []string{"Early", "Delayed"}; !reflect.DeepEqual(stats.Statuses, want) {
		t.Errorf("Statuses = %v, want %v", stats.Statuses, want)
	}
}

func TestDashboard_Views_RejectsInvalidFilters(t *testing.T) {
	d := newTestDashboard(t)

	_, err := d.Views(context.Background(), pipeline.Filters{RatioLowPct: 50, RatioHighPct: 10})
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) || appErr.StatusCode != 400 {
		t.Fatalf("Views() error = %v, want 400 AppError", err)
	}
}

func TestConfigMapping(t *testing.T) {
	data := config.DataConfig{
		OrdersCSV:    "orders.csv",
		CustomersCSV: "customers.csv",
		SellersCSV:   "sellers.csv",
		GeoSource:    "https://example.org/br.json",
		GeoCodeKey:   "sigla",
		GeoNameKey:   "name",
		CacheDir:     "/tmp/cache",
	}
	sources := SourcesFrom(data)
	if sources.OrdersCSV != "orders.csv" || sources.GeoSource != data.GeoSource || sources.CacheDir != "/tmp/cache" {
		t.Errorf("SourcesFrom() = %+v", sources)
	}
	if sources.Geo.CodeKey != "sigla" || sources.Geo.NameKey != "name" {
		t.Errorf("Geo options = %+v", sources.Geo)
	}

	opts := OptionsFrom(config.PipelineConfig{MinMonthlyOrders: 10, TopCategories: 3, TopRegions: 7, ExcludedFreightBin: ""})
	if opts.MinMonthlyOrders != 10 || opts.TopCategories != 3 || opts.TopRegions != 7 {
		t.Errorf("OptionsFrom() = %+v", opts)
	}
	if opts.ExcludedBin != "" {
		t.Errorf("ExcludedBin = %q, want empty", opts.ExcludedBin)
	}
	if len(opts.FreightBins) == 0 {
		t.Error("FreightBins should keep the default bins")
	}
}
