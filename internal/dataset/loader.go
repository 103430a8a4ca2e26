package dataset

import (
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"logistics-dashboard/internal/models"
)

const cacheVersion = "v1"

// Sources names the inputs of a dataset load.
type Sources struct {
	OrdersCSV    string
	CustomersCSV string
	SellersCSV   string
	GeoSource    string
	Geo          GeoOptions
	// CacheDir holds gob snapshots of the parsed tables. Empty disables the
	// cache.
	CacheDir string
}

type Loader struct {
	logger *slog.Logger
}

func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// snapshot is the cached form of the parsed tables. Geometry is not cached.
type snapshot struct {
	Orders    []models.Order
	Customers []models.Customer
	Sellers   []models.Seller
	SavedAt   time.Time
}

// Load reads the three tables concurrently, then the geo boundaries. Any
// failure is returned; callers treat it as fatal.
func (l *Loader) Load(ctx context.Context, src Sources) (*models.Dataset, error) {
	start := time.Now()

	snap, err := l.loadTables(ctx, src)
	if err != nil {
		return nil, err
	}

	regions, err := LoadGeo(ctx, src.GeoSource, src.Geo)
	if err != nil {
		return nil, err
	}

	ds := &models.Dataset{
		Orders:    snap.Orders,
		Customers: snap.Customers,
		Sellers:   snap.Sellers,
		Regions:   regions,
		LoadedAt:  time.Now(),
	}
	l.logger.Info("dataset loaded",
		"order_lines", len(ds.Orders),
		"customers", len(ds.Customers),
		"sellers", len(ds.Sellers),
		"regions", len(ds.Regions),
		"duration", time.Since(start),
	)
	return ds, nil
}

func (l *Loader) loadTables(ctx context.Context, src Sources) (*snapshot, error) {
	paths := []string{src.OrdersCSV, src.CustomersCSV, src.SellersCSV}

	if src.CacheDir != "" {
		if snap, err := l.readCache(src.CacheDir, paths); err == nil {
			l.logger.Info("loaded tables from cache", "order_lines", len(snap.Orders))
			return snap, nil
		}
	}

	snap := &snapshot{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := open(ctx, src.OrdersCSV)
		if err != nil {
			return err
		}
		defer f.Close()

		orders, skipped, err := ParseOrders(f)
		if err != nil {
			return fmt.Errorf("parse %s: %w", src.OrdersCSV, err)
		}
		if skipped > 0 {
			l.logger.Warn("skipped invalid order rows", "file", src.OrdersCSV, "rows", skipped)
		}
		snap.Orders = orders
		return nil
	})
	g.Go(func() error {
		f, err := open(ctx, src.CustomersCSV)
		if err != nil {
			return err
		}
		defer f.Close()

		customers, err := ParseCustomers(f)
		if err != nil {
			return fmt.Errorf("parse %s: %w", src.CustomersCSV, err)
		}
		snap.Customers = customers
		return nil
	})
	g.Go(func() error {
		f, err := open(ctx, src.SellersCSV)
		if err != nil {
			return err
		}
		defer f.Close()

		sellers, err := ParseSellers(f)
		if err != nil {
			return fmt.Errorf("parse %s: %w", src.SellersCSV, err)
		}
		snap.Sellers = sellers
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	snap.SavedAt = time.Now()

	if src.CacheDir != "" {
		if err := l.writeCache(src.CacheDir, paths, snap); err != nil {
			l.logger.Warn("failed to save cache", "error", err)
		}
	}
	return snap, nil
}

func open(ctx context.Context, path string) (*os.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

func cacheFile(dir string, paths []string) string {
	key := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(strings.Join(paths, "+"))
	return filepath.Join(dir, fmt.Sprintf("%s_%s.gob", key, cacheVersion))
}

// readCache returns the snapshot only if it is newer than every source file.
func (l *Loader) readCache(dir string, paths []string) (*snapshot, error) {
	file, err := os.Open(cacheFile(dir, paths))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, err
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.ModTime().Before(snap.SavedAt) {
			return nil, fmt.Errorf("cache is stale for %s", p)
		}
	}
	return &snap, nil
}

func (l *Loader) writeCache(dir string, paths []string, snap *snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	file, err := os.Create(cacheFile(dir, paths))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(snap)
}
