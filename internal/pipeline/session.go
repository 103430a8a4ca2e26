package pipeline

import (
	"log/slog"
	"time"

	"logistics-dashboard/internal/models"
)

const (
	DefaultMinMonthlyOrders = 75
	DefaultTopCategories    = 5
	DefaultTopRegions       = 3
)

type Options struct {
	MinMonthlyOrders int
	TopCategories    int
	TopRegions       int
	ExcludedBin      string
	FreightBins      models.FreightBinScheme
}

func DefaultOptions() Options {
	return Options{
		MinMonthlyOrders: DefaultMinMonthlyOrders,
		TopCategories:    DefaultTopCategories,
		TopRegions:       DefaultTopRegions,
		ExcludedBin:      models.OverflowBin,
		FreightBins:      models.DefaultFreightBins(),
	}
}

// DerivedViews is everything the presentation layer draws for one filter
// selection. It is freshly allocated on every Recompute.
type DerivedViews struct {
	Filters Filters `json:"-"`

	MonthlyComposition     []models.MonthlyComposition               `json:"monthly_delivery_composition"`
	ReviewByStatus         []models.StatusReview                     `json:"review_by_delivery_status"`
	ReviewByCategory       []models.CategoryReview                   `json:"review_by_delivery_status_and_category"`
	FreightSatisfaction    []models.FreightSatisfaction              `json:"freight_ratio_satisfaction"`
	CustomerDelay          models.RegionDelayTable                   `json:"customer_delay_by_state"`
	SellerDensity          []models.SellerDensity                    `json:"seller_density_by_state"`
	GeoDelayed             []models.GeoFeature[models.RegionDelay]   `json:"geo_delayed"`
	GeoSeller              []models.GeoFeature[models.SellerDensity] `json:"geo_seller"`
	TopDelayedRegions      []models.RegionDelay                      `json:"top_delayed_states"`
	TopSellerRegions       []models.SellerDensity                    `json:"top_seller_states"`
	Health                 models.HealthMetrics                      `json:"overall_health"`
	StatusDistribution     []models.StatusShare                      `json:"delivery_status_distribution"`
	FilteredOrderLineCount int                                       `json:"filtered_order_lines"`
}

// Session holds the loaded dataset for the lifetime of the process. It is
// read-only after construction and safe for concurrent Recompute calls.
type Session struct {
	data    *models.Dataset
	opts    Options
	logger  *slog.Logger
	sellers []models.SellerDensity
	health  models.HealthMetrics
	dist    []models.StatusShare
}

func NewSession(data *models.Dataset, opts Options, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if len(opts.FreightBins) == 0 {
		opts.FreightBins = models.DefaultFreightBins()
	}
	return &Session{
		data:    data,
		opts:    opts,
		logger:  logger,
		sellers: SellerDensityByRegion(data.Sellers),
		health:  Health(data.Orders),
		dist:    StatusDistribution(data.Orders),
	}
}

func (s *Session) Dataset() *models.Dataset { return s.data }

func (s *Session) Options() Options { return s.opts }

// DefaultFilters spans the full delivered date range, every status present
// in the data and the full 0-100% ratio range.
func (s *Session) DefaultFilters() Filters {
	f := Filters{RatioLowPct: 0, RatioHighPct: 100}
	if first, last, ok := s.data.DeliveredRange(); ok {
		f.Start = time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, first.Location())
		f.End = time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, last.Location())
	}
	f.Statuses = s.Statuses()
	return f
}

// Statuses lists the statuses present in the order table, known ones first.
func (s *Session) Statuses() []models.DeliveryStatus {
	seen := make(map[models.DeliveryStatus]struct{})
	var statuses []models.DeliveryStatus
	for _, o := range s.data.Orders {
		if o.Status == "" {
			continue
		}
		if _, ok := seen[o.Status]; ok {
			continue
		}
		seen[o.Status] = struct{}{}
		statuses = append(statuses, o.Status)
	}
	return models.OrderedStatuses(statuses)
}

// Recompute filters the order table and rebuilds every derived view.
func (s *Session) Recompute(f Filters) *DerivedViews {
	start := time.Now()
	filtered := Apply(s.data.Orders, f)

	delay := CustomerDelayByRegion(filtered, s.data.Customers)
	views := &DerivedViews{
		Filters:                f,
		MonthlyComposition:     MonthlyDeliveryComposition(filtered, s.opts.MinMonthlyOrders),
		ReviewByStatus:         ReviewByDeliveryStatus(filtered),
		ReviewByCategory:       ReviewByStatusAndCategory(filtered, s.opts.TopCategories),
		FreightSatisfaction:    FreightRatioSatisfaction(filtered, s.opts.FreightBins, s.opts.ExcludedBin),
		CustomerDelay:          delay,
		SellerDensity:          append([]models.SellerDensity(nil), s.sellers...),
		GeoDelayed:             AttachGeo(s.data.Regions, delay.Rows, models.RegionDelay.RegionCode),
		GeoSeller:              AttachGeo(s.data.Regions, s.sellers, models.SellerDensity.RegionCode),
		TopDelayedRegions:      TopNFunc(delay.Rows, func(r models.RegionDelay) float64 { return r.DelayedRate }, s.opts.TopRegions),
		TopSellerRegions:       TopNFunc(s.sellers, func(r models.SellerDensity) float64 { return float64(r.SellerCount) }, s.opts.TopRegions),
		Health:                 s.health,
		StatusDistribution:     append([]models.StatusShare(nil), s.dist...),
		FilteredOrderLineCount: len(filtered),
	}
	if views.SellerDensity == nil {
		views.SellerDensity = []models.SellerDensity{}
	}
	if views.StatusDistribution == nil {
		views.StatusDistribution = []models.StatusShare{}
	}

	s.logger.Debug("views recomputed",
		"order_lines", len(filtered),
		"months", len(views.MonthlyComposition),
		"regions", len(delay.Rows),
		"duration", time.Since(start),
	)
	return views
}

// RegionName resolves a region code to its display name, falling back to
// the code itself.
func (s *Session) RegionName(code string) string {
	for _, r := range s.data.Regions {
		if r.Code == code {
			return r.Name
		}
	}
	return code
}
