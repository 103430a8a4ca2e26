package models

import (
	"encoding/json"
	"maps"
	"slices"
)

// MetricRow is implemented by region-keyed rows so that callers can rank
// them by a column name.
type MetricRow interface {
	RegionCode() string
	Metric(column string) (float64, bool)
}

// MonthlyComposition is one month of delivery status shares. It marshals as
// a flat object: {"month": "2017-01", "Early": 0.4, "OnTime": 0.5, ...}.
type MonthlyComposition struct {
	Month  string
	Shares map[DeliveryStatus]float64
}

func (m MonthlyComposition) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Shares)+1)
	for status, share := range m.Shares {
		out[string(status)] = share
	}
	out["month"] = m.Month
	return json.Marshal(out)
}

// Statuses returns the status columns of the row, known statuses first.
func (m MonthlyComposition) Statuses() []DeliveryStatus {
	return OrderedStatuses(slices.Collect(maps.Keys(m.Shares)))
}

type StatusReview struct {
	DeliveryStatus DeliveryStatus `json:"delivery_status"`
	AvgReviewScore float64        `json:"avg_review_score"`
	OrderCount     int            `json:"order_count"`
}

type ReviewCell struct {
	AvgReviewScore float64 `json:"avg_review_score"`
	OrderCount     int     `json:"order_count"`
}

// CategoryReview is one product category with a cell per delivery status.
// A status with no orders in the category has no entry in Cells.
type CategoryReview struct {
	ProductCategory string                        `json:"product_category"`
	OrderCount      int                           `json:"order_count"`
	Cells           map[DeliveryStatus]ReviewCell `json:"cells"`
}

func (c CategoryReview) Cell(status DeliveryStatus) (ReviewCell, bool) {
	cell, ok := c.Cells[status]
	return cell, ok
}

type FreightSatisfaction struct {
	FreightRatioBin string  `json:"freight_ratio_bin"`
	AvgReviewScore  float64 `json:"avg_review_score"`
	OrderCount      int     `json:"order_count"`
}

type RegionDelay struct {
	CustomerState  string  `json:"customer_state"`
	TotalOrders    int     `json:"total_orders"`
	DelayedOrders  int     `json:"delayed_orders"`
	AvgReviewScore float64 `json:"avg_review_score"`
	DelayedRate    float64 `json:"delayed_rate"`
}

func (r RegionDelay) RegionCode() string { return r.CustomerState }

func (r RegionDelay) Metric(column string) (float64, bool) {
	switch column {
	case "total_orders":
		return float64(r.TotalOrders), true
	case "delayed_orders":
		return float64(r.DelayedOrders), true
	case "avg_review_score":
		return r.AvgReviewScore, true
	case "delayed_rate":
		return r.DelayedRate, true
	}
	return 0, false
}

// RegionDelayTable carries the per-region rows plus the number of distinct
// orders whose customer had no region.
type RegionDelayTable struct {
	Rows            []RegionDelay `json:"rows"`
	UnmatchedOrders int           `json:"unmatched_orders"`
}

type SellerDensity struct {
	SellerState string `json:"seller_state"`
	SellerCount int    `json:"seller_count"`
}

func (s SellerDensity) RegionCode() string { return s.SellerState }

func (s SellerDensity) Metric(column string) (float64, bool) {
	if column == "seller_count" {
		return float64(s.SellerCount), true
	}
	return 0, false
}

// GeoFeature is a geo region with the metric row joined onto it. Metric is
// nil when no row matched the region code.
type GeoFeature[T any] struct {
	Region GeoRegion
	Metric *T
}

func (g GeoFeature[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code   string `json:"code"`
		Name   string `json:"name"`
		Metric *T     `json:"metric"`
	}{g.Region.Code, g.Region.Name, g.Metric})
}

type HealthMetrics struct {
	TotalOrders    int     `json:"total_orders"`
	DelayedShare   float64 `json:"delayed_share"`
	AvgReviewScore float64 `json:"avg_review_score"`
}

type StatusShare struct {
	DeliveryStatus DeliveryStatus `json:"delivery_status"`
	Share          float64        `json:"share"`
	OrderCount     int            `json:"order_count"`
}

// OrderedStatuses sorts statuses with the known ones first in presentation
// order, followed by any other labels alphabetically.
func OrderedStatuses(statuses []DeliveryStatus) []DeliveryStatus {
	out := slices.Clone(statuses)
	rank := func(s DeliveryStatus) int {
		if i := slices.Index(KnownStatuses(), s); i >= 0 {
			return i
		}
		return len(KnownStatuses())
	}
	slices.SortStableFunc(out, func(a, b DeliveryStatus) int {
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra - rb
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	})
	return slices.Compact(out)
}
