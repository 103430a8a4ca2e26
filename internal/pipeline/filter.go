package pipeline

import (
	"fmt"
	"math"
	"slices"
	"time"

	"logistics-dashboard/internal/models"
)

// Filters are the user-selected constraints applied to the order table
// before any aggregation.
type Filters struct {
	// Start and End bound the delivered date, both inclusive. End covers the
	// whole calendar day. A zero value leaves that side open.
	Start time.Time
	End   time.Time

	// Statuses is the allowed status set. An empty set matches nothing.
	Statuses []models.DeliveryStatus

	// RatioLowPct and RatioHighPct bound freight_price_ratio in percent.
	RatioLowPct  int
	RatioHighPct int
}

func (f Filters) Validate() error {
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
		return fmt.Errorf("end date %s is before start date %s", f.End.Format(time.DateOnly), f.Start.Format(time.DateOnly))
	}
	if f.RatioLowPct > f.RatioHighPct {
		return fmt.Errorf("ratio range %d-%d is inverted", f.RatioLowPct, f.RatioHighPct)
	}
	return nil
}

func clampPct(v int) int {
	return min(max(v, 0), 100)
}

func (f Filters) endOfRange() time.Time {
	y, m, d := f.End.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, f.End.Location()).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Apply returns the orders matching every filter, in input order.
func Apply(orders []models.Order, f Filters) []models.Order {
	low := float64(clampPct(f.RatioLowPct)) / 100
	high := float64(clampPct(f.RatioHighPct)) / 100
	bounded := !f.Start.IsZero() || !f.End.IsZero()
	var end time.Time
	if !f.End.IsZero() {
		end = f.endOfRange()
	}

	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if bounded {
			if o.DeliveredAt == nil {
				continue
			}
			if !f.Start.IsZero() && o.DeliveredAt.Before(f.Start) {
				continue
			}
			if !f.End.IsZero() && o.DeliveredAt.After(end) {
				continue
			}
		}
		if !slices.Contains(f.Statuses, o.Status) {
			continue
		}
		if math.IsNaN(o.FreightPriceRatio) || o.FreightPriceRatio < low || o.FreightPriceRatio > high {
			continue
		}
		out = append(out, o)
	}
	return out
}
