package pipeline

import "fmt"

// ViewNames lists the derived views addressable by name, in display order.
func ViewNames() []string {
	return []string{
		"monthly_delivery_composition",
		"review_by_delivery_status",
		"review_by_delivery_status_and_category",
		"freight_ratio_satisfaction",
		"customer_delay_by_state",
		"seller_density_by_state",
		"geo_delayed",
		"geo_seller",
		"top_delayed_states",
		"top_seller_states",
		"overall_health",
		"delivery_status_distribution",
	}
}

// View returns the named view. The names match the JSON keys of DerivedViews.
func (v *DerivedViews) View(name string) (any, error) {
	switch name {
	case "monthly_delivery_composition":
		return v.MonthlyComposition, nil
	case "review_by_delivery_status":
		return v.ReviewByStatus, nil
	case "review_by_delivery_status_and_category":
		return v.ReviewByCategory, nil
	case "freight_ratio_satisfaction":
		return v.FreightSatisfaction, nil
	case "customer_delay_by_state":
		return v.CustomerDelay, nil
	case "seller_density_by_state":
		return v.SellerDensity, nil
	case "geo_delayed":
		return v.GeoDelayed, nil
	case "geo_seller":
		return v.GeoSeller, nil
	case "top_delayed_states":
		return v.TopDelayedRegions, nil
	case "top_seller_states":
		return v.TopSellerRegions, nil
	case "overall_health":
		return v.Health, nil
	case "delivery_status_distribution":
		return v.StatusDistribution, nil
	}
	return nil, fmt.Errorf("unknown view %q", name)
}
