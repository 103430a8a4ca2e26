package pipeline

import (
	"slices"
	"strings"

	"logistics-dashboard/internal/models"
)

const monthLayout = "2006-01"

// MonthlyDeliveryComposition computes, per delivered month, each status's
// share of that month's distinct orders. Months with fewer than minOrders
// distinct orders are dropped. Rows are in chronological order and every row
// carries a column for each known status plus any other status observed.
func MonthlyDeliveryComposition(orders []models.Order, minOrders int) []models.MonthlyComposition {
	type cell struct {
		month  string
		status models.DeliveryStatus
	}
	counts := newGroup[cell]()
	totals := make(map[string]int)
	for _, o := range firstSeen(orders) {
		if o.DeliveredAt == nil || o.Status == "" {
			continue
		}
		k := cell{month: o.DeliveredAt.Format(monthLayout), status: o.Status}
		if counts.add(k, o.OrderID, o.ReviewScore) {
			totals[k.month]++
		}
	}

	columns := models.KnownStatuses()
	byMonth := make(map[string]map[models.DeliveryStatus]float64)
	for _, k := range counts.keys {
		total := totals[k.month]
		if total < minOrders {
			continue
		}
		shares, ok := byMonth[k.month]
		if !ok {
			shares = make(map[models.DeliveryStatus]float64)
			byMonth[k.month] = shares
		}
		shares[k.status] = float64(counts.count(k)) / float64(total)
		if !slices.Contains(columns, k.status) {
			columns = append(columns, k.status)
		}
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	slices.Sort(months)

	out := make([]models.MonthlyComposition, 0, len(months))
	for _, m := range months {
		row := models.MonthlyComposition{Month: m, Shares: make(map[models.DeliveryStatus]float64, len(columns))}
		for _, s := range columns {
			row.Shares[s] = byMonth[m][s]
		}
		out = append(out, row)
	}
	return out
}

// ReviewByDeliveryStatus returns the mean review score and distinct order
// count for every status present, known statuses first. Orders without a
// status are not grouped.
func ReviewByDeliveryStatus(orders []models.Order) []models.StatusReview {
	g := newGroup[models.DeliveryStatus]()
	for _, o := range firstSeen(orders) {
		if o.Status == "" {
			continue
		}
		g.add(o.Status, o.OrderID, o.ReviewScore)
	}

	out := make([]models.StatusReview, 0, len(g.keys))
	for _, s := range models.OrderedStatuses(g.keys) {
		out = append(out, models.StatusReview{
			DeliveryStatus: s,
			AvgReviewScore: g.mean(s),
			OrderCount:     g.count(s),
		})
	}
	return out
}

// TopCategories ranks product categories by distinct order count, highest
// first, and returns at most n of them. Ties keep first-appearance order.
// Lines without a category are not ranked.
func TopCategories(orders []models.Order, n int) []string {
	g := newGroup[string]()
	for _, o := range orders {
		if o.ProductCategory == "" {
			continue
		}
		g.add(o.ProductCategory, o.OrderID, 0)
	}
	ranked := slices.Clone(g.keys)
	slices.SortStableFunc(ranked, func(a, b string) int {
		return g.count(b) - g.count(a)
	})
	if n < 0 {
		n = 0
	}
	return ranked[:min(n, len(ranked))]
}

// ReviewByStatusAndCategory restricts orders to the top n categories and
// reports the mean review score per (category, status). Rows follow the
// category ranking.
func ReviewByStatusAndCategory(orders []models.Order, n int) []models.CategoryReview {
	top := TopCategories(orders, n)
	canon := canonical(orders)

	type cell struct {
		category string
		status   models.DeliveryStatus
	}
	cells := newGroup[cell]()
	totals := newGroup[string]()
	for _, o := range orders {
		if o.ProductCategory == "" || !slices.Contains(top, o.ProductCategory) {
			continue
		}
		c := canon[o.OrderID]
		if c.Status == "" {
			continue
		}
		cells.add(cell{o.ProductCategory, c.Status}, o.OrderID, c.ReviewScore)
		totals.add(o.ProductCategory, o.OrderID, c.ReviewScore)
	}

	out := make([]models.CategoryReview, 0, len(top))
	for _, category := range top {
		row := models.CategoryReview{
			ProductCategory: category,
			OrderCount:      totals.count(category),
			Cells:           make(map[models.DeliveryStatus]models.ReviewCell),
		}
		for _, k := range cells.keys {
			if k.category != category {
				continue
			}
			row.Cells[k.status] = models.ReviewCell{
				AvgReviewScore: cells.mean(k),
				OrderCount:     cells.count(k),
			}
		}
		out = append(out, row)
	}
	return out
}

// FreightRatioSatisfaction reports the mean review score per freight ratio
// bin, in scheme order. The exclude bin never appears in the output. Labels
// unknown to the scheme follow the known ones in first-appearance order.
func FreightRatioSatisfaction(orders []models.Order, scheme models.FreightBinScheme, exclude string) []models.FreightSatisfaction {
	canon := canonical(orders)
	g := newGroup[string]()
	for _, o := range orders {
		label := o.FreightRatioBin
		if label == "" {
			label = scheme.Bin(o.FreightPriceRatio)
		}
		if label == "" || label == exclude {
			continue
		}
		g.add(label, o.OrderID, canon[o.OrderID].ReviewScore)
	}

	labels := slices.Clone(g.keys)
	rank := func(label string) int {
		if i := scheme.Index(label); i >= 0 {
			return i
		}
		return len(scheme)
	}
	slices.SortStableFunc(labels, func(a, b string) int {
		return rank(a) - rank(b)
	})

	out := make([]models.FreightSatisfaction, 0, len(labels))
	for _, label := range labels {
		out = append(out, models.FreightSatisfaction{
			FreightRatioBin: label,
			AvgReviewScore:  g.mean(label),
			OrderCount:      g.count(label),
		})
	}
	return out
}

// CustomerDelayByRegion joins orders to customers and reports the delayed
// rate per customer region, sorted by region code. Orders whose customer has
// no region are left out of the rows and counted in UnmatchedOrders.
func CustomerDelayByRegion(orders []models.Order, customers []models.Customer) models.RegionDelayTable {
	states := make(map[string]string, len(customers))
	for _, c := range customers {
		if _, ok := states[c.CustomerID]; !ok {
			states[c.CustomerID] = strings.ToUpper(strings.TrimSpace(c.State))
		}
	}

	g := newGroup[string]()
	delayed := make(map[string]int)
	table := models.RegionDelayTable{}
	for _, o := range firstSeen(orders) {
		state := states[o.CustomerID]
		if state == "" {
			table.UnmatchedOrders++
			continue
		}
		if g.add(state, o.OrderID, o.ReviewScore) && o.Status == models.StatusDelayed {
			delayed[state]++
		}
	}

	codes := slices.Clone(g.keys)
	slices.Sort(codes)
	table.Rows = make([]models.RegionDelay, 0, len(codes))
	for _, code := range codes {
		total := g.count(code)
		table.Rows = append(table.Rows, models.RegionDelay{
			CustomerState:  code,
			TotalOrders:    total,
			DelayedOrders:  delayed[code],
			AvgReviewScore: g.mean(code),
			DelayedRate:    float64(delayed[code]) / float64(total),
		})
	}
	return table
}

// SellerDensityByRegion counts distinct sellers per seller region, sorted by
// region code. Sellers without a region are ignored.
func SellerDensityByRegion(sellers []models.Seller) []models.SellerDensity {
	g := newGroup[string]()
	for _, s := range sellers {
		state := strings.ToUpper(strings.TrimSpace(s.State))
		if state == "" {
			continue
		}
		g.add(state, s.SellerID, 0)
	}

	codes := slices.Clone(g.keys)
	slices.Sort(codes)
	out := make([]models.SellerDensity, 0, len(codes))
	for _, code := range codes {
		out = append(out, models.SellerDensity{SellerState: code, SellerCount: g.count(code)})
	}
	return out
}

// Health summarizes the order table: distinct orders, the share of them
// delayed and their mean review score.
func Health(orders []models.Order) models.HealthMetrics {
	unique := firstSeen(orders)
	if len(unique) == 0 {
		return models.HealthMetrics{}
	}
	var delayed, review int
	for _, o := range unique {
		if o.Status == models.StatusDelayed {
			delayed++
		}
		review += o.ReviewScore
	}
	return models.HealthMetrics{
		TotalOrders:    len(unique),
		DelayedShare:   float64(delayed) / float64(len(unique)),
		AvgReviewScore: float64(review) / float64(len(unique)),
	}
}

// StatusDistribution returns each status's share of the distinct orders
// that have a status.
func StatusDistribution(orders []models.Order) []models.StatusShare {
	g := newGroup[models.DeliveryStatus]()
	total := 0
	for _, o := range firstSeen(orders) {
		if o.Status == "" {
			continue
		}
		g.add(o.Status, o.OrderID, 0)
		total++
	}
	out := make([]models.StatusShare, 0, len(g.keys))
	for _, s := range models.OrderedStatuses(g.keys) {
		out = append(out, models.StatusShare{
			DeliveryStatus: s,
			Share:          float64(g.count(s)) / float64(total),
			OrderCount:     g.count(s),
		})
	}
	return out
}
