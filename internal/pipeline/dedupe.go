package pipeline

import "logistics-dashboard/internal/models"

// firstSeen collapses line items to one row per order_id. When lines of the
// same order disagree, the first line in input order wins.
func firstSeen(orders []models.Order) []models.Order {
	seen := make(map[string]struct{}, len(orders))
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if _, ok := seen[o.OrderID]; ok {
			continue
		}
		seen[o.OrderID] = struct{}{}
		out = append(out, o)
	}
	return out
}

// canonical returns a lookup of each order's first-seen line.
func canonical(orders []models.Order) map[string]models.Order {
	idx := make(map[string]models.Order, len(orders))
	for _, o := range orders {
		if _, ok := idx[o.OrderID]; !ok {
			idx[o.OrderID] = o
		}
	}
	return idx
}

// group accumulates distinct orders and their review scores under ordered
// keys. Keys keep first-appearance order.
type group[K comparable] struct {
	keys   []K
	orders map[K]map[string]struct{}
	review map[K]int
}

func newGroup[K comparable]() *group[K] {
	return &group[K]{
		orders: make(map[K]map[string]struct{}),
		review: make(map[K]int),
	}
}

// add records order o under key k once. It reports whether the order was new
// for that key.
func (g *group[K]) add(k K, orderID string, review int) bool {
	ids, ok := g.orders[k]
	if !ok {
		ids = make(map[string]struct{})
		g.orders[k] = ids
		g.keys = append(g.keys, k)
	}
	if _, dup := ids[orderID]; dup {
		return false
	}
	ids[orderID] = struct{}{}
	g.review[k] += review
	return true
}

func (g *group[K]) count(k K) int {
	return len(g.orders[k])
}

func (g *group[K]) mean(k K) float64 {
	n := g.count(k)
	if n == 0 {
		return 0
	}
	return float64(g.review[k]) / float64(n)
}
