package models

import (
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

type DeliveryStatus string

const (
	StatusEarly   DeliveryStatus = "Early"
	StatusOnTime  DeliveryStatus = "OnTime"
	StatusDelayed DeliveryStatus = "Delayed"
)

// statusAliases maps the labels found in the source extracts onto the
// canonical statuses. Keys are lower case.
var statusAliases = map[string]DeliveryStatus{
	"early":       StatusEarly,
	"lebih cepat": StatusEarly,
	"ontime":      StatusOnTime,
	"on-time":     StatusOnTime,
	"on time":     StatusOnTime,
	"tepat waktu": StatusOnTime,
	"delayed":     StatusDelayed,
	"late":        StatusDelayed,
	"terlambat":   StatusDelayed,
}

// ParseDeliveryStatus normalizes a raw label. Labels that are not recognized
// are returned verbatim so that they still flow through grouping.
func ParseDeliveryStatus(raw string) DeliveryStatus {
	trimmed := strings.TrimSpace(raw)
	if s, ok := statusAliases[strings.ToLower(trimmed)]; ok {
		return s
	}
	return DeliveryStatus(trimmed)
}

// KnownStatuses returns the three statuses in presentation order.
func KnownStatuses() []DeliveryStatus {
	return []DeliveryStatus{StatusEarly, StatusOnTime, StatusDelayed}
}

func (s DeliveryStatus) Known() bool {
	switch s {
	case StatusEarly, StatusOnTime, StatusDelayed:
		return true
	}
	return false
}

func (s DeliveryStatus) DisplayName() string {
	if s == StatusOnTime {
		return "On-Time"
	}
	return string(s)
}

// Order is one line item of the order fact table. An order_id repeats once
// per item line.
type Order struct {
	OrderID           string
	CustomerID        string
	Status            DeliveryStatus
	DeliveredAt       *time.Time
	ReviewScore       int
	FreightPriceRatio float64
	FreightRatioBin   string
	ProductCategory   string
}

type Customer struct {
	CustomerID string
	State      string
}

type Seller struct {
	SellerID string
	State    string
}

// GeoRegion is one boundary feature. Code is stored upper case.
type GeoRegion struct {
	Code     string
	Name     string
	Geometry orb.Geometry
}

// Centroid returns the area-weighted centroid of the region's geometry.
func (r GeoRegion) Centroid() orb.Point {
	if r.Geometry == nil {
		return orb.Point{}
	}
	c, _ := planar.CentroidArea(r.Geometry)
	return c
}

// Dataset is the read-only snapshot loaded once at startup.
type Dataset struct {
	Orders    []Order
	Customers []Customer
	Sellers   []Seller
	Regions   []GeoRegion
	LoadedAt  time.Time
}

// DeliveredRange returns the earliest and latest delivered timestamps. ok is
// false when no order carries a delivered date.
func (d *Dataset) DeliveredRange() (first, last time.Time, ok bool) {
	for _, o := range d.Orders {
		if o.DeliveredAt == nil {
			continue
		}
		if !ok || o.DeliveredAt.Before(first) {
			first = *o.DeliveredAt
		}
		if !ok || o.DeliveredAt.After(last) {
			last = *o.DeliveredAt
		}
		ok = true
	}
	return first, last, ok
}
