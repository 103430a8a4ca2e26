package dataset

import (
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logistics-dashboard/internal/models"
)

const ordersCSV = `order_id,customer_id,delivery_status,order_delivered_customer_date,review_score,freight_price_ratio,freight_ratio_bin,product_category_name_english
O1,C1,Terlambat,2018-01-15 10:30:00,2,0.35,30-50%,bed_bath_table
O2,C2,Lebih Cepat,2018-01-20 09:00:00,5,0.05,0-10%,toys
O3,C3,Tepat Waktu,2018-02-01,4.0,,,garden_tools
O3,C3,Tepat Waktu,2018-02-01,4.0,0.12,10-20%,toys
O4,C4,Early,,3,1.5,>100%,toys
O5,C5,Early,2018-02-03,not-a-score,0.2,10-20%,toys
,C6,Early,2018-02-03,5,0.2,10-20%,toys
`

const customersCSV = `customer_id,customer_zip_code_prefix,customer_city,customer_state
C1,01001,sao paulo,SP
C2,20010,rio de janeiro,rj
C3,30110,belo horizonte,MG
`

const sellersCSV = `seller_id,seller_city,seller_state
S1,sao paulo,SP
S2,curitiba,PR
S2,curitiba,PR
`

const statesGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"sigla": "sp", "name": "São Paulo"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[2,0],[2,2],[0,2],[0,0]]]}},
    {"type": "Feature", "properties": {"sigla": "RJ", "name": "Rio de Janeiro"},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[3,0],[4,0],[4,1],[3,1],[3,0]]]]}},
    {"type": "Feature", "properties": {"name": "No code"},
     "geometry": {"type": "Polygon", "coordinates": [[[5,5],[6,5],[6,6],[5,6],[5,5]]]}},
    {"type": "Feature", "properties": {"sigla": "PT"},
     "geometry": {"type": "Point", "coordinates": [1,1]}}
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestParseOrders(t *testing.T) {
	orders, skipped, err := ParseOrders(strings.NewReader(ordersCSV))
	require.NoError(t, err)

	assert.Equal(t, 2, skipped, "bad review score and missing id")
	require.Len(t, orders, 5)

	assert.Equal(t, models.StatusDelayed, orders[0].Status)
	assert.Equal(t, models.StatusEarly, orders[1].Status)
	assert.Equal(t, models.StatusOnTime, orders[2].Status)
	assert.Equal(t, "bed_bath_table", orders[0].ProductCategory)
	assert.Equal(t, "30-50%", orders[0].FreightRatioBin)
	assert.InDelta(t, 0.35, orders[0].FreightPriceRatio, 1e-12)
	require.NotNil(t, orders[0].DeliveredAt)
	assert.Equal(t, time.Date(2018, time.January, 15, 10, 30, 0, 0, time.UTC), *orders[0].DeliveredAt)

	assert.Equal(t, 4, orders[2].ReviewScore)
	assert.True(t, math.IsNaN(orders[2].FreightPriceRatio), "empty ratio is unknown")
	assert.Empty(t, orders[2].FreightRatioBin)
	assert.Nil(t, orders[4].DeliveredAt, "empty delivered date is null")
}

func TestParseOrders_MissingColumns(t *testing.T) {
	_, _, err := ParseOrders(strings.NewReader("order_id,customer_id\nO1,C1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "review_score")
}

func TestParseOrders_CategoryFallback(t *testing.T) {
	csv := "order_id,customer_id,delivery_status,order_delivered_customer_date,review_score,freight_price_ratio,product_category\nO1,C1,Early,2018-01-01,5,0.1,perfumery\n"

	orders, _, err := ParseOrders(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "perfumery", orders[0].ProductCategory)
}

func TestParseOrders_BlankStatusSkipped(t *testing.T) {
	csv := "order_id,customer_id,delivery_status,order_delivered_customer_date,review_score,freight_price_ratio\n" +
		"O1,C1,,2018-01-01,5,0.1\n" +
		"O2,C2,  ,2018-01-02,4,0.1\n" +
		"O3,C3,Terlambat,2018-01-03,2,0.4\n"

	orders, skipped, err := ParseOrders(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Len(t, orders, 1)
	assert.Equal(t, models.StatusDelayed, orders[0].Status)
}

func TestParseCustomersAndSellers(t *testing.T) {
	customers, err := ParseCustomers(strings.NewReader(customersCSV))
	require.NoError(t, err)
	require.Len(t, customers, 3)
	assert.Equal(t, models.Customer{CustomerID: "C2", State: "RJ"}, customers[1])

	sellers, err := ParseSellers(strings.NewReader(sellersCSV))
	require.NoError(t, err)
	assert.Len(t, sellers, 3, "duplicates are kept; aggregation dedupes")

	_, err = ParseSellers(strings.NewReader("seller_id\nS1\n"))
	assert.Error(t, err)
}

func TestParseGeoRegions(t *testing.T) {
	regions, err := ParseGeoRegions([]byte(statesGeoJSON), GeoOptions{CodeKey: "sigla", NameKey: "name"})
	require.NoError(t, err)

	require.Len(t, regions, 2)
	assert.Equal(t, "SP", regions[0].Code)
	assert.Equal(t, "São Paulo", regions[0].Name)
	assert.Equal(t, "RJ", regions[1].Code)

	c := regions[0].Centroid()
	assert.InDelta(t, 1.0, c.X(), 1e-9)
	assert.InDelta(t, 1.0, c.Y(), 1e-9)

	_, err = ParseGeoRegions([]byte(statesGeoJSON), GeoOptions{CodeKey: "missing", NameKey: "name"})
	assert.Error(t, err)
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	src := Sources{
		OrdersCSV:    writeFile(t, dir, "orders.csv", ordersCSV),
		CustomersCSV: writeFile(t, dir, "customers.csv", customersCSV),
		SellersCSV:   writeFile(t, dir, "sellers.csv", sellersCSV),
		GeoSource:    writeFile(t, dir, "states.geojson", statesGeoJSON),
		Geo:          GeoOptions{CodeKey: "sigla", NameKey: "name"},
		CacheDir:     filepath.Join(dir, ".cache"),
	}
	// source files must predate the snapshot for it to be reused
	past := time.Now().Add(-time.Hour)
	for _, p := range []string{src.OrdersCSV, src.CustomersCSV, src.SellersCSV} {
		require.NoError(t, os.Chtimes(p, past, past))
	}

	loader := NewLoader(quietLogger())
	ds, err := loader.Load(context.Background(), src)
	require.NoError(t, err)
	assert.Len(t, ds.Orders, 5)
	assert.Len(t, ds.Customers, 3)
	assert.Len(t, ds.Sellers, 3)
	assert.Len(t, ds.Regions, 2)

	entries, err := os.ReadDir(src.CacheDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// a corrupted orders file is ignored while the snapshot is fresh
	require.NoError(t, os.WriteFile(src.OrdersCSV, []byte("garbage"), 0o644))
	require.NoError(t, os.Chtimes(src.OrdersCSV, past, past))
	cached, err := loader.Load(context.Background(), src)
	require.NoError(t, err)
	assert.Len(t, cached.Orders, 5)
}

func TestLoader_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	good := Sources{
		OrdersCSV:    writeFile(t, dir, "orders.csv", ordersCSV),
		CustomersCSV: writeFile(t, dir, "customers.csv", customersCSV),
		SellersCSV:   writeFile(t, dir, "sellers.csv", sellersCSV),
		GeoSource:    writeFile(t, dir, "states.geojson", statesGeoJSON),
		Geo:          GeoOptions{CodeKey: "sigla", NameKey: "name"},
	}

	tests := []struct {
		name   string
		mutate func(*Sources)
	}{
		{"missing orders file", func(s *Sources) { s.OrdersCSV = filepath.Join(dir, "nope.csv") }},
		{"missing geo file", func(s *Sources) { s.GeoSource = filepath.Join(dir, "nope.geojson") }},
		{"orders without valid rows", func(s *Sources) {
			s.OrdersCSV = writeFile(t, dir, "bad.csv", "order_id,customer_id,delivery_status,order_delivered_customer_date,review_score,freight_price_ratio\n,C1,Early,2018-01-01,5,0.1\n")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := good
			tt.mutate(&src)
			_, err := NewLoader(quietLogger()).Load(context.Background(), src)
			assert.Error(t, err)
		})
	}
}
