package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logistics-dashboard/internal/config"
	"logistics-dashboard/internal/middleware"
	"logistics-dashboard/internal/models"
	"logistics-dashboard/internal/services"
)

// Three orders across two months. O1 has two item lines, O3's customer has
// no known state.
const (
	ordersCSV = `order_id,customer_id,delivery_status,order_delivered_customer_date,review_score,freight_price_ratio,freight_ratio_bin,product_category_name_english
O1,C1,Terlambat,2018-01-15 10:30:00,2,0.35,30-50%,bed_bath_table
O1,C1,Terlambat,2018-01-15 10:30:00,2,0.35,30-50%,bed_bath_table
O2,C2,Lebih Cepat,2018-01-20 09:00:00,5,0.05,0-10%,toys
O3,C9,Tepat Waktu,2018-02-01 12:00:00,4,0.12,10-20%,toys
`
	customersCSV = `customer_id,customer_state
C1,SP
C2,RJ
`
	sellersCSV = `seller_id,seller_state
S1,SP
S2,SP
S3,RJ
`
	statesGeoJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"sigla":"SP","name":"São Paulo"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
{"type":"Feature","properties":{"sigla":"RJ","name":"Rio de Janeiro"},"geometry":{"type":"Polygon","coordinates":[[[1,0],[2,0],[2,1],[1,1],[1,0]]]}}
]}`
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newTestApp loads the fixture through the same configuration and loader
// path that main uses.
func newTestApp(t *testing.T, env map[string]string) (http.Handler, *services.Dashboard) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ORDERS_CSV", writeFixture(t, dir, "orders.csv", ordersCSV))
	t.Setenv("CUSTOMERS_CSV", writeFixture(t, dir, "customers.csv", customersCSV))
	t.Setenv("SELLERS_CSV", writeFixture(t, dir, "sellers.csv", sellersCSV))
	t.Setenv("GEOJSON_SOURCE", writeFixture(t, dir, "states.geojson", statesGeoJSON))
	t.Setenv("CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("MIN_MONTHLY_ORDERS", "1")
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dashboard := services.NewDashboardFromConfig(cfg, logger)
	require.NoError(t, dashboard.Load(context.Background()))

	return newHandler(cfg, dashboard, middleware.NewRateLimiter(cfg.Security), logger), dashboard
}

func get(handler http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		r.Header[k] = v
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func TestApp_EndToEnd(t *testing.T) {
	handler, dashboard := newTestApp(t, nil)
	require.True(t, dashboard.Ready())

	t.Run("page", func(t *testing.T) {
		w := get(handler, "/", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Rio de Janeiro")
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("views", func(t *testing.T) {
		w := get(handler, "/api/views", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				Health        models.HealthMetrics    `json:"overall_health"`
				CustomerDelay models.RegionDelayTable `json:"customer_delay_by_state"`
				Lines         int                     `json:"filtered_order_lines"`
				Sellers       []models.SellerDensity  `json:"seller_density_by_state"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 4, resp.Data.Lines)
		assert.Equal(t, 3, resp.Data.Health.TotalOrders)
		assert.InDelta(t, 1.0/3, resp.Data.Health.DelayedShare, 1e-9)
		assert.InDelta(t, 11.0/3, resp.Data.Health.AvgReviewScore, 1e-9)
		assert.Equal(t, 1, resp.Data.CustomerDelay.UnmatchedOrders)
		assert.Equal(t, []models.SellerDensity{{SellerState: "RJ", SellerCount: 1}, {SellerState: "SP", SellerCount: 2}}, resp.Data.Sellers)
	})

	t.Run("filtered view", func(t *testing.T) {
		w := get(handler, "/api/views/review_by_delivery_status?status=Delayed,Early", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []models.StatusReview `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []models.StatusReview{
			{DeliveryStatus: models.StatusEarly, AvgReviewScore: 5, OrderCount: 1},
			{DeliveryStatus: models.StatusDelayed, AvgReviewScore: 2, OrderCount: 1},
		}, resp.Data)
	})

	t.Run("request id is echoed", func(t *testing.T) {
		w := get(handler, "/health", http.Header{"X-Request-Id": {"req-123"}})
		assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	})

	t.Run("invalid filter", func(t *testing.T) {
		w := get(handler, "/api/views?start=2018-02-10&end=2018-01-01", http.Header{"X-Request-Id": {"req-456"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"request_id":"req-456"`)
	})

	t.Run("sse refresh", func(t *testing.T) {
		w := get(handler, "/sse/refresh?datastar="+`%7B%22statuses%22%3A%5B%22OnTime%22%5D%7D`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.Contains(w.Body.String(), "1 order lines match the selection"), w.Body.String())
	})

	t.Run("cors preflight", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/api/views", nil)
		r.Header.Set("Origin", "http://localhost:8084")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:8084", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestApp_CacheWrittenOnLoad(t *testing.T) {
	_, _ = newTestApp(t, nil)

	entries, err := os.ReadDir(os.Getenv("CACHE_DIR"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestApp_RateLimit(t *testing.T) {
	handler, _ := newTestApp(t, map[string]string{
		"SECURITY_RATE_LIMIT_RPS":   "1",
		"SECURITY_RATE_LIMIT_BURST": "2",
	})

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = get(handler, "/health", nil).Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
