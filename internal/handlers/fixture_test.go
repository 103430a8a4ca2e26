package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"logistics-dashboard/internal/dataset"
	"logistics-dashboard/internal/models"
	"logistics-dashboard/internal/pipeline"
	"logistics-dashboard/internal/services"
)

func day(month, d int) *time.Time {
	t := time.Date(2018, time.Month(month), d, 12, 0, 0, 0, time.UTC)
	return &t
}

func square(x, y float64) orb.Polygon {
	return orb.Polygon{{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestDashboard loads five distinct orders (six lines) across three
// months. RJ customers are always delayed, one order has no customer state.
func createTestDashboard() *services.Dashboard {
	opts := pipeline.DefaultOptions()
	opts.MinMonthlyOrders = 1

	d := services.NewDashboard(nil, dataset.Sources{}, opts, testLogger())
	d.SetDataset(&models.Dataset{
		Orders: []models.Order{
			{OrderID: "O1", CustomerID: "C1", Status: models.StatusEarly, DeliveredAt: day(1, 10), ReviewScore: 5, FreightPriceRatio: 0.10, ProductCategory: "toys"},
			{OrderID: "O1", CustomerID: "C1", Status: models.StatusEarly, DeliveredAt: day(1, 10), ReviewScore: 5, FreightPriceRatio: 0.10, ProductCategory: "toys"},
			{OrderID: "O2", CustomerID: "C2", Status: models.StatusDelayed, DeliveredAt: day(1, 20), ReviewScore: 1, FreightPriceRatio: 0.30, ProductCategory: "garden_tools"},
			{OrderID: "O3", CustomerID: "C3", Status: models.StatusOnTime, DeliveredAt: day(2, 5), ReviewScore: 4, FreightPriceRatio: 0.20, ProductCategory: "toys"},
			{OrderID: "O4", CustomerID: "C4", Status: models.StatusDelayed, DeliveredAt: day(2, 15), ReviewScore: 2, FreightPriceRatio: 0.50, ProductCategory: "toys"},
			{OrderID: "O5", CustomerID: "C9", Status: models.StatusEarly, DeliveredAt: day(3, 1), ReviewScore: 5, FreightPriceRatio: 0.05, ProductCategory: "perfumery"},
		},
		Customers: []models.Customer{
			{CustomerID: "C1", State: "SP"}, {CustomerID: "C2", State: "RJ"},
			{CustomerID: "C3", State: "SP"}, {CustomerID: "C4", State: "RJ"},
		},
		Sellers: []models.Seller{
			{SellerID: "S1", State: "SP"}, {SellerID: "S2", State: "SP"},
			{SellerID: "S3", State: "RJ"}, {SellerID: "S4", State: "MG"},
		},
		Regions: []models.GeoRegion{
			{Code: "SP", Name: "São Paulo", Geometry: square(0, 0)},
			{Code: "RJ", Name: "Rio de Janeiro", Geometry: square(1, 0)},
			{Code: "MG", Name: "Minas Gerais", Geometry: square(0, 1)},
		},
		LoadedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	return d
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}
