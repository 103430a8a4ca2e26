package pipeline

import (
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logistics-dashboard/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testDataset() *models.Dataset {
	orders := []models.Order{
		order("O1", models.StatusDelayed, 2),
		order("O2", models.StatusEarly, 5),
		order("O3", models.StatusOnTime, 4),
		order("O3", models.StatusOnTime, 4),
	}
	orders[1].DeliveredAt = day(2018, time.April, 2)
	return &models.Dataset{
		Orders: orders,
		Customers: []models.Customer{
			{CustomerID: "C-O1", State: "SP"},
			{CustomerID: "C-O2", State: "RJ"},
			{CustomerID: "C-O3", State: "SP"},
		},
		Sellers: []models.Seller{
			{SellerID: "S1", State: "SP"},
			{SellerID: "S2", State: "MG"},
		},
		Regions: []models.GeoRegion{
			{Code: "SP", Name: "São Paulo", Geometry: square(0, 0)},
			{Code: "RJ", Name: "Rio de Janeiro", Geometry: square(2, 0)},
			{Code: "MG", Name: "Minas Gerais", Geometry: square(0, 2)},
			{Code: "AC", Name: "Acre", Geometry: square(4, 4)},
		},
	}
}

func TestSession_DefaultFilters(t *testing.T) {
	s := NewSession(testDataset(), DefaultOptions(), testLogger())

	f := s.DefaultFilters()

	assert.Equal(t, time.Date(2018, time.March, 10, 0, 0, 0, 0, time.UTC), f.Start)
	assert.Equal(t, time.Date(2018, time.April, 2, 0, 0, 0, 0, time.UTC), f.End)
	assert.Equal(t, models.KnownStatuses(), f.Statuses)
	assert.Equal(t, 0, f.RatioLowPct)
	assert.Equal(t, 100, f.RatioHighPct)
	require.NoError(t, f.Validate())
}

func TestSession_Recompute(t *testing.T) {
	s := NewSession(testDataset(), DefaultOptions(), testLogger())

	views := s.Recompute(s.DefaultFilters())

	require.Len(t, views.ReviewByStatus, 3)
	onTime := views.ReviewByStatus[1]
	assert.Equal(t, models.StatusOnTime, onTime.DeliveryStatus)
	assert.Equal(t, 1, onTime.OrderCount)
	assert.InDelta(t, 4.0, onTime.AvgReviewScore, 1e-12)

	assert.Empty(t, views.MonthlyComposition, "three orders never reach the sample threshold")
	require.Len(t, views.CustomerDelay.Rows, 2)
	assert.Len(t, views.GeoDelayed, 4)
	assert.Len(t, views.GeoSeller, 4)
	assert.Nil(t, views.GeoDelayed[3].Metric)
	require.Len(t, views.TopDelayedRegions, 2)
	assert.Equal(t, "SP", views.TopDelayedRegions[0].CustomerState)
	assert.Equal(t, 3, views.Health.TotalOrders)
	assert.Equal(t, 4, views.FilteredOrderLineCount)
}

func TestSession_RecomputeEmptySelection(t *testing.T) {
	s := NewSession(testDataset(), DefaultOptions(), testLogger())
	f := s.DefaultFilters()
	f.Statuses = nil

	views := s.Recompute(f)

	assert.Empty(t, views.MonthlyComposition)
	assert.Empty(t, views.ReviewByStatus)
	assert.Empty(t, views.ReviewByCategory)
	assert.Empty(t, views.FreightSatisfaction)
	assert.Empty(t, views.CustomerDelay.Rows)
	assert.Empty(t, views.TopDelayedRegions)
	assert.Len(t, views.GeoDelayed, 4, "every region still renders")
	for _, f := range views.GeoDelayed {
		assert.Nil(t, f.Metric)
	}
	assert.Len(t, views.SellerDensity, 2, "sellers are not filtered")

	raw, err := json.Marshal(views)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"review_by_delivery_status":null`)
}

func TestSession_RecomputeIsolatesResults(t *testing.T) {
	s := NewSession(testDataset(), DefaultOptions(), testLogger())
	f := s.DefaultFilters()

	first := s.Recompute(f)
	first.SellerDensity[0].SellerCount = 99
	second := s.Recompute(f)

	assert.NotEqual(t, 99, second.SellerDensity[0].SellerCount)
}

func TestSession_RegionName(t *testing.T) {
	s := NewSession(testDataset(), DefaultOptions(), testLogger())

	assert.Equal(t, "Minas Gerais", s.RegionName("MG"))
	assert.Equal(t, "ZZ", s.RegionName("ZZ"))
}

func TestMonthlyComposition_MarshalJSON(t *testing.T) {
	row := models.MonthlyComposition{
		Month:  "2018-01",
		Shares: map[models.DeliveryStatus]float64{models.StatusEarly: 0.25, models.StatusOnTime: 0.75, models.StatusDelayed: 0},
	}

	raw, err := json.Marshal(row)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "2018-01", decoded["month"])
	assert.InDelta(t, 0.75, decoded["OnTime"], 1e-12)
}
