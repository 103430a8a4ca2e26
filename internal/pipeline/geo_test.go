package pipeline

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logistics-dashboard/internal/models"
)

func square(x, y float64) orb.Polygon {
	return orb.Polygon{orb.Ring{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}}
}

func TestAttachGeo_KeepsUnmatchedRegions(t *testing.T) {
	regions := []models.GeoRegion{
		{Code: "sp", Name: "São Paulo", Geometry: square(0, 0)},
		{Code: "RJ", Name: "Rio de Janeiro", Geometry: square(2, 0)},
		{Code: "AC", Name: "Acre", Geometry: square(4, 0)},
	}
	rows := []models.RegionDelay{
		{CustomerState: "SP", TotalOrders: 10, DelayedOrders: 2, DelayedRate: 0.2},
		{CustomerState: "RJ", TotalOrders: 4, DelayedOrders: 1, DelayedRate: 0.25},
		{CustomerState: "XX", TotalOrders: 1},
	}

	got := AttachGeo(regions, rows, models.RegionDelay.RegionCode)

	require.Len(t, got, 3)
	assert.Equal(t, "SP", got[0].Region.Code, "geo codes are upper-cased")
	require.NotNil(t, got[0].Metric)
	assert.Equal(t, 10, got[0].Metric.TotalOrders)
	require.NotNil(t, got[1].Metric)
	assert.InDelta(t, 0.25, got[1].Metric.DelayedRate, 1e-12)
	assert.Nil(t, got[2].Metric, "regions without data stay on the map")
	assert.Equal(t, "sp", regions[0].Code, "input regions are not mutated")
}

func TestTopN(t *testing.T) {
	rows := []models.RegionDelay{
		{CustomerState: "AC", DelayedRate: 0.1},
		{CustomerState: "AL", DelayedRate: 0.3},
		{CustomerState: "AM", DelayedRate: 0.3},
		{CustomerState: "BA", DelayedRate: 0.05},
		{CustomerState: "CE", DelayedRate: 0.2},
	}

	for _, n := range []int{0, 1, 3, 5, 10} {
		got, err := TopN(rows, "delayed_rate", n)
		require.NoError(t, err)
		assert.Len(t, got, min(n, len(rows)))
		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[i-1].DelayedRate, got[i].DelayedRate)
		}

		again, err := TopN(got, "delayed_rate", n)
		require.NoError(t, err)
		assert.Equal(t, got, again, "top-n is idempotent for n=%d", n)
	}

	top, err := TopN(rows, "delayed_rate", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"AL", "AM", "CE"}, []string{top[0].CustomerState, top[1].CustomerState, top[2].CustomerState})
	assert.Equal(t, "AC", rows[0].CustomerState, "input order untouched")

	_, err = TopN(rows, "no_such_column", 3)
	assert.Error(t, err)
}

func TestTopGeoFeatures_SkipsUnmatched(t *testing.T) {
	regions := []models.GeoRegion{{Code: "SP"}, {Code: "MG"}, {Code: "AC"}}
	sellers := []models.SellerDensity{{SellerState: "SP", SellerCount: 5}, {SellerState: "MG", SellerCount: 2}}

	features := AttachGeo(regions, sellers, models.SellerDensity.RegionCode)
	top, err := TopGeoFeatures(features, "seller_count", 3)

	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "SP", top[0].Region.Code)
	assert.Equal(t, "MG", top[1].Region.Code)
}
