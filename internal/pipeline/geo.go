package pipeline

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"logistics-dashboard/internal/models"
)

// AttachGeo left-joins rows onto the geo regions by upper-cased region code.
// Every region is kept; regions without a matching row get a nil Metric. The
// first row for a code wins.
func AttachGeo[T any](regions []models.GeoRegion, rows []T, key func(T) string) []models.GeoFeature[T] {
	byCode := make(map[string]*T, len(rows))
	for i := range rows {
		code := strings.ToUpper(strings.TrimSpace(key(rows[i])))
		if _, ok := byCode[code]; !ok {
			row := rows[i]
			byCode[code] = &row
		}
	}

	out := make([]models.GeoFeature[T], 0, len(regions))
	for _, r := range regions {
		r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
		out = append(out, models.GeoFeature[T]{Region: r, Metric: byCode[r.Code]})
	}
	return out
}

// TopNFunc returns the n rows with the largest metric, highest first. The
// sort is stable so ties keep their input order.
func TopNFunc[T any](rows []T, metric func(T) float64, n int) []T {
	ranked := append(make([]T, 0, len(rows)), rows...)
	slices.SortStableFunc(ranked, func(a, b T) int {
		return cmp.Compare(metric(b), metric(a))
	})
	if n < 0 {
		n = 0
	}
	return slices.Clip(ranked[:min(n, len(ranked))])
}

// TopN ranks region rows by the named metric column.
func TopN[T models.MetricRow](rows []T, column string, n int) ([]T, error) {
	var zero T
	if _, ok := zero.Metric(column); !ok {
		return nil, fmt.Errorf("unknown metric column %q", column)
	}
	return TopNFunc(rows, func(r T) float64 {
		v, _ := r.Metric(column)
		return v
	}, n), nil
}

// TopGeoFeatures returns the n matched features with the largest metric.
// Features with a nil Metric are never selected.
func TopGeoFeatures[T models.MetricRow](features []models.GeoFeature[T], column string, n int) ([]models.GeoFeature[T], error) {
	matched := make([]models.GeoFeature[T], 0, len(features))
	for _, f := range features {
		if f.Metric != nil {
			matched = append(matched, f)
		}
	}
	var zero T
	if _, ok := zero.Metric(column); !ok {
		return nil, fmt.Errorf("unknown metric column %q", column)
	}
	return TopNFunc(matched, func(f models.GeoFeature[T]) float64 {
		v, _ := (*f.Metric).Metric(column)
		return v
	}, n), nil
}
