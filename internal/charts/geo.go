package charts

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"logistics-dashboard/internal/models"
	"logistics-dashboard/internal/pipeline"
)

// Scheme names a sequential ColorBrewer palette.
type Scheme string

const (
	Reds  Scheme = "Reds"
	Blues Scheme = "Blues"
)

const schemeClasses = 9

// reviewGrid adapts category review rows to plotter.GridXYZ. Columns are
// statuses; row 0 is the last category so that the first one is drawn on top.
type reviewGrid struct {
	rows     []models.CategoryReview
	statuses []models.DeliveryStatus
}

func (g *reviewGrid) Dims() (c, r int) { return len(g.statuses), len(g.rows) }

func (g *reviewGrid) X(c int) float64 { return float64(c) }

func (g *reviewGrid) Y(r int) float64 { return float64(r) }

func (g *reviewGrid) Z(c, r int) float64 {
	cell, ok := g.cell(c, r)
	if !ok {
		return math.NaN()
	}
	return cell.AvgReviewScore
}

func (g *reviewGrid) cell(c, r int) (models.ReviewCell, bool) {
	return g.rows[len(g.rows)-1-r].Cell(g.statuses[c])
}

func (g *reviewGrid) categoryNames() []string {
	names := make([]string, len(g.rows))
	for r := range g.rows {
		names[r] = g.rows[len(g.rows)-1-r].ProductCategory
	}
	return names
}

// Choropleth fills every region by its metric value. Regions without a
// metric are grey. The topN regions by the same metric are labelled at their
// centroids.
func Choropleth[T models.MetricRow](title string, features []models.GeoFeature[T], column string, scheme Scheme, topN int) (*plot.Plot, error) {
	p := newPlot(title, "", "")
	if len(features) == 0 {
		return noData(p)
	}

	pal, err := brewer.GetPalette(brewer.TypeSequential, string(scheme), schemeClasses)
	if err != nil {
		return nil, fmt.Errorf("palette %s: %w", scheme, err)
	}
	colors := pal.Colors()

	low, high, hasData := metricRange(features, column)
	for _, f := range features {
		fill := color.Color(colorNoData)
		if f.Metric != nil {
			if v, ok := (*f.Metric).Metric(column); ok {
				fill = classColor(colors, v, low, high)
			}
		}
		polys, err := regionPolygons(f.Region.Geometry, fill)
		if err != nil {
			return nil, fmt.Errorf("region %s: %w", f.Region.Code, err)
		}
		for _, poly := range polys {
			p.Add(poly)
		}
	}

	if topN > 0 {
		top, err := pipeline.TopGeoFeatures(features, column, topN)
		if err != nil {
			return nil, err
		}
		if len(top) > 0 {
			labels := plotter.XYLabels{XYs: make(plotter.XYs, len(top)), Labels: make([]string, len(top))}
			for i, f := range top {
				c := f.Region.Centroid()
				labels.XYs[i] = plotter.XY{X: c.X(), Y: c.Y()}
				labels.Labels[i] = f.Region.Name
			}
			text, err := plotter.NewLabels(labels)
			if err != nil {
				return nil, err
			}
			for i := range text.TextStyle {
				text.TextStyle[i].XAlign = draw.XCenter
				text.TextStyle[i].YAlign = draw.YCenter
			}
			p.Add(text)
		}
	}

	if err := addScaleLegend(p, colors, column, low, high, hasData); err != nil {
		return nil, err
	}
	p.HideAxes()
	return p, nil
}

func metricRange[T models.MetricRow](features []models.GeoFeature[T], column string) (low, high float64, ok bool) {
	low, high = math.Inf(1), math.Inf(-1)
	for _, f := range features {
		if f.Metric == nil {
			continue
		}
		v, has := (*f.Metric).Metric(column)
		if !has {
			continue
		}
		low, high, ok = math.Min(low, v), math.Max(high, v), true
	}
	return low, high, ok
}

// classColor maps v onto one of the palette classes between low and high.
func classColor(colors []color.Color, v, low, high float64) color.Color {
	if high <= low {
		return colors[len(colors)-1]
	}
	idx := int((v-low)/(high-low)*float64(len(colors)-1) + 0.5)
	return colors[min(max(idx, 0), len(colors)-1)]
}

func regionPolygons(g orb.Geometry, fill color.Color) ([]*plotter.Polygon, error) {
	var polygons []orb.Polygon
	switch geom := g.(type) {
	case orb.Polygon:
		polygons = []orb.Polygon{geom}
	case orb.MultiPolygon:
		polygons = geom
	default:
		return nil, nil
	}

	out := make([]*plotter.Polygon, 0, len(polygons))
	for _, poly := range polygons {
		rings := make([]plotter.XYer, 0, len(poly))
		for _, ring := range poly {
			xys := make(plotter.XYs, len(ring))
			for i, pt := range ring {
				xys[i] = plotter.XY{X: pt.X(), Y: pt.Y()}
			}
			rings = append(rings, xys)
		}
		if len(rings) == 0 {
			continue
		}
		shape, err := plotter.NewPolygon(rings...)
		if err != nil {
			return nil, err
		}
		shape.Color = fill
		shape.LineStyle.Color = color.White
		shape.LineStyle.Width = vg.Points(0.5)
		out = append(out, shape)
	}
	return out, nil
}

// addScaleLegend adds swatches for the lowest and highest class and for
// regions without data.
func addScaleLegend(p *plot.Plot, colors []color.Color, column string, low, high float64, ok bool) error {
	type entry struct {
		label string
		fill  color.Color
	}
	entries := []entry{{"No data", colorNoData}}
	if ok {
		entries = append([]entry{
			{"High: " + formatMetric(column, high), colors[len(colors)-1]},
			{"Low: " + formatMetric(column, low), colors[0]},
		}, entries...)
	}

	for _, e := range entries {
		swatch, err := plotter.NewPolygon(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}})
		if err != nil {
			return err
		}
		swatch.Color = e.fill
		swatch.LineStyle.Width = 0
		p.Legend.Add(e.label, swatch)
	}
	p.Legend.Top = true
	return nil
}

func formatMetric(column string, v float64) string {
	if strings.HasSuffix(column, "_rate") {
		return fmt.Sprintf("%.1f%%", v*100)
	}
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
