// Package charts renders the derived views as PNG images with gonum/plot.
package charts

import (
	"fmt"
	"image/color"
	"io"
	"slices"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"logistics-dashboard/internal/models"
	"logistics-dashboard/internal/pipeline"
)

const (
	Width  = 9 * vg.Inch
	Height = 5 * vg.Inch
)

var (
	colorEarly   = color.RGBA{R: 46, G: 139, B: 87, A: 255}
	colorOnTime  = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	colorDelayed = color.RGBA{R: 205, G: 55, B: 55, A: 255}
	colorOther   = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	colorNoData  = color.RGBA{R: 220, G: 220, B: 220, A: 255}
)

// StatusColor is the fixed color of a delivery status across every chart.
func StatusColor(s models.DeliveryStatus) color.Color {
	switch s {
	case models.StatusEarly:
		return colorEarly
	case models.StatusOnTime:
		return colorOnTime
	case models.StatusDelayed:
		return colorDelayed
	}
	return colorOther
}

// Names lists the renderable charts. Names match the view they draw.
func Names() []string {
	return []string{
		"monthly_delivery_composition",
		"review_by_delivery_status",
		"review_by_delivery_status_and_category",
		"freight_ratio_satisfaction",
		"delivery_status_distribution",
		"geo_delayed",
		"geo_seller",
	}
}

// Build draws the named chart from v.
func Build(name string, v *pipeline.DerivedViews) (*plot.Plot, error) {
	switch name {
	case "monthly_delivery_composition":
		return MonthlyComposition(v.MonthlyComposition)
	case "review_by_delivery_status":
		return ReviewByStatus(v.ReviewByStatus)
	case "review_by_delivery_status_and_category":
		return ReviewHeatmap(v.ReviewByCategory)
	case "freight_ratio_satisfaction":
		return FreightSatisfaction(v.FreightSatisfaction)
	case "delivery_status_distribution":
		return StatusDistribution(v.StatusDistribution)
	case "geo_delayed":
		return Choropleth("Delayed rate by customer state", v.GeoDelayed, "delayed_rate", Reds, len(v.TopDelayedRegions))
	case "geo_seller":
		return Choropleth("Sellers by state", v.GeoSeller, "seller_count", Blues, len(v.TopSellerRegions))
	}
	return nil, fmt.Errorf("unknown chart %q", name)
}

// Render draws the named chart and writes it to w as PNG.
func Render(w io.Writer, name string, v *pipeline.DerivedViews) error {
	p, err := Build(name, v)
	if err != nil {
		return err
	}
	return WritePNG(w, p, Width, Height)
}

func WritePNG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}

// noData turns p into a placeholder for an empty selection.
func noData(p *plot.Plot) (*plot.Plot, error) {
	p.HideAxes()
	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{{X: 0, Y: 0}},
		Labels: []string{"No data for the current selection"},
	})
	if err != nil {
		return nil, err
	}
	p.Add(labels)
	return p, nil
}

// MonthlyComposition draws one line per known status with the monthly share
// in percent. Statuses outside the known three are not drawn.
func MonthlyComposition(rows []models.MonthlyComposition) (*plot.Plot, error) {
	p := newPlot("Monthly delivery composition", "Month", "Share of orders (%)")
	if len(rows) == 0 {
		return noData(p)
	}

	months := make([]string, len(rows))
	for i, r := range rows {
		months[i] = r.Month
	}

	for _, status := range models.KnownStatuses() {
		pts := make(plotter.XYs, len(rows))
		for i, r := range rows {
			pts[i] = plotter.XY{X: float64(i), Y: r.Shares[status] * 100}
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, fmt.Errorf("monthly %s line: %w", status, err)
		}
		line.Color = StatusColor(status)
		line.Width = vg.Points(2)
		points.Color = StatusColor(status)
		points.Shape = draw.CircleGlyph{}
		p.Add(line, points)
		p.Legend.Add(status.DisplayName(), line, points)
	}

	p.Add(plotter.NewGrid())
	p.NominalX(months...)
	p.Y.Min, p.Y.Max = 0, 100
	p.Legend.Top = true
	return p, nil
}

// ReviewByStatus draws the mean review per status, annotated with the mean
// and the number of orders.
func ReviewByStatus(rows []models.StatusReview) (*plot.Plot, error) {
	p := newPlot("Average review score by delivery status", "Delivery status", "Average review score")
	if len(rows) == 0 {
		return noData(p)
	}

	names := make([]string, len(rows))
	labels := plotter.XYLabels{XYs: make(plotter.XYs, len(rows)), Labels: make([]string, len(rows))}
	for i, r := range rows {
		names[i] = r.DeliveryStatus.DisplayName()
		labels.XYs[i] = plotter.XY{X: float64(i), Y: r.AvgReviewScore + 0.15}
		labels.Labels[i] = fmt.Sprintf("%.2f (n=%d)", r.AvgReviewScore, r.OrderCount)

		bar, err := plotter.NewBarChart(singleAt(i, len(rows), r.AvgReviewScore), vg.Points(40))
		if err != nil {
			return nil, fmt.Errorf("review bars: %w", err)
		}
		bar.Color = StatusColor(r.DeliveryStatus)
		bar.LineStyle.Width = 0
		p.Add(bar)
	}

	text, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, err
	}
	for i := range text.TextStyle {
		text.TextStyle[i].XAlign = draw.XCenter
	}
	p.Add(text)

	p.NominalX(names...)
	p.Y.Min, p.Y.Max = 0, 5.5
	return p, nil
}

// singleAt returns n values that are zero except at index i, so each bar can
// carry its own color while sharing the nominal axis.
func singleAt(i, n int, v float64) plotter.Values {
	vals := make(plotter.Values, n)
	vals[i] = v
	return vals
}

// ReviewHeatmap draws categories against statuses. Cells without orders are
// left blank.
func ReviewHeatmap(rows []models.CategoryReview) (*plot.Plot, error) {
	p := newPlot("Average review by status and top category", "Delivery status", "")
	if len(rows) == 0 {
		return noData(p)
	}

	var statuses []models.DeliveryStatus
	for _, r := range rows {
		for s := range r.Cells {
			if !slices.Contains(statuses, s) {
				statuses = append(statuses, s)
			}
		}
	}
	statuses = models.OrderedStatuses(statuses)
	if len(statuses) == 0 {
		return noData(p)
	}

	grid := &reviewGrid{rows: rows, statuses: statuses}
	// low scores red, high scores blue
	heat := plotter.NewHeatMap(grid, palette.Reverse(moreland.SmoothBlueRed()).Palette(64))
	heat.Min, heat.Max = 1, 5

	p.Add(heat)

	labels := plotter.XYLabels{}
	for c := range statuses {
		for r := range rows {
			if cell, ok := grid.cell(c, r); ok {
				labels.XYs = append(labels.XYs, plotter.XY{X: float64(c), Y: float64(r)})
				labels.Labels = append(labels.Labels, fmt.Sprintf("%.2f\nn=%d", cell.AvgReviewScore, cell.OrderCount))
			}
		}
	}
	if len(labels.XYs) > 0 {
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

	statusNames := make([]string, len(statuses))
	for i, s := range statuses {
		statusNames[i] = s.DisplayName()
	}
	p.NominalX(statusNames...)
	p.NominalY(grid.categoryNames()...)
	return p, nil
}

// FreightSatisfaction draws the mean review per freight ratio bin with a
// dashed benchmark at the order-weighted overall mean.
func FreightSatisfaction(rows []models.FreightSatisfaction) (*plot.Plot, error) {
	p := newPlot("Freight-to-price ratio vs review score", "Freight ratio bin", "Average review score")
	if len(rows) == 0 {
		return noData(p)
	}

	names := make([]string, len(rows))
	values := make(plotter.Values, len(rows))
	var sum float64
	var n int
	for i, r := range rows {
		names[i] = fmt.Sprintf("%s\nn=%d", r.FreightRatioBin, r.OrderCount)
		values[i] = r.AvgReviewScore
		sum += r.AvgReviewScore * float64(r.OrderCount)
		n += r.OrderCount
	}

	bars, err := plotter.NewBarChart(values, vg.Points(36))
	if err != nil {
		return nil, fmt.Errorf("freight bars: %w", err)
	}
	bars.Color = colorOnTime
	bars.LineStyle.Width = 0
	p.Add(bars)

	if n > 0 {
		benchmark := sum / float64(n)
		line := plotter.NewFunction(func(float64) float64 { return benchmark })
		line.Color = colorDelayed
		line.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("Overall average %.2f", benchmark), line)
		p.Legend.Top = true
	}

	p.NominalX(names...)
	p.Y.Min, p.Y.Max = 0, 5.5
	return p, nil
}

// StatusDistribution draws the share of orders per status.
func StatusDistribution(rows []models.StatusShare) (*plot.Plot, error) {
	p := newPlot("Delivery performance distribution", "", "Share of orders (%)")
	if len(rows) == 0 {
		return noData(p)
	}

	names := make([]string, len(rows))
	labels := plotter.XYLabels{XYs: make(plotter.XYs, len(rows)), Labels: make([]string, len(rows))}
	for i, r := range rows {
		names[i] = r.DeliveryStatus.DisplayName()
		share := r.Share * 100
		labels.XYs[i] = plotter.XY{X: float64(i), Y: share + 2}
		labels.Labels[i] = fmt.Sprintf("%.1f%%", share)

		bar, err := plotter.NewBarChart(singleAt(i, len(rows), share), vg.Points(40))
		if err != nil {
			return nil, fmt.Errorf("distribution bars: %w", err)
		}
		bar.Color = StatusColor(r.DeliveryStatus)
		bar.LineStyle.Width = 0
		p.Add(bar)
	}

	text, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, err
	}
	for i := range text.TextStyle {
		text.TextStyle[i].XAlign = draw.XCenter
	}
	p.Add(text)

	p.NominalX(names...)
	p.Y.Min, p.Y.Max = 0, 110
	return p, nil
}
