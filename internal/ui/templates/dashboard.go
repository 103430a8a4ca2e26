// Package templates holds the dashboard page and the fragments that the SSE
// endpoint patches into it.
package templates

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"logistics-dashboard/internal/models"
	"logistics-dashboard/internal/pipeline"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"

// Signals is the client-side filter state. JSON names match the
// data-bind attributes of the filter controls.
type Signals struct {
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Statuses []string `json:"statuses"`
	RatioMin int      `json:"ratioMin"`
	RatioMax int      `json:"ratioMax"`

	// ChartQuery mirrors the other fields as a query string for links.
	ChartQuery string `json:"chartQuery"`
}

type StatusOption struct {
	Value string
	Label string
}

type PageData struct {
	Title    string
	Signals  Signals
	Statuses []StatusOption
	Views    *pipeline.DerivedViews
	Charts   []string
}

// SignalsFor converts resolved filters back into client signals.
func SignalsFor(f pipeline.Filters) Signals {
	s := Signals{
		Statuses: make([]string, len(f.Statuses)),
		RatioMin: f.RatioLowPct,
		RatioMax: f.RatioHighPct,
	}
	if !f.Start.IsZero() {
		s.Start = f.Start.Format(time.DateOnly)
	}
	if !f.End.IsZero() {
		s.End = f.End.Format(time.DateOnly)
	}
	for i, st := range f.Statuses {
		s.Statuses[i] = string(st)
	}
	s.ChartQuery = s.Query()
	return s
}

// Query encodes the signals as the query string understood by the JSON,
// chart and export endpoints.
func (s Signals) Query() string {
	q := url.Values{}
	if s.Start != "" {
		q.Set("start", s.Start)
	}
	if s.End != "" {
		q.Set("end", s.End)
	}
	if len(s.Statuses) == 0 {
		q.Set("status", "")
	}
	for _, st := range s.Statuses {
		q.Add("status", st)
	}
	q.Set("ratio_min", strconv.Itoa(s.RatioMin))
	q.Set("ratio_max", strconv.Itoa(s.RatioMax))
	return q.Encode()
}

// Dashboard renders the full page.
func Dashboard(d PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		signals, err := templ.JSONString(d.Signals)
		if err != nil {
			return err
		}

		hw := &htmlWriter{w: w}
		hw.raw("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
		hw.raw("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
		hw.printf("<title>%s</title>\n", d.Title)
		hw.printf("<script type=\"module\" src=\"%s\"></script>\n", datastarScript)
		hw.raw("<style>" + stylesheet + "</style>\n</head>\n")
		hw.printf("<body data-signals='%s'>\n", signals)
		hw.printf("<header><h1>%s</h1></header>\n<main>\n", d.Title)
		if hw.err != nil {
			return hw.err
		}

		if err := Filters(d.Statuses).Render(ctx, w); err != nil {
			return err
		}
		if err := MetricCards(d.Views.Health).Render(ctx, w); err != nil {
			return err
		}
		if err := Summary(d.Views).Render(ctx, w); err != nil {
			return err
		}
		if err := Charts(d.Charts, d.Signals.Query()).Render(ctx, w); err != nil {
			return err
		}

		hw.raw("</main>\n</body>\n</html>\n")
		return hw.err
	})
}

// Filters renders the filter controls. Every change triggers a refresh over
// SSE with the current signals.
func Filters(statuses []StatusOption) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<form id="filters" class="filters" data-on:change="@get('/sse/refresh')" onsubmit="return false">` + "\n")
		hw.raw(`<label>From <input type="date" data-bind="start"></label>` + "\n")
		hw.raw(`<label>To <input type="date" data-bind="end"></label>` + "\n")
		hw.raw(`<fieldset><legend>Delivery status</legend>` + "\n")
		for _, s := range statuses {
			hw.printf(`<label><input type="checkbox" value="%s" data-bind="statuses"> %s</label>`+"\n", s.Value, s.Label)
		}
		hw.raw("</fieldset>\n")
		hw.raw(`<label>Freight ratio min <input type="range" min="0" max="100" step="5" data-bind="ratioMin"><span data-text="$ratioMin + '%'"></span></label>` + "\n")
		hw.raw(`<label>Freight ratio max <input type="range" min="0" max="100" step="5" data-bind="ratioMax"><span data-text="$ratioMax + '%'"></span></label>` + "\n")
		hw.raw(`<a class="export" data-attr:href="'/api/export.xlsx?' + $chartQuery">Download xlsx</a>` + "\n")
		hw.raw("</form>\n")
		if hw.err != nil {
			return hw.err
		}
		return FilterError("").Render(ctx, w)
	})
}

// FilterError shows why the last selection was rejected. An empty message
// renders an empty placeholder.
func FilterError(message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.printf("<p id=\"filter-error\" class=\"error\" role=\"alert\">%s</p>\n", message)
		return hw.err
	})
}

// MetricCards renders the overall health row.
func MetricCards(h models.HealthMetrics) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw("<section id=\"metrics\" class=\"metrics\">\n")
		hw.printf("<div class=\"card\"><span>Total orders</span><strong>%s</strong></div>\n", formatCount(h.TotalOrders))
		hw.printf("<div class=\"card\"><span>Delayed share</span><strong>%s</strong></div>\n", formatShare(h.DelayedShare))
		hw.printf("<div class=\"card\"><span>Average review</span><strong>%s</strong></div>\n", formatScore(h.AvgReviewScore))
		hw.raw("</section>\n")
		return hw.err
	})
}

// Summary renders the selection size and the top regions of both geo views.
func Summary(v *pipeline.DerivedViews) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		names := make(map[string]string, len(v.GeoDelayed))
		for _, f := range v.GeoDelayed {
			names[f.Region.Code] = f.Region.Name
		}
		name := func(code string) string {
			if n, ok := names[code]; ok && n != "" {
				return n
			}
			return code
		}

		hw := &htmlWriter{w: w}
		hw.raw("<section id=\"summary\" class=\"summary\">\n")
		hw.printf("<p>%s order lines match the selection. %s orders have no customer state.</p>\n",
			formatCount(v.FilteredOrderLineCount), formatCount(v.CustomerDelay.UnmatchedOrders))

		hw.raw("<table><caption>Most delayed states</caption><thead><tr><th>State</th><th>Orders</th><th>Delayed rate</th></tr></thead><tbody>\n")
		for _, r := range v.TopDelayedRegions {
			hw.printf("<tr><td>%s</td><td>%s</td><td>%s</td></tr>\n", name(r.CustomerState), formatCount(r.TotalOrders), formatShare(r.DelayedRate))
		}
		hw.raw("</tbody></table>\n")

		hw.raw("<table><caption>States with most sellers</caption><thead><tr><th>State</th><th>Sellers</th></tr></thead><tbody>\n")
		for _, r := range v.TopSellerRegions {
			hw.printf("<tr><td>%s</td><td>%s</td></tr>\n", name(r.SellerState), formatCount(r.SellerCount))
		}
		hw.raw("</tbody></table>\n</section>\n")
		return hw.err
	})
}

// Charts renders one image per chart, each pointing at the chart endpoint
// with the given filter query.
func Charts(names []string, query string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw("<section id=\"charts\" class=\"charts\">\n")
		for _, n := range names {
			hw.printf("<figure><img id=\"chart-%s\" src=\"/charts/%s.png?%s\" alt=\"%s\" loading=\"lazy\"></figure>\n", n, n, query, n)
		}
		hw.raw("</section>\n")
		return hw.err
	})
}
