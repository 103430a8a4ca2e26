package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"logistics-dashboard/internal/charts"
	"logistics-dashboard/internal/errors"
	"logistics-dashboard/internal/export"
	"logistics-dashboard/internal/observability"
	"logistics-dashboard/internal/pipeline"
	"logistics-dashboard/internal/services"
)

const (
	cacheControl = "private, max-age=60"
	xlsxType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type APIHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewAPIHandlers(dashboard *services.Dashboard, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, observability.LoggerFrom(r.Context(), h.logger), err, observability.GetRequestID(r.Context()))
}

// views resolves the filter query of r and recomputes every view.
func (h *APIHandlers) views(r *http.Request) (*pipeline.DerivedViews, error) {
	params, err := FilterParamsFromQuery(r)
	if err != nil {
		return nil, err
	}
	return h.dashboard.ViewsFor(r.Context(), params)
}

func (h *APIHandlers) HandleViews(w http.ResponseWriter, r *http.Request) {
	views, err := h.views(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, views, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleView(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !slices.Contains(pipeline.ViewNames(), name) {
		h.fail(w, r, errors.NotFound(fmt.Sprintf("unknown view %q", name)))
		return
	}

	views, err := h.views(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := views.View(name)
	if err != nil {
		h.fail(w, r, errors.NotFound(err.Error()))
		return
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

// HandleTopRegions ranks either region table by a metric column:
// /api/top-regions?table=delay&metric=delayed_rate&n=3
func (h *APIHandlers) HandleTopRegions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	session, err := h.dashboard.Session()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	n := session.Options().TopRegions
	if raw := q.Get("n"); raw != "" {
		if n, err = strconv.Atoi(raw); err != nil || n < 0 {
			h.fail(w, r, errors.BadRequest("n must be a non-negative integer"))
			return
		}
	}

	table := q.Get("table")
	if table == "" {
		table = "delay"
	}
	if table != "delay" && table != "sellers" {
		h.fail(w, r, errors.BadRequest(fmt.Sprintf("unknown table %q, expected delay or sellers", table)))
		return
	}

	views, err := h.views(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	metric := q.Get("metric")
	var data any
	switch table {
	case "delay":
		if metric == "" {
			metric = "delayed_rate"
		}
		data, err = pipeline.TopN(views.CustomerDelay.Rows, metric, n)
	case "sellers":
		if metric == "" {
			metric = "seller_count"
		}
		data, err = pipeline.TopN(views.SellerDensity, metric, n)
	}
	if err != nil {
		h.fail(w, r, errors.BadRequest(err.Error()))
		return
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	views, err := h.views(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, views); err != nil {
		h.fail(w, r, errors.InternalWrap(err, "failed to build workbook"))
		return
	}

	filename := fmt.Sprintf("delivery-dashboard-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// HandleChart serves /charts/{file} where file is <chart name>.png.
func (h *APIHandlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	name, ok := strings.CutSuffix(file, ".png")
	if !ok || !slices.Contains(charts.Names(), name) {
		h.fail(w, r, errors.NotFound(fmt.Sprintf("unknown chart %q", file)))
		return
	}

	views, err := h.views(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, span := observability.StartSpan(r.Context(), "chart.render")
	span.SetTag("chart", name)
	var buf bytes.Buffer
	err = charts.Render(&buf, name, views)
	if err != nil {
		span.SetError(err)
	}
	span.End(observability.LoggerFrom(ctx, h.logger))
	if err != nil {
		h.fail(w, r, errors.InternalWrap(err, "failed to render chart"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", cacheControl)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if !h.dashboard.Ready() {
		status = "loading"
	}

	healthData := map[string]string{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.dashboard.Stats()

	errors.WriteSuccess(w, stats)
}

// FilterParamsFromQuery reads start, end, status, ratio_min and ratio_max.
// status may repeat or hold a comma separated list. A present but empty
// status selects no statuses.
func FilterParamsFromQuery(r *http.Request) (services.FilterParams, error) {
	q := r.URL.Query()
	p := services.FilterParams{
		Start:    q.Get("start"),
		End:      q.Get("end"),
		Statuses: q["status"],
	}

	var err error
	if p.RatioMin, err = optionalInt(q.Get("ratio_min")); err != nil {
		return p, errors.InvalidFilter(fmt.Errorf("ratio_min: %w", err))
	}
	if p.RatioMax, err = optionalInt(q.Get("ratio_max")); err != nil {
		return p, errors.InvalidFilter(fmt.Errorf("ratio_max: %w", err))
	}
	return p, nil
}

func optionalInt(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("expected an integer, got %q", raw)
	}
	return &v, nil
}
