package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"logistics-dashboard/internal/charts"
	"logistics-dashboard/internal/observability"
	"logistics-dashboard/internal/services"
	"logistics-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	pageTitle     = "Delivery performance dashboard"
)

type PageHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewPageHandlers(dashboard *services.Dashboard, logger *slog.Logger) *PageHandlers {
	return &PageHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

// HandleDashboard renders the page for the default selection.
func (h *PageHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()
	logger := observability.LoggerFrom(ctx, h.logger)

	session, err := h.dashboard.Session()
	if err != nil {
		http.Error(w, "dataset is not loaded yet", http.StatusServiceUnavailable)
		return
	}
	views, err := h.dashboard.Views(ctx, session.DefaultFilters())
	if err != nil {
		logger.Error("default views", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}

	statuses := session.Statuses()
	options := make([]templates.StatusOption, len(statuses))
	for i, s := range statuses {
		options[i] = templates.StatusOption{Value: string(s), Label: s.DisplayName()}
	}

	page := templates.Dashboard(templates.PageData{
		Title:    pageTitle,
		Signals:  templates.SignalsFor(views.Filters),
		Statuses: options,
		Views:    views,
		Charts:   charts.Names(),
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if err := page.Render(ctx, w); err != nil {
		logger.Error("render dashboard", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}
