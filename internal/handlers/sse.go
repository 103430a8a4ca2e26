package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"logistics-dashboard/internal/charts"
	"logistics-dashboard/internal/errors"
	"logistics-dashboard/internal/observability"
	"logistics-dashboard/internal/services"
	"logistics-dashboard/internal/ui/templates"
)

// refreshSignals is what the filter form sends. Pointer fields distinguish
// a missing signal from a zero value.
type refreshSignals struct {
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Statuses []string `json:"statuses"`
	RatioMin *int     `json:"ratioMin"`
	RatioMax *int     `json:"ratioMax"`
}

func (s refreshSignals) params() services.FilterParams {
	return services.FilterParams{
		Start:    s.Start,
		End:      s.End,
		Statuses: s.Statuses,
		RatioMin: s.RatioMin,
		RatioMax: s.RatioMax,
	}
}

type SSEHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewSSEHandlers(dashboard *services.Dashboard, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

func renderHTML(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// HandleRefresh recomputes the views for the signals sent by the filter form
// and patches the metric cards, the summary and the charts.
func (h *SSEHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFrom(r.Context(), h.logger)

	var signals refreshSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		errors.WriteError(w, logger, errors.BadRequest("malformed signals").WithDetails(err.Error()), observability.GetRequestID(r.Context()))
		return
	}

	views, err := h.dashboard.ViewsFor(r.Context(), signals.params())

	sse := datastar.NewSSE(w, r)

	if err != nil {
		var appErr *errors.AppError
		message := "The selection could not be applied."
		if stderrors.As(err, &appErr) && appErr.Details != "" {
			message = appErr.Details
		}
		logger.Warn("refresh rejected", "error", err)
		if html, rerr := renderHTML(r.Context(), templates.FilterError(message)); rerr == nil {
			sse.PatchElements(html)
		}
		return
	}

	state := templates.SignalsFor(views.Filters)
	fragments := []templ.Component{
		templates.FilterError(""),
		templates.MetricCards(views.Health),
		templates.Summary(views),
		templates.Charts(charts.Names(), state.ChartQuery),
	}
	for _, c := range fragments {
		html, err := renderHTML(r.Context(), c)
		if err != nil {
			logger.Error("render fragment", "error", err)
			return
		}
		if err := sse.PatchElements(html); err != nil {
			logger.Debug("client went away", "error", err)
			return
		}
	}

	allSignals, err := json.Marshal(map[string]any{
		"chartQuery": state.ChartQuery,
		"views":      views,
	})
	if err != nil {
		logger.Error("marshal view signals", "error", err)
		return
	}
	sse.PatchSignals(allSignals)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
