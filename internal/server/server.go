package server

import (
	"log/slog"
	"net/http"

	"logistics-dashboard/internal/handlers"
	"logistics-dashboard/internal/services"
)

type Server struct {
	dashboard    *services.Dashboard
	mux          *http.ServeMux
	logger       *slog.Logger
	apiHandlers  *handlers.APIHandlers
	sseHandlers  *handlers.SSEHandlers
	pageHandlers *handlers.PageHandlers
}

func NewServer(dashboard *services.Dashboard, logger *slog.Logger) *Server {
	s := &Server{
		dashboard:    dashboard,
		mux:          http.NewServeMux(),
		logger:       logger,
		apiHandlers:  handlers.NewAPIHandlers(dashboard, logger),
		sseHandlers:  handlers.NewSSEHandlers(dashboard, logger),
		pageHandlers: handlers.NewPageHandlers(dashboard, logger),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", s.pageHandlers.HandleDashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/views", s.apiHandlers.HandleViews)
	s.mux.HandleFunc("GET /api/views/{name}", s.apiHandlers.HandleView)
	s.mux.HandleFunc("GET /api/top-regions", s.apiHandlers.HandleTopRegions)
	s.mux.HandleFunc("GET /api/export.xlsx", s.apiHandlers.HandleExport)
	s.mux.HandleFunc("GET /charts/{file}", s.apiHandlers.HandleChart)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/refresh", s.sseHandlers.HandleRefresh)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
