package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radiusdt/marketing-insights/internal/config"
	"github.com/radiusdt/marketing-insights/internal/database"
	"github.com/radiusdt/marketing-insights/internal/heatmap"
	"github.com/radiusdt/marketing-insights/internal/metrics"
	"github.com/radiusdt/marketing-insights/internal/middleware"
	"github.com/radiusdt/marketing-insights/internal/models"
	"github.com/radiusdt/marketing-insights/internal/storage"
	"github.com/radiusdt/marketing-insights/internal/views"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Views       *views.Service
	Connections *database.Connections
	// Sink receives exported groups. Nil disables /export/run.
	Sink storage.GroupSink
	// RateLimiter is shared with the caller so idle limiters can be cleaned up.
	// Nil creates one from Config.RateLimit.
	RateLimiter *middleware.RateLimitMiddleware
}

// Server wraps HTTP handlers around the view service.
type Server struct {
	views   *views.Service
	sink    storage.GroupSink
	conns   *database.Connections
	logger  *zap.Logger
	config  *config.Config
	metrics *metrics.Metrics
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	s := &Server{
		views:   deps.Views,
		sink:    deps.Sink,
		conns:   deps.Connections,
		logger:  deps.Logger,
		config:  deps.Config,
		metrics: deps.Metrics,
	}

	rl := deps.RateLimiter
	if rl == nil {
		rl = middleware.NewRateLimitMiddleware(deps.Config.RateLimit, deps.Logger)
	}
	if deps.Metrics != nil {
		rl.SetMetrics(deps.Metrics)
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger).Handler)
	r.Use(middleware.RequestID)
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics).Handler)
	r.Use(rl.Handler)
	r.Use(middleware.NewAuthMiddleware(deps.Config.Auth, deps.Logger).Handler)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.errorResponse(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	// Health check
	r.Get("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled && deps.Metrics != nil {
		r.Method(http.MethodGet, deps.Config.Metrics.Path, deps.Metrics.Handler())
	}

	// Dashboard views
	r.Route("/views", func(r chi.Router) {
		r.Get("/", s.handleViewIndex)
		r.Get("/region/heatmap", s.handleHeatMap)
		r.Get("/{view}", s.handleView)
	})

	// Export of aggregated groups
	r.Post("/export/run", s.handleExport)

	return r
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	backends := make(map[string]string)

	if s.conns != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for name, err := range s.conns.Health(ctx) {
			if err != nil {
				status = "degraded"
				backends[name] = err.Error()
				continue
			}
			backends[name] = "ok"
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	s.jsonStatusResponse(w, code, map[string]any{
		"status":   status,
		"backends": backends,
	})
}

// ---- Views ----

func (s *Server) handleViewIndex(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, map[string]any{"views": views.Views})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	view, ok := views.ParseView(chi.URLParam(r, "view"))
	if !ok {
		s.errorResponse(w, "unknown view", http.StatusNotFound)
		return
	}

	body, err := s.views.Render(r.Context(), views.Request{View: view})
	if err != nil {
		s.viewError(w, r, err)
		return
	}
	s.rawJSONResponse(w, body)
}

func (s *Server) handleHeatMap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	kind, err := heatmap.ParseKind(q.Get("renderer"))
	if err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	metric := models.MetricRevenue
	if raw := q.Get("metric"); raw != "" {
		m, ok := models.ParseMetric(raw)
		if !ok {
			s.errorResponse(w, "unknown metric: "+raw, http.StatusBadRequest)
			return
		}
		metric = m
	}

	body, err := s.views.Render(r.Context(), views.Request{HeatMap: kind, Metric: metric})
	if err != nil {
		s.viewError(w, r, err)
		return
	}
	s.rawJSONResponse(w, body)
}

// ---- Export ----

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.sink == nil {
		s.errorResponse(w, "export is not configured", http.StatusServiceUnavailable)
		return
	}

	res, err := s.views.Export(r.Context(), s.sink)
	if err != nil {
		var le *views.LoadError
		if errors.As(err, &le) {
			s.errorResponse(w, views.LoadFailedMessage, http.StatusBadGateway)
			return
		}
		s.logger.Error("export failed",
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		s.errorResponse(w, "export failed", http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, res)
}

// ---- Helpers ----

// viewError maps service errors onto responses. Load failures always read
// views.LoadFailedMessage; the cause is logged by the service.
func (s *Server) viewError(w http.ResponseWriter, r *http.Request, err error) {
	var le *views.LoadError
	switch {
	case errors.As(err, &le):
		s.errorResponse(w, views.LoadFailedMessage, http.StatusBadGateway)
	case errors.Is(err, views.ErrInvalidRequest):
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.errorResponse(w, "request canceled", http.StatusServiceUnavailable)
	default:
		s.logger.Error("view failed",
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	s.jsonStatusResponse(w, http.StatusOK, data)
}

func (s *Server) jsonStatusResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) rawJSONResponse(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
