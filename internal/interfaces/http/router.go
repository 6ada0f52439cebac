package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/dreschagin/session-monitor/internal/deploygate"
	"github.com/dreschagin/session-monitor/internal/infrastructure/observability/metrics"
	"github.com/dreschagin/session-monitor/internal/interfaces/http/handler"
	"github.com/dreschagin/session-monitor/internal/interfaces/http/middleware"
	"github.com/dreschagin/session-monitor/pkg/logger"
)

// ReadinessCheck - проверка зависимости для /readyz
type ReadinessCheck func(ctx context.Context) error

// Router настраивает маршруты приложения
type Router struct {
	mux                *http.ServeMux
	sessionsAPIHandler *handler.SessionsAPIHandler
	websocketHandler   *handler.WebSocketHandler
	deployGateHandler  *deploygate.Handler
	metrics            *metrics.Metrics
	rateLimiter        *middleware.IPRateLimiter
	readiness          map[string]ReadinessCheck
	logger             *logger.Logger
}

// NewRouter создает router; deployGateHandler, metrics и rateLimiter могут быть nil
func NewRouter(
	sessionsAPIHandler *handler.SessionsAPIHandler,
	websocketHandler *handler.WebSocketHandler,
	deployGateHandler *deploygate.Handler,
	metrics *metrics.Metrics,
	rateLimiter *middleware.IPRateLimiter,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		sessionsAPIHandler: sessionsAPIHandler,
		websocketHandler:   websocketHandler,
		deployGateHandler:  deployGateHandler,
		metrics:            metrics,
		rateLimiter:        rateLimiter,
		readiness:          make(map[string]ReadinessCheck),
		logger:             logger,
	}
}

// AddReadinessCheck добавляет проверку к /readyz
func (rt *Router) AddReadinessCheck(name string, check ReadinessCheck) {
	rt.readiness[name] = check
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	// Пробы не ограничиваются и не сжимаются
	rt.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rt.mux.HandleFunc("/readyz", rt.readyz)

	if rt.metrics != nil {
		rt.mux.Handle("/metrics", rt.metrics.Handler())
	}

	// WebSocket
	rt.mux.HandleFunc("/ws", rt.websocketHandler.HandleConnection)

	// API endpoints
	api := http.NewServeMux()
	rt.sessionsAPIHandler.Register(api)
	if rt.deployGateHandler != nil {
		rt.deployGateHandler.Register(api)
		rt.AddReadinessCheck("deploy_gate", func(context.Context) error {
			return rt.deployGateHandler.Ready()
		})
	}

	var apiHandler http.Handler = api
	apiHandler = middleware.Compression(apiHandler)
	if rt.rateLimiter != nil {
		apiHandler = middleware.RateLimit(rt.rateLimiter)(apiHandler)
	}
	rt.mux.Handle("/api/", apiHandler)

	// Применяем middleware
	var handler http.Handler = rt.mux
	handler = middleware.Logger(rt.logger)(handler)
	handler = middleware.Recovery(rt.logger)(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}

	return handler
}

func (rt *Router) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(rt.readiness))
	for name := range rt.readiness {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := make(map[string]string)
	for _, name := range names {
		if err := rt.readiness[name](ctx); err != nil {
			rt.logger.Warn("Readiness check failed", "check", name, "error", err.Error())
			failed[name] = "unavailable"
		}
	}

	if len(failed) > 0 {
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not ready",
			"failed": failed,
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
