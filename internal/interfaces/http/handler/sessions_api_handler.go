package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dreschagin/session-monitor/internal/application/dto"
	"github.com/dreschagin/session-monitor/internal/application/usecase"
	"github.com/dreschagin/session-monitor/pkg/logger"
)

// ErrInvalidParameter - параметр запроса не прошел проверку
var ErrInvalidParameter = errors.New("invalid parameter")

// SessionsAPIHandler отдает состояние сессий и рекомендации деплоя
type SessionsAPIHandler struct {
	queries         *usecase.SessionQueryService
	windowsUC       *usecase.DeploymentWindowsCachedUseCase
	checkDeployUC   *usecase.CheckDeploySafetyUseCase
	exportHistoryUC *usecase.ExportHistoryUseCase
	logger          *logger.Logger
}

// NewSessionsAPIHandler создает handler; exportHistoryUC может быть nil
func NewSessionsAPIHandler(
	queries *usecase.SessionQueryService,
	windowsUC *usecase.DeploymentWindowsCachedUseCase,
	checkDeployUC *usecase.CheckDeploySafetyUseCase,
	exportHistoryUC *usecase.ExportHistoryUseCase,
	logger *logger.Logger,
) *SessionsAPIHandler {
	return &SessionsAPIHandler{
		queries:         queries,
		windowsUC:       windowsUC,
		checkDeployUC:   checkDeployUC,
		exportHistoryUC: exportHistoryUC,
		logger:          logger,
	}
}

// Register вешает маршруты /api/v1/circuits/* на mux
func (h *SessionsAPIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/circuits/current", h.GetCurrent)
	mux.HandleFunc("/api/v1/circuits/history", h.GetHistory)
	mux.HandleFunc("/api/v1/circuits/history/export", h.ExportHistory)
	mux.HandleFunc("/api/v1/circuits/active-circuits", h.GetActiveCircuits)
	mux.HandleFunc("/api/v1/circuits/has-active", h.HasActive)
	mux.HandleFunc("/api/v1/circuits/deployment-windows", h.GetDeploymentWindows)
	mux.HandleFunc("/api/v1/circuits/can-deploy", h.CanDeploy)
}

// GetCurrent возвращает живые метрики
func (h *SessionsAPIHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.queries.CurrentMetrics())
}

// GetHistory возвращает снимки от новых к старым
func (h *SessionsAPIHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "Invalid since: expected RFC3339 timestamp", http.StatusBadRequest)
			return
		}
		since = &parsed
	}

	maxCount, err := queryInt(r, "maxCount")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, h.queries.History(since, maxCount))
}

// GetActiveCircuits возвращает идентификаторы открытых сессий
func (h *SessionsAPIHandler) GetActiveCircuits(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.queries.ActiveSessions())
}

// HasActive - короткий ответ для health-скриптов
func (h *SessionsAPIHandler) HasActive(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	h.writeJSON(w, http.StatusOK, &dto.HasActiveSessionsDTO{HasActiveSessions: h.queries.HasActiveSessions()})
}

// GetDeploymentWindows возвращает окна деплоя, лучшие первыми
func (h *SessionsAPIHandler) GetDeploymentWindows(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	windowMinutes, err := queryInt(r, "windowMinutes")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	lookbackHours, err := queryInt(r, "lookbackHours")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, h.windowsUC.Execute(r.Context(), windowMinutes, lookbackHours))
}

// CanDeploy сравнивает число активных сессий с порогом и пишет проверку в журнал
func (h *SessionsAPIHandler) CanDeploy(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	maxActive, err := queryInt(r, "maxActiveSessions")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	requester := r.URL.Query().Get("requester")
	if requester == "" {
		requester = r.Header.Get("User-Agent")
	}

	h.writeJSON(w, http.StatusOK, h.checkDeployUC.Execute(r.Context(), maxActive, requester))
}

// ExportHistory выгружает историю в объектное хранилище
func (h *SessionsAPIHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if h.exportHistoryUC == nil {
		http.Error(w, "History export is disabled", http.StatusServiceUnavailable)
		return
	}

	result, err := h.exportHistoryUC.Execute(r.Context())
	if err != nil {
		if errors.Is(err, usecase.ErrHistoryStorageDisabled) {
			http.Error(w, "History export is disabled", http.StatusServiceUnavailable)
			return
		}
		h.logger.Error("Failed to export session history", err)
		http.Error(w, "Failed to export history", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, result)
}

func (h *SessionsAPIHandler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", err)
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

// queryInt читает неотрицательное целое; отсутствующий параметр дает 0 (значение по умолчанию)
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w %s: not an integer", ErrInvalidParameter, name)
	}
	if value < 0 {
		return 0, fmt.Errorf("%w %s: must be >= 0", ErrInvalidParameter, name)
	}
	return value, nil
}
