package deploygate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dreschagin/session-monitor/internal/application/dto"
)

// AuditLister - чтение журнала проверок (usecase.CheckDeploySafetyUseCase)
type AuditLister interface {
	ListAudit(ctx context.Context, limit int) ([]*dto.DeployAuditDTO, error)
}

type Handler struct {
	runner *Runner
	audit  AuditLister
}

// NewHandler создает обработчик; audit может быть nil
func NewHandler(runner *Runner, audit AuditLister) *Handler {
	return &Handler{runner: runner, audit: audit}
}

// Register вешает маршруты gate на общий mux сервера
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/deploy-gate/summary", h.summary)
	mux.HandleFunc("/api/v1/deploy-gate/run", h.runNow)
	mux.HandleFunc("/api/v1/deploy-gate/audit", h.listAudit)
}

// Ready - прошла ли последняя оценка и не устарела ли она
func (h *Handler) Ready() error {
	snapshot := h.runner.Snapshot()
	if snapshot.LastRunAt.IsZero() {
		return errors.New("no deploy gate cycle yet")
	}
	if time.Since(snapshot.LastRunAt) > snapshot.Interval*3 {
		return errors.New("stale deploy gate cycle")
	}
	if snapshot.LastError != "" {
		return errors.New("last deploy gate cycle failed")
	}
	return nil
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, h.runner.Snapshot())
}

func (h *Handler) runNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	summary, err := h.runner.RunOnce(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error",
			"error":  "deploy gate cycle failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.audit == nil {
		http.Error(w, "deploy audit is disabled", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	items, err := h.audit.ListAudit(r.Context(), limit)
	if err != nil {
		http.Error(w, "failed to list deploy audit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(data)
}
