package deploygate

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dreschagin/session-monitor/internal/application/dto"
	"github.com/dreschagin/session-monitor/pkg/logger"
)

func newTestMux(audit AuditLister) (*http.ServeMux, *Handler) {
	runner := NewRunner(NewService(&fakeChecker{}, &fakeWindows{}, 0), logger.New("error"), time.Minute)
	handler := NewHandler(runner, audit)
	mux := http.NewServeMux()
	handler.Register(mux)
	return mux, handler
}

func TestHandlerRunThenSummary(t *testing.T) {
	mux, handler := newTestMux(nil)

	if err := handler.Ready(); err == nil {
		t.Fatal("handler must not be ready before the first cycle")
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/deploy-gate/run", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("run status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deploy-gate/summary", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}

	var snap Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if snap.LastSummary == nil || snap.LastSummary.Verdict != VerdictDeployNow {
		t.Fatalf("unexpected summary: %+v", snap)
	}
	if err := handler.Ready(); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
}

func TestHandlerMethodNotAllowed(t *testing.T) {
	mux, _ := newTestMux(nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/deploy-gate/run"},
		{http.MethodPost, "/api/v1/deploy-gate/summary"},
		{http.MethodDelete, "/api/v1/deploy-gate/audit"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: status = %d", tt.method, tt.path, rec.Code)
		}
	}
}

func TestHandlerAudit(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		mux, _ := newTestMux(nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deploy-gate/audit", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		mux, _ := newTestMux(&fakeAudit{})
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deploy-gate/audit?limit=-1", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("storage error", func(t *testing.T) {
		mux, _ := newTestMux(&fakeAudit{err: errors.New("dynamo down")})
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deploy-gate/audit", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("lists items", func(t *testing.T) {
		audit := &fakeAudit{items: []*dto.DeployAuditDTO{{ID: "a1", Requester: "ci"}}}
		mux, _ := newTestMux(audit)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deploy-gate/audit?limit=5", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if audit.limit != 5 {
			t.Fatalf("limit = %d, want 5", audit.limit)
		}

		var body struct {
			Items []*dto.DeployAuditDTO `json:"items"`
			Count int                   `json:"count"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Count != 1 || body.Items[0].ID != "a1" {
			t.Fatalf("unexpected body: %+v", body)
		}
	})
}
