package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/session-monitor/pkg/logger"
)

func TestRecoveryReturns500(t *testing.T) {
	h := Recovery(logger.New("error"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/circuits/current", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestRecoveryRepanicsAbortHandler(t *testing.T) {
	h := Recovery(logger.New("error"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRateLimitPerClient(t *testing.T) {
	limiter := NewIPRateLimiter(0.001, 2)
	defer limiter.Stop()

	limited := 0
	limiter.OnLimited(func() { limited++ })

	h := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("192.0.2.1"); code != http.StatusNoContent {
			t.Fatalf("request %d: status = %d", i, code)
		}
	}
	if code := send("192.0.2.1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", code)
	}
	if code := send("192.0.2.2"); code != http.StatusNoContent {
		t.Fatalf("other client must not be limited, got %d", code)
	}
	if limited != 1 {
		t.Fatalf("onLimited called %d times, want 1", limited)
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	limiter := NewIPRateLimiter(1, 1)
	defer limiter.Stop()

	now := time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.allow("192.0.2.1")
	now = now.Add(10 * time.Minute)
	limiter.allow("192.0.2.2")

	if removed := limiter.evictIdle(); removed != 1 {
		t.Fatalf("evicted %d, want 1", removed)
	}
	if _, ok := limiter.visitors["192.0.2.2"]; !ok {
		t.Fatal("recent client must be kept")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:51234"
	if got := clientIP(req); got != "198.51.100.7" {
		t.Fatalf("clientIP() = %q", got)
	}

	req.Header.Set("X-Real-IP", "203.0.113.9")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("clientIP() = %q", got)
	}
}

func TestCompressionGzipsWhenAccepted(t *testing.T) {
	h := Compression(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"activeSessions":0}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip encoding, headers = %v", rec.Header())
	}
	gz, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	body, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("read gzip body: %v", err)
	}
	if string(body) != `{"activeSessions":0}` {
		t.Fatalf("body = %q", body)
	}
}

func TestCompressionSkipsUpgrade(t *testing.T) {
	h := Compression(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("plain"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "" || rec.Body.String() != "plain" {
		t.Fatalf("upgrade request must not be compressed: %v %q", rec.Header(), rec.Body.String())
	}
}

func TestLoggerKeepsStatus(t *testing.T) {
	h := Logger(logger.New("error"))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLoggerLevelsByRequestKind(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		status  int
		want    string
		wantNot string
	}{
		{name: "health check is debug only", path: "/healthz", status: http.StatusOK, wantNot: "HTTP Request"},
		{name: "api request", path: "/api/v1/circuits/current", status: http.StatusOK, want: "[INFO] HTTP Request"},
		{name: "rate limited", path: "/api/v1/circuits/current", status: http.StatusTooManyRequests, want: "rate_limited=true"},
		{name: "server error", path: "/api/v1/circuits/current", status: http.StatusBadGateway, want: "[WARN] HTTP Request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := Logger(logger.NewWithWriter("info", &buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("ok"))
			}))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			out := buf.String()
			if tt.want != "" && !strings.Contains(out, tt.want) {
				t.Fatalf("expected %q in %q", tt.want, out)
			}
			if tt.wantNot != "" && strings.Contains(out, tt.wantNot) {
				t.Fatalf("unexpected %q in %q", tt.wantNot, out)
			}
			if tt.want != "" && !strings.Contains(out, "bytes=2") {
				t.Fatalf("response size must be logged: %q", out)
			}
		})
	}
}
