package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/session-monitor/internal/application/dto"
	"github.com/dreschagin/session-monitor/pkg/logger"
)

func TestExportHistory_Success(t *testing.T) {
	clock := newTestClock()
	tracker := newTestTracker(clock, 0)
	tracker.OnOpened("a")
	clock.Advance(time.Minute)
	tracker.OnClosed("a")

	storage := &mockHistoryStorage{}
	uc := NewExportHistoryUseCase(tracker, storage, "/exports/", logger.New("error"))

	res, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	wantKey := "exports/2026/02/07/20260207T120100Z_session_history.json"
	if res.Key != wantKey {
		t.Fatalf("expected key %q, got %q", wantKey, res.Key)
	}
	if res.Snapshots != 2 || !strings.HasSuffix(res.URL, wantKey) {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(storage.calls) != 1 || storage.calls[0].contentType != "application/json" {
		t.Fatalf("unexpected upload: %+v", storage.calls)
	}

	var doc dto.HistoryExportDocument
	if err := json.Unmarshal(storage.calls[0].body, &doc); err != nil {
		t.Fatalf("uploaded body is not JSON: %v", err)
	}
	if len(doc.Snapshots) != 2 || doc.Snapshots[0].ActiveSessions != 1 || doc.Snapshots[1].ActiveSessions != 0 {
		t.Fatalf("export must be chronological: %+v", doc.Snapshots)
	}
}

func TestExportHistory_Errors(t *testing.T) {
	tracker := newTestTracker(newTestClock(), 0)

	disabled := NewExportHistoryUseCase(tracker, nil, "", logger.New("error"))
	if _, err := disabled.Execute(context.Background()); !errors.Is(err, ErrHistoryStorageDisabled) {
		t.Fatalf("expected ErrHistoryStorageDisabled, got %v", err)
	}

	failing := NewExportHistoryUseCase(tracker, &mockHistoryStorage{err: errBoom}, "", logger.New("error"))
	if _, err := failing.Execute(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped storage error, got %v", err)
	}
}
