package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/dreschagin/session-monitor/internal/application/dto"
	"github.com/dreschagin/session-monitor/internal/application/port"
	"github.com/dreschagin/session-monitor/internal/domain/service"
	"github.com/dreschagin/session-monitor/pkg/logger"
)

func TestCheckDeploySafety_RecordsAuditAndEvent(t *testing.T) {
	tracker := newTestTracker(newTestClock(), 0)
	tracker.OnOpened("a")
	audit := &mockAuditRepository{}
	events := &mockEventPublisher{}

	uc := NewCheckDeploySafetyUseCase(
		NewSessionQueryService(tracker, service.NewWindowAnalyzer(), 0), audit, events, logger.New("error"))

	res := uc.Execute(context.Background(), 0, "ci-pipeline")
	if res.CanDeploy || res.CurrentActiveSessions != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	if len(audit.records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(audit.records))
	}
	rec := audit.records[0]
	if rec.Requester != "ci-pipeline" || rec.CanDeploy || rec.ActiveSessions != 1 || rec.ID == "" {
		t.Fatalf("unexpected audit record: %+v", rec)
	}

	subjects := events.subjects()
	if len(subjects) != 1 || subjects[0] != port.SubjectDeployCheck {
		t.Fatalf("unexpected events: %v", subjects)
	}
	event, ok := events.events[0].event.(*dto.DeployCheckEventDTO)
	if !ok || event.ID != rec.ID {
		t.Fatalf("event must carry the audit id: %+v", events.events[0].event)
	}
}

func TestCheckDeploySafety_AuditFailureDoesNotChangeDecision(t *testing.T) {
	tracker := newTestTracker(newTestClock(), 0)
	audit := &mockAuditRepository{saveErr: errBoom}
	events := &mockEventPublisher{err: errBoom}

	uc := NewCheckDeploySafetyUseCase(
		NewSessionQueryService(tracker, service.NewWindowAnalyzer(), 0), audit, events, logger.New("error"))

	res := uc.Execute(context.Background(), 0, "")
	if !res.CanDeploy {
		t.Fatalf("idle process must be deployable even if audit fails: %+v", res)
	}
}

func TestCheckDeploySafety_ListAudit(t *testing.T) {
	tracker := newTestTracker(newTestClock(), 0)
	queries := NewSessionQueryService(tracker, service.NewWindowAnalyzer(), 0)

	disabled := NewCheckDeploySafetyUseCase(queries, nil, nil, logger.New("error"))
	if _, err := disabled.ListAudit(context.Background(), 10); !errors.Is(err, ErrDeployAuditDisabled) {
		t.Fatalf("expected ErrDeployAuditDisabled, got %v", err)
	}

	audit := &mockAuditRepository{}
	uc := NewCheckDeploySafetyUseCase(queries, audit, nil, logger.New("error"))
	for i := 0; i < 3; i++ {
		uc.Execute(context.Background(), i, "script")
	}

	items, err := uc.ListAudit(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListAudit() error = %v", err)
	}
	if len(items) != 2 || items[0].Threshold != 2 {
		t.Fatalf("expected newest two records, got %+v", items)
	}
}

func TestCheckDeploySafety_ObservesDecision(t *testing.T) {
	tracker := newTestTracker(newTestClock(), 0)
	observer := &recordingObserver{}

	uc := NewCheckDeploySafetyUseCase(
		NewSessionQueryService(tracker, service.NewWindowAnalyzer(), 0), nil, nil, logger.New("error"))
	uc.SetObserver(observer)

	uc.Execute(context.Background(), 0, "")
	tracker.OnOpened("a")
	uc.Execute(context.Background(), 0, "")

	if observer.safe != 1 || observer.unsafe != 1 {
		t.Fatalf("expected one safe and one unsafe decision, got safe=%d unsafe=%d", observer.safe, observer.unsafe)
	}
}
