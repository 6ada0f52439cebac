package postgres

import (
	"testing"
	"time"

	"github.com/dreschagin/session-monitor/internal/domain/entity"
)

func TestToDBModel(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	captured := time.Date(2024, 5, 1, 15, 0, 0, 0, loc)
	archived := time.Date(2024, 5, 1, 15, 1, 0, 0, loc)

	model := ToDBModel("node-1", "run-1", entity.NewSnapshot(captured, 4, 2, 1).WithSequence(42), archived)

	if model.InstanceID != "node-1" || model.RunID != "run-1" || model.Sequence != 42 {
		t.Errorf("unexpected identity: %+v", model)
	}
	if !model.CapturedAt.Equal(captured) || model.CapturedAt.Location() != time.UTC {
		t.Errorf("captured_at must be the same instant in UTC, got %v", model.CapturedAt)
	}
	if model.ArchivedAt.Location() != time.UTC {
		t.Errorf("archived_at must be UTC, got %v", model.ArchivedAt)
	}
	if model.ActiveSessions != 4 || model.SessionsStarted != 2 || model.SessionsEnded != 1 {
		t.Errorf("unexpected counters: %+v", model)
	}

	args := model.args()
	if len(args) != 8 {
		t.Fatalf("expected 8 query args, got %d", len(args))
	}
	if args[0] != "node-1" || args[1] != "run-1" || args[2] != int64(42) || args[4] != 4 {
		t.Errorf("unexpected args order: %v", args)
	}
}
