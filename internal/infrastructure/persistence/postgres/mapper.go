package postgres

import (
	"time"

	"github.com/dreschagin/session-monitor/internal/domain/entity"
)

// SnapshotDBModel представляет снимок в БД
type SnapshotDBModel struct {
	InstanceID      string
	RunID           string
	Sequence        int64
	CapturedAt      time.Time
	ActiveSessions  int
	SessionsStarted int
	SessionsEnded   int
	ArchivedAt      time.Time
}

// ToDBModel конвертирует снимок в DB Model.
// Время приводится к UTC, чтобы архив не зависел от часового пояса процесса.
func ToDBModel(instanceID, runID string, snapshot entity.Snapshot, archivedAt time.Time) SnapshotDBModel {
	return SnapshotDBModel{
		InstanceID:      instanceID,
		RunID:           runID,
		Sequence:        int64(snapshot.Sequence()),
		CapturedAt:      snapshot.Timestamp().UTC(),
		ActiveSessions:  snapshot.ActiveSessions(),
		SessionsStarted: snapshot.SessionsStarted(),
		SessionsEnded:   snapshot.SessionsEnded(),
		ArchivedAt:      archivedAt.UTC(),
	}
}

// args возвращает параметры для insertSnapshotQuery
func (m SnapshotDBModel) args() []interface{} {
	return []interface{}{
		m.InstanceID,
		m.RunID,
		m.Sequence,
		m.CapturedAt,
		m.ActiveSessions,
		m.SessionsStarted,
		m.SessionsEnded,
		m.ArchivedAt,
	}
}
