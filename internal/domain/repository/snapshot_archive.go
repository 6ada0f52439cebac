package repository

import (
	"context"

	"github.com/dreschagin/session-monitor/internal/domain/entity"
)

// SnapshotArchive - внешнее хранилище снимков для офлайн-отчетов (Port).
// Только запись: при старте процесс историю из архива не восстанавливает.
type SnapshotArchive interface {
	// SaveBatch сохраняет снимки одной транзакцией
	SaveBatch(ctx context.Context, snapshots []entity.Snapshot) error

	// Ping проверяет доступность хранилища
	Ping(ctx context.Context) error
}
