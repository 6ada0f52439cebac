package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/session-monitor/internal/application/port"
	"github.com/dreschagin/session-monitor/internal/domain/repository"
	"github.com/dreschagin/session-monitor/internal/domain/service"
	"github.com/dreschagin/session-monitor/pkg/logger"
)

// ArchiveSnapshotsUseCase дописывает новые снимки в архив (PostgreSQL).
// Водяной знак - номер последнего заархивированного снимка, хранится в памяти:
// после рестарта архивируется только новая история.
type ArchiveSnapshotsUseCase struct {
	tracker  *service.SessionTracker
	archive  repository.SnapshotArchive
	observer port.UsageObserver
	logger   *logger.Logger

	mu           sync.Mutex
	lastArchived uint64
}

// NewArchiveSnapshotsUseCase создает новый use case
func NewArchiveSnapshotsUseCase(
	tracker *service.SessionTracker,
	archive repository.SnapshotArchive,
	logger *logger.Logger,
) *ArchiveSnapshotsUseCase {
	return &ArchiveSnapshotsUseCase{
		tracker: tracker,
		archive: archive,
		logger:  logger,
	}
}

// SetObserver подключает счетчик ошибок архивации
func (uc *ArchiveSnapshotsUseCase) SetObserver(observer port.UsageObserver) {
	uc.observer = observer
}

// Execute архивирует снимки, появившиеся с прошлого запуска, и возвращает их число
func (uc *ArchiveSnapshotsUseCase) Execute(ctx context.Context) (int, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	snapshots := uc.tracker.SnapshotsAfter(uc.lastArchived)
	if len(snapshots) == 0 {
		return 0, nil
	}

	if err := uc.archive.SaveBatch(ctx, snapshots); err != nil {
		return 0, fmt.Errorf("failed to archive snapshots: %w", err)
	}

	uc.lastArchived = snapshots[len(snapshots)-1].Sequence()
	uc.logger.Debug("Snapshots archived", "count", len(snapshots), "sequence", uc.lastArchived)
	return len(snapshots), nil
}

// RunArchiver запускает Execute по таймеру; при остановке делает финальный проход
func (uc *ArchiveSnapshotsUseCase) RunArchiver(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	uc.logger.Info("Snapshot archiver started", "interval", interval.String())

	for {
		select {
		case <-ticker.C:
			if _, err := uc.Execute(ctx); err != nil {
				uc.logger.Error("Snapshot archiving failed", err)
				if uc.observer != nil {
					uc.observer.ObserveJobError("archive")
				}
			}
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if _, err := uc.Execute(finalCtx); err != nil {
				uc.logger.Error("Final snapshot archiving failed", err)
			}
			cancel()
			uc.logger.Info("Snapshot archiver stopped")
			return
		}
	}
}
