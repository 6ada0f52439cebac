package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/session-monitor/internal/application/dto"
	"github.com/dreschagin/session-monitor/internal/application/port"
	"github.com/dreschagin/session-monitor/internal/domain/service"
	"github.com/dreschagin/session-monitor/pkg/logger"
)

// ErrHistoryStorageDisabled возвращается, если объектное хранилище не настроено
var ErrHistoryStorageDisabled = errors.New("history storage is disabled")

// ExportHistoryUseCase выгружает всю историю снимков в объектное хранилище (S3)
type ExportHistoryUseCase struct {
	tracker   *service.SessionTracker
	storage   port.HistoryStorage
	keyPrefix string
	logger    *logger.Logger
}

// NewExportHistoryUseCase создает use case; storage может быть nil
func NewExportHistoryUseCase(
	tracker *service.SessionTracker,
	storage port.HistoryStorage,
	keyPrefix string,
	logger *logger.Logger,
) *ExportHistoryUseCase {
	return &ExportHistoryUseCase{
		tracker:   tracker,
		storage:   storage,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

// Execute сериализует историю (от старых к новым) и загружает ее в хранилище
func (uc *ExportHistoryUseCase) Execute(ctx context.Context) (*dto.HistoryExportDTO, error) {
	if uc.storage == nil {
		return nil, ErrHistoryStorageDisabled
	}

	snapshots := uc.tracker.SnapshotsAfter(0)
	exportedAt := uc.tracker.Now().UTC()

	doc := dto.HistoryExportDocument{
		ExportedAt: exportedAt,
		Metrics:    dto.FromCurrentMetrics(uc.tracker.CurrentMetrics()),
		Snapshots:  dto.ToSnapshotDTOs(snapshots),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}

	key := uc.buildKey(exportedAt)
	url, err := uc.storage.PutObject(ctx, key, "application/json", body)
	if err != nil {
		uc.logger.Error("Failed to upload session history", err, "key", key)
		return nil, fmt.Errorf("failed to upload history: %w", err)
	}

	uc.logger.Info("Session history exported", "key", key, "snapshots", len(snapshots), "bytes", len(body))

	return &dto.HistoryExportDTO{
		Key:        key,
		URL:        url,
		Snapshots:  len(snapshots),
		ExportedAt: exportedAt,
	}, nil
}

func (uc *ExportHistoryUseCase) buildKey(exportedAt time.Time) string {
	prefix := strings.Trim(uc.keyPrefix, "/")
	if prefix == "" {
		prefix = "session-history"
	}

	timestamp := exportedAt.Format("20060102T150405Z")
	datePrefix := exportedAt.Format("2006/01/02")

	return fmt.Sprintf("%s/%s/%s_session_history.json", prefix, datePrefix, timestamp)
}
