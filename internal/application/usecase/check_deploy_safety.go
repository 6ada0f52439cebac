package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/session-monitor/internal/application/dto"
	"github.com/dreschagin/session-monitor/internal/application/port"
	"github.com/dreschagin/session-monitor/pkg/logger"
	"github.com/google/uuid"
)

// ErrDeployAuditDisabled возвращается при чтении журнала без настроенного хранилища
var ErrDeployAuditDisabled = errors.New("deploy audit storage is disabled")

const (
	defaultAuditListLimit = 20
	maxAuditListLimit     = 200
	auditWriteTimeout     = 3 * time.Second
)

// CheckDeploySafetyUseCase проверяет готовность к деплою и пишет результат в журнал.
// Ошибки журнала и брокера логируются и не влияют на решение.
type CheckDeploySafetyUseCase struct {
	queries  *SessionQueryService
	audit    port.DeployAuditRepository
	events   port.EventPublisher
	observer port.UsageObserver
	logger   *logger.Logger
}

// NewCheckDeploySafetyUseCase создает use case; audit и events могут быть nil
func NewCheckDeploySafetyUseCase(
	queries *SessionQueryService,
	audit port.DeployAuditRepository,
	events port.EventPublisher,
	logger *logger.Logger,
) *CheckDeploySafetyUseCase {
	return &CheckDeploySafetyUseCase{
		queries: queries,
		audit:   audit,
		events:  events,
		logger:  logger,
	}
}

// SetObserver подключает счетчик проверок
func (uc *CheckDeploySafetyUseCase) SetObserver(observer port.UsageObserver) {
	uc.observer = observer
}

// Execute выполняет проверку для порога maxActiveSessions
func (uc *CheckDeploySafetyUseCase) Execute(ctx context.Context, maxActiveSessions int, requester string) *dto.CanDeployDTO {
	result := uc.queries.CanDeploy(maxActiveSessions)
	checkID := uuid.New().String()

	uc.logger.Info("Deploy safety checked",
		"id", checkID,
		"requester", requester,
		"can_deploy", result.CanDeploy,
		"active_sessions", result.CurrentActiveSessions,
		"threshold", result.Threshold)

	if uc.observer != nil {
		uc.observer.ObserveDeployCheck(result.CanDeploy)
	}

	if uc.audit != nil {
		auditCtx, cancel := context.WithTimeout(ctx, auditWriteTimeout)
		err := uc.audit.Save(auditCtx, port.DeployAuditRecord{
			ID:             checkID,
			Requester:      requester,
			CanDeploy:      result.CanDeploy,
			ActiveSessions: result.CurrentActiveSessions,
			Threshold:      result.Threshold,
			CheckedAt:      result.Timestamp,
		})
		cancel()
		if err != nil {
			uc.logger.Error("Failed to save deploy audit record", err, "id", checkID)
		}
	}

	if uc.events != nil {
		event := &dto.DeployCheckEventDTO{ID: checkID, Requester: requester, Result: result}
		if err := uc.events.PublishEvent(ctx, port.SubjectDeployCheck, event); err != nil {
			uc.logger.Warn("Failed to publish deploy check event", "id", checkID, "error", err.Error())
		}
	}

	return result
}

// ListAudit возвращает последние записи журнала проверок
func (uc *CheckDeploySafetyUseCase) ListAudit(ctx context.Context, limit int) ([]*dto.DeployAuditDTO, error) {
	if uc.audit == nil {
		return nil, ErrDeployAuditDisabled
	}
	if limit <= 0 {
		limit = defaultAuditListLimit
	}
	if limit > maxAuditListLimit {
		limit = maxAuditListLimit
	}

	records, err := uc.audit.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deploy audit: %w", err)
	}

	items := make([]*dto.DeployAuditDTO, len(records))
	for i, r := range records {
		items[i] = &dto.DeployAuditDTO{
			ID:             r.ID,
			Requester:      r.Requester,
			CanDeploy:      r.CanDeploy,
			ActiveSessions: r.ActiveSessions,
			Threshold:      r.Threshold,
			CheckedAt:      r.CheckedAt,
		}
	}
	return items, nil
}
