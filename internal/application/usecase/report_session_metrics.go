package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/session-monitor/internal/application/dto"
	"github.com/dreschagin/session-monitor/internal/application/port"
	"github.com/dreschagin/session-monitor/pkg/logger"
)

// ReportSessionMetricsUseCase собирает периодический отчет о сессиях и рассылает его
// подписчикам WebSocket, в CloudWatch и в NATS. Переходы idle/busy публикуются отдельно.
type ReportSessionMetricsUseCase struct {
	queries   *SessionQueryService
	host      port.HostStatsCollector
	notifier  port.NotificationService
	publisher port.MetricsPublisher
	events    port.EventPublisher
	observer  port.UsageObserver
	logger    *logger.Logger

	mu         sync.Mutex
	lastStatus string
}

// NewReportSessionMetricsUseCase создает use case; все зависимости кроме queries и logger опциональны
func NewReportSessionMetricsUseCase(
	queries *SessionQueryService,
	host port.HostStatsCollector,
	notifier port.NotificationService,
	publisher port.MetricsPublisher,
	events port.EventPublisher,
	logger *logger.Logger,
) *ReportSessionMetricsUseCase {
	return &ReportSessionMetricsUseCase{
		queries:   queries,
		host:      host,
		notifier:  notifier,
		publisher: publisher,
		events:    events,
		logger:    logger,
	}
}

// SetObserver подключает счетчик ошибок фонового отчета
func (uc *ReportSessionMetricsUseCase) SetObserver(observer port.UsageObserver) {
	uc.observer = observer
}

// Execute строит отчет и рассылает его
func (uc *ReportSessionMetricsUseCase) Execute(ctx context.Context) (*dto.SessionReportDTO, error) {
	metrics := uc.queries.CurrentMetrics()

	report := &dto.SessionReportDTO{
		Timestamp: metrics.Timestamp,
		Metrics:   metrics,
		Status:    dto.StatusIdle,
	}
	if metrics.ActiveSessions > 0 {
		report.Status = dto.StatusBusy
	}

	// 1. Нагрузка на хост (не критично для отчета)
	if uc.host != nil {
		stats, err := uc.host.Collect(ctx)
		if err != nil {
			uc.logger.Warn("Failed to collect host stats", "error", err.Error())
		} else {
			report.Host = &dto.HostStatsDTO{
				CPUPercent:    stats.CPUPercent,
				MemoryPercent: stats.MemoryPercent,
				Goroutines:    stats.Goroutines,
			}
		}
	}

	// 2. Рассылка подписчикам
	if uc.notifier != nil {
		report.Subscribers = uc.notifier.ClientCount()
		uc.notifier.Broadcast(report)
	}

	// 3. Переход idle <-> busy
	uc.detectTransition(ctx, report)

	// 4. Внешние системы
	var publishErr error
	if uc.publisher != nil {
		if err := uc.publisher.PublishReport(ctx, report); err != nil {
			uc.logger.Error("Failed to publish session metrics", err)
			publishErr = fmt.Errorf("failed to publish session metrics: %w", err)
		}
	}

	if uc.events != nil {
		if err := uc.events.PublishEvent(ctx, port.SubjectSessionReport, report); err != nil {
			uc.logger.Warn("Failed to publish session report event", "error", err.Error())
		}
	}

	uc.logger.Debug("Session report sent",
		"active_sessions", metrics.ActiveSessions,
		"subscribers", report.Subscribers,
		"status", report.Status)

	return report, publishErr
}

func (uc *ReportSessionMetricsUseCase) detectTransition(ctx context.Context, report *dto.SessionReportDTO) {
	uc.mu.Lock()
	previous := uc.lastStatus
	uc.lastStatus = report.Status
	uc.mu.Unlock()

	// первый отчет только фиксирует состояние
	if previous == "" || previous == report.Status {
		return
	}

	alert := &dto.AlertDTO{
		Timestamp:      report.Timestamp,
		Status:         report.Status,
		ActiveSessions: report.Metrics.ActiveSessions,
	}
	subject := port.SubjectSessionsBusy
	if report.Status == dto.StatusIdle {
		alert.Level = "info"
		alert.Message = "No active sessions: deployment is safe"
		subject = port.SubjectSessionsIdle
	} else {
		alert.Level = "warning"
		alert.Message = fmt.Sprintf("%d active session(s): deployment will disconnect clients", report.Metrics.ActiveSessions)
	}

	uc.logger.Info("Session state changed", "from", previous, "to", report.Status)

	if uc.notifier != nil {
		uc.notifier.BroadcastAlert(alert)
	}
	if uc.events != nil {
		if err := uc.events.PublishEvent(ctx, subject, alert); err != nil {
			uc.logger.Warn("Failed to publish state change event", "subject", subject, "error", err.Error())
		}
	}
}

// RunReporter запускает Execute по таймеру до отмены контекста
func (uc *ReportSessionMetricsUseCase) RunReporter(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	uc.logger.Info("Session reporter started", "interval", interval.String())

	for {
		select {
		case <-ticker.C:
			if _, err := uc.Execute(ctx); err != nil {
				uc.logger.Error("Failed to report session metrics", err)
				if uc.observer != nil {
					uc.observer.ObserveJobError("report")
				}
			}
		case <-ctx.Done():
			uc.logger.Info("Session reporter stopped")
			return
		}
	}
}
