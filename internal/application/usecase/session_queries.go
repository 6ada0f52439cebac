package usecase

import (
	"math"
	"time"

	"github.com/dreschagin/session-monitor/internal/application/dto"
	"github.com/dreschagin/session-monitor/internal/domain/service"
)

// DefaultHistoryMaxCount - размер выборки истории, если вызывающий его не задал
const DefaultHistoryMaxCount = 100

// SessionQueryService - внешний контракт чтения состояния сессий.
// Все методы работают только с памятью процесса и возвращаются сразу.
type SessionQueryService struct {
	tracker         *service.SessionTracker
	analyzer        *service.WindowAnalyzer
	defaultMaxCount int
}

// NewSessionQueryService создает фасад; defaultMaxCount <= 0 заменяется на DefaultHistoryMaxCount
func NewSessionQueryService(
	tracker *service.SessionTracker,
	analyzer *service.WindowAnalyzer,
	defaultMaxCount int,
) *SessionQueryService {
	if defaultMaxCount <= 0 {
		defaultMaxCount = DefaultHistoryMaxCount
	}
	return &SessionQueryService{
		tracker:         tracker,
		analyzer:        analyzer,
		defaultMaxCount: defaultMaxCount,
	}
}

// CurrentMetrics возвращает живые метрики
func (s *SessionQueryService) CurrentMetrics() *dto.CurrentMetricsDTO {
	return dto.FromCurrentMetrics(s.tracker.CurrentMetrics())
}

// History возвращает историю от новых снимков к старым.
// maxCount <= 0 означает значение по умолчанию; больше емкости истории не бывает.
func (s *SessionQueryService) History(since *time.Time, maxCount int) []*dto.SnapshotDTO {
	if maxCount <= 0 {
		maxCount = s.defaultMaxCount
	}
	if capacity := s.tracker.HistoryCapacity(); maxCount > capacity {
		maxCount = capacity
	}
	return dto.ToSnapshotDTOs(s.tracker.History(since, maxCount))
}

// ActiveSessions возвращает идентификаторы открытых сессий
func (s *SessionQueryService) ActiveSessions() *dto.ActiveSessionsDTO {
	ids := s.tracker.ActiveSessionIDs()
	return &dto.ActiveSessionsDTO{
		ActiveCircuits: ids,
		Count:          len(ids),
	}
}

// HasActiveSessions - короткая проверка activeSessions > 0
func (s *SessionQueryService) HasActiveSessions() bool {
	return s.tracker.CurrentMetrics().HasActiveSessions()
}

// DeploymentWindows возвращает рекомендованные окна деплоя, лучшие первыми.
// Неположительные параметры заменяются на 5 минут и 24 часа. Значения за пределами
// time.Duration (около 292 лет) ограничиваются максимальной длительностью.
func (s *SessionQueryService) DeploymentWindows(windowMinutes, lookbackHours int) []*dto.DeploymentWindowDTO {
	window := clampDuration(windowMinutes, time.Minute)
	if windowMinutes <= 0 {
		window = service.DefaultDeploymentWindow
	}
	lookback := clampDuration(lookbackHours, time.Hour)
	if lookbackHours <= 0 {
		lookback = service.DefaultLookback
	}

	snapshots := s.tracker.Recent(lookback)
	windows := s.analyzer.Recommend(snapshots, s.tracker.Now(), window, lookback)
	return dto.ToDeploymentWindowDTOs(windows)
}

// clampDuration умножает n на unit без переполнения int64
func clampDuration(n int, unit time.Duration) time.Duration {
	if int64(n) > math.MaxInt64/int64(unit) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(n) * unit
}

// CanDeploy сравнивает текущее число сессий с порогом; отрицательный порог считается нулем
func (s *SessionQueryService) CanDeploy(maxActiveSessions int) *dto.CanDeployDTO {
	if maxActiveSessions < 0 {
		maxActiveSessions = 0
	}
	metrics := s.tracker.CurrentMetrics()
	return &dto.CanDeployDTO{
		CanDeploy:             metrics.ActiveSessions <= maxActiveSessions,
		CurrentActiveSessions: metrics.ActiveSessions,
		Threshold:             maxActiveSessions,
		Timestamp:             metrics.Timestamp,
	}
}
