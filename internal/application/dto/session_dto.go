package dto

import (
	"time"

	"github.com/dreschagin/session-monitor/internal/domain/entity"
	"github.com/dreschagin/session-monitor/internal/domain/valueobject"
)

// CurrentMetricsDTO - живые метрики сессий
type CurrentMetricsDTO struct {
	ActiveSessions       int       `json:"activeSessions"`
	Timestamp            time.Time `json:"timestamp"`
	PeakSessions         int       `json:"peakSessions"`
	TotalSessionsStarted int64     `json:"totalSessionsStarted"`
	TotalSessionsEnded   int64     `json:"totalSessionsEnded"`
	// nil, пока ни одна сессия не закрылась
	AverageSessionDurationSeconds *float64 `json:"averageSessionDurationSeconds"`
}

// FromCurrentMetrics конвертирует доменные метрики в DTO
func FromCurrentMetrics(m entity.CurrentMetrics) *CurrentMetricsDTO {
	out := &CurrentMetricsDTO{
		ActiveSessions:       m.ActiveSessions,
		Timestamp:            m.Timestamp,
		PeakSessions:         m.PeakSessions,
		TotalSessionsStarted: m.TotalSessionsStarted,
		TotalSessionsEnded:   m.TotalSessionsEnded,
	}
	if m.AverageSessionDuration != nil {
		seconds := m.AverageSessionDuration.Seconds()
		out.AverageSessionDurationSeconds = &seconds
	}
	return out
}

// SnapshotDTO - исторический снимок
type SnapshotDTO struct {
	Timestamp       time.Time `json:"timestamp"`
	ActiveSessions  int       `json:"activeSessions"`
	SessionsStarted int       `json:"sessionsStarted"`
	SessionsEnded   int       `json:"sessionsEnded"`
}

// FromSnapshot конвертирует снимок в DTO
func FromSnapshot(s entity.Snapshot) *SnapshotDTO {
	return &SnapshotDTO{
		Timestamp:       s.Timestamp(),
		ActiveSessions:  s.ActiveSessions(),
		SessionsStarted: s.SessionsStarted(),
		SessionsEnded:   s.SessionsEnded(),
	}
}

// ToSnapshotDTOs сохраняет порядок входного слайса
func ToSnapshotDTOs(snapshots []entity.Snapshot) []*SnapshotDTO {
	dtos := make([]*SnapshotDTO, len(snapshots))
	for i, s := range snapshots {
		dtos[i] = FromSnapshot(s)
	}
	return dtos
}

// DeploymentWindowDTO - рекомендованное окно деплоя
type DeploymentWindowDTO struct {
	StartTime             time.Time `json:"startTime"`
	EndTime               time.Time `json:"endTime"`
	MaxActiveSessions     int       `json:"maxActiveSessions"`
	AverageActiveSessions float64   `json:"averageActiveSessions"`
	ZeroSessionsWindow    bool      `json:"zeroSessionsWindow"`
}

// ToDeploymentWindowDTOs конвертирует окна, сохраняя ранжирование
func ToDeploymentWindowDTOs(windows []valueobject.DeploymentWindow) []*DeploymentWindowDTO {
	dtos := make([]*DeploymentWindowDTO, len(windows))
	for i, w := range windows {
		dtos[i] = &DeploymentWindowDTO{
			StartTime:             w.StartTime(),
			EndTime:               w.EndTime(),
			MaxActiveSessions:     w.MaxActiveSessions(),
			AverageActiveSessions: w.AverageActiveSessions(),
			ZeroSessionsWindow:    w.ZeroSessionsWindow(),
		}
	}
	return dtos
}

// ActiveSessionsDTO - список открытых сессий
type ActiveSessionsDTO struct {
	ActiveCircuits []string `json:"activeCircuits"`
	Count          int      `json:"count"`
}

// HasActiveSessionsDTO - ответ на вопрос "есть ли активные сессии"
type HasActiveSessionsDTO struct {
	HasActiveSessions bool `json:"hasActiveSessions"`
}

// CanDeployDTO - результат проверки готовности к деплою
type CanDeployDTO struct {
	CanDeploy             bool      `json:"canDeploy"`
	CurrentActiveSessions int       `json:"currentActiveSessions"`
	Threshold             int       `json:"threshold"`
	Timestamp             time.Time `json:"timestamp"`
}
