package dto

import "time"

// HostStatsDTO - нагрузка на хост
type HostStatsDTO struct {
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryPercent float64 `json:"memoryPercent"`
	Goroutines    int     `json:"goroutines"`
}

// SessionReportDTO - периодический отчет, рассылается через WebSocket и NATS
type SessionReportDTO struct {
	Timestamp   time.Time          `json:"timestamp"`
	Metrics     *CurrentMetricsDTO `json:"metrics"`
	Host        *HostStatsDTO      `json:"host,omitempty"`
	Subscribers int                `json:"subscribers"`
	Status      string             `json:"status"` // "idle", "busy"
}

const (
	StatusIdle = "idle"
	StatusBusy = "busy"
)

// AlertDTO - уведомление о смене состояния
type AlertDTO struct {
	Timestamp      time.Time `json:"timestamp"`
	Level          string    `json:"level"` // "info", "warning"
	Status         string    `json:"status"`
	ActiveSessions int       `json:"activeSessions"`
	Message        string    `json:"message"`
}

// DeployCheckEventDTO публикуется в NATS после каждой проверки деплоя
type DeployCheckEventDTO struct {
	ID        string        `json:"id"`
	Requester string        `json:"requester"`
	Result    *CanDeployDTO `json:"result"`
}

// DeployAuditDTO - запись журнала проверок
type DeployAuditDTO struct {
	ID             string    `json:"id"`
	Requester      string    `json:"requester"`
	CanDeploy      bool      `json:"canDeploy"`
	ActiveSessions int       `json:"activeSessions"`
	Threshold      int       `json:"threshold"`
	CheckedAt      time.Time `json:"checkedAt"`
}

// HistoryExportDTO - результат выгрузки истории в объектное хранилище
type HistoryExportDTO struct {
	Key        string    `json:"key"`
	URL        string    `json:"url"`
	Snapshots  int       `json:"snapshots"`
	ExportedAt time.Time `json:"exportedAt"`
}

// HistoryExportDocument - формат выгружаемого файла
type HistoryExportDocument struct {
	ExportedAt time.Time          `json:"exportedAt"`
	Metrics    *CurrentMetricsDTO `json:"metrics"`
	Snapshots  []*SnapshotDTO     `json:"snapshots"`
}
