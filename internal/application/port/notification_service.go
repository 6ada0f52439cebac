package port

import "github.com/dreschagin/session-monitor/internal/application/dto"

// NotificationService рассылает отчеты подключенным клиентам (Port)
// Реализация - WebSocket Hub
type NotificationService interface {
	// Broadcast отправляет отчет о сессиях всем подписчикам
	Broadcast(report *dto.SessionReportDTO)

	// BroadcastAlert отправляет уведомление о смене состояния (idle/busy)
	BroadcastAlert(alert *dto.AlertDTO)

	// ClientCount возвращает количество подключенных клиентов
	ClientCount() int
}
