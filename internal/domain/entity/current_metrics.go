package entity

import "time"

// CurrentMetrics - срез живого состояния трекера на момент запроса.
// Не хранится, вычисляется при каждом обращении.
type CurrentMetrics struct {
	ActiveSessions       int
	Timestamp            time.Time
	PeakSessions         int
	TotalSessionsStarted int64
	TotalSessionsEnded   int64

	// AverageSessionDuration равен nil, пока ни одна сессия не закрылась.
	AverageSessionDuration *time.Duration
}

// HasActiveSessions сообщает, есть ли открытые сессии
func (m CurrentMetrics) HasActiveSessions() bool {
	return m.ActiveSessions > 0
}
