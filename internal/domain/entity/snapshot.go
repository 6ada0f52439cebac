package entity

import "time"

// Snapshot фиксирует количество активных сессий в момент времени.
// После создания не изменяется.
type Snapshot struct {
	sequence        uint64
	timestamp       time.Time
	activeSessions  int
	sessionsStarted int
	sessionsEnded   int
}

// NewSnapshot создает снимок.
// sessionsStarted и sessionsEnded содержат число открытий и закрытий с предыдущего снимка.
func NewSnapshot(timestamp time.Time, activeSessions, sessionsStarted, sessionsEnded int) Snapshot {
	return Snapshot{
		timestamp:       timestamp,
		activeSessions:  activeSessions,
		sessionsStarted: sessionsStarted,
		sessionsEnded:   sessionsEnded,
	}
}

// WithSequence возвращает копию снимка с порядковым номером.
// Номер монотонно растет в пределах процесса и различает снимки с одинаковым временем.
func (s Snapshot) WithSequence(sequence uint64) Snapshot {
	s.sequence = sequence
	return s
}

// Sequence возвращает порядковый номер снимка; 0 - номер не присвоен
func (s Snapshot) Sequence() uint64 {
	return s.sequence
}

// Timestamp возвращает время снимка
func (s Snapshot) Timestamp() time.Time {
	return s.timestamp
}

// ActiveSessions возвращает число активных сессий
func (s Snapshot) ActiveSessions() int {
	return s.activeSessions
}

// SessionsStarted возвращает число открытых сессий с предыдущего снимка
func (s Snapshot) SessionsStarted() int {
	return s.sessionsStarted
}

// SessionsEnded возвращает число закрытых сессий с предыдущего снимка
func (s Snapshot) SessionsEnded() int {
	return s.sessionsEnded
}
