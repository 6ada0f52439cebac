package entity

import "time"

// Session представляет открытое клиентское соединение (circuit).
// Живет только в реестре сессий, наружу не отдается.
type Session struct {
	id       string
	openedAt time.Time
}

// NewSession создает сессию с моментом открытия
func NewSession(id string, openedAt time.Time) Session {
	return Session{id: id, openedAt: openedAt}
}

// ID возвращает идентификатор сессии
func (s Session) ID() string {
	return s.id
}

// OpenedAt возвращает момент открытия
func (s Session) OpenedAt() time.Time {
	return s.openedAt
}

// DurationUntil возвращает длительность сессии до указанного момента.
// Отрицательные значения (скачок часов назад) приводятся к нулю.
func (s Session) DurationUntil(closedAt time.Time) time.Duration {
	d := closedAt.Sub(s.openedAt)
	if d < 0 {
		return 0
	}
	return d
}
