package service

import (
	"sort"
	"sync"
	"time"

	"github.com/dreschagin/session-monitor/internal/domain/entity"
)

// RegistryState - согласованный срез счетчиков реестра.
type RegistryState struct {
	ActiveSessions       int
	PeakSessions         int
	TotalSessionsStarted int64
	TotalSessionsEnded   int64
	MeanClosedSeconds    float64
}

// SessionRegistry хранит открытые сессии и счетчики за время жизни процесса.
// Множество и счетчики защищены одним мьютексом, поэтому
// ActiveSessions == TotalSessionsStarted - TotalSessionsEnded при любом чтении.
type SessionRegistry struct {
	mu          sync.Mutex
	sessions    map[string]entity.Session
	started     int64
	ended       int64
	peak        int
	meanSeconds float64 // скользящее среднее длительности закрытых сессий
}

// NewSessionRegistry создает пустой реестр
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]entity.Session),
	}
}

// Open регистрирует сессию. Повторное открытие того же id ничего не меняет.
func (r *SessionRegistry) Open(sessionID string, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[sessionID]; exists {
		return false
	}

	r.sessions[sessionID] = entity.NewSession(sessionID, at)
	r.started++
	if active := len(r.sessions); active > r.peak {
		r.peak = active
	}
	return true
}

// Close снимает сессию с учета и возвращает ее длительность.
// Закрытие неизвестного id - no-op.
func (r *SessionRegistry) Close(sessionID string, at time.Time) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[sessionID]
	if !exists {
		return 0, false
	}

	delete(r.sessions, sessionID)
	duration := session.DurationUntil(at)
	r.ended++
	r.meanSeconds += (duration.Seconds() - r.meanSeconds) / float64(r.ended)
	return duration, true
}

// State возвращает счетчики, прочитанные под одной блокировкой
func (r *SessionRegistry) State() RegistryState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return RegistryState{
		ActiveSessions:       len(r.sessions),
		PeakSessions:         r.peak,
		TotalSessionsStarted: r.started,
		TotalSessionsEnded:   r.ended,
		MeanClosedSeconds:    r.meanSeconds,
	}
}

// ActiveCount возвращает число открытых сессий
func (r *SessionRegistry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ActiveIDs возвращает копию идентификаторов открытых сессий, отсортированную по id
func (r *SessionRegistry) ActiveIDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// AverageDuration возвращает среднюю длительность закрытых сессий
func (s RegistryState) AverageDuration() (time.Duration, bool) {
	if s.TotalSessionsEnded == 0 {
		return 0, false
	}
	return time.Duration(s.MeanClosedSeconds * float64(time.Second)), true
}
