package service

import (
	"sort"
	"sync"
	"time"

	"github.com/dreschagin/session-monitor/internal/domain/entity"
)

// SnapshotInterval - максимальный интервал между снимками при неизменном числе сессий
const SnapshotInterval = time.Minute

// SessionTracker принимает события жизненного цикла сессий, ведет реестр
// и пишет снимки в историю по правилу: изменилось число активных сессий
// или с последнего снимка прошло SnapshotInterval.
type SessionTracker struct {
	registry *SessionRegistry
	store    *SnapshotStore
	now      func() time.Time

	// mu упорядочивает мутацию реестра и запись снимка, чтобы снимки шли в порядке событий
	mu             sync.Mutex
	lastSnapshot   time.Time
	lastActive     int
	hasSnapshot    bool
	pendingStarted int
	pendingEnded   int
	sequence       uint64
}

// TrackerOption настраивает SessionTracker
type TrackerOption func(*SessionTracker)

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) TrackerOption {
	return func(t *SessionTracker) {
		t.now = now
	}
}

// NewSessionTracker создает трекер поверх реестра и хранилища снимков
func NewSessionTracker(registry *SessionRegistry, store *SnapshotStore, opts ...TrackerOption) *SessionTracker {
	t := &SessionTracker{
		registry: registry,
		store:    store,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnOpened обрабатывает открытие сессии. Повторное открытие игнорируется.
func (t *SessionTracker) OnOpened(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.registry.Open(sessionID, now) {
		t.pendingStarted++
	}
	t.maybeSnapshot(now, false)
}

// OnClosed обрабатывает закрытие сессии. Неизвестный id - no-op для счетчиков.
func (t *SessionTracker) OnClosed(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if _, ok := t.registry.Close(sessionID, now); ok {
		t.pendingEnded++
	}
	t.maybeSnapshot(now, false)
}

// Heartbeat пишет снимок, если с последнего прошло SnapshotInterval.
// Вызывается по таймеру, чтобы периоды без событий тоже попадали в историю.
func (t *SessionTracker) Heartbeat() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.maybeSnapshot(t.now(), true)
}

// maybeSnapshot вызывается под t.mu
func (t *SessionTracker) maybeSnapshot(now time.Time, timeOnly bool) {
	active := t.registry.ActiveCount()

	due := !t.hasSnapshot || now.Sub(t.lastSnapshot) >= SnapshotInterval
	changed := t.hasSnapshot && active != t.lastActive
	if !due && (timeOnly || !changed) {
		return
	}

	t.sequence++
	t.store.Append(entity.NewSnapshot(now, active, t.pendingStarted, t.pendingEnded).WithSequence(t.sequence))
	t.lastSnapshot = now
	t.lastActive = active
	t.hasSnapshot = true
	t.pendingStarted = 0
	t.pendingEnded = 0
}

// CurrentMetrics возвращает живые метрики без записи снимка
func (t *SessionTracker) CurrentMetrics() entity.CurrentMetrics {
	state := t.registry.State()

	metrics := entity.CurrentMetrics{
		ActiveSessions:       state.ActiveSessions,
		Timestamp:            t.now(),
		PeakSessions:         state.PeakSessions,
		TotalSessionsStarted: state.TotalSessionsStarted,
		TotalSessionsEnded:   state.TotalSessionsEnded,
	}
	if avg, ok := state.AverageDuration(); ok {
		metrics.AverageSessionDuration = &avg
	}
	return metrics
}

// ActiveSessionIDs возвращает копию списка открытых сессий
func (t *SessionTracker) ActiveSessionIDs() []string {
	return t.registry.ActiveIDs()
}

// History возвращает до maxCount снимков не старше since, от новых к старым
func (t *SessionTracker) History(since *time.Time, maxCount int) []entity.Snapshot {
	return t.store.Query(since, maxCount)
}

// Recent возвращает снимки за последние lookback в хронологическом порядке
func (t *SessionTracker) Recent(lookback time.Duration) []entity.Snapshot {
	return t.store.Since(t.now().Add(-lookback))
}

// SnapshotsAfter возвращает снимки с номером больше after в порядке записи.
// Номер, а не время: в шторм событий несколько снимков получают одно и то же время.
func (t *SessionTracker) SnapshotsAfter(after uint64) []entity.Snapshot {
	snaps := t.store.Since(time.Time{})
	i := sort.Search(len(snaps), func(i int) bool {
		return snaps[i].Sequence() > after
	})
	return snaps[i:]
}

// HistoryCapacity возвращает емкость истории
func (t *SessionTracker) HistoryCapacity() int {
	return t.store.Capacity()
}

// HistoryLen возвращает число снимков в истории
func (t *SessionTracker) HistoryLen() int {
	return t.store.Len()
}

// Now возвращает текущее время трекера
func (t *SessionTracker) Now() time.Time {
	return t.now()
}
