package service

import (
	"sync"
	"time"

	"github.com/dreschagin/session-monitor/internal/domain/entity"
)

// DefaultSnapshotCapacity - сколько снимков хранится до вытеснения самых старых
const DefaultSnapshotCapacity = 10000

// SnapshotStore - кольцевой буфер снимков фиксированной емкости (FIFO).
// Читатели копируют данные под RLock и не держат блокировку во время обработки.
type SnapshotStore struct {
	mu    sync.RWMutex
	buf   []entity.Snapshot
	head  int // индекс самого старого снимка
	count int
}

// NewSnapshotStore создает хранилище; capacity <= 0 заменяется на DefaultSnapshotCapacity
func NewSnapshotStore(capacity int) *SnapshotStore {
	if capacity <= 0 {
		capacity = DefaultSnapshotCapacity
	}
	return &SnapshotStore{
		buf: make([]entity.Snapshot, capacity),
	}
}

// Append добавляет снимок в хвост, вытесняя самый старый при переполнении
func (s *SnapshotStore) Append(snapshot entity.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	capacity := len(s.buf)
	if s.count < capacity {
		s.buf[(s.head+s.count)%capacity] = snapshot
		s.count++
		return
	}

	s.buf[s.head] = snapshot
	s.head = (s.head + 1) % capacity
}

// Query возвращает до maxCount снимков с timestamp >= since, от новых к старым.
// since == nil означает "без фильтра по времени"; maxCount <= 0 - пустой результат.
func (s *SnapshotStore) Query(since *time.Time, maxCount int) []entity.Snapshot {
	if maxCount <= 0 {
		return []entity.Snapshot{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := maxCount
	if limit > s.count {
		limit = s.count
	}
	result := make([]entity.Snapshot, 0, limit)

	capacity := len(s.buf)
	for i := s.count - 1; i >= 0 && len(result) < maxCount; i-- {
		snap := s.buf[(s.head+i)%capacity]
		if since != nil && snap.Timestamp().Before(*since) {
			continue
		}
		result = append(result, snap)
	}

	return result
}

// Since возвращает снимки с timestamp >= cutoff в порядке добавления (от старых к новым)
func (s *SnapshotStore) Since(cutoff time.Time) []entity.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]entity.Snapshot, 0, s.count)
	capacity := len(s.buf)
	for i := 0; i < s.count; i++ {
		snap := s.buf[(s.head+i)%capacity]
		if snap.Timestamp().Before(cutoff) {
			continue
		}
		result = append(result, snap)
	}
	return result
}

// Latest возвращает последний снимок
func (s *SnapshotStore) Latest() (entity.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.count == 0 {
		return entity.Snapshot{}, false
	}
	return s.buf[(s.head+s.count-1)%len(s.buf)], true
}

// Len возвращает число хранимых снимков
func (s *SnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Capacity возвращает емкость буфера
func (s *SnapshotStore) Capacity() int {
	return len(s.buf)
}
