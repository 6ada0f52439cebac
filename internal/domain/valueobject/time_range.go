package valueobject

import (
	"errors"
	"time"
)

// TimeRange представляет полуоткрытый временной интервал [start, end) (Value Object)
type TimeRange struct {
	start time.Time
	end   time.Time
}

// NewTimeRange создает новый TimeRange с валидацией
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() {
		return TimeRange{}, errors.New("start and end times cannot be zero")
	}

	if start.After(end) {
		return TimeRange{}, errors.New("start time must be before end time")
	}

	return TimeRange{start: start, end: end}, nil
}

// NewLookbackRange возвращает интервал длиной lookback, заканчивающийся в now
func NewLookbackRange(now time.Time, lookback time.Duration) (TimeRange, error) {
	if lookback <= 0 {
		return TimeRange{}, errors.New("lookback must be positive")
	}
	return NewTimeRange(now.Add(-lookback), now)
}

// Start возвращает начальное время
func (tr TimeRange) Start() time.Time {
	return tr.start
}

// End возвращает конечное время (не входит в интервал)
func (tr TimeRange) End() time.Time {
	return tr.end
}

// Duration возвращает длительность диапазона
func (tr TimeRange) Duration() time.Duration {
	return tr.end.Sub(tr.start)
}

// Contains проверяет start <= t < end
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.start) && t.Before(tr.end)
}

// Overlaps проверяет, пересекаются ли два временных диапазона
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.start.Before(other.end) && other.start.Before(tr.end)
}
