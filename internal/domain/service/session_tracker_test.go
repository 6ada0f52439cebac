package service

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker(clock *fakeClock) *SessionTracker {
	return NewSessionTracker(NewSessionRegistry(), NewSnapshotStore(0), WithClock(clock.Now))
}

func TestSessionTrackerEndToEndScenario(t *testing.T) {
	clock := newFakeClock()
	tracker := newTestTracker(clock)

	tracker.OnOpened("s1")
	tracker.OnOpened("s2")
	m := tracker.CurrentMetrics()
	if m.ActiveSessions != 2 || m.PeakSessions != 2 {
		t.Fatalf("after two opens: %+v", m)
	}

	clock.Advance(10 * time.Second)
	tracker.OnClosed("s1")
	if m = tracker.CurrentMetrics(); m.ActiveSessions != 1 {
		t.Fatalf("after closing s1: %+v", m)
	}

	tracker.OnOpened("s3")
	m = tracker.CurrentMetrics()
	if m.ActiveSessions != 2 || m.PeakSessions != 2 {
		t.Fatalf("after opening s3: %+v", m)
	}

	clock.Advance(20 * time.Second)
	tracker.OnClosed("s2")
	tracker.OnClosed("s3")

	m = tracker.CurrentMetrics()
	if m.ActiveSessions != 0 || m.TotalSessionsStarted != 3 || m.TotalSessionsEnded != 3 {
		t.Fatalf("final state: %+v", m)
	}
	if m.AverageSessionDuration == nil {
		t.Fatal("average duration must be present once sessions closed")
	}
	// s1: 10s, s2: 30s, s3: 20s
	if *m.AverageSessionDuration != 20*time.Second {
		t.Fatalf("expected 20s average, got %s", *m.AverageSessionDuration)
	}
}

func TestSessionTrackerAverageAbsentInitially(t *testing.T) {
	tracker := newTestTracker(newFakeClock())
	tracker.OnOpened("a")

	if m := tracker.CurrentMetrics(); m.AverageSessionDuration != nil {
		t.Fatalf("expected absent average, got %s", *m.AverageSessionDuration)
	}
}

func TestSessionTrackerSnapshotPolicy(t *testing.T) {
	clock := newFakeClock()
	tracker := newTestTracker(clock)

	tracker.OnOpened("a") // первый снимок
	tracker.OnOpened("a") // дубль: число не изменилось, интервал не прошел
	if got := len(tracker.History(nil, 100)); got != 1 {
		t.Fatalf("expected 1 snapshot, got %d", got)
	}

	clock.Advance(5 * time.Second)
	tracker.OnOpened("b") // изменилось число
	tracker.OnClosed("unknown")
	if got := len(tracker.History(nil, 100)); got != 2 {
		t.Fatalf("expected 2 snapshots, got %d", got)
	}

	clock.Advance(30 * time.Second)
	tracker.Heartbeat()
	if got := len(tracker.History(nil, 100)); got != 2 {
		t.Fatalf("heartbeat before interval must not write, got %d", got)
	}

	clock.Advance(30 * time.Second)
	tracker.Heartbeat()
	history := tracker.History(nil, 100)
	if len(history) != 3 {
		t.Fatalf("heartbeat after interval must write, got %d", len(history))
	}
	if history[0].ActiveSessions() != 2 {
		t.Fatalf("latest snapshot must carry current count, got %d", history[0].ActiveSessions())
	}
}

func TestSessionTrackerSnapshotDeltas(t *testing.T) {
	clock := newFakeClock()
	tracker := newTestTracker(clock)

	tracker.OnOpened("a")
	tracker.OnOpened("b")
	tracker.OnClosed("a")
	tracker.OnClosed("a") // дубль
	tracker.OnOpened("c")

	clock.Advance(time.Minute)
	tracker.Heartbeat()

	history := tracker.History(nil, 10)
	if len(history) != 5 {
		t.Fatalf("expected 5 snapshots, got %d", len(history))
	}
	last := history[0]
	if last.SessionsStarted() != 0 || last.SessionsEnded() != 0 {
		t.Fatalf("heartbeat snapshot must carry zero deltas: started=%d ended=%d",
			last.SessionsStarted(), last.SessionsEnded())
	}
	if closeSnap := history[2]; closeSnap.SessionsEnded() != 1 || closeSnap.SessionsStarted() != 0 {
		t.Fatalf("unexpected deltas in close snapshot: started=%d ended=%d",
			closeSnap.SessionsStarted(), closeSnap.SessionsEnded())
	}

	var started, ended int
	for _, s := range history {
		started += s.SessionsStarted()
		ended += s.SessionsEnded()
	}
	if started != 3 || ended != 1 {
		t.Fatalf("deltas must add up to totals: started=%d ended=%d", started, ended)
	}
}

func TestSessionTrackerCurrentMetricsHasNoSideEffects(t *testing.T) {
	clock := newFakeClock()
	tracker := newTestTracker(clock)
	tracker.OnOpened("a")

	clock.Advance(2 * time.Minute)
	for i := 0; i < 5; i++ {
		tracker.CurrentMetrics()
	}

	if got := len(tracker.History(nil, 100)); got != 1 {
		t.Fatalf("reads must not write snapshots, got %d", got)
	}
}

func TestSessionTrackerActiveSessionIDs(t *testing.T) {
	tracker := newTestTracker(newFakeClock())
	tracker.OnOpened("x")
	tracker.OnOpened("y")

	ids := tracker.ActiveSessionIDs()
	ids[0] = "corrupted"

	ids = tracker.ActiveSessionIDs()
	if len(ids) != 2 || ids[0] != "x" || ids[1] != "y" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestSessionTrackerConcurrentStress(t *testing.T) {
	const (
		workers = 32
		pairs   = 200
	)
	tracker := NewSessionTracker(NewSessionRegistry(), NewSnapshotStore(0))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < pairs; i++ {
				id := fmt.Sprintf("%d/%d", w, i)
				tracker.OnOpened(id)
				tracker.OnClosed(id)
			}
		}(w)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			m := tracker.CurrentMetrics()
			if int64(m.ActiveSessions) != m.TotalSessionsStarted-m.TotalSessionsEnded {
				t.Errorf("torn metrics: %+v", m)
				return
			}
			tracker.History(nil, 50)
		}
	}()
	wg.Wait()

	m := tracker.CurrentMetrics()
	if m.TotalSessionsStarted != workers*pairs || m.TotalSessionsEnded != workers*pairs || m.ActiveSessions != 0 {
		t.Fatalf("unexpected final metrics: %+v", m)
	}
	if m.PeakSessions < 1 || m.PeakSessions > workers {
		t.Fatalf("peak out of range: %d", m.PeakSessions)
	}
}

func TestSessionTrackerSequencesSnapshotsWithEqualTimestamps(t *testing.T) {
	clock := newFakeClock()
	tracker := newTestTracker(clock)

	// часы стоят: все снимки получают одно время
	tracker.OnOpened("a")
	tracker.OnOpened("b")
	tracker.OnOpened("c")

	all := tracker.SnapshotsAfter(0)
	if len(all) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(all))
	}
	for i, s := range all {
		if s.Sequence() != uint64(i+1) {
			t.Fatalf("snapshot %d has sequence %d", i, s.Sequence())
		}
		if !s.Timestamp().Equal(all[0].Timestamp()) {
			t.Fatal("snapshots must share the timestamp in this scenario")
		}
	}

	rest := tracker.SnapshotsAfter(all[0].Sequence())
	if len(rest) != 2 || rest[0].ActiveSessions() != 2 || rest[1].ActiveSessions() != 3 {
		t.Fatalf("snapshots after the first one must include same-time successors: %d", len(rest))
	}
	if got := tracker.SnapshotsAfter(all[2].Sequence()); len(got) != 0 {
		t.Fatalf("expected nothing after the last snapshot, got %d", len(got))
	}
}
