package service

import (
	"sync"
	"testing"
	"time"

	"github.com/dreschagin/session-monitor/internal/domain/entity"
)

func TestSnapshotStoreQueryMostRecentFirst(t *testing.T) {
	store := NewSnapshotStore(10)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		store.Append(entity.NewSnapshot(base.Add(time.Duration(i)*time.Minute), i, 0, 0))
	}

	got := store.Query(nil, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(got))
	}
	for i, want := range []int{2, 1, 0} {
		if got[i].ActiveSessions() != want {
			t.Fatalf("position %d: expected %d, got %d", i, want, got[i].ActiveSessions())
		}
	}
}

func TestSnapshotStoreQueryFilters(t *testing.T) {
	store := NewSnapshotStore(10)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		store.Append(entity.NewSnapshot(base.Add(time.Duration(i)*time.Minute), i, 0, 0))
	}

	since := base.Add(2 * time.Minute)
	tests := []struct {
		name     string
		since    *time.Time
		maxCount int
		want     []int
	}{
		{name: "since inclusive", since: &since, maxCount: 10, want: []int{5, 4, 3, 2}},
		{name: "max count limits newest", since: nil, maxCount: 2, want: []int{5, 4}},
		{name: "both filters", since: &since, maxCount: 3, want: []int{5, 4, 3}},
		{name: "zero max count", since: nil, maxCount: 0, want: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := store.Query(tt.since, tt.maxCount)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d snapshots, got %d", len(tt.want), len(got))
			}
			for i, want := range tt.want {
				if got[i].ActiveSessions() != want {
					t.Fatalf("position %d: expected %d, got %d", i, want, got[i].ActiveSessions())
				}
			}
		})
	}
}

func TestSnapshotStoreEvictsOldest(t *testing.T) {
	store := NewSnapshotStore(DefaultSnapshotCapacity)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i <= DefaultSnapshotCapacity; i++ {
		store.Append(entity.NewSnapshot(base.Add(time.Duration(i)*time.Second), i, 0, 0))
	}

	if store.Len() != DefaultSnapshotCapacity {
		t.Fatalf("expected %d retained, got %d", DefaultSnapshotCapacity, store.Len())
	}

	all := store.Since(time.Time{})
	if all[0].ActiveSessions() != 1 {
		t.Fatalf("oldest retained must be #1, got #%d", all[0].ActiveSessions())
	}
	latest, ok := store.Latest()
	if !ok || latest.ActiveSessions() != DefaultSnapshotCapacity {
		t.Fatalf("unexpected latest: %+v", latest)
	}
}

func TestSnapshotStoreSinceAscending(t *testing.T) {
	store := NewSnapshotStore(4)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		store.Append(entity.NewSnapshot(base.Add(time.Duration(i)*time.Minute), i, 0, 0))
	}

	got := store.Since(base.Add(3 * time.Minute))
	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %d, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ActiveSessions() != want[i] {
			t.Fatalf("position %d: expected %d, got %d", i, want[i], got[i].ActiveSessions())
		}
	}
}

func TestSnapshotStoreConcurrentAppend(t *testing.T) {
	store := NewSnapshotStore(100)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				store.Append(entity.NewSnapshot(time.Now(), i, 0, 0))
				_ = store.Query(nil, 10)
			}
		}()
	}
	wg.Wait()

	if store.Len() != 100 {
		t.Fatalf("expected full buffer, got %d", store.Len())
	}
}
