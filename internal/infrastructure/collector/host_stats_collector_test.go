package collector

import (
	"context"
	"testing"
)

func TestHostStatsCollectorCollect(t *testing.T) {
	stats, err := NewHostStatsCollector().Collect(context.Background())
	if err != nil {
		t.Skipf("host stats unavailable in this environment: %v", err)
	}

	if stats.Goroutines <= 0 {
		t.Fatalf("expected positive goroutine count, got %d", stats.Goroutines)
	}
	if stats.MemoryPercent < 0 || stats.MemoryPercent > 100 {
		t.Fatalf("memory percent out of range: %f", stats.MemoryPercent)
	}
	if stats.CPUPercent < 0 {
		t.Fatalf("cpu percent must not be negative: %f", stats.CPUPercent)
	}
}
