package collector

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/dreschagin/session-monitor/internal/application/port"
)

// HostStatsCollector собирает нагрузку на хост для отчетов о сессиях
// Реализует интерфейс port.HostStatsCollector
type HostStatsCollector struct {
	cpuCollector    *CPUCollector
	memoryCollector *MemoryCollector
}

// NewHostStatsCollector создает новый collector
func NewHostStatsCollector() *HostStatsCollector {
	return &HostStatsCollector{
		cpuCollector:    NewCPUCollector(),
		memoryCollector: NewMemoryCollector(),
	}
}

// Collect собирает CPU и память параллельно.
// Ошибка возвращается, только если не удалось получить ни одного значения.
func (c *HostStatsCollector) Collect(ctx context.Context) (port.HostStats, error) {
	stats := port.HostStats{Goroutines: runtime.NumGoroutine()}

	var wg sync.WaitGroup
	var cpuErr, memErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		stats.CPUPercent, cpuErr = c.cpuCollector.Percent(ctx)
	}()
	go func() {
		defer wg.Done()
		stats.MemoryPercent, memErr = c.memoryCollector.Percent(ctx)
	}()
	wg.Wait()

	if cpuErr != nil && memErr != nil {
		return stats, fmt.Errorf("failed to collect host stats: cpu: %v, memory: %w", cpuErr, memErr)
	}
	return stats, nil
}
