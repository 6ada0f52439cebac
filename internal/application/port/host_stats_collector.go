package port

import "context"

// HostStats - нагрузка на хост в момент отчета
type HostStats struct {
	CPUPercent    float64
	MemoryPercent float64
	Goroutines    int
}

// HostStatsCollector собирает показатели хоста (Port)
type HostStatsCollector interface {
	Collect(ctx context.Context) (HostStats, error)
}
