package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
)

// CPUCollector собирает загрузку CPU
type CPUCollector struct{}

// NewCPUCollector создает новый CPU collector
func NewCPUCollector() *CPUCollector {
	return &CPUCollector{}
}

// Percent возвращает общую загрузку CPU.
// Интервал 0: gopsutil считает загрузку с момента предыдущего вызова, отчет не блокируется.
func (c *CPUCollector) Percent(ctx context.Context) (float64, error) {
	percentages, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(percentages) == 0 {
		return 0, nil
	}
	return percentages[0], nil
}
