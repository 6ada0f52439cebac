package port

import (
	"context"

	"github.com/dreschagin/session-monitor/internal/application/dto"
)

// MetricsPublisher defines the interface for shipping session metrics to an external
// observability platform (CloudWatch).
type MetricsPublisher interface {
	// PublishReport buffers the gauges and counters of one session report.
	PublishReport(ctx context.Context, report *dto.SessionReportDTO) error

	// Flush forces immediate publication of any buffered data points.
	// Should be called during graceful shutdown to prevent data loss.
	Flush(ctx context.Context) error
}
