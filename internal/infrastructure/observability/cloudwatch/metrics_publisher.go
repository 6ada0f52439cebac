package cloudwatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/session-monitor/internal/application/dto"
)

const (
	// CloudWatch limits
	maxMetricsPerRequest = 1000
	maxRetries           = 3
	initialBackoff       = 100 * time.Millisecond
)

// Metric names published for every session report.
const (
	MetricActiveSessions         = "ActiveSessions"
	MetricPeakSessions           = "PeakSessions"
	MetricTotalSessionsStarted   = "TotalSessionsStarted"
	MetricTotalSessionsEnded     = "TotalSessionsEnded"
	MetricAverageSessionDuration = "AverageSessionDuration"
	MetricHostCPU                = "HostCPU"
	MetricHostMemory             = "HostMemory"
	MetricSubscribers            = "Subscribers"
)

// MetricsPublisherConfig holds configuration for CloudWatch metrics publishing.
type MetricsPublisherConfig struct {
	Namespace         string            // CloudWatch namespace (e.g., "SessionMonitor")
	Region            string            // AWS region (e.g., "us-east-1")
	Endpoint          string            // Optional endpoint override (for LocalStack)
	AccessKeyID       string            // AWS access key
	SecretAccessKey   string            // AWS secret key
	DefaultDimensions map[string]string // Default dimensions added to all metrics
	BufferSize        int               // Buffer size (data points) before auto-flush
	FlushInterval     time.Duration     // Automatic flush interval
	StorageResolution int32             // Storage resolution in seconds (1 or 60)
	OnFlushError      func(error)       // Optional hook for background flush failures
}

// MetricsPublisher publishes session report data points to AWS CloudWatch.
// Implements port.MetricsPublisher.
type MetricsPublisher struct {
	client            *cloudwatch.Client
	namespace         string
	defaultDimensions map[string]string
	storageResolution int32
	onFlushError      func(error)

	buffer     []types.MetricDatum
	bufferSize int
	mu         sync.Mutex

	flushTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// metricPoint is a single value extracted from a report before conversion.
type metricPoint struct {
	name  string
	value float64
	unit  string
}

// NewMetricsPublisher creates a new CloudWatch metrics publisher.
func NewMetricsPublisher(ctx context.Context, cfg MetricsPublisherConfig) (*MetricsPublisher, error) {
	if err := normalizeMetricsConfig(&cfg); err != nil {
		return nil, err
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	p := &MetricsPublisher{
		client:            cloudwatch.NewFromConfig(awsCfg),
		namespace:         cfg.Namespace,
		defaultDimensions: cfg.DefaultDimensions,
		storageResolution: cfg.StorageResolution,
		onFlushError:      cfg.OnFlushError,
		buffer:            make([]types.MetricDatum, 0, cfg.BufferSize),
		bufferSize:        cfg.BufferSize,
		flushTicker:       time.NewTicker(cfg.FlushInterval),
		stopCh:            make(chan struct{}),
	}

	p.wg.Add(1)
	go p.flushLoop()

	return p, nil
}

// normalizeMetricsConfig validates required fields and applies defaults.
func normalizeMetricsConfig(cfg *MetricsPublisherConfig) error {
	if cfg.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if cfg.Region == "" {
		return fmt.Errorf("region is required")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.StorageResolution != 1 && cfg.StorageResolution != 60 {
		cfg.StorageResolution = 60
	}
	return nil
}

// PublishReport buffers the data points of one session report.
func (p *MetricsPublisher) PublishReport(ctx context.Context, report *dto.SessionReportDTO) error {
	if report == nil || report.Metrics == nil {
		return fmt.Errorf("report cannot be nil")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, point := range reportPoints(report) {
		p.buffer = append(p.buffer, p.convertToDatum(point, report.Timestamp))
	}

	if len(p.buffer) >= p.bufferSize {
		if err := p.flushBufferUnsafe(ctx); err != nil {
			return fmt.Errorf("failed to flush buffer: %w", err)
		}
	}

	return nil
}

// Flush forces immediate publication of all buffered data points.
func (p *MetricsPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.flushBufferUnsafe(ctx)
}

// Close stops the background flush goroutine and flushes remaining data points.
func (p *MetricsPublisher) Close(ctx context.Context) error {
	close(p.stopCh)
	p.flushTicker.Stop()
	p.wg.Wait()

	return p.Flush(ctx)
}

func (p *MetricsPublisher) flushLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := p.Flush(ctx); err != nil && p.onFlushError != nil {
				p.onFlushError(err)
			}
			cancel()
		case <-p.stopCh:
			return
		}
	}
}

// flushBufferUnsafe flushes the buffer without locking (caller must hold lock).
// On failure the buffer is kept so the next flush retries the same points.
func (p *MetricsPublisher) flushBufferUnsafe(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}

	for i := 0; i < len(p.buffer); i += maxMetricsPerRequest {
		end := i + maxMetricsPerRequest
		if end > len(p.buffer) {
			end = len(p.buffer)
		}

		if err := p.publishBatchWithRetry(ctx, p.buffer[i:end]); err != nil {
			p.buffer = append(p.buffer[:0], p.buffer[i:]...)
			return fmt.Errorf("failed to publish chunk: %w", err)
		}
	}

	p.buffer = p.buffer[:0]
	return nil
}

// publishBatchWithRetry publishes a batch of data points with exponential backoff retry.
func (p *MetricsPublisher) publishBatchWithRetry(ctx context.Context, data []types.MetricDatum) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: data,
		})
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt < maxRetries-1 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// reportPoints extracts data points from a report. The average duration is
// skipped while no session has completed yet.
func reportPoints(report *dto.SessionReportDTO) []metricPoint {
	m := report.Metrics
	points := []metricPoint{
		{name: MetricActiveSessions, value: float64(m.ActiveSessions), unit: "count"},
		{name: MetricPeakSessions, value: float64(m.PeakSessions), unit: "count"},
		{name: MetricTotalSessionsStarted, value: float64(m.TotalSessionsStarted), unit: "count"},
		{name: MetricTotalSessionsEnded, value: float64(m.TotalSessionsEnded), unit: "count"},
		{name: MetricSubscribers, value: float64(report.Subscribers), unit: "count"},
	}

	if m.AverageSessionDurationSeconds != nil {
		points = append(points, metricPoint{
			name:  MetricAverageSessionDuration,
			value: *m.AverageSessionDurationSeconds,
			unit:  "s",
		})
	}

	if report.Host != nil {
		points = append(points,
			metricPoint{name: MetricHostCPU, value: report.Host.CPUPercent, unit: "%"},
			metricPoint{name: MetricHostMemory, value: report.Host.MemoryPercent, unit: "%"},
		)
	}

	return points
}

// convertToDatum converts a data point to CloudWatch MetricDatum.
func (p *MetricsPublisher) convertToDatum(point metricPoint, timestamp time.Time) types.MetricDatum {
	dimensions := make([]types.Dimension, 0, len(p.defaultDimensions))
	for key, value := range p.defaultDimensions {
		dimensions = append(dimensions, types.Dimension{
			Name:  aws.String(key),
			Value: aws.String(value),
		})
	}

	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	datum := types.MetricDatum{
		MetricName: aws.String(point.name),
		Value:      aws.Float64(point.value),
		Unit:       mapUnit(point.unit),
		Timestamp:  aws.Time(timestamp),
		Dimensions: dimensions,
	}

	if p.storageResolution > 0 {
		datum.StorageResolution = aws.Int32(p.storageResolution)
	}

	return datum
}

// mapUnit maps units to CloudWatch StandardUnit.
func mapUnit(unit string) types.StandardUnit {
	switch unit {
	case "%":
		return types.StandardUnitPercent
	case "ms":
		return types.StandardUnitMilliseconds
	case "s":
		return types.StandardUnitSeconds
	case "count":
		return types.StandardUnitCount
	default:
		return types.StandardUnitNone
	}
}

// buildAWSConfig creates an AWS config with credentials.
func buildAWSConfig(ctx context.Context, region, endpoint, accessKeyID, secretAccessKey string) (aws.Config, error) {
	optFns := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if accessKeyID != "" && secretAccessKey != "" {
		optFns = append(optFns, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, err
	}

	// Override endpoint if specified (for LocalStack testing)
	if endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}

	return cfg, nil
}
