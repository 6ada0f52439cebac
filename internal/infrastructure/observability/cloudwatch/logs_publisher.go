package cloudwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	applicationPort "github.com/dreschagin/session-monitor/internal/application/port"
)

const (
	// CloudWatch Logs limits
	maxLogEventsPerRequest = 10000
	maxLogEventSize        = 256000 // 256 KB

	// Entries beyond this are dropped (oldest first) while CloudWatch is unreachable.
	maxBufferedLogEntries = 5000
)

// LogsPublisherConfig holds configuration for CloudWatch logs publishing.
type LogsPublisherConfig struct {
	LogGroupName    string // CloudWatch log group name
	LogStreamName   string // CloudWatch log stream name
	Service         string // Added to every event as "service"
	Region          string // AWS region
	Endpoint        string // Optional endpoint override (for LocalStack)
	AccessKeyID     string // AWS access key
	SecretAccessKey string // AWS secret key
	BufferSize      int    // Entries that trigger an early flush
	FlushInterval   time.Duration
	AutoCreate      bool // Automatically create log group/stream if missing
}

// LogsPublisher ships log entries to AWS CloudWatch Logs.
// Implements port.LogPublisher. Publish never performs network I/O: the
// logger calls it on every line, so flushing happens in the background loop.
type LogsPublisher struct {
	client        *cloudwatchlogs.Client
	logGroupName  string
	logStreamName string
	service       string

	buffer     []applicationPort.LogEntry
	bufferSize int
	dropped    int
	mu         sync.Mutex

	// sendMu serialises PutLogEvents calls
	sendMu sync.Mutex

	flushCh     chan struct{}
	flushTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// NewLogsPublisher creates a new CloudWatch logs publisher.
func NewLogsPublisher(ctx context.Context, cfg LogsPublisherConfig) (*LogsPublisher, error) {
	if err := normalizeLogsConfig(&cfg); err != nil {
		return nil, err
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	p := newLogsPublisher(cloudwatchlogs.NewFromConfig(awsCfg), cfg)

	if cfg.AutoCreate {
		if err := p.ensureLogGroupAndStream(ctx); err != nil {
			return nil, fmt.Errorf("failed to create log group/stream: %w", err)
		}
	}

	p.flushTicker = time.NewTicker(cfg.FlushInterval)
	p.wg.Add(1)
	go p.flushLoop()

	return p, nil
}

func newLogsPublisher(client *cloudwatchlogs.Client, cfg LogsPublisherConfig) *LogsPublisher {
	return &LogsPublisher{
		client:        client,
		logGroupName:  cfg.LogGroupName,
		logStreamName: cfg.LogStreamName,
		service:       cfg.Service,
		buffer:        make([]applicationPort.LogEntry, 0, cfg.BufferSize),
		bufferSize:    cfg.BufferSize,
		flushCh:       make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
	}
}

func normalizeLogsConfig(cfg *LogsPublisherConfig) error {
	if cfg.LogGroupName == "" {
		return fmt.Errorf("log group name is required")
	}
	if cfg.LogStreamName == "" {
		return fmt.Errorf("log stream name is required")
	}
	if cfg.Region == "" {
		return fmt.Errorf("region is required")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	return nil
}

// Publish buffers a single log entry.
func (p *LogsPublisher) Publish(_ context.Context, entry applicationPort.LogEntry) error {
	p.mu.Lock()
	p.appendUnsafe(entry)
	full := len(p.buffer) >= p.bufferSize
	p.mu.Unlock()

	if full {
		p.requestFlush()
	}
	return nil
}

// PublishBatch buffers multiple log entries.
func (p *LogsPublisher) PublishBatch(_ context.Context, entries []applicationPort.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	p.mu.Lock()
	for _, entry := range entries {
		p.appendUnsafe(entry)
	}
	full := len(p.buffer) >= p.bufferSize
	p.mu.Unlock()

	if full {
		p.requestFlush()
	}
	return nil
}

func (p *LogsPublisher) appendUnsafe(entry applicationPort.LogEntry) {
	if len(p.buffer) >= maxBufferedLogEntries {
		p.buffer = append(p.buffer[:0], p.buffer[1:]...)
		p.dropped++
	}
	p.buffer = append(p.buffer, entry)
}

func (p *LogsPublisher) requestFlush() {
	select {
	case p.flushCh <- struct{}{}:
	default:
	}
}

// Flush sends all buffered log entries immediately.
func (p *LogsPublisher) Flush(ctx context.Context) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	p.mu.Lock()
	entries := p.buffer
	p.buffer = make([]applicationPort.LogEntry, 0, p.bufferSize)
	p.mu.Unlock()

	if err := p.send(ctx, entries); err != nil {
		p.requeue(entries)
		return err
	}
	return nil
}

// requeue puts unsent entries back in front of anything logged meanwhile.
func (p *LogsPublisher) requeue(entries []applicationPort.LogEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pending := p.buffer
	p.buffer = make([]applicationPort.LogEntry, 0, len(entries)+len(pending))
	for _, entry := range entries {
		p.appendUnsafe(entry)
	}
	for _, entry := range pending {
		p.appendUnsafe(entry)
	}
}

// Close stops the background flush goroutine and flushes remaining logs.
func (p *LogsPublisher) Close(ctx context.Context) error {
	close(p.stopCh)
	if p.flushTicker != nil {
		p.flushTicker.Stop()
	}
	p.wg.Wait()

	return p.Flush(ctx)
}

func (p *LogsPublisher) flushLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.flushTicker.C:
		case <-p.flushCh:
		case <-p.stopCh:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		// Failed entries are requeued and retried on the next tick.
		_ = p.Flush(ctx)
		cancel()
	}
}

// send converts and publishes entries in CloudWatch-sized chunks.
func (p *LogsPublisher) send(ctx context.Context, entries []applicationPort.LogEntry) error {
	events := p.buildEvents(entries)
	if len(events) == 0 {
		return nil
	}

	for i := 0; i < len(events); i += maxLogEventsPerRequest {
		end := i + maxLogEventsPerRequest
		if end > len(events) {
			end = len(events)
		}

		if err := p.publishLogEventsWithRetry(ctx, events[i:end]); err != nil {
			return fmt.Errorf("failed to publish chunk: %w", err)
		}
	}

	return nil
}

// buildEvents sorts entries chronologically (CloudWatch Logs requirement)
// and converts them, skipping entries that cannot be encoded.
func (p *LogsPublisher) buildEvents(entries []applicationPort.LogEntry) []types.InputLogEvent {
	sorted := make([]applicationPort.LogEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	events := make([]types.InputLogEvent, 0, len(sorted))
	for _, entry := range sorted {
		event, err := p.convertToLogEvent(entry)
		if err != nil {
			continue
		}
		events = append(events, event)
	}
	return events
}

// publishLogEventsWithRetry publishes log events with exponential backoff retry.
func (p *LogsPublisher) publishLogEventsWithRetry(ctx context.Context, events []types.InputLogEvent) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := p.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  aws.String(p.logGroupName),
			LogStreamName: aws.String(p.logStreamName),
			LogEvents:     events,
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

// convertToLogEvent converts a LogEntry to CloudWatch InputLogEvent.
func (p *LogsPublisher) convertToLogEvent(entry applicationPort.LogEntry) (types.InputLogEvent, error) {
	logData := map[string]interface{}{
		"timestamp": entry.Timestamp.Format(time.RFC3339Nano),
		"level":     string(entry.Level),
		"message":   entry.Message,
	}
	if p.service != "" {
		logData["service"] = p.service
	}
	if len(entry.Fields) > 0 {
		logData["fields"] = entry.Fields
	}

	messageJSON, err := json.Marshal(logData)
	if err != nil {
		return types.InputLogEvent{}, fmt.Errorf("failed to marshal log entry: %w", err)
	}

	message := string(messageJSON)
	if len(message) > maxLogEventSize {
		message = message[:maxLogEventSize-3] + "..."
	}

	return types.InputLogEvent{
		Message:   aws.String(message),
		Timestamp: aws.Int64(entry.Timestamp.UnixMilli()),
	}, nil
}

// Dropped returns how many entries were discarded because the buffer overflowed.
func (p *LogsPublisher) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// ensureLogGroupAndStream creates the log group and stream if they don't exist.
func (p *LogsPublisher) ensureLogGroupAndStream(ctx context.Context) error {
	var alreadyExists *types.ResourceAlreadyExistsException

	_, err := p.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(p.logGroupName),
	})
	if err != nil && !errors.As(err, &alreadyExists) {
		return fmt.Errorf("failed to create log group: %w", err)
	}

	_, err = p.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(p.logGroupName),
		LogStreamName: aws.String(p.logStreamName),
	})
	if err != nil && !errors.As(err, &alreadyExists) {
		return fmt.Errorf("failed to create log stream: %w", err)
	}

	return nil
}
