package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dreschagin/session-monitor/internal/application/dto"
	"github.com/dreschagin/session-monitor/internal/application/port"
	"github.com/dreschagin/session-monitor/internal/domain/entity"
	"github.com/dreschagin/session-monitor/internal/domain/service"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker(clock *testClock, capacity int) *service.SessionTracker {
	return service.NewSessionTracker(
		service.NewSessionRegistry(),
		service.NewSnapshotStore(capacity),
		service.WithClock(clock.Now),
	)
}

type mockCache struct {
	mu    sync.Mutex
	items map[string][]byte
	sets  chan string
}

func newMockCache() *mockCache {
	return &mockCache{items: make(map[string][]byte), sets: make(chan string, 10)}
}

func (m *mockCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	data, ok := m.items[key]
	m.mu.Unlock()
	if !ok {
		return port.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *mockCache) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[key] = data
	m.mu.Unlock()
	m.sets <- key
	return nil
}

func (m *mockCache) DeletePattern(context.Context, string) error { return nil }

func (m *mockCache) Close() error { return nil }

type publishedEvent struct {
	subject string
	event   interface{}
}

type mockEventPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (m *mockEventPublisher) PublishEvent(_ context.Context, subject string, event interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{subject: subject, event: event})
	return m.err
}

func (m *mockEventPublisher) Close() error { return nil }

func (m *mockEventPublisher) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.subject
	}
	return out
}

type mockAuditRepository struct {
	records []port.DeployAuditRecord
	saveErr error
}

func (m *mockAuditRepository) Save(_ context.Context, record port.DeployAuditRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockAuditRepository) ListRecent(_ context.Context, limit int) ([]port.DeployAuditRecord, error) {
	out := make([]port.DeployAuditRecord, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

type mockNotifier struct {
	reports []*dto.SessionReportDTO
	alerts  []*dto.AlertDTO
	clients int
}

func (m *mockNotifier) Broadcast(report *dto.SessionReportDTO) {
	m.reports = append(m.reports, report)
}

func (m *mockNotifier) BroadcastAlert(alert *dto.AlertDTO) {
	m.alerts = append(m.alerts, alert)
}

func (m *mockNotifier) ClientCount() int { return m.clients }

type mockMetricsPublisher struct {
	reports []*dto.SessionReportDTO
	err     error
}

func (m *mockMetricsPublisher) PublishReport(_ context.Context, report *dto.SessionReportDTO) error {
	m.reports = append(m.reports, report)
	return m.err
}

func (m *mockMetricsPublisher) Flush(context.Context) error { return nil }

type mockHostCollector struct {
	stats port.HostStats
	err   error
}

func (m *mockHostCollector) Collect(context.Context) (port.HostStats, error) {
	return m.stats, m.err
}

type mockSnapshotArchive struct {
	batches [][]entity.Snapshot
	err     error
}

func (m *mockSnapshotArchive) SaveBatch(_ context.Context, snapshots []entity.Snapshot) error {
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, snapshots)
	return nil
}

func (m *mockSnapshotArchive) Ping(context.Context) error { return nil }

type putCall struct {
	key         string
	contentType string
	body        []byte
}

type mockHistoryStorage struct {
	calls []putCall
	err   error
}

func (m *mockHistoryStorage) PutObject(_ context.Context, key, contentType string, body []byte) (string, error) {
	m.calls = append(m.calls, putCall{key: key, contentType: contentType, body: body})
	if m.err != nil {
		return "", m.err
	}
	return "https://example.com/" + key, nil
}

var errBoom = errors.New("boom")

type recordingObserver struct {
	mu        sync.Mutex
	hits      int
	misses    int
	safe      int
	unsafe    int
	jobErrors []string
}

func (o *recordingObserver) ObserveCacheLookup(hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hit {
		o.hits++
		return
	}
	o.misses++
}

func (o *recordingObserver) ObserveDeployCheck(canDeploy bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if canDeploy {
		o.safe++
		return
	}
	o.unsafe++
}

func (o *recordingObserver) ObserveJobError(job string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.jobErrors = append(o.jobErrors, job)
}
