package deploygate

import (
	"context"
	"sync"
	"time"

	"github.com/dreschagin/session-monitor/internal/application/dto"
)

var testNow = time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)

type fakeChecker struct {
	mu         sync.Mutex
	active     int
	requesters []string
}

func (f *fakeChecker) Execute(_ context.Context, maxActiveSessions int, requester string) *dto.CanDeployDTO {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requesters = append(f.requesters, requester)
	return &dto.CanDeployDTO{
		CanDeploy:             f.active <= maxActiveSessions,
		CurrentActiveSessions: f.active,
		Threshold:             maxActiveSessions,
		Timestamp:             testNow,
	}
}

func (f *fakeChecker) setActive(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = n
}

type fakeWindows struct {
	windows []*dto.DeploymentWindowDTO
}

func (f *fakeWindows) Execute(context.Context, int, int) []*dto.DeploymentWindowDTO {
	return f.windows
}

type fakeAudit struct {
	items []*dto.DeployAuditDTO
	err   error
	limit int
}

func (f *fakeAudit) ListAudit(_ context.Context, limit int) ([]*dto.DeployAuditDTO, error) {
	f.limit = limit
	return f.items, f.err
}
