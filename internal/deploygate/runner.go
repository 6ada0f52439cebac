package deploygate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/session-monitor/pkg/logger"
)

type Runner struct {
	service  *Service
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time

	runMu sync.Mutex

	mu          sync.RWMutex
	startedAt   time.Time
	lastRunAt   time.Time
	lastError   string
	lastSummary *GateSummary
}

func NewRunner(service *Service, log *logger.Logger, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Runner{
		service:   service,
		log:       log,
		interval:  interval,
		now:       time.Now,
		startedAt: time.Now(),
	}
}

// Start делает первую оценку сразу, потом по тикеру до отмены ctx
func (r *Runner) Start(ctx context.Context) {
	_, _ = r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// ошибка уже сохранена в состоянии и залогирована
			_, _ = r.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) RunOnce(ctx context.Context) (*GateSummary, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	evalCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	summary, err := r.service.Evaluate(evalCtx)
	runAt := r.now()

	if err != nil {
		wrappedErr := fmt.Errorf("deploy gate cycle failed: %w", err)
		r.updateFailure(runAt, wrappedErr)
		r.log.Error("Deploy gate cycle failed", wrappedErr)
		return nil, wrappedErr
	}

	previous := r.lastVerdict()
	r.updateSuccess(runAt, summary)

	if previous != summary.Verdict {
		r.log.Info(
			"Deploy gate verdict changed",
			"from", string(previous),
			"to", string(summary.Verdict),
			"active_sessions", summary.ActiveSessions,
			"threshold", summary.Threshold,
		)
	} else {
		r.log.Debug("Deploy gate cycle completed", "verdict", string(summary.Verdict))
	}

	return summary, nil
}

func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := Snapshot{
		StartedAt: r.startedAt,
		Interval:  r.interval,
		LastRunAt: r.lastRunAt,
		LastError: r.lastError,
	}

	if r.lastSummary != nil {
		copiedSummary := *r.lastSummary
		if r.lastSummary.BestWindow != nil {
			copiedWindow := *r.lastSummary.BestWindow
			copiedSummary.BestWindow = &copiedWindow
		}
		snapshot.LastSummary = &copiedSummary
	}

	return snapshot
}

func (r *Runner) lastVerdict() Verdict {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.lastSummary == nil {
		return ""
	}
	return r.lastSummary.Verdict
}

func (r *Runner) updateFailure(runAt time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastRunAt = runAt
	r.lastError = err.Error()
}

func (r *Runner) updateSuccess(runAt time.Time, summary *GateSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastRunAt = runAt
	r.lastError = ""
	r.lastSummary = summary
}
