package deploygate

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/session-monitor/internal/application/dto"
)

// Requester, под которым gate пишет проверки в журнал
const gateRequester = "deploy-gate"

// DeployChecker - проверка готовности с записью в журнал (usecase.CheckDeploySafetyUseCase)
type DeployChecker interface {
	Execute(ctx context.Context, maxActiveSessions int, requester string) *dto.CanDeployDTO
}

// WindowRecommender - рекомендации окон (usecase.DeploymentWindowsCachedUseCase)
type WindowRecommender interface {
	Execute(ctx context.Context, windowMinutes, lookbackHours int) []*dto.DeploymentWindowDTO
}

type Service struct {
	checker       DeployChecker
	windows       WindowRecommender
	threshold     int
	windowMinutes int
	lookbackHours int
}

func NewService(checker DeployChecker, windows WindowRecommender, threshold int) *Service {
	if threshold < 0 {
		threshold = 0
	}
	return &Service{
		checker:   checker,
		windows:   windows,
		threshold: threshold,
		// 0 - значения по умолчанию анализатора (5 минут, 24 часа)
		windowMinutes: 0,
		lookbackHours: 0,
	}
}

func (s *Service) Evaluate(ctx context.Context) (*GateSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluate deploy gate: %w", err)
	}

	check := s.checker.Execute(ctx, s.threshold, gateRequester)

	summary := &GateSummary{
		GeneratedAt:    check.Timestamp,
		CanDeploy:      check.CanDeploy,
		ActiveSessions: check.CurrentActiveSessions,
		Threshold:      check.Threshold,
	}

	if windows := s.windows.Execute(ctx, s.windowMinutes, s.lookbackHours); len(windows) > 0 {
		summary.BestWindow = hintFrom(windows[0], check.Timestamp)
	}

	switch {
	case summary.CanDeploy:
		summary.Verdict = VerdictDeployNow
		summary.Reason = fmt.Sprintf("%d active session(s), threshold %d", summary.ActiveSessions, summary.Threshold)
	case summary.BestWindow != nil && summary.BestWindow.MaxActiveSessions <= summary.Threshold:
		summary.Verdict = VerdictWait
		summary.Reason = fmt.Sprintf("%d active session(s); quiet window expected at %s",
			summary.ActiveSessions, summary.BestWindow.NextOccurrence.UTC().Format(time.RFC3339))
	default:
		summary.Verdict = VerdictBlocked
		summary.Reason = fmt.Sprintf("%d active session(s) and no window under threshold %d in history",
			summary.ActiveSessions, summary.Threshold)
	}

	return summary, nil
}

func hintFrom(w *dto.DeploymentWindowDTO, now time.Time) *WindowHint {
	return &WindowHint{
		StartTime:             w.StartTime,
		EndTime:               w.EndTime,
		MaxActiveSessions:     w.MaxActiveSessions,
		AverageActiveSessions: w.AverageActiveSessions,
		ZeroSessionsWindow:    w.ZeroSessionsWindow,
		NextOccurrence:        nextOccurrence(w.StartTime, now),
	}
}

// nextOccurrence переносит время суток start на ближайший момент не раньше now
func nextOccurrence(start, now time.Time) time.Time {
	start = start.UTC()
	now = now.UTC()

	candidate := time.Date(now.Year(), now.Month(), now.Day(),
		start.Hour(), start.Minute(), start.Second(), 0, time.UTC)
	if candidate.Before(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}
