package deploygate

import "time"

type Verdict string

const (
	// VerdictDeployNow - активных сессий не больше порога
	VerdictDeployNow Verdict = "deploy_now"
	// VerdictWait - сейчас нельзя, но в истории есть тихое окно
	VerdictWait Verdict = "wait_for_window"
	// VerdictBlocked - нельзя и рекомендовать нечего
	VerdictBlocked Verdict = "blocked"
)

type WindowHint struct {
	StartTime             time.Time `json:"startTime"`
	EndTime               time.Time `json:"endTime"`
	MaxActiveSessions     int       `json:"maxActiveSessions"`
	AverageActiveSessions float64   `json:"averageActiveSessions"`
	ZeroSessionsWindow    bool      `json:"zeroSessionsWindow"`
	// Следующее наступление того же времени суток, если нагрузка повторяется ежедневно
	NextOccurrence time.Time `json:"nextOccurrence"`
}

type GateSummary struct {
	GeneratedAt    time.Time   `json:"generatedAt"`
	Verdict        Verdict     `json:"verdict"`
	CanDeploy      bool        `json:"canDeploy"`
	ActiveSessions int         `json:"activeSessions"`
	Threshold      int         `json:"threshold"`
	BestWindow     *WindowHint `json:"bestWindow,omitempty"`
	Reason         string      `json:"reason"`
}

type Snapshot struct {
	StartedAt   time.Time     `json:"startedAt"`
	Interval    time.Duration `json:"interval"`
	LastRunAt   time.Time     `json:"lastRunAt"`
	LastError   string        `json:"lastError,omitempty"`
	LastSummary *GateSummary  `json:"lastSummary,omitempty"`
}
