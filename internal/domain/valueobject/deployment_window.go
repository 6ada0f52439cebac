package valueobject

import "time"

// DeploymentWindow - кандидат на окно деплоя, посчитанный по истории снимков.
type DeploymentWindow struct {
	period                TimeRange
	maxActiveSessions     int
	averageActiveSessions float64
}

// NewDeploymentWindow создает окно по его границам и нагрузке внутри
func NewDeploymentWindow(period TimeRange, maxActive int, avgActive float64) DeploymentWindow {
	return DeploymentWindow{
		period:                period,
		maxActiveSessions:     maxActive,
		averageActiveSessions: avgActive,
	}
}

func (w DeploymentWindow) StartTime() time.Time {
	return w.period.Start()
}

func (w DeploymentWindow) EndTime() time.Time {
	return w.period.End()
}

func (w DeploymentWindow) Period() TimeRange {
	return w.period
}

func (w DeploymentWindow) MaxActiveSessions() int {
	return w.maxActiveSessions
}

func (w DeploymentWindow) AverageActiveSessions() float64 {
	return w.averageActiveSessions
}

// ZeroSessionsWindow истинно, если в окне не было ни одной активной сессии
func (w DeploymentWindow) ZeroSessionsWindow() bool {
	return w.maxActiveSessions == 0
}

// BetterThan задает порядок рекомендаций: меньший пик, затем меньшее среднее
func (w DeploymentWindow) BetterThan(other DeploymentWindow) bool {
	if w.maxActiveSessions != other.maxActiveSessions {
		return w.maxActiveSessions < other.maxActiveSessions
	}
	return w.averageActiveSessions < other.averageActiveSessions
}
