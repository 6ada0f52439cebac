package service

import (
	"sort"
	"time"

	"github.com/dreschagin/session-monitor/internal/domain/entity"
	"github.com/dreschagin/session-monitor/internal/domain/valueobject"
)

const (
	// DefaultDeploymentWindow - длина окна-кандидата по умолчанию
	DefaultDeploymentWindow = 5 * time.Minute
	// DefaultLookback - глубина анализа истории по умолчанию
	DefaultLookback = 24 * time.Hour
	// WindowStep - шаг сдвига окна, не зависит от его длины
	WindowStep = time.Minute
	// MaxRecommendedWindows - сколько лучших окон возвращается
	MaxRecommendedWindows = 20
)

// WindowAnalyzer подбирает окна с минимальной нагрузкой для деплоя (Domain Service)
type WindowAnalyzer struct{}

// NewWindowAnalyzer создает новый WindowAnalyzer
func NewWindowAnalyzer() *WindowAnalyzer {
	return &WindowAnalyzer{}
}

// Recommend строит ранжированный список окон деплоя.
//
// Окно [start, start+window) сдвигается на WindowStep от самого раннего снимка,
// пока start+window не выйдет за последний снимок. Пустые окна пропускаются.
// Результат отсортирован по пику, затем по среднему, и обрезан до MaxRecommendedWindows.
func (a *WindowAnalyzer) Recommend(
	snapshots []entity.Snapshot,
	now time.Time,
	window, lookback time.Duration,
) []valueobject.DeploymentWindow {
	if window <= 0 {
		window = DefaultDeploymentWindow
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}

	selected := selectSince(snapshots, now.Add(-lookback))
	if len(selected) == 0 {
		return []valueobject.DeploymentWindow{}
	}

	latest := selected[len(selected)-1].Timestamp()
	windows := make([]valueobject.DeploymentWindow, 0)

	// lo/hi - границы снимков внутри текущего окна, maxq - монотонная очередь индексов для пика
	var (
		lo, hi int
		sum    int
		maxq   []int
	)

	for start := selected[0].Timestamp(); !start.Add(window).After(latest); start = start.Add(WindowStep) {
		end := start.Add(window)

		for hi < len(selected) && selected[hi].Timestamp().Before(end) {
			v := selected[hi].ActiveSessions()
			sum += v
			for len(maxq) > 0 && selected[maxq[len(maxq)-1]].ActiveSessions() <= v {
				maxq = maxq[:len(maxq)-1]
			}
			maxq = append(maxq, hi)
			hi++
		}
		for lo < hi && selected[lo].Timestamp().Before(start) {
			sum -= selected[lo].ActiveSessions()
			if len(maxq) > 0 && maxq[0] == lo {
				maxq = maxq[1:]
			}
			lo++
		}

		n := hi - lo
		if n == 0 {
			continue
		}

		period, err := valueobject.NewTimeRange(start, end)
		if err != nil {
			continue
		}
		windows = append(windows, valueobject.NewDeploymentWindow(
			period,
			selected[maxq[0]].ActiveSessions(),
			float64(sum)/float64(n),
		))
	}

	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].BetterThan(windows[j])
	})

	if len(windows) > MaxRecommendedWindows {
		windows = windows[:MaxRecommendedWindows]
	}
	return windows
}

// selectSince отбирает снимки не старше cutoff и сортирует их по времени
func selectSince(snapshots []entity.Snapshot, cutoff time.Time) []entity.Snapshot {
	selected := make([]entity.Snapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if !snap.Timestamp().Before(cutoff) {
			selected = append(selected, snap)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Timestamp().Before(selected[j].Timestamp())
	})
	return selected
}
