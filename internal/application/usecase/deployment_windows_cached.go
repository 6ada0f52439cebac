package usecase

import (
	"context"
	"time"

	"github.com/dreschagin/session-monitor/internal/application/dto"
	"github.com/dreschagin/session-monitor/internal/application/port"
	"github.com/dreschagin/session-monitor/internal/infrastructure/cache/redis"
	"github.com/dreschagin/session-monitor/pkg/logger"
)

// DeploymentWindowsCachedUseCase возвращает рекомендации окон деплоя с кешированием.
// Расчет идет по всей истории, поэтому результат кешируется на минутный бакет.
type DeploymentWindowsCachedUseCase struct {
	queries  *SessionQueryService
	cache    port.Cache
	instance string
	observer port.UsageObserver
	logger   *logger.Logger
	now      func() time.Time
}

// NewDeploymentWindowsCachedUseCase создает use case; cache может быть nil.
// instance входит в ключ: в общем Redis каждый процесс видит только свои окна.
func NewDeploymentWindowsCachedUseCase(
	queries *SessionQueryService,
	cache port.Cache,
	instance string,
	logger *logger.Logger,
) *DeploymentWindowsCachedUseCase {
	return &DeploymentWindowsCachedUseCase{
		queries:  queries,
		cache:    cache,
		instance: instance,
		logger:   logger,
		now:      time.Now,
	}
}

// SetObserver подключает счетчики попаданий в кеш
func (uc *DeploymentWindowsCachedUseCase) SetObserver(observer port.UsageObserver) {
	uc.observer = observer
}

// Execute возвращает окна деплоя, по возможности из кеша
func (uc *DeploymentWindowsCachedUseCase) Execute(
	ctx context.Context,
	windowMinutes, lookbackHours int,
) []*dto.DeploymentWindowDTO {
	// Если кеш не настроен, считаем напрямую
	if uc.cache == nil {
		return uc.queries.DeploymentWindows(windowMinutes, lookbackHours)
	}

	cacheKey := redis.GenerateWindowsCacheKey(uc.instance, windowMinutes, lookbackHours, uc.now())

	var cached []*dto.DeploymentWindowDTO
	if err := uc.cache.Get(ctx, cacheKey, &cached); err == nil {
		uc.logger.Debug("Cache hit for deployment windows", "key", cacheKey, "count", len(cached))
		uc.observeLookup(true)
		return cached
	}
	uc.observeLookup(false)

	windows := uc.queries.DeploymentWindows(windowMinutes, lookbackHours)

	// Сохраняем в кеш асинхронно, не блокируем ответ
	go func() {
		if err := uc.cache.Set(context.Background(), cacheKey, windows); err != nil {
			uc.logger.Warn("Failed to cache deployment windows", "key", cacheKey, "error", err.Error())
		}
	}()

	return windows
}

func (uc *DeploymentWindowsCachedUseCase) observeLookup(hit bool) {
	if uc.observer != nil {
		uc.observer.ObserveCacheLookup(hit)
	}
}
