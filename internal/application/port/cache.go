package port

import (
	"context"
	"errors"
)

// ErrCacheMiss возвращается, когда ключа нет в кеше
var ErrCacheMiss = errors.New("cache miss")

// Cache определяет интерфейс кеша производных данных (рекомендации окон деплоя)
type Cache interface {
	// Get читает значение и декодирует его в dest; при отсутствии ключа - ErrCacheMiss
	Get(ctx context.Context, key string, dest interface{}) error

	// Set сохраняет значение с TTL, заданным реализацией
	Set(ctx context.Context, key string, value interface{}) error

	// DeletePattern удаляет все ключи по шаблону
	DeletePattern(ctx context.Context, pattern string) error

	Close() error
}
