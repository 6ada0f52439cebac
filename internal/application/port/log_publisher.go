package port

import (
	"context"
	"time"
)

// LogLevel - уровень записи, уходящей во внешнюю систему логов
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogEntry - структурированная запись лога
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Message   string
	Fields    map[string]interface{}
}

// LogPublisher отправляет логи во внешнюю систему наблюдаемости (CloudWatch Logs).
// pkg/logger дублирует в него записи уровня INFO и выше.
type LogPublisher interface {
	// Publish ставит запись в буфер реализации
	Publish(ctx context.Context, entry LogEntry) error

	// PublishBatch отправляет пачку записей; лимиты пачки учитывает реализация
	PublishBatch(ctx context.Context, entries []LogEntry) error

	// Flush отправляет буфер немедленно, вызывается при остановке
	Flush(ctx context.Context) error
}
