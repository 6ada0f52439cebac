package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dreschagin/session-monitor/internal/application/port"
)

type Logger struct {
	logger *log.Logger
	level  Level

	mu        sync.RWMutex
	publisher port.LogPublisher
}

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// publishTimeout ограничивает отправку одной записи во внешний publisher.
const publishTimeout = 2 * time.Second

func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter создает logger, пишущий в произвольный writer (используется в тестах).
func NewWithWriter(level string, w io.Writer) *Logger {
	return &Logger{
		logger: log.New(w, "", 0),
		level:  parseLevel(level),
	}
}

func parseLevel(level string) Level {
	switch level {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// SetLogPublisher подключает внешний приемник логов (CloudWatch Logs).
// Записи уровня DEBUG во внешнюю систему не отправляются.
func (l *Logger) SetLogPublisher(publisher port.LogPublisher) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.publisher = publisher
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.level <= DEBUG {
		l.log(DEBUG, msg, args...)
	}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	if l.level <= INFO {
		l.log(INFO, msg, args...)
	}
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.level <= WARN {
		l.log(WARN, msg, args...)
	}
}

func (l *Logger) Error(msg string, err error, args ...interface{}) {
	if l.level <= ERROR {
		if err != nil {
			args = append(args, "error", err.Error())
		}
		l.log(ERROR, msg, args...)
	}
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	now := time.Now()
	message := fmt.Sprintf("[%s] [%s] %s", now.Format("2006-01-02 15:04:05"), level.String(), msg)

	if len(args) > 0 {
		message += " |"
		for i := 0; i < len(args); i += 2 {
			if i+1 < len(args) {
				message += fmt.Sprintf(" %v=%v", args[i], args[i+1])
			}
		}
	}

	l.logger.Println(message)
	l.publish(now, level, msg, args)
}

func (l *Logger) publish(ts time.Time, level Level, msg string, args []interface{}) {
	if level == DEBUG {
		return
	}

	l.mu.RLock()
	publisher := l.publisher
	l.mu.RUnlock()
	if publisher == nil {
		return
	}

	entry := port.LogEntry{
		Timestamp: ts,
		Level:     level.portLevel(),
		Message:   msg,
		Fields:    fieldsFromArgs(args),
	}

	// Publisher буферизует записи сам, поэтому вызов короткий.
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := publisher.Publish(ctx, entry); err != nil {
		l.logger.Println(fmt.Sprintf("[%s] [WARN] failed to publish log entry | error=%v",
			time.Now().Format("2006-01-02 15:04:05"), err))
	}
}

func fieldsFromArgs(args []interface{}) map[string]interface{} {
	if len(args) < 2 {
		return nil
	}
	fields := make(map[string]interface{}, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		fields[fmt.Sprint(args[i])] = args[i+1]
	}
	return fields
}

func (lv Level) String() string {
	switch lv {
	case DEBUG:
		return "DEBUG"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (lv Level) portLevel() port.LogLevel {
	switch lv {
	case DEBUG:
		return port.LogLevelDebug
	case WARN:
		return port.LogLevelWarn
	case ERROR:
		return port.LogLevelError
	default:
		return port.LogLevelInfo
	}
}
