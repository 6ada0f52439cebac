package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Sessions   SessionsConfig
	Metrics    MetricsConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NATS       NATSConfig
	CloudWatch CloudWatchConfig
	S3         S3Config
	Dynamo     DynamoConfig
	Security   SecurityConfig
	DeployGate DeployGateConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// SessionsConfig управляет трекером сессий и историей снимков.
type SessionsConfig struct {
	HistoryCapacity   int
	HeartbeatInterval time.Duration
	DefaultMaxCount   int
}

type MetricsConfig struct {
	ReportInterval    time.Duration
	PrometheusEnabled bool
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ArchiveInterval time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type NATSConfig struct {
	Enabled bool
	URL     string
}

type CloudWatchConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string

	MetricsEnabled           bool
	MetricsNamespace         string
	MetricsDimensions        map[string]string
	MetricsBufferSize        int
	MetricsFlushInterval     time.Duration
	MetricsStorageResolution int32

	LogsEnabled       bool
	LogGroupName      string
	LogStreamName     string
	LogsBufferSize    int
	LogsFlushInterval time.Duration
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
	URLMode         string
	PresignedTTL    time.Duration
	ExportOnExit    bool
}

type DynamoConfig struct {
	Enabled          bool
	TableDeployAudit string
	Region           string
	Endpoint         string
	AccessKeyID      string
	SecretAccessKey  string
	AuditTTLDays     int
}

type SecurityConfig struct {
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

type DeployGateConfig struct {
	Enabled   bool
	Interval  time.Duration
	Threshold int
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	historyCapacity, err := strconv.Atoi(getEnv("SESSIONS_HISTORY_CAPACITY", "10000"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSIONS_HISTORY_CAPACITY: %w", err)
	}
	if historyCapacity <= 0 {
		return nil, fmt.Errorf("invalid SESSIONS_HISTORY_CAPACITY: must be positive, got %d", historyCapacity)
	}

	heartbeat, err := parseDuration(getEnv("SESSIONS_HEARTBEAT_INTERVAL", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSIONS_HEARTBEAT_INTERVAL: %w", err)
	}

	defaultMaxCount, err := strconv.Atoi(getEnv("SESSIONS_DEFAULT_MAX_COUNT", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSIONS_DEFAULT_MAX_COUNT: %w", err)
	}

	reportInterval, err := parseDuration(getEnv("METRICS_REPORT_INTERVAL", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_REPORT_INTERVAL: %w", err)
	}

	archiveInterval, err := parseDuration(getEnv("DB_ARCHIVE_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_ARCHIVE_INTERVAL: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	redisTTL, err := parseDuration(getEnv("REDIS_TTL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_TTL: %w", err)
	}

	metricsBufferSize, err := strconv.Atoi(getEnv("CLOUDWATCH_METRICS_BUFFER_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_METRICS_BUFFER_SIZE: %w", err)
	}

	metricsFlushInterval, err := parseDuration(getEnv("CLOUDWATCH_METRICS_FLUSH_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_METRICS_FLUSH_INTERVAL: %w", err)
	}

	storageResolution, err := strconv.Atoi(getEnv("CLOUDWATCH_METRICS_STORAGE_RESOLUTION", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_METRICS_STORAGE_RESOLUTION: %w", err)
	}

	logsBufferSize, err := strconv.Atoi(getEnv("CLOUDWATCH_LOGS_BUFFER_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_LOGS_BUFFER_SIZE: %w", err)
	}

	logsFlushInterval, err := parseDuration(getEnv("CLOUDWATCH_LOGS_FLUSH_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_LOGS_FLUSH_INTERVAL: %w", err)
	}

	presignedTTL, err := parseDuration(getEnv("S3_PRESIGNED_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid S3_PRESIGNED_TTL: %w", err)
	}

	auditTTLDays, err := strconv.Atoi(getEnv("DYNAMODB_AUDIT_TTL_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid DYNAMODB_AUDIT_TTL_DAYS: %w", err)
	}

	rateLimitRPS, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "20"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	rateLimitBurst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "40"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	gateInterval, err := parseDuration(getEnv("DEPLOY_GATE_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEPLOY_GATE_INTERVAL: %w", err)
	}

	gateThreshold, err := strconv.Atoi(getEnv("DEPLOY_GATE_MAX_ACTIVE_SESSIONS", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEPLOY_GATE_MAX_ACTIVE_SESSIONS: %w", err)
	}
	if gateThreshold < 0 {
		return nil, fmt.Errorf("invalid DEPLOY_GATE_MAX_ACTIVE_SESSIONS: must be >= 0, got %d", gateThreshold)
	}

	awsRegion := getEnv("AWS_REGION", "us-east-1")

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Sessions: SessionsConfig{
			HistoryCapacity:   historyCapacity,
			HeartbeatInterval: heartbeat,
			DefaultMaxCount:   defaultMaxCount,
		},
		Metrics: MetricsConfig{
			ReportInterval:    reportInterval,
			PrometheusEnabled: getEnvBool("PROMETHEUS_ENABLED", true),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DB_ARCHIVE_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "sessions"),
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
			ArchiveInterval: archiveInterval,
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			TTL:      redisTTL,
		},
		NATS: NATSConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
		},
		CloudWatch: CloudWatchConfig{
			Region:                   getEnv("CLOUDWATCH_REGION", awsRegion),
			Endpoint:                 getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:              getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:          getEnv("AWS_SECRET_ACCESS_KEY", ""),
			MetricsEnabled:           getEnvBool("CLOUDWATCH_METRICS_ENABLED", false),
			MetricsNamespace:         getEnv("CLOUDWATCH_METRICS_NAMESPACE", "SessionMonitor"),
			MetricsDimensions:        parseDimensions(getEnv("CLOUDWATCH_METRICS_DIMENSIONS", "")),
			MetricsBufferSize:        metricsBufferSize,
			MetricsFlushInterval:     metricsFlushInterval,
			MetricsStorageResolution: int32(storageResolution),
			LogsEnabled:              getEnvBool("CLOUDWATCH_LOGS_ENABLED", false),
			LogGroupName:             getEnv("CLOUDWATCH_LOG_GROUP", "/session-monitor/app"),
			LogStreamName:            getEnv("CLOUDWATCH_LOG_STREAM", defaultLogStream()),
			LogsBufferSize:           logsBufferSize,
			LogsFlushInterval:        logsFlushInterval,
		},
		S3: S3Config{
			Enabled:         getEnvBool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", awsRegion),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "session-history"),
			URLMode:         getEnv("S3_URL_MODE", "presigned"),
			PresignedTTL:    presignedTTL,
			ExportOnExit:    getEnvBool("S3_EXPORT_ON_EXIT", true),
		},
		Dynamo: DynamoConfig{
			Enabled:          getEnvBool("DYNAMODB_ENABLED", false),
			TableDeployAudit: getEnv("DYNAMODB_TABLE_DEPLOY_AUDIT", "session_monitor_deploy_audit"),
			Region:           getEnv("DYNAMODB_REGION", awsRegion),
			Endpoint:         getEnv("DYNAMODB_ENDPOINT", ""),
			AccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
			AuditTTLDays:     auditTTLDays,
		},
		Security: SecurityConfig{
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			RateLimitRPS:   rateLimitRPS,
			RateLimitBurst: rateLimitBurst,
		},
		DeployGate: DeployGateConfig{
			Enabled:   getEnvBool("DEPLOY_GATE_ENABLED", true),
			Interval:  gateInterval,
			Threshold: gateThreshold,
		},
	}

	if cfg.S3.Enabled && cfg.S3.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when S3_ENABLED=true")
	}

	return cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}

// parseDimensions разбирает строку вида "Env=prod,Service=api".
func parseDimensions(raw string) map[string]string {
	dims := make(map[string]string)
	for _, pair := range splitCSV(raw) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			continue
		}
		dims[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return dims
}

func defaultLogStream() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "session-monitor"
	}
	return host
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
