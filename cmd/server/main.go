package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	// Application
	applicationPort "github.com/dreschagin/session-monitor/internal/application/port"
	"github.com/dreschagin/session-monitor/internal/application/usecase"
	"github.com/dreschagin/session-monitor/internal/deploygate"

	// Domain
	"github.com/dreschagin/session-monitor/internal/domain/repository"
	"github.com/dreschagin/session-monitor/internal/domain/service"

	// Infrastructure
	redisCache "github.com/dreschagin/session-monitor/internal/infrastructure/cache/redis"
	"github.com/dreschagin/session-monitor/internal/infrastructure/collector"
	natsInfra "github.com/dreschagin/session-monitor/internal/infrastructure/messaging/nats"
	wsInfra "github.com/dreschagin/session-monitor/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/session-monitor/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/session-monitor/internal/infrastructure/observability/metrics"
	dynamodbRepo "github.com/dreschagin/session-monitor/internal/infrastructure/persistence/dynamodb"
	"github.com/dreschagin/session-monitor/internal/infrastructure/persistence/postgres"
	s3storage "github.com/dreschagin/session-monitor/internal/infrastructure/storage/s3"

	// Interfaces
	httpInterface "github.com/dreschagin/session-monitor/internal/interfaces/http"
	"github.com/dreschagin/session-monitor/internal/interfaces/http/handler"
	"github.com/dreschagin/session-monitor/internal/interfaces/http/middleware"

	// Shared
	"github.com/dreschagin/session-monitor/pkg/config"
	"github.com/dreschagin/session-monitor/pkg/logger"
)

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.New(os.Getenv("LOG_LEVEL"))
	log.Info("Starting Session Monitor")

	// CloudWatch Logs подключаем первым, чтобы туда попал весь старт
	var logsPublisher *cloudwatch.LogsPublisher
	if cfg.CloudWatch.LogsEnabled {
		logsPublisher, err = cloudwatch.NewLogsPublisher(context.Background(),
			cloudwatch.LogsPublisherConfig{
				LogGroupName:    cfg.CloudWatch.LogGroupName,
				LogStreamName:   cfg.CloudWatch.LogStreamName,
				Service:         "session-monitor",
				Region:          cfg.CloudWatch.Region,
				Endpoint:        cfg.CloudWatch.Endpoint,
				AccessKeyID:     cfg.CloudWatch.AccessKeyID,
				SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
				BufferSize:      cfg.CloudWatch.LogsBufferSize,
				FlushInterval:   cfg.CloudWatch.LogsFlushInterval,
				AutoCreate:      true,
			})
		if err != nil {
			log.Error("Failed to initialize CloudWatch logs publisher", err)
			os.Exit(1)
		}
		log.SetLogPublisher(logsPublisher)
		log.Info("CloudWatch logs publisher initialized")
	} else {
		log.Warn("CloudWatch logs publishing is disabled")
	}

	// 3. Domain Layer: состояние сессий живет только в памяти процесса
	tracker := service.NewSessionTracker(
		service.NewSessionRegistry(),
		service.NewSnapshotStore(cfg.Sessions.HistoryCapacity),
	)
	queries := usecase.NewSessionQueryService(tracker, service.NewWindowAnalyzer(), cfg.Sessions.DefaultMaxCount)
	instance := instanceID()
	log.Info("Instance identified", "instance_id", instance)

	// 4. Infrastructure Layer

	// Redis кеш рекомендаций окон
	var cache applicationPort.Cache
	if cfg.Redis.Enabled {
		cacheImpl, initErr := redisCache.NewRedisCache(context.Background(), redisCache.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			TTL:          cfg.Redis.TTL,
			PoolSize:     10,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		if initErr != nil {
			log.Warn("Failed to connect to Redis, continuing without cache", "error", initErr.Error())
		} else {
			// Окна предыдущего процесса с тем же id считались по другой истории
			if err := cacheImpl.DeletePattern(context.Background(), redisCache.WindowsCachePattern(instance)); err != nil {
				log.Warn("Failed to clear stale window cache", "error", err.Error())
			}
			cache = cacheImpl
			defer cache.Close()
			log.Info("Redis cache initialized", "addr", cfg.Redis.Addr)
		}
	} else {
		log.Warn("Redis cache is disabled")
	}

	// NATS Event Publisher
	var eventPublisher applicationPort.EventPublisher
	if cfg.NATS.Enabled {
		publisherImpl, initErr := natsInfra.NewNATSPublisher(cfg.NATS.URL, log)
		if initErr != nil {
			log.Warn("Failed to connect to NATS, continuing without event publishing", "error", initErr.Error())
		} else {
			eventPublisher = publisherImpl
			defer eventPublisher.Close()
			log.Info("NATS event publisher initialized", "url", cfg.NATS.URL)
		}
	} else {
		log.Warn("NATS event publishing is disabled")
	}

	// CloudWatch Metrics Publisher
	var metricsPublisher applicationPort.MetricsPublisher
	var cloudwatchMetrics *cloudwatch.MetricsPublisher
	if cfg.CloudWatch.MetricsEnabled {
		cloudwatchMetrics, err = cloudwatch.NewMetricsPublisher(context.Background(),
			cloudwatch.MetricsPublisherConfig{
				Namespace:         cfg.CloudWatch.MetricsNamespace,
				Region:            cfg.CloudWatch.Region,
				Endpoint:          cfg.CloudWatch.Endpoint,
				AccessKeyID:       cfg.CloudWatch.AccessKeyID,
				SecretAccessKey:   cfg.CloudWatch.SecretAccessKey,
				DefaultDimensions: cfg.CloudWatch.MetricsDimensions,
				BufferSize:        cfg.CloudWatch.MetricsBufferSize,
				FlushInterval:     cfg.CloudWatch.MetricsFlushInterval,
				StorageResolution: cfg.CloudWatch.MetricsStorageResolution,
				OnFlushError: func(err error) {
					log.Error("CloudWatch metrics flush failed", err)
				},
			})
		if err != nil {
			log.Error("Failed to initialize CloudWatch metrics publisher", err)
			os.Exit(1)
		}
		metricsPublisher = cloudwatchMetrics
		log.Info("CloudWatch metrics publisher initialized")
	} else {
		log.Warn("CloudWatch metrics publishing is disabled")
	}

	// DynamoDB журнал проверок деплоя
	var auditRepository applicationPort.DeployAuditRepository
	if cfg.Dynamo.Enabled {
		repoImpl, initErr := dynamodbRepo.NewDeployAuditRepository(context.Background(), dynamodbRepo.Config{
			TableName:       cfg.Dynamo.TableDeployAudit,
			Region:          cfg.Dynamo.Region,
			Endpoint:        cfg.Dynamo.Endpoint,
			AccessKeyID:     cfg.Dynamo.AccessKeyID,
			SecretAccessKey: cfg.Dynamo.SecretAccessKey,
			TTL:             time.Duration(cfg.Dynamo.AuditTTLDays) * 24 * time.Hour,
		})
		if initErr != nil {
			log.Error("Failed to initialize deploy audit repository", initErr)
			os.Exit(1)
		}
		auditRepository = repoImpl
		log.Info("Deploy audit repository initialized", "provider", "dynamodb")
	} else {
		log.Warn("DynamoDB deploy audit is disabled")
	}

	// S3 выгрузка истории
	var historyStorage applicationPort.HistoryStorage
	if cfg.S3.Enabled {
		storageImpl, initErr := s3storage.NewHistoryStorage(context.Background(), s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			URLMode:         s3storage.URLMode(cfg.S3.URLMode),
			PresignedTTL:    cfg.S3.PresignedTTL,
		})
		if initErr != nil {
			log.Error("Failed to initialize history storage", initErr)
			os.Exit(1)
		}
		historyStorage = storageImpl
	} else {
		log.Warn("S3 storage is disabled, history export is unavailable")
	}

	// Postgres архив снимков (только запись)
	var db *sql.DB
	var snapshotArchive repository.SnapshotArchive
	if cfg.Database.Enabled {
		db, err = postgres.Open(context.Background(), cfg.Database.DSN(),
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
			cfg.Database.ConnMaxIdleTime,
		)
		if err != nil {
			log.Error("Failed to connect to database", err)
			os.Exit(1)
		}
		defer db.Close()

		archiveImpl := postgres.NewPostgresSnapshotArchive(db, instance)
		if err := archiveImpl.EnsureSchema(context.Background()); err != nil {
			log.Error("Failed to prepare snapshot archive schema", err)
			os.Exit(1)
		}
		snapshotArchive = archiveImpl
		log.Info("Database connected successfully")
	} else {
		log.Warn("Snapshot archive is disabled")
	}

	// WebSocket Hub: каждое подключение - сессия трекера
	hub := wsInfra.NewHub(tracker, log)

	// Prometheus
	var promMetrics *metrics.Metrics
	if cfg.Metrics.PrometheusEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		promMetrics = metrics.New(registry, tracker)
	}

	// 5. Application Layer (Use Cases)

	windowsUC := usecase.NewDeploymentWindowsCachedUseCase(queries, cache, instance, log)
	checkDeployUC := usecase.NewCheckDeploySafetyUseCase(queries, auditRepository, eventPublisher, log)
	reportUC := usecase.NewReportSessionMetricsUseCase(
		queries,
		collector.NewHostStatsCollector(),
		hub,
		metricsPublisher, // nil, если CloudWatch выключен
		eventPublisher,   // nil, если NATS выключен
		log,
	)

	var exportUC *usecase.ExportHistoryUseCase
	if historyStorage != nil {
		exportUC = usecase.NewExportHistoryUseCase(tracker, historyStorage, cfg.S3.KeyPrefix, log)
	}

	var archiveUC *usecase.ArchiveSnapshotsUseCase
	if snapshotArchive != nil {
		archiveUC = usecase.NewArchiveSnapshotsUseCase(tracker, snapshotArchive, log)
	}

	if promMetrics != nil {
		windowsUC.SetObserver(promMetrics)
		checkDeployUC.SetObserver(promMetrics)
		reportUC.SetObserver(promMetrics)
		if archiveUC != nil {
			archiveUC.SetObserver(promMetrics)
		}
	}

	// Deploy gate
	var gateRunner *deploygate.Runner
	var gateHandler *deploygate.Handler
	if cfg.DeployGate.Enabled {
		gateRunner = deploygate.NewRunner(
			deploygate.NewService(checkDeployUC, windowsUC, cfg.DeployGate.Threshold),
			log,
			cfg.DeployGate.Interval,
		)
		var audit deploygate.AuditLister
		if auditRepository != nil {
			audit = checkDeployUC
		}
		gateHandler = deploygate.NewHandler(gateRunner, audit)
	}

	// 6. Interfaces Layer (HTTP Handlers)

	var rateLimiter *middleware.IPRateLimiter
	if cfg.Security.RateLimitRPS > 0 {
		rateLimiter = middleware.NewIPRateLimiter(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst)
		defer rateLimiter.Stop()
		if promMetrics != nil {
			rateLimiter.OnLimited(promMetrics.ObserveRateLimited)
		}
	}

	router := httpInterface.NewRouter(
		handler.NewSessionsAPIHandler(queries, windowsUC, checkDeployUC, exportUC, log),
		handler.NewWebSocketHandler(hub, cfg.Security.AllowedOrigins, log),
		gateHandler,
		promMetrics,
		rateLimiter,
		log,
	)
	if db != nil {
		router.AddReadinessCheck("postgres", db.PingContext)
	}

	// 7. Запускаем фоновые процессы

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)

	// Heartbeat: снимок не реже раза в минуту даже без событий
	go func() {
		ticker := time.NewTicker(cfg.Sessions.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				tracker.Heartbeat()
			case <-ctx.Done():
				return
			}
		}
	}()

	go reportUC.RunReporter(ctx, cfg.Metrics.ReportInterval)
	log.Info("Session reporter started", "interval", cfg.Metrics.ReportInterval.String())

	if archiveUC != nil {
		go archiveUC.RunArchiver(ctx, cfg.Database.ArchiveInterval)
	}

	if gateRunner != nil {
		go gateRunner.Start(ctx)
		log.Info("Deploy gate started",
			"interval", cfg.DeployGate.Interval.String(),
			"threshold", cfg.DeployGate.Threshold,
		)
	}

	// 8. Настраиваем HTTP сервер

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Канал для получения сигналов ОС
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	// 9. Ожидаем сигнал для graceful shutdown

	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Сначала закрываем HTTP, чтобы новые сессии не открывались
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	// Останавливаем фоновые процессы и hub (он закрывает оставшиеся сессии)
	cancel()

	// Снимки закрытия сессий должны попасть в финальный архив и выгрузку
	select {
	case <-hub.Done():
	case <-shutdownCtx.Done():
		log.Warn("WebSocket hub did not stop before shutdown timeout")
	}

	if archiveUC != nil {
		if n, err := archiveUC.Execute(shutdownCtx); err != nil {
			log.Error("Final snapshot archive failed", err)
		} else {
			log.Info("Final snapshot archive done", "snapshots", n)
		}
	}

	if exportUC != nil && cfg.S3.ExportOnExit {
		if _, err := exportUC.Execute(shutdownCtx); err != nil {
			log.Error("History export on exit failed", err)
		}
	}

	if cloudwatchMetrics != nil {
		log.Info("Flushing CloudWatch metrics buffer...")
		if err := cloudwatchMetrics.Close(shutdownCtx); err != nil {
			log.Error("Failed to flush CloudWatch metrics", err)
		}
	}

	log.Info("Server stopped gracefully")

	if logsPublisher != nil {
		if err := logsPublisher.Close(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to flush CloudWatch logs: %v\n", err)
		}
	}
}

// instanceID различает процессы в общем архиве и общем кеше
func instanceID() string {
	if id := os.Getenv("INSTANCE_ID"); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "session-monitor"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
