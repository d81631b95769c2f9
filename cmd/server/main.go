package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/citesignal-backend/internal/cache"
	"github.com/ignatzorin/citesignal-backend/internal/config"
	"github.com/ignatzorin/citesignal-backend/internal/db"
	"github.com/ignatzorin/citesignal-backend/internal/events"
	"github.com/ignatzorin/citesignal-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/citesignal-backend/internal/http/handlers"
	"github.com/ignatzorin/citesignal-backend/internal/http/middleware"
	httpRouter "github.com/ignatzorin/citesignal-backend/internal/http/router"
	"github.com/ignatzorin/citesignal-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/citesignal-backend/internal/logger"
	"github.com/ignatzorin/citesignal-backend/internal/metrics"
	"github.com/ignatzorin/citesignal-backend/internal/notification"
	"github.com/ignatzorin/citesignal-backend/internal/service"
	"github.com/ignatzorin/citesignal-backend/internal/storage"
	"github.com/ignatzorin/citesignal-backend/internal/usecase/incident"
	"github.com/ignatzorin/citesignal-backend/internal/usecase/statistics"
	"github.com/ignatzorin/citesignal-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}

	if err := run(ctx, cfg); err != nil {
		logger.L().WithError(err).Fatal("main: сервер завершился с ошибкой")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.DefaultPoolOptions)
	if err != nil {
		return fmt.Errorf("подключение к базе: %w", err)
	}
	defer safeClose(dbConn)

	applied, err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath)
	if err != nil {
		return fmt.Errorf("миграции: %w", err)
	}
	logger.L().WithField("applied", applied).Info("main: миграции применены")

	// Репозитории.
	incidentRepo := persistence.NewIncidentRepository(dbConn)
	userRepo := persistence.NewUserRepository(dbConn)
	referenceRepo := persistence.NewReferenceRepository(dbConn)
	photoRepo := persistence.NewPhotoRepository(dbConn)
	historyRepo := persistence.NewIncidentHistoryRepository(dbConn)
	notificationRepo := persistence.NewNotificationRepository(dbConn)
	reportRepo := persistence.NewReportRepository(dbConn)
	tx := persistence.NewTransactor(dbConn)

	// Redis необязателен: без него кэш, лимиты и квоты живут в памяти процесса.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("подключение к redis: %w", err)
		}
		defer func() { _ = redisClient.Close() }()
	}

	var (
		statsCache        cache.Store
		submissionCounter cache.Counter
		limiterClient     redis.UniversalClient
	)
	if redisClient != nil {
		statsCache = cache.NewRedisStore(redisClient, "citesignal:cache")
		submissionCounter = cache.NewRedisCounter(redisClient, "citesignal:quota")
		limiterClient = redisClient
	} else {
		memoryCache := cache.NewMemoryStore()
		defer memoryCache.Close()
		statsCache = memoryCache
		submissionCounter = cache.NewMemoryCounter()
	}
	limiterStore, err := middleware.NewLimiterStore(limiterClient, "citesignal:ratelimit")
	if err != nil {
		return fmt.Errorf("хранилище rate limit: %w", err)
	}

	// Файловые хранилища.
	photoStorage, err := storage.NewPhotoStorage(cfg.MediaStoragePath, cfg.MediaBaseURL, cfg.MaxUploadSizeMB)
	if err != nil {
		return fmt.Errorf("хранилище фотографий: %w", err)
	}
	reportStorage, err := storage.NewReportStorage(cfg.ReportsStoragePath)
	if err != nil {
		return fmt.Errorf("хранилище отчётов: %w", err)
	}

	// Вебсокеты и уведомления.
	hub := ws.NewHub()
	goroutine.SafeGoWithContext(ctx, "ws-hub", hub.Run)

	notificationService := service.NewNotificationService(notificationRepo, hub)
	mailer := notification.NewSendgridMailer(cfg.SendgridAPIKey, cfg.SendgridFromEmail, cfg.SendgridFromName)

	// События: метрики, сброс кэша статистики и, если настроен, RabbitMQ.
	publishers := events.Fanout{metrics.EventRecorder{}, statistics.NewCacheInvalidator(statsCache)}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPEventsQueue)
		if err != nil {
			return fmt.Errorf("подключение к rabbitmq: %w", err)
		}
		defer func() { _ = amqpPublisher.Close() }()
		publishers = append(publishers, amqpPublisher)
	}

	// Use case'ы.
	deps := incident.Dependencies{
		Incidents:  incidentRepo,
		Users:      userRepo,
		References: referenceRepo,
		Photos:     photoRepo,
		History:    historyRepo,
		Tx:         tx,
		Notifier:   notificationService,
		Mailer:     mailer,
		Store:      photoStorage,
		Events:     publishers,
	}
	incidentUseCases := httpHandlers.IncidentUseCases{
		Submit:    incident.NewSubmitIncidentUseCase(deps),
		Update:    incident.NewApplyUpdateUseCase(deps),
		Close:     incident.NewCloseIncidentUseCase(deps),
		AddPhotos: incident.NewAddPhotosUseCase(deps),
		Get:       incident.NewGetIncidentUseCase(incidentRepo),
		ByCitizen: incident.NewListByCitizenUseCase(incidentRepo),
		ByAgent:   incident.NewListByAgentUseCase(incidentRepo),
		Search:    incident.NewSearchIncidentsUseCase(incidentRepo),
		Map:       incident.NewMapExportUseCase(incidentRepo),
		History:   incident.NewListHistoryUseCase(incidentRepo, historyRepo),
	}
	statisticsUseCases := httpHandlers.StatisticsUseCases{
		General:  statistics.NewGeneralStatisticsUseCase(incidentRepo, statsCache, cfg.StatsCacheTTL),
		Generate: statistics.NewGenerateReportUseCase(incidentRepo, reportRepo, reportStorage),
		List:     statistics.NewListReportsUseCase(reportRepo),
		Open:     statistics.NewOpenReportUseCase(reportRepo, reportStorage),
	}

	// Сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	authService := service.NewAuthService(userRepo, referenceRepo, tokenManager)
	referenceService := service.NewReferenceService(referenceRepo)

	if err := service.NewSeedService(referenceRepo).SeedReferenceData(ctx); err != nil {
		return fmt.Errorf("справочные данные: %w", err)
	}
	if cfg.SuperAdminEmail != "" && cfg.SuperAdminPassword != "" {
		if err := authService.EnsureSuperAdmin(ctx, cfg.SuperAdminEmail, cfg.SuperAdminPassword); err != nil {
			return fmt.Errorf("суперадминистратор: %w", err)
		}
	}

	// Метрики.
	if cfg.MetricsEnabled {
		metrics.Register()
		if err := metrics.RegisterConnectedUsers(hub.ConnectedUsers); err != nil {
			logger.L().WithError(err).Warn("main: gauge подключённых пользователей не зарегистрирован")
		}
	}

	// HTTP хэндлеры.
	optionalChecks := map[string]httpHandlers.Pinger{}
	if redisClient != nil {
		optionalChecks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	handlers := httpRouter.Handlers{
		Auth:          httpHandlers.NewAuthHandler(authService),
		Incidents:     httpHandlers.NewIncidentHandler(incidentUseCases),
		Statistics:    httpHandlers.NewStatisticsHandler(statisticsUseCases),
		Notifications: httpHandlers.NewNotificationHandler(notificationService),
		References:    httpHandlers.NewReferenceHandler(referenceService),
		Admin:         httpHandlers.NewAdminHandler(authService),
		Health:        httpHandlers.NewHealthHandler(map[string]httpHandlers.Pinger{"database": dbConn.PingContext}, optionalChecks),
		WS:            httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
	}

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, handlers, httpRouter.Deps{
		Tokens:            tokenManager,
		LimiterStore:      limiterStore,
		SubmissionCounter: submissionCounter,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGoWithContext(ctx, "http-shutdown", func(ctx context.Context) {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L().WithError(err).Error("main: ошибка остановки http сервера")
		}
	})

	logger.L().WithFields(logrus.Fields{
		"port": cfg.HTTPPort,
		"env":  cfg.Env,
	}).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	// Дожидаемся фоновых задач: письма, hub.
	goroutine.DefaultRecoveryHandler.Wait()
	logger.L().Info("main: сервер остановлен")
	return nil
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.L().WithError(err).Error("main: ошибка закрытия базы")
	}
}
