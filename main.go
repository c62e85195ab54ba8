// Package main is the entry point of the business registry service
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/business-registry/app/handlers"
	"github.com/amirphl/business-registry/app/middleware"
	"github.com/amirphl/business-registry/app/router"
	"github.com/amirphl/business-registry/app/scheduler"
	"github.com/amirphl/business-registry/app/services"
	businessflow "github.com/amirphl/business-registry/business_flow"
	"github.com/amirphl/business-registry/config"
	"github.com/amirphl/business-registry/migrations"
	"github.com/amirphl/business-registry/repository"
	"github.com/amirphl/business-registry/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application holds the wired service and everything that must be released on shutdown
type Application struct {
	router    *router.FiberRouter
	config    *config.AppConfig
	logger    *logrus.Logger
	stopFuncs []func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(utils.LoggerOptions{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		FilePath:   cfg.Logging.FilePath,
		MaxSizeMB:  cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	})
	logger.WithFields(logrus.Fields{
		"version":     cfg.Deployment.Version,
		"commit":      cfg.Deployment.CommitHash,
		"environment": cfg.Deployment.Environment,
	}).Info("Starting business registry")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := initializeApplication(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}

	app.router.SetupRoutes()

	serverErr := make(chan error, 1)
	go func() {
		address := cfg.Server.Address()
		logger.WithField("address", address).Info("Server starting")
		serverErr <- app.router.Start(address)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down gracefully")
	case err := <-serverErr:
		if err != nil {
			logger.WithError(err).Error("Server stopped unexpectedly")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.router.GetApp().ShutdownWithContext(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error during shutdown")
	}

	// release in reverse order of acquisition
	for i := len(app.stopFuncs) - 1; i >= 0; i-- {
		app.stopFuncs[i]()
	}

	logger.Info("Server stopped")
}

// initializeDatabase opens the postgres pool and applies migrations when enabled
func initializeDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: utils.UTCNow,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := migrations.Apply(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		logger.Info("Database migrations applied")
	}

	logger.WithFields(logrus.Fields{
		"max_open_conns": cfg.MaxOpenConns,
		"max_idle_conns": cfg.MaxIdleConns,
	}).Info("Database connection established")

	return db, nil
}

// initializeCache returns nil when redis is disabled
func initializeCache(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rc, nil
}

func initializeNotificationService(cfg config.EmailConfig, logger *logrus.Logger) services.NotificationService {
	var provider services.EmailProvider
	switch cfg.Provider {
	case "smtp":
		provider = services.NewSMTPEmailProvider(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.FromEmail, cfg.FromName)
	default:
		provider = services.NewLogEmailProvider(logger)
	}
	return services.NewNotificationService(provider)
}

func initializeApplication(ctx context.Context, cfg *config.AppConfig, logger *logrus.Logger) (*Application, error) {
	app := &Application{config: cfg, logger: logger}

	db, err := initializeDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		app.stopFuncs = append(app.stopFuncs, func() { _ = sqlDB.Close() })
	}

	rc, err := initializeCache(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}

	var (
		challengeStore services.ChallengeStore = services.NewMemoryChallengeStore()
		locker         services.KeyLocker      = services.NewMemoryLocker()
	)
	if rc != nil {
		challengeStore = services.NewRedisChallengeStore(rc, cfg.Redis.Prefix)
		locker = services.NewRedisLocker(rc, cfg.Redis.Prefix)
		app.stopFuncs = append(app.stopFuncs, func() { _ = rc.Close() })
	}

	// publisher stays a nil interface when NATS is off
	var (
		publisher services.EventPublisher
		nats      *services.NATSEventPublisher
	)
	if cfg.NATS.Enabled {
		nats, err = services.NewNATSEventPublisher(cfg.NATS.URL, cfg.NATS.ClientName, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		publisher = nats
		app.stopFuncs = append(app.stopFuncs, nats.Close)
	}

	captchaSvc := services.NewCaptchaServiceRotate(challengeStore, cfg.Captcha.TTL, cfg.Captcha.Padding, cfg.Captcha.ImageSize, logger)
	fileStore := services.NewDiskFileStore(cfg.Storage.UploadRoot)
	notificationSvc := initializeNotificationService(cfg.Email, logger)
	tokenSvc, err := services.NewTokenService(
		cfg.Token.TTL,
		cfg.Token.Issuer,
		cfg.Token.UseRSAKeys,
		cfg.Token.PrivateKey,
		cfg.Token.PublicKey,
		cfg.Token.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	tx := repository.NewGateway(db)

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewUserSessionRepository(db)
	resetRepo := repository.NewPasswordResetRepository(db)
	attemptRepo := repository.NewLoginAttemptRepository(db)
	permissionRepo := repository.NewUserPermissionRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	businessRepo := repository.NewBusinessProfileRepository(db)
	locationRepo := repository.NewBusinessLocationRepository(db)
	documentRepo := repository.NewBusinessDocumentRepository(db)
	categoryRepo := repository.NewBusinessCategoryRepository(db)
	searchRepo := repository.NewSearchHistoryRepository(db)
	accreditationRepo := repository.NewAccreditationRepository(db)
	accreditationHistoryRepo := repository.NewAccreditationHistoryRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	reviewResponseRepo := repository.NewReviewResponseRepository(db)
	reviewVoteRepo := repository.NewReviewVoteRepository(db)
	reviewMediaRepo := repository.NewReviewMediaRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	complaintThreadRepo := repository.NewComplaintThreadRepository(db)
	complaintEvidenceRepo := repository.NewComplaintEvidenceRepository(db)
	subscriptionRepo := repository.NewBusinessSubscriptionRepository(db)
	subscriberRepo := repository.NewNewsletterSubscriberRepository(db)
	templateRepo := repository.NewNewsletterTemplateRepository(db)
	campaignRepo := repository.NewNewsletterCampaignRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	chatSessionRepo := repository.NewChatSessionRepository(db)
	chatMessageRepo := repository.NewChatMessageRepository(db)

	authFlow := businessflow.NewAuthFlow(
		userRepo,
		sessionRepo,
		resetRepo,
		attemptRepo,
		permissionRepo,
		auditRepo,
		notificationSvc,
		captchaSvc,
		tx,
		cfg.Links.PasswordResetURL,
		logger,
	)
	businessFlow := businessflow.NewBusinessProfileFlow(
		businessRepo,
		locationRepo,
		documentRepo,
		categoryRepo,
		searchRepo,
		userRepo,
		permissionRepo,
		fileStore,
		publisher,
		tx,
		logger,
	)
	accreditationFlow := businessflow.NewAccreditationFlow(
		accreditationRepo,
		accreditationHistoryRepo,
		businessRepo,
		notificationRepo,
		userRepo,
		permissionRepo,
		notificationSvc,
		publisher,
		tx,
		logger,
	)
	reviewFlow := businessflow.NewReviewFlow(
		reviewRepo,
		reviewResponseRepo,
		reviewVoteRepo,
		reviewMediaRepo,
		businessRepo,
		notificationRepo,
		userRepo,
		permissionRepo,
		tx,
		logger,
	)
	reviewMediaFlow := businessflow.NewReviewMediaFlow(reviewRepo, reviewMediaRepo, fileStore, logger)
	complaintFlow := businessflow.NewComplaintFlow(
		complaintRepo,
		complaintThreadRepo,
		complaintEvidenceRepo,
		businessRepo,
		notificationRepo,
		userRepo,
		permissionRepo,
		captchaSvc,
		fileStore,
		publisher,
		tx,
		logger,
	)
	subscriptionFlow := businessflow.NewSubscriptionFlow(subscriptionRepo, businessRepo, userRepo, permissionRepo, tx, logger)
	newsletterFlow := businessflow.NewNewsletterFlow(
		subscriberRepo,
		templateRepo,
		campaignRepo,
		subscriptionRepo,
		businessRepo,
		userRepo,
		permissionRepo,
		locker,
		tokenSvc,
		notificationSvc,
		tx,
		cfg.Links.UnsubscribeURL,
		logger,
	)
	communicationFlow := businessflow.NewCommunicationFlow(
		messageRepo,
		notificationRepo,
		chatSessionRepo,
		chatMessageRepo,
		businessRepo,
		subscriptionRepo,
		userRepo,
		permissionRepo,
		tx,
		logger,
	)
	reportFlow := businessflow.NewReportFlow(complaintRepo, reviewRepo, businessRepo, userRepo, permissionRepo, logger)

	probes := map[string]handlers.Probe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rc != nil {
		probes["redis"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
	}
	if nats != nil {
		probes["nats"] = func(context.Context) error {
			if !nats.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}
	}

	app.router = router.NewFiberRouter(
		router.Handlers{
			Auth:          handlers.NewAuthHandler(authFlow, captchaSvc),
			Business:      handlers.NewBusinessHandler(businessFlow),
			Accreditation: handlers.NewAccreditationHandler(accreditationFlow),
			Review:        handlers.NewReviewHandler(reviewFlow, reviewMediaFlow),
			Complaint:     handlers.NewComplaintHandler(complaintFlow),
			Subscription:  handlers.NewSubscriptionHandler(subscriptionFlow, newsletterFlow),
			Communication: handlers.NewCommunicationHandler(communicationFlow),
			Report:        handlers.NewReportHandler(reportFlow),
			Health:        handlers.NewHealthHandler(cfg.Deployment.Version, probes),
		},
		middleware.NewAuthMiddleware(authFlow, logger),
		router.Options{
			BodyLimit:        cfg.Server.BodyLimit,
			ReadTimeout:      cfg.Server.ReadTimeout,
			WriteTimeout:     cfg.Server.WriteTimeout,
			IdleTimeout:      cfg.Server.IdleTimeout,
			ProxyHeader:      cfg.Server.ProxyHeader,
			TrustedProxies:   cfg.Server.TrustedProxies,
			AllowedOrigins:   cfg.Security.AllowedOrigins,
			AllowCredentials: cfg.Security.AllowCredentials,
			GlobalRateLimit:  cfg.Security.GlobalRateLimit,
			AuthRateLimit:    cfg.Security.AuthRateLimit,
			RateLimitWindow:  cfg.Security.RateLimitWindow,
			IPBlacklist:      cfg.Security.IPBlacklist,
			MetricsEnabled:   cfg.Metrics.Enabled,
			MetricsPath:      cfg.Metrics.Path,
		},
		logger,
	)

	sched := scheduler.NewLifecycleScheduler(
		authFlow,
		accreditationFlow,
		newsletterFlow,
		locker,
		scheduler.Config{
			Enabled:          cfg.Scheduler.Enabled,
			CleanupSchedule:  cfg.Scheduler.CleanupSchedule,
			ExpirySchedule:   cfg.Scheduler.ExpirySchedule,
			ReminderSchedule: cfg.Scheduler.ReminderSchedule,
			DispatchSchedule: cfg.Scheduler.DispatchSchedule,
			JobTimeout:       cfg.Scheduler.JobTimeout,
		},
		logger,
	)
	stopScheduler, err := sched.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}
	// stop the scheduler before the pools it uses are closed
	app.stopFuncs = append(app.stopFuncs, stopScheduler)

	return app, nil
}
