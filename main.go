package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/cache"
	youtubeclient "social-scheduler/infrastructure/clients/youtube"
	"social-scheduler/infrastructure/configuration"
	"social-scheduler/infrastructure/logger"
	"social-scheduler/infrastructure/persistence"
	"social-scheduler/infrastructure/publisher"
	"social-scheduler/infrastructure/pubsub"
	"social-scheduler/infrastructure/realtime"
	"social-scheduler/infrastructure/servicebus"
	httpHandler "social-scheduler/interfaces/http"
	"social-scheduler/server"
	"social-scheduler/usecase"

	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App

	primaryDb, psqlDb, err := InitiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Database initialization failed")
		os.Exit(1)
	}

	// Repository wiring: MSSQL in production, otherwise PostgreSQL.
	var postRepository repository.IScheduledPost
	var userRepository repository.IUser
	var tokenRepository repository.IOAuthToken
	if psqlDb == nil {
		if err := persistence.EnsureSchedulerSchemaMSSQL(primaryDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring scheduler schema (mssql)")
		}
		if err := persistence.EnsureOAuthTokenSchemaMSSQL(primaryDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring oauth token schema (mssql)")
		}
		postRepository = persistence.NewScheduledPostRepositoryMSSQL(primaryDb)
		userRepository = persistence.NewUserRepositoryMSSQL(primaryDb)
		tokenRepository = persistence.NewOAuthTokenRepositoryMSSQL(primaryDb)
	} else {
		if err := persistence.EnsureSchedulerSchema(psqlDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring scheduler schema")
		}
		postRepository = persistence.NewScheduledPostRepository(psqlDb)
		userRepository = persistence.NewUserRepository(psqlDb)
		tokenRepository = persistence.NewOAuthTokenRepository(psqlDb)
	}

	mongoDb, err := persistence.NewMongoDb(
		configuration.C.Database.Mongo.Host,
		configuration.C.Database.Mongo.Port,
		configuration.C.Database.Mongo.User,
		configuration.C.Database.Mongo.Password,
		configuration.C.Database.Mongo.Name,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - continuing without posting history")
		mongoDb = nil
	} else if err := mongoDb.Ping(ctx, nil); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - continuing without posting history")
		mongoDb = nil
	} else {
		logger.GetLogger().Info("MongoDB connected successfully")
	}
	historyRepository := persistence.NewPostingHistoryRepository(mongoDb)

	pubSubClient, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Pub/Sub not available - continuing without cache invalidation broadcast")
		pubSubClient = nil
	}
	invalidationBus := pubsub.NewInvalidationBus(pubSubClient)

	azServiceBusClient, err := servicebus.NewServiceBus(ctx, configuration.C.ServiceBus.Namespace)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without sweep triggers")
		azServiceBusClient = nil
	}
	sweepTrigger := servicebus.NewSweepTrigger(azServiceBusClient)

	redisClient, _ := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	schedulerCache := cache.NewSchedulerCache(redisClient)

	// YouTube publishing needs OAuth tokens; the other platforms use the
	// per-user tokens from the oauth_tokens table.
	var ytClient *youtubeclient.Client
	youtubeConfig, err := configuration.GetYouTubeConfig()
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("YouTube configuration not found - YouTube publishing disabled")
	} else {
		ytClient, err = youtubeclient.NewYouTubeClient(ctx, youtubeConfig)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Failed to initialize YouTube client - YouTube publishing disabled")
			ytClient = nil
		}
	}

	registry := publisher.NewRegistry(
		publisher.NewFacebookPublisher(tokenRepository),
		publisher.NewTwitterPublisher(tokenRepository),
		publisher.NewInstagramPublisher(tokenRepository),
		publisher.NewLinkedInPublisher(tokenRepository),
		publisher.NewTikTokPublisher(tokenRepository),
		publisher.NewYouTubePublisher(ytClient),
	)

	sched := configuration.C.Scheduler
	metrics := usecase.NewPostMetrics(schedulerCache)
	admission := usecase.NewAdmissionController(metrics, nil)
	stateMachine := usecase.NewStateMachine(postRepository, sched.MaxRetries)

	postHub := realtime.NewPostHub()
	dispatcher := usecase.NewDispatcher(
		postRepository,
		stateMachine,
		admission,
		registry,
		metrics,
		schedulerCache,
		usecase.DispatcherConfig{
			BatchSize:      sched.BatchSize,
			PublishTimeout: time.Duration(sched.PublishTimeoutSeconds) * time.Second,
			QueueHighWater: int64(sched.QueueHighWater),
			WorkerCount:    sched.WorkerCount,
		},
	).
		WithHistory(historyRepository).
		WithInvalidationBus(invalidationBus).
		WithBroadcaster(postHub.BroadcastPostStatus)

	postUsecase := usecase.NewScheduledPostUsecase(
		postRepository,
		stateMachine,
		dispatcher,
		admission,
		metrics,
		schedulerCache,
		sched.Platforms,
	).
		WithHistory(historyRepository).
		WithBroadcaster(postHub.BroadcastPostStatus)

	userUsecase := usecase.NewUserUsecase(userRepository)

	userHandler := httpHandler.NewUserHandler(userUsecase)
	postHandler := httpHandler.NewScheduledPostHandler(postUsecase)
	facebookOAuthHandler := httpHandler.NewFacebookOAuthHandler(tokenRepository)
	youtubeAuthHandler, err := httpHandler.NewYouTubeAuthHandler(tokenRepository)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Failed to initialize YouTube auth handler")
		youtubeAuthHandler = nil
	}

	router := server.InitiateRouter(userHandler, postHandler, facebookOAuthHandler, youtubeAuthHandler, userRepository, postHub)

	// Periodic dispatch sweep.
	sweepInterval := time.Duration(sched.SweepIntervalSeconds) * time.Second
	if sweepInterval <= 0 {
		sweepInterval = 15 * time.Second
	}
	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				sweepCtx, cancelSweep := context.WithTimeout(ctx, sweepInterval)
				result, err := postUsecase.ProcessPending(sweepCtx)
				cancelSweep()
				if err != nil {
					logger.GetLogger().WithField("error", err).Error("Dispatch sweep failed")
					continue
				}
				if result.Found > 0 || result.Skipped {
					logger.GetLogger().
						WithField("found", result.Found).
						WithField("skipped", result.Skipped).
						WithField("duration_ms", result.Duration.Milliseconds()).
						Info("Dispatch sweep completed")
				}
			}
		}
	})

	// Out-of-band sweep triggers from the service bus.
	g.Go(func() error {
		return sweepTrigger.Listen(ctx, func(triggerCtx context.Context) {
			if _, err := postUsecase.ProcessPending(triggerCtx); err != nil {
				logger.GetLogger().WithField("error", err).Error("Triggered sweep failed")
			}
		})
	})

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if app.TLSEnabled {
			cert := app.TLSCertFile
			key := app.TLSKeyFile
			if cert == "" || key == "" {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
				if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			}
			if err := httpServer.ListenAndServeTLS(cert, key); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

func InitiateDatabase() (*sql.DB, *sql.DB, error) {
	// Contract: return (primaryDB, psqlDB). In production, primaryDB = MSSQL and psqlDB is nil.
	env := os.Getenv("ENV")
	if v := os.Getenv("DB_VENDOR"); v == "mssql" {
		mssql, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL (DB_VENDOR=mssql)")
			return nil, nil, err
		}
		return mssql, nil, nil
	}
	if env == "production" || env == "prod" {
		mssql, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL (production)")
			return nil, nil, err
		}
		return mssql, nil, nil
	}

	// Default/local: MySQL keeps the gorm-managed models, PostgreSQL holds the scheduler tables.
	db, err := persistence.NewNativeDb()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to the local database")
		return nil, nil, err
	}
	postgres, err := persistence.NewPostgreSQLDB()
	if err != nil {
		return nil, nil, err
	}
	return db, postgres, nil
}
