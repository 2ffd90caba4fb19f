package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/go-redis/redis/v8"
	"github.com/streadway/amqp"
	"google.golang.org/api/option"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/config"
	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/consumer"
	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/repository"
	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/routes"
	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/scheduler"
	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/services"
	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/pkg/logger"
	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/pkg/metrics"
	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logr := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, logr); err != nil {
		logr.Error("notifier exited", slog.Any("error", err))
		os.Exit(1)
	}
	logr.Info("notifier stopped")
}

func run(cfg *config.Config, logr *slog.Logger) error {
	logr.Info("starting notifier", slog.String("app", cfg.AppName), slog.String("project", cfg.FirebaseProjectID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCfg := retry.Config{
		MaxAttempts:    cfg.ConnectMaxAttempts,
		InitialBackoff: cfg.ConnectInitialBackoff,
		MaxBackoff:     cfg.ConnectMaxBackoff,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			logr.Warn("connection attempt failed", slog.Int("attempt", attempt), slog.Duration("wait", wait), slog.Any("error", err))
		},
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
	if err != nil {
		return fmt.Errorf("init firebase: %w", err)
	}
	fs, err := app.Firestore(ctx)
	if err != nil {
		return fmt.Errorf("init firestore: %w", err)
	}
	defer fs.Close()
	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("init messaging: %w", err)
	}

	history, err := newHistoryStore(ctx, cfg, fs, connectCfg)
	if err != nil {
		return err
	}

	var claims services.EventClaimer
	if cfg.RedisURL != "" {
		redisRepo := repository.NewRedisRepository(redis.NewClient(redisOptions(cfg.RedisURL)), cfg.DedupTTL)
		defer redisRepo.Close()
		if err := retry.Do(ctx, connectCfg, func() error { return redisRepo.Ping(ctx) }); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		claims = redisRepo
	} else {
		logr.Warn("REDIS_URL not set, trigger events are not de-duplicated")
	}

	metricsCollector := metrics.New()
	tokens := repository.NewFirestoreTokenRegistry(fs, cfg.TokensCollection)
	dispatcher := services.NewFCMDispatcher(messagingClient, logr)
	sweeper := services.NewSweeper(tokens, dispatcher, metricsCollector, logr, cfg.ProbeConcurrency)
	notifier := services.NewNotifier(
		tokens,
		dispatcher,
		services.NewAuditLogger(history, logr),
		claims,
		sweeper,
		metricsCollector,
		logr,
		services.NotifierConfig{
			LowStockThreshold: cfg.LowStockThreshold,
			CreatedTTL:        cfg.ProductCreatedTTL,
		},
	)

	var conn *amqp.Connection
	err = retry.Do(ctx, connectCfg, func() error {
		c, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	defer conn.Close()

	base := consumer.NewBaseConsumer(
		conn,
		cfg.ProductExchange,
		cfg.ProductQueue,
		cfg.DeadLetterQueue,
		consumer.RoutingKeys,
		cfg.PrefetchCount,
		cfg.WorkerCount,
		logr,
	)
	productConsumer := consumer.NewProductConsumer(base, notifier, logr)

	started := time.Now()
	httpSrv := startHTTPServer(cfg.HTTPPort, routes.NewRouter(notifier, metricsCollector, logr, started), logr)
	defer shutdownHTTP(httpSrv, logr)

	go scheduler.Every(ctx, cfg.CleanupInterval, cfg.CleanupOnStart, "cleanup_invalid_tokens", logr, func(ctx context.Context) {
		_, _ = notifier.CleanupInvalidTokens(ctx)
	})

	if err := productConsumer.Start(ctx); err != nil {
		return fmt.Errorf("product consumer: %w", err)
	}
	return nil
}

func newHistoryStore(ctx context.Context, cfg *config.Config, fs *firestore.Client, connectCfg retry.Config) (services.HistoryStore, error) {
	if cfg.HistoryBackend != config.HistoryPostgres {
		return repository.NewFirestoreHistoryStore(fs, cfg.HistoryCollection), nil
	}

	var db *gorm.DB
	err := retry.Do(ctx, connectCfg, func() error {
		conn, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			return err
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return repository.NewSQLHistoryStore(db, cfg.HistoryTable)
}

func redisOptions(raw string) *redis.Options {
	if opts, err := redis.ParseURL(raw); err == nil {
		return opts
	}
	return &redis.Options{Addr: raw}
}

func startHTTPServer(port string, handler http.Handler, logr *slog.Logger) *http.Server {
	if port == "" {
		port = "8083"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("http server error", slog.Any("error", err))
		}
	}()
	return srv
}

func shutdownHTTP(srv *http.Server, logr *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("failed to shutdown http server", slog.Any("error", err))
	}
}
