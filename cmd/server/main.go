package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/simaogato/budgetline-backend/internal/adapter/events"
	grpcadapter "github.com/simaogato/budgetline-backend/internal/adapter/grpc"
	"github.com/simaogato/budgetline-backend/internal/adapter/repository/memory"
	"github.com/simaogato/budgetline-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/budgetline-backend/internal/config"
	"github.com/simaogato/budgetline-backend/internal/domain"
	applog "github.com/simaogato/budgetline-backend/internal/log"
	"github.com/simaogato/budgetline-backend/internal/usecase/analysis"
	"github.com/simaogato/budgetline-backend/internal/usecase/derogation"
	"github.com/simaogato/budgetline-backend/internal/usecase/hierarchy"
	"github.com/simaogato/budgetline-backend/internal/usecase/ledger"
)

// backend is a store that can also open transactions
type backend interface {
	domain.Store
	domain.Transactor
}

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	level, _ := applog.ParseLevel(cfg.LogLevel)
	logger := applog.New(applog.Config{Level: level, Component: applog.ComponentApp, Output: os.Stdout})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Failure(context.Background(), "Configuration validation failed", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Failure(context.Background(), "Server stopped with error", err)
		os.Exit(1)
	}
	logger.Info("gRPC server stopped")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 1. Storage
	store, closeStore, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// 2. Event publishing
	publisher, closePublisher, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	// 3. Services (use cases)
	hierarchyService := hierarchy.NewHierarchyService(store, store)
	hierarchyService.Logger = logger.WithComponent(applog.ComponentHierarchy)
	ledgerService := ledger.NewLedgerService(store, store)
	ledgerService.Logger = logger.WithComponent(applog.ComponentLedger)
	derogationService := derogation.NewDerogationService(store, store, publisher)
	derogationService.Logger = logger.WithComponent(applog.ComponentDerogation)
	analysisService := analysis.NewAnalysisService(store.Analysis())
	analysisService.Logger = logger.WithComponent(applog.ComponentAnalysis)

	// 4. gRPC server
	limiter, closeLimiter := newLimiter(ctx, cfg, logger)
	defer closeLimiter()

	// Handlers detached by the timeout interceptor may outlive GracefulStop
	var inflight sync.WaitGroup

	grpcLogger := logger.WithComponent(applog.ComponentGRPC)
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(grpcLogger),
			grpcadapter.AuthInterceptor(cfg.APIToken),
			grpcadapter.RateLimitInterceptor(limiter, logger.WithComponent(applog.ComponentRateLimit)),
			grpcadapter.TimeoutInterceptor(cfg.RequestTimeout, &inflight),
		),
	)

	grpcAdapter := grpcadapter.NewServer(hierarchyService, ledgerService, derogationService, analysisService)
	grpcadapter.RegisterBudgetLineServiceServer(grpcServer, grpcAdapter)

	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr(), err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("gRPC server listening", applog.FieldAddress, cfg.ListenAddr(), applog.FieldBackend, cfg.DataBackend)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpclib.ErrServerStopped) {
			return fmt.Errorf("failed to serve gRPC server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...", applog.FieldOperation, applog.OpShutdown)
		grpcServer.GracefulStop()
		return nil
	})

	err = g.Wait()

	// The deferred closers release the store only once every handler has returned
	inflight.Wait()
	return err
}

// openBackend returns the configured store and a function releasing it
func openBackend(cfg *config.Config, logger *applog.Logger) (backend, func(), error) {
	storageLogger := logger.WithComponent(applog.ComponentStorage)

	if cfg.DataBackend == config.BackendMemory {
		storageLogger.Warn("using the in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	if cfg.DBAutoMigrate {
		if err := postgres.RunMigrations(cfg.DBConnStr); err != nil {
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		storageLogger.Info("Database migrations applied", applog.FieldOperation, applog.OpMigrate)
	}

	db, err := postgres.NewDB(cfg.DBConnStr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	storageLogger.Info("Connected to database")

	return postgres.NewStore(db), func() { db.Close() }, nil
}

// newPublisher connects to the broker when AMQP_URL is set, otherwise events are only logged
func newPublisher(ctx context.Context, cfg *config.Config, logger *applog.Logger) (domain.EventPublisher, func(), error) {
	amqpLogger := logger.WithComponent(applog.ComponentAMQP)

	if cfg.AMQPURL == "" {
		amqpLogger.Info("AMQP disabled - derogation events are logged only")
		return events.LogPublisher{Logger: amqpLogger}, func() {}, nil
	}

	publisher, err := events.NewAMQPPublisher(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, amqpLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize AMQP publisher: %w", err)
	}
	amqpLogger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange, "routing_key", cfg.AMQPRoutingKey)

	return publisher, func() { publisher.Close() }, nil
}

// newLimiter shares rate-limit counters through Redis when REDIS_ADDR is set and reachable
func newLimiter(ctx context.Context, cfg *config.Config, logger *applog.Logger) (grpcadapter.Limiter, func()) {
	limitLogger := logger.WithComponent(applog.ComponentRateLimit)

	if cfg.RedisAddr == "" {
		return grpcadapter.NewMemoryLimiter(cfg.RateLimit, cfg.RateInterval), func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		limitLogger.Warn("Redis unreachable, rate limiting per process", applog.FieldError, err, applog.FieldAddress, cfg.RedisAddr)
		client.Close()
		return grpcadapter.NewMemoryLimiter(cfg.RateLimit, cfg.RateInterval), func() {}
	}

	limitLogger.Info("Rate limiting through Redis", applog.FieldAddress, cfg.RedisAddr)
	return grpcadapter.NewRedisLimiter(client, cfg.RateLimit, cfg.RateInterval), func() { client.Close() }
}
