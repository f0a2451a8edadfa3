package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/config"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/events"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/healthcheck"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/httpapi"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/identity"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/jetstream"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/observer"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/ratelimit"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/storage"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/usecase"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/logger"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/utils"
)

const limiterSweepInterval = time.Minute

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	observer.InitMetrics(cfg.Metrics.Enabled)

	logger.Log.Info("Starting buyer lead CRM",
		zap.String("environment", cfg.Environment),
		zap.Bool("nats_enabled", cfg.NATS.Enabled),
		zap.String("rate_limit_backend", cfg.RateLimit.Backend),
	)

	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	postgresRepo, err := initPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	publisher, jsClient, err := initPublisher(mainCtx, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize lead event publisher", zap.Error(err))
	}

	redisClient, limiter, err := initLimiter(mainCtx, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize rate limiter", zap.Error(err))
	}

	tokens, err := identity.NewTokenIssuer(cfg.Auth.JWTSecret)
	if err != nil {
		logger.Log.Fatal("Failed to initialize token verification", zap.Error(err))
	}

	validationPool, err := usecase.NewValidationPool(cfg.WorkerPools.Validation, logger.Log)
	if err != nil {
		logger.Log.Fatal("Failed to initialize validation worker pool", zap.Error(err))
	}

	service := usecase.NewLeadService(
		storage.NewLeadRepoAdapter(postgresRepo),
		storage.NewHistoryRepoAdapter(postgresRepo),
		validationPool,
		publisher,
		usecase.OptionsFromConfig(cfg),
	)

	apiServer := &http.Server{
		Addr: ":" + strconv.Itoa(cfg.Server.Port),
		Handler: httpapi.NewRouter(httpapi.RouterConfig{
			Service:        service,
			Tokens:         tokens,
			Limiter:        limiter,
			MaxUploadBytes: cfg.Import.MaxUploadBytes,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	healthServer := healthcheck.NewServer(strconv.Itoa(cfg.Metrics.Port), logger.Log)
	healthServer.RegisterCheck("database", postgresRepo.Ping)
	if jsClient != nil {
		healthServer.RegisterCheck("nats", func(context.Context) error {
			if !jsClient.IsConnected() {
				return errors.New("nats connection is not established")
			}
			return nil
		})
	}
	if redisClient != nil {
		healthServer.RegisterCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	if cfg.Metrics.Enabled {
		healthServer.RegisterMetricsHandler(promhttp.Handler())
	} else {
		logger.Log.Info("Metrics endpoint disabled", zap.String("environment", cfg.Environment))
	}
	healthServer.Start()

	logger.Log.Info("Health check endpoints available",
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port)),
		zap.String("readiness", fmt.Sprintf("http://localhost:%d/ready", cfg.Metrics.Port)),
	)

	sigChan := make(chan os.Signal, 1)
	utils.SafeGo(func() {
		logger.Log.Info("Starting API server", zap.String("addr", apiServer.Addr))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("API server failed, initiating shutdown...", zap.Error(err))
			select {
			case sigChan <- syscall.SIGTERM:
			default:
				logger.Log.Warn("Could not send SIGTERM to signal channel immediately")
			}
		}
	}, nil)

	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	mainCancel()

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", shutdownTimeout))

	stopper := newShutdownGroup(logger.Log)

	// In-flight requests finish before the pool and the connections they use go away.
	stopper.Go("API server", func() {
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping API server", zap.Error(err))
		}
		validationPool.Stop()
		if err := postgresRepo.Close(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Failed to close PostgreSQL connection", zap.Error(err))
		}
		if jsClient != nil {
			jsClient.Close()
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Log.Error("[shutdown] Failed to close Redis connection", zap.Error(err))
			}
		}
	})
	stopper.Go("health check server", func() {
		if err := healthServer.Stop(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping health check server", zap.Error(err))
		}
	})

	if stopper.Wait(shutdownCtx) {
		logger.Log.Info("[shutdown] All components stopped gracefully")
	} else {
		logger.Log.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
	}

	logger.Log.Info("Buyer lead CRM shutdown complete")
}

func initPostgresRepo(dsn string, autoMigrate bool) (*storage.PostgresRepo, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	repo, err := storage.NewPostgresRepo(dsn, autoMigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
	}

	logger.Log.Info("Initialized PostgreSQL repository")
	return repo, nil
}

// initPublisher connects to JetStream and ensures the lead stream when NATS is enabled.
// Otherwise events are dropped by a NoopPublisher and the returned client is nil.
func initPublisher(ctx context.Context, cfg *config.Config) (events.Publisher, *jetstream.Client, error) {
	if !cfg.NATS.Enabled {
		logger.Log.Info("NATS disabled, lead events will not be published")
		return events.NoopPublisher{}, nil, nil
	}

	client, err := jetstream.NewClient(cfg.NATS.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create JetStream client: %w", err)
	}

	setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.SetupStream(setupCtx, jetstream.LeadStreamConfig(cfg.NATS.Stream, cfg.NATS.SubjectPrefix)); err != nil {
		client.Close()
		return nil, nil, err
	}

	return events.NewJetStreamPublisher(client, cfg.NATS.SubjectPrefix, cfg.NATS.PublishTimeout), client, nil
}

// initLimiter builds the limiter for the create endpoint. The Redis client is returned
// so that its lifecycle can be managed, and is nil for the memory backend.
func initLimiter(ctx context.Context, cfg *config.Config) (*redis.Client, ratelimit.Limiter, error) {
	policy := ratelimit.Policy{Limit: cfg.RateLimit.Limit, Window: cfg.RateLimit.Window}

	if cfg.RateLimit.Backend != ratelimit.BackendRedis {
		limiter := ratelimit.NewMemoryLimiter(policy)
		utils.SafeGo(func() { limiter.RunSweeper(ctx, limiterSweepInterval) }, nil)
		return nil, limiter, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
	}

	limiter, err := ratelimit.New(ratelimit.BackendRedis, policy, client)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	logger.Log.Info("Using Redis rate limiter", zap.String("addr", cfg.Redis.Addr))
	return client, limiter, nil
}
