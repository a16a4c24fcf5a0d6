package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/vcards/cmd/vcards/cli"
	"github.com/odyssey-erp/vcards/internal/app"
	"github.com/odyssey-erp/vcards/internal/auth"
	authhttp "github.com/odyssey-erp/vcards/internal/auth/http"
	"github.com/odyssey-erp/vcards/internal/cards"
	"github.com/odyssey-erp/vcards/internal/health"
	"github.com/odyssey-erp/vcards/internal/observability"
	"github.com/odyssey-erp/vcards/internal/platform/cache"
	"github.com/odyssey-erp/vcards/internal/platform/db"
	"github.com/odyssey-erp/vcards/internal/rbac"
	"github.com/odyssey-erp/vcards/internal/shared"
	"github.com/odyssey-erp/vcards/internal/transactions"
	"github.com/odyssey-erp/vcards/internal/users"
	"github.com/odyssey-erp/vcards/jobs"
)

const registryPruneInterval = time.Minute

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobs(ctx, cfg, os.Args[2:]))
	}
	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	jsonOutput := fs.Bool("json", false, "print machine readable output")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	opts := cli.JobsOptions{Action: fs.Arg(0), Job: fs.Arg(1), JSONOutput: *jsonOutput}
	helper := cli.NewJobsCLI(cfg.RedisAddr)
	defer func() { _ = helper.Close() }()
	return helper.JobsCommand(ctx, opts)
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	hasher := auth.NewHasher(cfg.BcryptCost)
	codec, err := auth.NewCodec([]byte(cfg.TokenSecret), cfg.TokenAlgorithm, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}
	registry := auth.NewRegistry()
	usersRepo := users.NewRepository(pool)
	authService := auth.NewService(auth.ServiceConfig{
		Store:         usersRepo,
		Hasher:        hasher,
		Codec:         codec,
		Registry:      registry,
		RevocationTTL: cfg.RevocationTTL,
		Logger:        logger,
	})
	guard := auth.NewGuard(registry, codec, usersRepo, nil)

	metrics := observability.NewMetrics()
	metrics.TrackRevokedTokens(registry.Len)
	matrix := rbac.DefaultMatrix()
	rbacMiddleware := rbac.Middleware{Guard: guard, Matrix: matrix, Logger: logger, Metrics: metrics}

	usersService := users.NewService(usersRepo, hasher, logger)
	if _, err := usersService.EnsureAdmin(ctx, users.AdminSeed{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	cardsService := cards.NewService(cards.ServiceConfig{
		Repo:          cards.NewRepository(pool),
		Hasher:        hasher,
		ValidityYears: cfg.CardValidityYears,
		Logger:        logger,
	})
	idempotency := shared.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL)
	transactionsService := transactions.NewService(transactions.NewRepository(pool), cardsService, idempotency, nil, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		AuthHandler:         authhttp.NewHandler(logger, authService, usersService, rbacMiddleware),
		UsersHandler:        users.NewHandler(logger, usersService, authService, rbacMiddleware),
		CardsHandler:        cards.NewHandler(logger, cardsService, rbacMiddleware),
		TransactionsHandler: transactions.NewHandler(logger, transactionsService, rbacMiddleware),
		HealthHandler: health.NewHandler(logger, nil, rbacMiddleware,
			health.Check{Name: "postgres", Probe: pool.Ping},
			health.Check{Name: "redis", Probe: cache.Ping(redisClient)},
		),
		JobHandler:         jobs.NewHandler(inspector, logger),
		PermissionsHandler: rbac.NewPermissionsHandler(matrix, rbacMiddleware),
		Metrics:            metrics,
	})

	go pruneRegistry(ctx, registry)

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// pruneRegistry drops closed revocation windows so the gauge stays accurate
// between requests.
func pruneRegistry(ctx context.Context, registry *auth.Registry) {
	ticker := time.NewTicker(registryPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			registry.Prune(now.UTC())
		}
	}
}
