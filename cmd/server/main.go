package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/internal/config"
	"github.com/northstarhq/api/internal/infra/http"
	"github.com/northstarhq/api/internal/infra/http/middleware"
	"github.com/northstarhq/api/internal/infra/http/routes"
	"github.com/northstarhq/api/internal/infra/jobs"
	"github.com/northstarhq/api/internal/infra/postgres"
	"github.com/northstarhq/api/internal/infra/redis"
	"github.com/northstarhq/api/internal/infra/storage"
	"github.com/northstarhq/api/internal/infra/websocket"
	"github.com/northstarhq/api/pkg/logger"
	"github.com/northstarhq/api/pkg/validator"
)

// Command line flags.
var (
	showRoutes  = flag.Bool("routes", false, "Print all registered routes and exit")
	routeFormat = flag.String("route-format", "table", "Route output format: table, json, csv, simple")
	routeMethod = flag.String("route-method", "", "Filter routes by HTTP method")
	routePath   = flag.String("route-path", "", "Filter routes containing this path")
	routeSort   = flag.String("route-sort", "path", "Sort routes by: path, method, handler")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	// ==========================================================================
	// Configuration & Logger
	// ==========================================================================
	cfg, err := config.Load()
	if err != nil {
		log := logger.NewDefault()
		log.Error("failed to load configuration", "error", err)
		return 1
	}

	log := initLogger(cfg)
	log.Info("starting application", "app", cfg.App.Name, "env", cfg.App.Env)

	// ==========================================================================
	// Infrastructure
	// ==========================================================================
	db, err := postgres.New(&cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return 1
	}
	defer closeWithLog(db, "database", log)
	log.Info("database connected")

	redisClient, err := redis.New(&cfg.Redis, log)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		return 1
	}
	defer closeWithLog(redisClient, "redis", log)
	log.Info("redis connected")

	tokenStore, err := redis.NewTokenStore(redisClient, log)
	if err != nil {
		log.Error("failed to initialize token store", "error", err)
		return 1
	}

	// ==========================================================================
	// Job Queue
	// ==========================================================================
	jobClient, err := jobs.NewClient(jobs.ClientConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		log.Error("failed to initialize job client", "error", err)
		return 1
	}
	defer closeWithLog(jobClient, "job client", log)

	emailEnqueuer := jobs.NewEmailEnqueuerAdapter(jobClient)
	billingEnqueuer := jobs.NewBillingEnqueuerAdapter(jobClient)

	// ==========================================================================
	// Object Storage
	// ==========================================================================
	objectStore, err := initObjectStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize object storage", "error", err)
		return 1
	}

	// ==========================================================================
	// Repositories & Services
	// ==========================================================================
	repos := NewRepositories(db)
	log.Info("repositories initialized")

	chatHistory, err := redis.NewChatHistoryCache(redisClient)
	if err != nil {
		log.Error("failed to initialize chat history cache", "error", err)
		return 1
	}

	services := NewServices(&ServiceDeps{
		Config:         cfg,
		Log:            log,
		Repos:          repos,
		TokenStore:     tokenStore,
		EmailEnqueuer:  emailEnqueuer,
		BillingEnqueue: billingEnqueuer,
		ObjectStore:    objectStore,
		ChatHistory:    chatHistory,
	})
	log.Info("services initialized")

	// ==========================================================================
	// WebSocket Hub
	// ==========================================================================
	// The hub checks room access through the chat service, and the chat
	// service broadcasts through the hub, so the broadcaster is wired late.
	hub := websocket.NewHub(services.Chat, log)
	services.Chat.SetBroadcaster(hub)

	wsCtx, wsCancel := context.WithCancel(ctx)
	defer wsCancel()

	go hub.Run(wsCtx)
	log.Info("websocket hub started")

	// ==========================================================================
	// Handlers & HTTP Server
	// ==========================================================================
	v := validator.New()
	handlers := NewHandlers(&HandlerDeps{
		Config:       cfg,
		Log:          log,
		Validator:    v,
		DB:           db,
		RedisClient:  redisClient,
		WebSocketHub: hub,
		Services:     services,
	})

	// Credential endpoints get an extra Redis-backed limiter so the
	// budget holds across instances, unlike the in-memory global one.
	authLimiter, err := redis.NewRateLimiter(redisClient, "ratelimit:auth", 10, time.Minute, log)
	if err != nil {
		log.Error("failed to initialize auth rate limiter", "error", err)
		return 1
	}

	authCfg := routes.AuthConfig{
		Validator: services.Auth.TokenGenerator(),
		Blacklist: tokenStore,
		Throttle: middleware.DistributedRateLimit(middleware.DistributedRateLimitConfig{
			Limiter: redis.NewMiddlewareAdapter(authLimiter),
			Logger:  log,
		}),
	}

	server := http.NewServer(cfg, log)
	routes.Register(server.Router(), handlers, cfg, log, authCfg, repos.Tenant)

	// Handle --routes flag
	if *showRoutes {
		stats := http.CollectRoutes(server.Router())
		filters := http.RouteFilters{
			Method: *routeMethod,
			Path:   *routePath,
			SortBy: *routeSort,
		}
		http.PrintRoutes(os.Stdout, stats, *routeFormat, filters)
		return 0
	}

	// ==========================================================================
	// Workers
	// ==========================================================================
	workers, err := NewWorkers(&WorkerDeps{
		Config:        cfg,
		Log:           log,
		Repos:         repos,
		Services:      services,
		EmailEnqueuer: emailEnqueuer,
	})
	if err != nil {
		log.Error("failed to initialize workers", "error", err)
		return 1
	}

	if err := workers.Start(ctx, log); err != nil {
		log.Error("failed to start workers", "error", err)
		return 1
	}

	// ==========================================================================
	// Start Server
	// ==========================================================================
	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", "error", err)
		}
	}()
	log.Info("application started", "http_addr", cfg.Server.Addr())

	// ==========================================================================
	// Graceful Shutdown
	// ==========================================================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop WebSocket hub first (closes all connections)
	wsCancel()
	log.Info("websocket hub stopped")

	// Stop workers
	workers.Stop(log)

	// Then stop server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		return 1
	}

	log.Info("application stopped")
	return 0
}

// =============================================================================
// Helper Functions
// =============================================================================

func initLogger(cfg *config.Config) *logger.Logger {
	var log *logger.Logger
	if cfg.IsProduction() {
		log = logger.NewProduction()
	} else {
		log = logger.NewDevelopment()
	}
	log.SetDefault()
	return log
}

// initObjectStore builds the S3 store when storage is configured. A nil
// store leaves avatar and logo uploads disabled.
func initObjectStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (app.ObjectStore, error) {
	if !cfg.Storage.IsConfigured() {
		log.Info("object storage not configured, uploads disabled")
		return nil, nil
	}

	store, err := storage.NewS3Store(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	log.Info("object storage initialized", "bucket", cfg.Storage.Bucket)
	return store, nil
}

type closer interface {
	Close() error
}

func closeWithLog(c closer, name string, log *logger.Logger) {
	if err := c.Close(); err != nil {
		log.Error("failed to close "+name, "error", err)
	}
}
