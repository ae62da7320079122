package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"forest.app/forest/common/id"
	"forest.app/forest/common/llm"
	"forest.app/forest/common/logger"
	"forest.app/forest/common/otel"
	"forest.app/forest/core/config"
	"forest.app/forest/core/db"
	"forest.app/forest/internal/archetype"
	"forest.app/forest/internal/brain"
	"forest.app/forest/internal/http/middleware"
	httprouter "forest.app/forest/internal/http/router"
	"forest.app/forest/internal/queue"
	"forest.app/forest/internal/service"
	"forest.app/forest/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "forest starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	if cfg.AutoMigrate {
		if err := db.MigrateUp(cfg.DB.DSN); err != nil {
			slog.ErrorContext(ctx, "failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	llmClient, err := llm.NewFromConfig(llm.Config(cfg.LLM))
	if err != nil {
		slog.ErrorContext(ctx, "failed to create llm client", "error", err)
		os.Exit(1)
	}

	catalog, err := archetype.NewCatalog(cfg.Orchestrator.ArchetypesFile)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load archetypes", "error", err, "path", cfg.Orchestrator.ArchetypesFile)
		os.Exit(1)
	}

	var opts []brain.Option
	if cfg.Queue.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.Queue.RedisURL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}

		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "redis connected", "stream", cfg.Queue.RedisStream)

		producer := queue.NewRedisProducer(redisClient, cfg.Queue.RedisStream, nil)
		defer producer.Close()
		opts = append(opts, brain.WithRebalanceEnqueuer(producer))
	} else {
		slog.InfoContext(ctx, "queue disabled, hta rebalances run inline")
	}

	orch := brain.NewOrchestrator(llmClient, catalog, opts...)
	services := service.NewServices(store.NewStores(database.ORM(ctx)), service.NewTxRunner(database), orch)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(cfg, services),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// LLM calls dominate request time.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		slog.InfoContext(gctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := catalog.Watch(gctx); err != nil {
			slog.WarnContext(gctx, "archetypes watcher stopped", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.InfoContext(ctx, "shutting down...")

		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "server stopped with error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger("/health", "/metrics"))

	routerCfg := httprouter.RouterConfig{}
	if cfg.RateLimit.Enabled() {
		routerCfg.RateLimiter = middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
	httprouter.SetupRoutes(router, services, routerCfg)

	return router
}

const banner = `
 ███████╗ ██████╗ ██████╗ ███████╗███████╗████████╗
 ██╔════╝██╔═══██╗██╔══██╗██╔════╝██╔════╝╚══██╔══╝
 █████╗  ██║   ██║██████╔╝█████╗  ███████╗   ██║
 ██╔══╝  ██║   ██║██╔══██╗██╔══╝  ╚════██║   ██║
 ██║     ╚██████╔╝██║  ██║███████╗███████║   ██║
 ╚═╝      ╚═════╝ ╚═╝  ╚═╝╚══════╝╚══════╝   ╚═╝
`
