package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"forest.app/forest/common/id"
	"forest.app/forest/common/llm"
	"forest.app/forest/common/logger"
	"forest.app/forest/common/otel"
	"forest.app/forest/core/config"
	"forest.app/forest/core/db"
	"forest.app/forest/internal/archetype"
	"forest.app/forest/internal/brain"
	"forest.app/forest/internal/queue"
	"forest.app/forest/internal/service"
	"forest.app/forest/internal/store"
	"forest.app/forest/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.Setup(cfg)

	slog.InfoContext(ctx, "forest worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Queue.RedisGroup,
		"consumer_name", cfg.Queue.RedisConsumer)

	// different node ID than server
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

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
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Queue.RedisStream)

	consumer, err := queue.NewRedisConsumer(ctx, redisClient, queue.ConsumerConfig{
		Stream:       cfg.Queue.RedisStream,
		Group:        cfg.Queue.RedisGroup,
		Consumer:     cfg.Queue.RedisConsumer,
		DLQStream:    cfg.Queue.RedisDLQStream,
		BatchSize:    1, // one tree mutation at a time
		Block:        5 * time.Second,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

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

	// Rebalances run inline here; the worker never enqueues onto its own stream.
	orch := brain.NewOrchestrator(llmClient, catalog)
	services := service.NewServices(store.NewStores(database.ORM(ctx)), service.NewTxRunner(database), orch)

	w := worker.New(consumer, worker.NewProcessor(services.Maintenance(), cfg.Orchestrator.SnapshotExportDir), worker.Config{
		MaxAttempts:     3,
		ReclaimInterval: time.Minute,
		ReclaimMinIdle:  5 * time.Minute,
		ReclaimBatch:    10,
	})

	heartbeat := worker.NewHeartbeat(cfg.Orchestrator.HeartbeatInterval, map[string]worker.Check{
		"postgres": database.Ping,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	})

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error { return w.RunReclaimer(gctx) })
	g.Go(func() error { return heartbeat.Run(gctx) })
	g.Go(func() error {
		if err := catalog.Watch(gctx); err != nil {
			slog.WarnContext(gctx, "archetypes watcher stopped", "error", err)
		}
		return nil
	})

	slog.InfoContext(ctx, "worker initialized and running")

	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "worker stopped with error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

const banner = `
 ███████╗ ██████╗ ██████╗ ███████╗███████╗████████╗    ██╗    ██╗ ██████╗ ██████╗ ██╗  ██╗███████╗██████╗
 ██╔════╝██╔═══██╗██╔══██╗██╔════╝██╔════╝╚══██╔══╝    ██║    ██║██╔═══██╗██╔══██╗██║ ██╔╝██╔════╝██╔══██╗
 █████╗  ██║   ██║██████╔╝█████╗  ███████╗   ██║       ██║ █╗ ██║██║   ██║██████╔╝█████╔╝ █████╗  ██████╔╝
 ██╔══╝  ██║   ██║██╔══██╗██╔══╝  ╚════██║   ██║       ██║███╗██║██║   ██║██╔══██╗██╔═██╗ ██╔══╝  ██╔══██╗
 ██║     ╚██████╔╝██║  ██║███████╗███████║   ██║       ╚███╔███╔╝╚██████╔╝██║  ██║██║  ██╗███████╗██║  ██║
 ╚═╝      ╚═════╝ ╚═╝  ╚═╝╚══════╝╚══════╝   ╚═╝        ╚══╝╚══╝  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝
`
