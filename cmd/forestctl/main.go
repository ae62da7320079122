package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"forest.app/forest/common/id"
	"forest.app/forest/common/llm"
	"forest.app/forest/common/logger"
	"forest.app/forest/core/config"
	"forest.app/forest/core/db"
	"forest.app/forest/internal/archetype"
	"forest.app/forest/internal/brain"
	"forest.app/forest/internal/service"
	"forest.app/forest/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "forestctl",
	Short:         "Operate a Forest deployment",
	Long:          `Run migrations, inspect and move user snapshots, and manage seeds from the command line.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	logger.Setup(cfg)
	return cfg, nil
}

// app is the wiring shared by the commands that touch user data.
type app struct {
	cfg      config.Config
	db       *db.DB
	catalog  *archetype.Catalog
	services *service.Services
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	// node 3 keeps CLI ids apart from server and worker
	if err := id.Init(3); err != nil {
		return nil, fmt.Errorf("initializing id generator: %w", err)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	llmClient, err := llm.NewFromConfig(llm.Config(cfg.LLM))
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating llm client: %w", err)
	}

	catalog, err := archetype.NewCatalog(cfg.Orchestrator.ArchetypesFile)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("loading archetypes: %w", err)
	}

	orch := brain.NewOrchestrator(llmClient, catalog)
	return &app{
		cfg:      cfg,
		db:       database,
		catalog:  catalog,
		services: service.NewServices(store.NewStores(database.ORM(ctx)), service.NewTxRunner(database), orch),
	}, nil
}

func (a *app) Close() {
	a.db.Close()
}

func withApp(fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, cmd, a, args)
	}
}
