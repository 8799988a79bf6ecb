package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"gaplens/internal/backend"
	"gaplens/internal/config"
	"gaplens/internal/core"
	"gaplens/internal/dataset"
	"gaplens/internal/logger"
	"gaplens/internal/stages"
	"gaplens/internal/storage"
	"gaplens/pkg"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	sessionID := flag.String("session", "", "resume an existing session id")
	flag.Parse()

	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	question := strings.Join(flag.Args(), " ")
	if question == "" && *sessionID == "" {
		question = "What skills does the team need for the Customer Portal Redesign?"
	}

	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer store.Close()

	provider := dataset.NewMockProvider()
	pipeline, err := stages.Build(cfg.Pipeline.Stages, provider)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline")
	}

	engine, err := core.NewEngine(store, backend.NewSelector(cfg.BackendConfig()), core.Options{
		Stages:      pipeline,
		BackendName: cfg.Backend.Name,
		Params:      cfg.BackendParams(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build engine")
	}

	result, err := engine.Run(ctx, core.RunRequest{SessionID: *sessionID, UserInput: question})
	if err != nil {
		log.Fatal().Err(err).Msg("run failed")
	}

	output, err := sonic.ConfigDefault.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to encode result")
	}
	fmt.Println(string(output))

	if result.Status == pkg.StatusFailed {
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (storage.MemoryStore, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return storage.NewMemStore(), nil
	case "file":
		return storage.NewFileStore(cfg.Storage.Dir)
	case "redis":
		return storage.NewRedisStore(ctx, cfg.Storage.RedisURL, cfg.SessionTTL())
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}
