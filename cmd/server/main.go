package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xhad/recall/pkg/config"
	"github.com/xhad/recall/pkg/extract"
	"github.com/xhad/recall/pkg/llm"
	"github.com/xhad/recall/pkg/rag"
	"github.com/xhad/recall/pkg/store"
	"github.com/xhad/recall/server"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			logger.Error("invalid configuration", "field", e.Field, "message", e.Message)
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// one pool shared by the vector index and the metadata store
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	index, err := store.NewVectorIndex(ctx, pool, store.VectorIndexConfig{
		TableName: cfg.Database.ChunkTable,
		VectorDim: cfg.Database.VectorDim,
		DefaultK:  cfg.Query.TopK,
	})
	if err != nil {
		logger.Error("failed to initialize vector index", "error", err)
		os.Exit(1)
	}

	metadata, err := store.NewMetadataStore(ctx, pool, cfg.Database.DocumentTable)
	if err != nil {
		logger.Error("failed to initialize metadata store", "error", err)
		os.Exit(1)
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.OpenAI.EmbedModel,
		Token:   cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize embedder", "error", err)
		os.Exit(1)
	}

	chat, err := llm.NewChatWithConfig(llm.ChatConfig{
		Model:       cfg.OpenAI.ChatModel,
		Token:       cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Temperature: cfg.Query.Temperature,
		MaxTokens:   cfg.Query.MaxTokens,
	})
	if err != nil {
		logger.Error("failed to initialize chat engine", "error", err)
		os.Exit(1)
	}

	moderation := llm.NewModerationWithConfig(llm.ModerationConfig{
		Model:   cfg.OpenAI.ModerationModel,
		Token:   cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	})

	service := rag.NewWithConfig(rag.ServiceConfig{
		MaxUploadBytes: cfg.Ingest.MaxUploadMB << 20,
		WindowSize:     cfg.Ingest.WindowSize,
		Overlap:        cfg.Ingest.Overlap,
		DefaultTopK:    cfg.Query.TopK,
	}, rag.Dependencies{
		Extractor: extract.New(),
		Embedder:  embedder,
		Index:     index,
		Metadata:  metadata,
		Completer: chat,
		Moderator: moderation,
		Logger:    logger,
	})

	srv := server.New(server.Config{
		Addr:         cfg.Server.Addr,
		APIKeys:      cfg.Server.APIKeys,
		AllowOrigins: cfg.Server.AllowOrigins,
		RateLimit:    cfg.Server.RateLimit,
		RateBurst:    cfg.Server.RateBurst,
	}, service, logger)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server shut down cleanly")
}
