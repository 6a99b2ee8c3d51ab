// Command scrivenerd runs the document ingestion and processing daemon.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"scrivener/internal/config"
	"scrivener/internal/daemon"
	"scrivener/internal/ingest"
	"scrivener/internal/logging"
	"scrivener/internal/pipeline"
	"scrivener/internal/queue"
	"scrivener/internal/services/docex"
	"scrivener/internal/services/embed"
	"scrivener/internal/services/fugue"
	"scrivener/internal/services/llm"
	"scrivener/internal/storage"
)

func main() {
	configFlag := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, cfgPath, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config %s: %v", cfgPath, err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}

	blobs, err := storage.NewStore(cfg.Paths.BlobDir)
	if err != nil {
		logger.Error("open blob store", logging.Error(err))
		return
	}

	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		ScoringModel:   cfg.LLM.ScoringModel,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	extractor := docex.NewClient(docex.Config{
		BaseURL:        cfg.Extraction.BaseURL,
		TimeoutSeconds: cfg.Extraction.TimeoutSeconds,
	})
	docs := fugue.NewClient(fugue.Config{
		BaseURL:        cfg.DocDB.BaseURL,
		APIKey:         cfg.DocDB.APIKey,
		TimeoutSeconds: cfg.DocDB.TimeoutSeconds,
	})
	embedder := embed.NewClient(embed.Config{
		Enabled:        cfg.Embeddings.Enabled,
		BaseURL:        cfg.Embeddings.BaseURL,
		TimeoutSeconds: cfg.Embeddings.TimeoutSeconds,
	})

	ingestHandler := ingest.NewHandler(cfg, store, blobs, docs, llmClient, logger)
	engine := pipeline.NewEngine(blobs, extractor, llmClient, embedder, logger)
	executor := daemon.NewExecutor(store, ingestHandler, engine, docs, logger)

	d, err := daemon.New(cfg, store, executor, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("scrivenerd shutting down")
}
