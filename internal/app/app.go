// Package app initializes and orchestrates the main components of the
// Code-Mentor application. It wires together the configuration, storage,
// model plumbing, and server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sevigo/code-mentor/internal/config"
	"github.com/sevigo/code-mentor/internal/db"
	"github.com/sevigo/code-mentor/internal/jobs"
	"github.com/sevigo/code-mentor/internal/knowledge"
	"github.com/sevigo/code-mentor/internal/llm"
	"github.com/sevigo/code-mentor/internal/report"
	"github.com/sevigo/code-mentor/internal/server"
	"github.com/sevigo/code-mentor/internal/server/handler"
	"github.com/sevigo/code-mentor/internal/storage"
)

// App holds the main application components. The exported fields are used
// by the CLI and the terminal UI, which drive the pipeline directly instead
// of going through HTTP.
type App struct {
	Cfg       *config.Config
	Logger    *slog.Logger
	Store     storage.Store
	Assembler *report.Assembler
	Rephraser *llm.Rephraser
	Knowledge *knowledge.Index

	server     *server.Server
	dispatcher *jobs.Dispatcher
	dbCleanup  func()
}

// NewApp sets up the application with all its dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	logger.Info("initializing Code-Mentor application",
		"llm_provider", cfg.LLMProvider,
		"generator_model", cfg.GeneratorModelName,
		"embedder_model", cfg.EmbedderModelName,
		"max_workers", cfg.MaxWorkers)

	model, err := llm.NewModel(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator model: %w", err)
	}

	dbConn, dbCleanup, err := db.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := storage.NewStore(dbConn.DB)

	index, err := buildKnowledgeIndex(ctx, cfg, logger)
	if err != nil {
		dbCleanup()
		return nil, err
	}

	promptMgr, err := llm.NewPromptManager()
	if err != nil {
		dbCleanup()
		return nil, fmt.Errorf("failed to initialize prompt manager: %w", err)
	}

	rephraser := llm.NewRephraser(model, promptMgr, index, llm.Provider(cfg), logger)
	assembler := report.NewAssembler(rephraser, cfg.MaxWorkers, logger)

	reviewJob := jobs.NewReviewJob(cfg, assembler, store, logger)
	dispatcher := jobs.NewDispatcher(reviewJob, cfg.MaxWorkers, logger)

	reviewHandler := handler.NewReviewHandler(assembler, rephraser, dispatcher, store, logger)
	httpServer := server.NewServer(ctx, cfg, reviewHandler, logger)

	logger.Info("Code-Mentor application initialized successfully")
	return &App{
		Cfg:        cfg,
		Logger:     logger,
		Store:      store,
		Assembler:  assembler,
		Rephraser:  rephraser,
		Knowledge:  index,
		server:     httpServer,
		dispatcher: dispatcher,
		dbCleanup:  dbCleanup,
	}, nil
}

// buildKnowledgeIndex loads the corpus and, unless retrieval is disabled,
// embeds it. A missing corpus file or an unreachable embedder degrades to
// the built-in corpus with keyword retrieval rather than failing startup.
func buildKnowledgeIndex(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*knowledge.Index, error) {
	if cfg.DisableRetrieval {
		logger.Info("knowledge retrieval disabled by configuration")
		return nil, nil
	}

	corpus := knowledge.DefaultCorpus()
	if cfg.KnowledgeCorpusPath != "" {
		loaded, err := knowledge.LoadCorpus(cfg.KnowledgeCorpusPath)
		switch {
		case errors.Is(err, knowledge.ErrCorpusNotFound):
			logger.Warn("knowledge corpus file not found, using built-in corpus", "path", cfg.KnowledgeCorpusPath)
		case err != nil:
			return nil, fmt.Errorf("failed to load knowledge corpus: %w", err)
		default:
			corpus = loaded
		}
	}

	var embedder knowledge.Embedder
	if emb, err := llm.NewEmbedder(cfg, logger); err != nil {
		logger.Warn("embedder unavailable, knowledge index falls back to keyword retrieval", "error", err)
	} else {
		embedder = emb
	}

	return knowledge.NewIndex(ctx, embedder, corpus, logger), nil
}

// Start runs the HTTP server.
func (a *App) Start() error {
	a.Logger.Info("starting Code-Mentor",
		"server_port", a.Cfg.Server.Port,
		"max_workers", a.Cfg.MaxWorkers)

	if err := a.server.Start(); err != nil {
		a.Logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.Logger.Info("shutting down Code-Mentor services")

	// Stop the HTTP server first to prevent new incoming requests.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.Logger.Error("error during HTTP server shutdown", "error", serverErr)
		// Continue to stop other components even if the server failed.
	}

	// Stop the job dispatcher, allowing in-flight jobs to finish.
	a.dispatcher.Stop()

	a.Logger.Info("closing database connection")
	a.dbCleanup()

	if serverErr != nil {
		a.Logger.Error("Code-Mentor stopped with errors", "error", serverErr)
		return serverErr
	}

	a.Logger.Info("Code-Mentor stopped successfully")
	return nil
}
