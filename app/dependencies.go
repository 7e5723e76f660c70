package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dec-learning/platform-backend/auth"
	"github.com/dec-learning/platform-backend/config"
	"github.com/dec-learning/platform-backend/internal/chunker"
	"github.com/dec-learning/platform-backend/internal/embedding"
	"github.com/dec-learning/platform-backend/internal/filestore"
	"github.com/dec-learning/platform-backend/internal/llm"
	"github.com/dec-learning/platform-backend/middleware"
	"github.com/dec-learning/platform-backend/repositories"
	"github.com/dec-learning/platform-backend/repositories/postgres"
	"github.com/dec-learning/platform-backend/services/chatbot"
	"github.com/dec-learning/platform-backend/services/documents"
	"github.com/dec-learning/platform-backend/services/retrieval"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Documents repositories.DocumentRepository
	Chunks    repositories.ChunkRepository
	TxManager repositories.TransactionManager

	// Providers
	Embedder  embedding.Client
	LLMClient llm.Client

	// Services
	DocumentService *documents.Service
	Processor       *documents.Processor
	Retrieval       *retrieval.Service
	Chatbot         *chatbot.Service

	// Auth
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initProviders(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if err := deps.initServices(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection, repository factory
// and schema.
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := factory.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.Documents = factory.NewDocumentRepository()
	d.Chunks = factory.NewChunkRepository()
	d.TxManager = factory.GetTransactionManager()

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initProviders initializes the OpenAI embedding and chat clients.
func (d *Dependencies) initProviders(cfg *config.Config) error {
	embedder, err := embedding.NewOpenAIClient(embedding.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.EmbeddingModel,
		Dimensions: cfg.OpenAI.EmbeddingDimensions,
		Timeout:    cfg.OpenAI.Timeout,
	}, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}
	d.Embedder = embedder

	llmClient, err := llm.NewOpenAIClient(llm.Config{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.ChatModel,
		Temperature: cfg.OpenAI.ChatTemperature,
		MaxTokens:   cfg.OpenAI.ChatMaxTokens,
		Timeout:     cfg.OpenAI.Timeout,
	}, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create chat client: %w", err)
	}
	d.LLMClient = llmClient

	return nil
}

// initServices wires the document, retrieval and chatbot services.
func (d *Dependencies) initServices(cfg *config.Config) error {
	files, err := filestore.New(cfg.Storage.UploadDir, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create file store: %w", err)
	}

	d.DocumentService = documents.NewService(
		d.Documents,
		d.Chunks,
		d.TxManager,
		files,
		documents.NewPDFExtractor(),
		chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap),
		d.Embedder,
		d.Logger,
		documents.Config{MaxUploadBytes: cfg.Storage.MaxUploadBytes},
	)

	d.Processor = documents.NewProcessor(d.DocumentService, d.Logger, documents.ProcessorConfig{
		BufferSize:  cfg.Processing.QueueSize,
		WorkerCount: cfg.Processing.WorkerCount,
	})

	d.Retrieval = retrieval.NewService(d.Chunks, d.Embedder, d.Logger, retrieval.Config{
		DefaultSearchLimit:  cfg.Retrieval.DefaultSearchLimit,
		MaxSearchLimit:      cfg.Retrieval.MaxSearchLimit,
		DefaultContextLimit: cfg.Retrieval.DefaultContextLimit,
		RelevanceFloor:      cfg.Retrieval.RelevanceFloor,
	})

	d.Chatbot = chatbot.NewService(d.LLMClient, d.Retrieval, d.Logger, cfg.Retrieval.DefaultContextLimit)

	return nil
}

// initAuth wires the JWT validator into the auth middleware. Without a
// configured secret every protected route rejects requests.
func (d *Dependencies) initAuth(cfg *config.Config) {
	validator, err := auth.NewJWTValidator(cfg.Auth.JWTSecret)
	if err != nil {
		d.Logger.Warn("JWT secret not configured, protected routes will reject all requests")
		d.AuthMiddleware = middleware.NewAuthMiddleware(rejectAllValidator{}, d.Logger)
		return
	}
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
}

// Start launches the background workers.
func (d *Dependencies) Start() error {
	return d.Processor.Start()
}

// Close releases all resources in reverse initialization order.
func (d *Dependencies) Close(timeout time.Duration) error {
	var firstErr error

	if d.Processor != nil {
		if err := d.Processor.Stop(timeout); err != nil {
			d.Logger.Warn("processor shutdown error", zap.Error(err))
			firstErr = err
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			d.Logger.Warn("database close error", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// rejectAllValidator denies every token. Used when no JWT secret is
// configured.
type rejectAllValidator struct{}

func (rejectAllValidator) Validate(string) (*middleware.Claims, error) {
	return nil, auth.ErrMissingSecret
}
