package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dec-learning/platform-backend/internal/embedding"
	"github.com/dec-learning/platform-backend/internal/similarity"
	"github.com/dec-learning/platform-backend/models"
	"github.com/dec-learning/platform-backend/repositories"
	"github.com/dec-learning/platform-backend/services"
)

// SearchResult pairs a chunk with its similarity score.
type SearchResult struct {
	Chunk *models.ChunkWithSource `json:"chunk"`
	Score float64                 `json:"score"`
}

// Service performs semantic search over the embedded document corpus.
type Service struct {
	chunkRepo repositories.ChunkRepository
	embedder  embedding.Client
	logger    *zap.Logger
	config    Config
}

// Config holds retrieval tuning parameters.
type Config struct {
	DefaultSearchLimit  int
	MaxSearchLimit      int
	DefaultContextLimit int
	RelevanceFloor      float64
}

// DefaultConfig returns the default retrieval configuration.
func DefaultConfig() Config {
	return Config{
		DefaultSearchLimit:  5,
		MaxSearchLimit:      20,
		DefaultContextLimit: 3,
		RelevanceFloor:      0.3,
	}
}

// NewService creates a new retrieval service.
func NewService(chunkRepo repositories.ChunkRepository, embedder embedding.Client, logger *zap.Logger, config Config) *Service {
	defaults := DefaultConfig()
	if config.DefaultSearchLimit <= 0 {
		config.DefaultSearchLimit = defaults.DefaultSearchLimit
	}
	if config.MaxSearchLimit <= 0 {
		config.MaxSearchLimit = defaults.MaxSearchLimit
	}
	if config.DefaultContextLimit <= 0 {
		config.DefaultContextLimit = defaults.DefaultContextLimit
	}
	if config.RelevanceFloor == 0 {
		config.RelevanceFloor = defaults.RelevanceFloor
	}
	return &Service{
		chunkRepo: chunkRepo,
		embedder:  embedder,
		logger:    logger,
		config:    config,
	}
}

// Search embeds the query and ranks every embedded chunk by cosine
// similarity, returning the top results with their source attribution.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.ErrEmptyQuery
	}
	if limit < 0 {
		return nil, services.ErrInvalidLimit
	}
	if limit == 0 {
		limit = s.config.DefaultSearchLimit
	}
	if limit > s.config.MaxSearchLimit {
		limit = s.config.MaxSearchLimit
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, services.WrapProvider("failed to embed search query", err)
	}

	chunks, err := s.chunkRepo.ListEmbedded(ctx)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []SearchResult{}, nil
	}

	byID := make(map[uuid.UUID]*models.ChunkWithSource, len(chunks))
	candidates := make([]similarity.Candidate, 0, len(chunks))
	for _, chunk := range chunks {
		byID[chunk.ID] = chunk
		candidates = append(candidates, similarity.Candidate{
			ID:     chunk.ID.String(),
			Vector: chunk.Embedding,
		})
	}

	index := &similarity.BruteForce{
		OnSkip: func(id string, err error) {
			s.logger.Warn("skipping chunk with incompatible embedding",
				zap.String("chunk_id", id),
				zap.Error(err))
		},
	}
	matches := index.Rank(queryVector, candidates, limit)

	results := make([]SearchResult, 0, len(matches))
	for _, match := range matches {
		id, err := uuid.Parse(match.ID)
		if err != nil {
			continue
		}
		chunk, ok := byID[id]
		if !ok {
			continue
		}
		results = append(results, SearchResult{Chunk: chunk, Score: match.Score})
	}
	return results, nil
}

// GetContext builds the context block injected into chatbot prompts. Only
// chunks scoring strictly above the relevance floor are included. Returns
// the empty string when nothing relevant is found or when retrieval
// itself fails, so the chatbot can degrade gracefully.
func (s *Service) GetContext(ctx context.Context, query string, limit int) string {
	if limit <= 0 {
		limit = s.config.DefaultContextLimit
	}

	results, err := s.Search(ctx, query, limit)
	if err != nil {
		s.logger.Warn("context retrieval failed, continuing without context",
			zap.Error(err))
		return ""
	}

	var relevant []SearchResult
	for _, result := range results {
		if result.Score > s.config.RelevanceFloor {
			relevant = append(relevant, result)
		}
	}
	if len(relevant) == 0 {
		return ""
	}

	sections := make([]string, 0, len(relevant))
	for i, result := range relevant {
		header := fmt.Sprintf("[Source %d: %s", i+1, result.Chunk.SourceName())
		if result.Chunk.PageNumber != nil {
			header += fmt.Sprintf(" (page %d)", *result.Chunk.PageNumber)
		}
		header += "]"
		sections = append(sections, header+"\n"+result.Chunk.Content)
	}

	return "\n\n--- INFORMATION FROM REFERENCE DOCUMENTS ---\n\n" +
		strings.Join(sections, "\n\n---\n\n")
}
