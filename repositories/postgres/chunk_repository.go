package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dec-learning/platform-backend/models"
	"github.com/dec-learning/platform-backend/repositories"
	"github.com/dec-learning/platform-backend/services"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ChunkRepository implements the repositories.ChunkRepository interface.
// Embeddings are stored as double precision arrays and scanned through
// pq.Float64Array; chunk metadata is stored as JSONB.
type ChunkRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewChunkRepository creates a new chunk repository
func NewChunkRepository(db *DB, logger *zap.Logger) repositories.ChunkRepository {
	return &ChunkRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch inserts a set of chunks in ordinal order
func (r *ChunkRepository) CreateBatch(ctx context.Context, chunks []*models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	query := `
		INSERT INTO document_chunks (id, document_id, chunk_index, content, page_number,
			embedding, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	executor := GetExecutor(ctx, r.db)
	for _, chunk := range chunks {
		metadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk metadata: %w", err)
		}

		var embedding interface{}
		if chunk.HasEmbedding() {
			embedding = pq.Float64Array(chunk.Embedding)
		}

		if _, err := executor.ExecContext(ctx, query,
			chunk.ID,
			chunk.DocumentID,
			chunk.ChunkIndex,
			chunk.Content,
			chunk.PageNumber,
			embedding,
			metadata,
			chunk.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to create chunk %d: %w", chunk.ChunkIndex, err)
		}
	}

	r.logger.Debug("chunks created",
		zap.String("document_id", chunks[0].DocumentID.String()),
		zap.Int("count", len(chunks)))
	return nil
}

// GetByDocumentID retrieves a document's chunks ordered by chunk index
func (r *ChunkRepository) GetByDocumentID(ctx context.Context, documentID uuid.UUID) ([]*models.DocumentChunk, error) {
	query := `
		SELECT id, document_id, chunk_index, content, page_number, embedding, metadata, created_at
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY chunk_index ASC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*models.DocumentChunk
	for rows.Next() {
		chunk, err := scanChunk(rows.Scan)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}

	return chunks, nil
}

// ListEmbedded retrieves all embedded chunks joined with document attribution
func (r *ChunkRepository) ListEmbedded(ctx context.Context) ([]*models.ChunkWithSource, error) {
	query := `
		SELECT c.id, c.document_id, c.chunk_index, c.content, c.page_number, c.embedding,
			c.metadata, c.created_at, d.title, d.filename
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL
		ORDER BY c.document_id, c.chunk_index
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list embedded chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*models.ChunkWithSource
	for rows.Next() {
		chunk := &models.ChunkWithSource{}
		var embedding pq.Float64Array
		var metadata []byte

		if err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.ChunkIndex,
			&chunk.Content,
			&chunk.PageNumber,
			&embedding,
			&metadata,
			&chunk.CreatedAt,
			&chunk.DocumentTitle,
			&chunk.DocumentFilename,
		); err != nil {
			return nil, fmt.Errorf("failed to scan embedded chunk: %w", err)
		}

		chunk.Embedding = []float64(embedding)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &chunk.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal chunk metadata: %w", err)
			}
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate embedded chunks: %w", err)
	}

	return chunks, nil
}

// UpdateEmbedding stores the embedding vector for one chunk
func (r *ChunkRepository) UpdateEmbedding(ctx context.Context, chunkID uuid.UUID, embedding []float64) error {
	query := `UPDATE document_chunks SET embedding = $2 WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, chunkID, pq.Float64Array(embedding))
	if err != nil {
		return fmt.Errorf("failed to update chunk embedding: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return services.ErrChunkNotFound
	}

	return nil
}

// DeleteByDocumentID removes all chunks belonging to a document
func (r *ChunkRepository) DeleteByDocumentID(ctx context.Context, documentID uuid.UUID) error {
	query := `DELETE FROM document_chunks WHERE document_id = $1`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, documentID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	r.logger.Debug("chunks deleted", zap.String("document_id", documentID.String()))
	return nil
}

// CountByDocumentID returns the number of chunks for a document
func (r *ChunkRepository) CountByDocumentID(ctx context.Context, documentID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`

	executor := GetExecutor(ctx, r.db)
	var count int
	if err := executor.QueryRowContext(ctx, query, documentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}

	return count, nil
}

// scanChunk scans one document_chunks row using the provided scan function
func scanChunk(scan func(dest ...interface{}) error) (*models.DocumentChunk, error) {
	chunk := &models.DocumentChunk{}
	var embedding pq.Float64Array
	var metadata []byte

	if err := scan(
		&chunk.ID,
		&chunk.DocumentID,
		&chunk.ChunkIndex,
		&chunk.Content,
		&chunk.PageNumber,
		&embedding,
		&metadata,
		&chunk.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan chunk: %w", err)
	}

	chunk.Embedding = []float64(embedding)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chunk metadata: %w", err)
		}
	}
	return chunk, nil
}
