package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dec-learning/platform-backend/models"
	"github.com/dec-learning/platform-backend/repositories"
	"github.com/dec-learning/platform-backend/services"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentRepository implements the repositories.DocumentRepository interface
type DocumentRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *DB, logger *zap.Logger) repositories.DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

const documentColumns = `id, filename, filepath, title, description, file_size, mime_type,
	is_processed, processed_at, total_pages, total_chunks, created_at, updated_at`

// Create creates a new document row
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, filename, filepath, title, description, file_size, mime_type,
			is_processed, processed_at, total_pages, total_chunks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		doc.ID,
		doc.Filename,
		doc.Filepath,
		doc.Title,
		doc.Description,
		doc.FileSize,
		doc.MimeType,
		doc.IsProcessed,
		doc.ProcessedAt,
		doc.TotalPages,
		doc.TotalChunks,
		doc.CreatedAt,
		doc.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	r.logger.Debug("document created",
		zap.String("id", doc.ID.String()),
		zap.String("filename", doc.Filename))
	return nil
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	doc := &models.Document{}

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.Filename,
		&doc.Filepath,
		&doc.Title,
		&doc.Description,
		&doc.FileSize,
		&doc.MimeType,
		&doc.IsProcessed,
		&doc.ProcessedAt,
		&doc.TotalPages,
		&doc.TotalChunks,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, services.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// List retrieves all documents ordered by creation time, newest first
func (r *DocumentRepository) List(ctx context.Context) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY created_at DESC`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc := &models.Document{}
		if err := rows.Scan(
			&doc.ID,
			&doc.Filename,
			&doc.Filepath,
			&doc.Title,
			&doc.Description,
			&doc.FileSize,
			&doc.MimeType,
			&doc.IsProcessed,
			&doc.ProcessedAt,
			&doc.TotalPages,
			&doc.TotalChunks,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// Update persists mutable document fields
func (r *DocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := `
		UPDATE documents
		SET title = $2, description = $3, is_processed = $4, processed_at = $5,
			total_pages = $6, total_chunks = $7, updated_at = NOW()
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		doc.ID,
		doc.Title,
		doc.Description,
		doc.IsProcessed,
		doc.ProcessedAt,
		doc.TotalPages,
		doc.TotalChunks,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return services.ErrDocumentNotFound
	}

	r.logger.Debug("document updated", zap.String("id", doc.ID.String()))
	return nil
}

// Delete removes a document; chunks cascade at the schema level
func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM documents WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return services.ErrDocumentNotFound
	}

	r.logger.Debug("document deleted", zap.String("id", id.String()))
	return nil
}

// Stats returns aggregate counts across all documents
func (r *DocumentRepository) Stats(ctx context.Context) (*models.DocumentStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_processed),
			COALESCE(SUM(file_size), 0),
			(SELECT COUNT(*) FROM document_chunks)
		FROM documents
	`

	executor := GetExecutor(ctx, r.db)
	stats := &models.DocumentStats{}

	err := executor.QueryRowContext(ctx, query).Scan(
		&stats.TotalDocuments,
		&stats.ProcessedDocuments,
		&stats.TotalSizeBytes,
		&stats.TotalChunks,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get document stats: %w", err)
	}

	stats.PendingDocuments = stats.TotalDocuments - stats.ProcessedDocuments
	stats.TotalSizeMB = fmt.Sprintf("%.2f", float64(stats.TotalSizeBytes)/(1024*1024))
	return stats, nil
}
