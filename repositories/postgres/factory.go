package postgres

import (
	"context"
	"fmt"

	"github.com/dec-learning/platform-backend/config"
	"github.com/dec-learning/platform-backend/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory creates and manages all repositories
type RepositoryFactory struct {
	db     *DB
	logger *zap.Logger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	return &RepositoryFactory{db: db, logger: logger}, nil
}

// schema holds the document store DDL. Chunk rows cascade with their
// document, and the ordinal index is unique within one document.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id UUID PRIMARY KEY,
	filename TEXT NOT NULL,
	filepath TEXT NOT NULL,
	title TEXT,
	description TEXT,
	file_size BIGINT NOT NULL,
	mime_type TEXT NOT NULL,
	is_processed BOOLEAN NOT NULL DEFAULT FALSE,
	processed_at TIMESTAMPTZ,
	total_pages INTEGER NOT NULL DEFAULT 0,
	total_chunks INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS document_chunks (
	id UUID PRIMARY KEY,
	document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	chunk_index INTEGER NOT NULL,
	content TEXT NOT NULL,
	page_number INTEGER,
	embedding DOUBLE PRECISION[],
	metadata JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (document_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_document_chunks_document_id
	ON document_chunks(document_id);
`

// InitSchema creates the document store tables when they do not exist yet
func (f *RepositoryFactory) InitSchema(ctx context.Context) error {
	if _, err := f.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	f.logger.Info("document store schema initialized")
	return nil
}

// NewDocumentRepository creates the document repository
func (f *RepositoryFactory) NewDocumentRepository() repositories.DocumentRepository {
	return NewDocumentRepository(f.db, f.logger)
}

// NewChunkRepository creates the chunk repository
func (f *RepositoryFactory) NewChunkRepository() repositories.ChunkRepository {
	return NewChunkRepository(f.db, f.logger)
}

// GetTransactionManager returns a transaction manager
func (f *RepositoryFactory) GetTransactionManager() repositories.TransactionManager {
	return NewTransactionManager(f.db, f.logger)
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
