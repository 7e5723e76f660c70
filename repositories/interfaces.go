package repositories

import (
	"context"

	"github.com/dec-learning/platform-backend/models"
	"github.com/google/uuid"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction.
	// Automatically commits if function succeeds, rolls back on error.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// DocumentRepository handles document metadata operations
type DocumentRepository interface {
	// Create creates a new document row
	Create(ctx context.Context, doc *models.Document) error

	// GetByID retrieves a document by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)

	// List retrieves all documents ordered by creation time, newest first
	List(ctx context.Context) ([]*models.Document, error)

	// Update persists mutable document fields (title, description,
	// processing state, page and chunk counts)
	Update(ctx context.Context, doc *models.Document) error

	// Delete removes a document; chunks cascade at the schema level
	Delete(ctx context.Context, id uuid.UUID) error

	// Stats returns aggregate counts across all documents
	Stats(ctx context.Context) (*models.DocumentStats, error)
}

// ChunkRepository handles document chunk and embedding operations
type ChunkRepository interface {
	// CreateBatch inserts a set of chunks in ordinal order
	CreateBatch(ctx context.Context, chunks []*models.DocumentChunk) error

	// GetByDocumentID retrieves a document's chunks ordered by chunk index
	GetByDocumentID(ctx context.Context, documentID uuid.UUID) ([]*models.DocumentChunk, error)

	// ListEmbedded retrieves all chunks across all documents that have a
	// stored embedding, joined with their document's attribution fields
	ListEmbedded(ctx context.Context) ([]*models.ChunkWithSource, error)

	// UpdateEmbedding stores the embedding vector for one chunk
	UpdateEmbedding(ctx context.Context, chunkID uuid.UUID, embedding []float64) error

	// DeleteByDocumentID removes all chunks belonging to a document
	DeleteByDocumentID(ctx context.Context, documentID uuid.UUID) error

	// CountByDocumentID returns the number of chunks for a document
	CountByDocumentID(ctx context.Context, documentID uuid.UUID) (int, error)
}
