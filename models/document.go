package models

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Document represents an uploaded reference PDF and its processing state
type Document struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Filename    string     `json:"filename" db:"filename"`
	Filepath    string     `json:"filepath" db:"filepath"`
	Title       *string    `json:"title,omitempty" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	FileSize    int64      `json:"file_size" db:"file_size"`
	MimeType    string     `json:"mime_type" db:"mime_type"`
	IsProcessed bool       `json:"is_processed" db:"is_processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`
	TotalPages  int        `json:"total_pages" db:"total_pages"`
	TotalChunks int        `json:"total_chunks" db:"total_chunks"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Document model
func (Document) TableName() string {
	return "documents"
}

// NewDocument creates a new unprocessed Document for an uploaded file
func NewDocument(filename, filepath string, fileSize int64, mimeType string) *Document {
	now := time.Now()
	return &Document{
		ID:        uuid.New(),
		Filename:  filename,
		Filepath:  filepath,
		FileSize:  fileSize,
		MimeType:  mimeType,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DisplayName returns the title when set, falling back to the original filename.
// Used for source attribution in retrieval results.
func (d *Document) DisplayName() string {
	if d.Title != nil && *d.Title != "" {
		return *d.Title
	}
	return d.Filename
}

// Extension returns the lowercase file extension of the original filename
func (d *Document) Extension() string {
	return filepath.Ext(d.Filename)
}

// DocumentChunk represents one retrievable span of a document's text.
// Embedding is nil until embeddings have been generated for the chunk.
type DocumentChunk struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	DocumentID uuid.UUID      `json:"document_id" db:"document_id"`
	ChunkIndex int            `json:"chunk_index" db:"chunk_index"`
	Content    string         `json:"content" db:"content"`
	PageNumber *int           `json:"page_number,omitempty" db:"page_number"`
	Embedding  []float64      `json:"-" db:"embedding"`
	Metadata   ChunkMetadata  `json:"metadata" db:"metadata"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the DocumentChunk model
func (DocumentChunk) TableName() string {
	return "document_chunks"
}

// ChunkMetadata holds free-form per-chunk attributes persisted as JSON
type ChunkMetadata struct {
	WordCount int `json:"word_count"`
}

// NewDocumentChunk creates a chunk for a document at the given ordinal index
func NewDocumentChunk(documentID uuid.UUID, index int, content string, wordCount int) *DocumentChunk {
	return &DocumentChunk{
		ID:         uuid.New(),
		DocumentID: documentID,
		ChunkIndex: index,
		Content:    content,
		Metadata:   ChunkMetadata{WordCount: wordCount},
		CreatedAt:  time.Now(),
	}
}

// HasEmbedding reports whether an embedding has been stored for the chunk
func (c *DocumentChunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ChunkWithSource is a chunk joined with its document's attribution fields,
// used by the retrieval service when scoring candidates.
type ChunkWithSource struct {
	DocumentChunk
	DocumentTitle    *string `json:"document_title,omitempty" db:"document_title"`
	DocumentFilename string  `json:"document_filename" db:"document_filename"`
}

// SourceName returns the document title when set, otherwise the filename
func (c *ChunkWithSource) SourceName() string {
	if c.DocumentTitle != nil && *c.DocumentTitle != "" {
		return *c.DocumentTitle
	}
	return c.DocumentFilename
}

// ProcessingResult reports the outcome of an ingestion run.
// Pipeline failures are reported here rather than returned as errors.
type ProcessingResult struct {
	Success       bool   `json:"success"`
	ChunksCreated int    `json:"chunks_created"`
	TotalPages    int    `json:"total_pages,omitempty"`
	Error         string `json:"error,omitempty"`
}

// DocumentStats holds aggregate counts across all documents
type DocumentStats struct {
	TotalDocuments     int    `json:"total_documents"`
	ProcessedDocuments int    `json:"processed_documents"`
	PendingDocuments   int    `json:"pending_documents"`
	TotalChunks        int    `json:"total_chunks"`
	TotalSizeBytes     int64  `json:"total_size_bytes"`
	TotalSizeMB        string `json:"total_size_mb"`
}
