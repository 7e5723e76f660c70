package documents

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dec-learning/platform-backend/internal/chunker"
	"github.com/dec-learning/platform-backend/internal/embedding"
	"github.com/dec-learning/platform-backend/internal/filestore"
	"github.com/dec-learning/platform-backend/internal/pdftext"
	"github.com/dec-learning/platform-backend/models"
	"github.com/dec-learning/platform-backend/repositories"
	"github.com/dec-learning/platform-backend/services"
)

// TextExtractor extracts plain text from a stored file.
type TextExtractor interface {
	ExtractFile(path string) (*pdftext.Extraction, error)
}

// pdfExtractor adapts the pdftext package functions to TextExtractor.
type pdfExtractor struct{}

func (pdfExtractor) ExtractFile(path string) (*pdftext.Extraction, error) {
	return pdftext.ExtractFile(path)
}

// NewPDFExtractor returns the default PDF text extractor.
func NewPDFExtractor() TextExtractor {
	return pdfExtractor{}
}

// UploadInput carries a file upload plus its optional metadata.
type UploadInput struct {
	Filename    string
	MimeType    string
	Size        int64
	Content     io.Reader
	Title       *string
	Description *string
}

// UpdateInput carries the mutable document fields for a partial update.
type UpdateInput struct {
	Title       *string
	Description *string
}

// Service handles document lifecycle: upload, processing, retrieval
// metadata and deletion.
type Service struct {
	docRepo        repositories.DocumentRepository
	chunkRepo      repositories.ChunkRepository
	txManager      repositories.TransactionManager
	files          *filestore.Store
	extractor      TextExtractor
	splitter       *chunker.Chunker
	embedder       embedding.Client
	logger         *zap.Logger
	maxUploadBytes int64
}

// Config holds configuration for the document service.
type Config struct {
	MaxUploadBytes int64
}

// NewService creates a new document service.
func NewService(
	docRepo repositories.DocumentRepository,
	chunkRepo repositories.ChunkRepository,
	txManager repositories.TransactionManager,
	files *filestore.Store,
	extractor TextExtractor,
	splitter *chunker.Chunker,
	embedder embedding.Client,
	logger *zap.Logger,
	config Config,
) *Service {
	if config.MaxUploadBytes == 0 {
		config.MaxUploadBytes = 50 * 1024 * 1024
	}
	return &Service{
		docRepo:        docRepo,
		chunkRepo:      chunkRepo,
		txManager:      txManager,
		files:          files,
		extractor:      extractor,
		splitter:       splitter,
		embedder:       embedder,
		logger:         logger,
		maxUploadBytes: config.MaxUploadBytes,
	}
}

// Upload stores the uploaded file on disk and creates the document record.
// Text extraction and embedding happen asynchronously via the processor.
func (s *Service) Upload(ctx context.Context, input UploadInput) (*models.Document, error) {
	if input.Filename == "" || input.Content == nil {
		return nil, services.ErrNoFileProvided
	}
	if input.Size > s.maxUploadBytes {
		return nil, services.ErrFileTooLarge
	}
	if !isPDF(input.MimeType) {
		return nil, services.ErrNotPDF
	}

	path, err := s.files.Save(input.Content, input.Filename)
	if err != nil {
		return nil, services.WrapInternal("failed to store uploaded file", err)
	}

	doc := models.NewDocument(input.Filename, path, input.Size, input.MimeType)
	doc.Title = input.Title
	doc.Description = input.Description

	if err := s.docRepo.Create(ctx, doc); err != nil {
		// Keep the filesystem consistent with the database.
		if rmErr := s.files.Remove(path); rmErr != nil {
			s.logger.Warn("failed to remove orphaned upload",
				zap.String("filepath", path),
				zap.Error(rmErr))
		}
		return nil, err
	}

	s.logger.Info("document uploaded",
		zap.String("document_id", doc.ID.String()),
		zap.String("filename", doc.Filename),
		zap.Int64("file_size", doc.FileSize))

	return doc, nil
}

// Process runs the full ingestion pipeline for a document: text
// extraction, cleaning, chunking, embedding and storage. A failure at any
// stage leaves the document unprocessed so it can be retried.
func (s *Service) Process(ctx context.Context, documentID uuid.UUID) *models.ProcessingResult {
	start := time.Now()

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return failure(err)
	}

	extraction, err := s.extractor.ExtractFile(doc.Filepath)
	if err != nil {
		s.logger.Error("text extraction failed",
			zap.String("document_id", documentID.String()),
			zap.Error(err))
		return failure(fmt.Errorf("text extraction failed: %w", err))
	}

	text := pdftext.Clean(extraction.Text)
	if text == "" {
		return failure(fmt.Errorf("document contains no extractable text"))
	}

	pieces := s.splitter.Split(text)
	chunks := make([]*models.DocumentChunk, len(pieces))
	contents := make([]string, len(pieces))
	for i, piece := range pieces {
		chunk := models.NewDocumentChunk(documentID, i, piece.Content, piece.WordCount)
		chunk.PageNumber = piece.PageNumber
		chunks[i] = chunk
		contents[i] = piece.Content
	}

	vectors, err := s.embedder.EmbedBatch(ctx, contents)
	if err != nil {
		s.logger.Error("embedding generation failed",
			zap.String("document_id", documentID.String()),
			zap.Int("chunk_count", len(chunks)),
			zap.Error(err))
		return failure(services.WrapProvider("embedding generation failed", err))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	// Replace the chunk set atomically. The document is re-read inside
	// the transaction so a concurrent delete aborts the replacement
	// instead of resurrecting chunks for a removed document.
	err = s.txManager.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		if _, err := s.docRepo.GetByID(txCtx, documentID); err != nil {
			return err
		}
		if err := s.chunkRepo.DeleteByDocumentID(txCtx, documentID); err != nil {
			return err
		}
		if err := s.chunkRepo.CreateBatch(txCtx, chunks); err != nil {
			return err
		}

		now := time.Now().UTC()
		doc.IsProcessed = true
		doc.ProcessedAt = &now
		doc.TotalPages = extraction.TotalPages
		doc.TotalChunks = len(chunks)
		return s.docRepo.Update(txCtx, doc)
	})
	if err != nil {
		return failure(err)
	}

	s.logger.Info("document processed",
		zap.String("document_id", documentID.String()),
		zap.Int("total_pages", extraction.TotalPages),
		zap.Int("chunks_created", len(chunks)),
		zap.Duration("duration", time.Since(start)))

	return &models.ProcessingResult{
		Success:       true,
		ChunksCreated: len(chunks),
		TotalPages:    extraction.TotalPages,
	}
}

// Reprocess runs the ingestion pipeline synchronously for an existing
// document and returns the outcome.
func (s *Service) Reprocess(ctx context.Context, documentID uuid.UUID) (*models.ProcessingResult, error) {
	if _, err := s.docRepo.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	return s.Process(ctx, documentID), nil
}

// List returns all documents ordered by creation time, newest first.
func (s *Service) List(ctx context.Context) ([]*models.Document, error) {
	return s.docRepo.List(ctx)
}

// Get returns a document together with its stored chunks.
func (s *Service) Get(ctx context.Context, documentID uuid.UUID) (*models.Document, []*models.DocumentChunk, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	chunks, err := s.chunkRepo.GetByDocumentID(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	return doc, chunks, nil
}

// Update applies a partial update to the document metadata.
func (s *Service) Update(ctx context.Context, documentID uuid.UUID, input UpdateInput) (*models.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if input.Title != nil {
		doc.Title = input.Title
	}
	if input.Description != nil {
		doc.Description = input.Description
	}
	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes the document record, its chunks (via cascade) and the
// stored file.
func (s *Service) Delete(ctx context.Context, documentID uuid.UUID) error {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.docRepo.Delete(ctx, documentID); err != nil {
		return err
	}
	if err := s.files.Remove(doc.Filepath); err != nil {
		s.logger.Warn("failed to remove document file",
			zap.String("document_id", documentID.String()),
			zap.String("filepath", doc.Filepath),
			zap.Error(err))
	}
	s.logger.Info("document deleted",
		zap.String("document_id", documentID.String()),
		zap.String("filename", doc.Filename))
	return nil
}

// Stats returns aggregate counters for the document corpus.
func (s *Service) Stats(ctx context.Context) (*models.DocumentStats, error) {
	return s.docRepo.Stats(ctx)
}

func failure(err error) *models.ProcessingResult {
	return &models.ProcessingResult{Success: false, Error: err.Error()}
}

func isPDF(mimeType string) bool {
	return strings.EqualFold(mimeType, "application/pdf")
}
