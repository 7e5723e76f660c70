package documents

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dec-learning/platform-backend/internal/chunker"
	"github.com/dec-learning/platform-backend/internal/filestore"
	"github.com/dec-learning/platform-backend/internal/pdftext"
	"github.com/dec-learning/platform-backend/models"
	"github.com/dec-learning/platform-backend/repositories"
	"github.com/dec-learning/platform-backend/services"
)

// MockDocumentRepository is a mock implementation of DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	args := m.Called(ctx, id)
	if doc := args.Get(0); doc != nil {
		return doc.(*models.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) List(ctx context.Context) ([]*models.Document, error) {
	args := m.Called(ctx)
	if docs := args.Get(0); docs != nil {
		return docs.([]*models.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentRepository) Stats(ctx context.Context) (*models.DocumentStats, error) {
	args := m.Called(ctx)
	if stats := args.Get(0); stats != nil {
		return stats.(*models.DocumentStats), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockChunkRepository is a mock implementation of ChunkRepository
type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) CreateBatch(ctx context.Context, chunks []*models.DocumentChunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *MockChunkRepository) GetByDocumentID(ctx context.Context, documentID uuid.UUID) ([]*models.DocumentChunk, error) {
	args := m.Called(ctx, documentID)
	if chunks := args.Get(0); chunks != nil {
		return chunks.([]*models.DocumentChunk), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChunkRepository) ListEmbedded(ctx context.Context) ([]*models.ChunkWithSource, error) {
	args := m.Called(ctx)
	if chunks := args.Get(0); chunks != nil {
		return chunks.([]*models.ChunkWithSource), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChunkRepository) UpdateEmbedding(ctx context.Context, chunkID uuid.UUID, embedding []float64) error {
	args := m.Called(ctx, chunkID, embedding)
	return args.Error(0)
}

func (m *MockChunkRepository) DeleteByDocumentID(ctx context.Context, documentID uuid.UUID) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func (m *MockChunkRepository) CountByDocumentID(ctx context.Context, documentID uuid.UUID) (int, error) {
	args := m.Called(ctx, documentID)
	return args.Int(0), args.Error(1)
}

// stubTxManager runs the callback directly against the ambient context.
type stubTxManager struct{}

func (stubTxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return nil, errors.New("not supported in tests")
}

func (stubTxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	return fn(ctx, nil)
}

// stubExtractor returns canned extraction results.
type stubExtractor struct {
	extraction *pdftext.Extraction
	err        error
}

func (s *stubExtractor) ExtractFile(path string) (*pdftext.Extraction, error) {
	return s.extraction, s.err
}

// fakeEmbedder returns a fixed vector per input text.
type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = []float64{1, 0}
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimensions() int { return 2 }

type serviceFixture struct {
	svc       *Service
	docRepo   *MockDocumentRepository
	chunkRepo *MockChunkRepository
	embedder  *fakeEmbedder
	extractor *stubExtractor
	files     *filestore.Store
	uploadDir string
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	uploadDir := filepath.Join(t.TempDir(), "uploads")
	files, err := filestore.New(uploadDir, zap.NewNop())
	require.NoError(t, err)

	f := &serviceFixture{
		uploadDir: uploadDir,
		docRepo:   new(MockDocumentRepository),
		chunkRepo: new(MockChunkRepository),
		embedder:  &fakeEmbedder{},
		extractor: &stubExtractor{extraction: &pdftext.Extraction{Text: "First sentence. Second sentence.", TotalPages: 2}},
		files:     files,
	}
	f.svc = NewService(
		f.docRepo,
		f.chunkRepo,
		stubTxManager{},
		files,
		f.extractor,
		chunker.New(1000, 200),
		f.embedder,
		zap.NewNop(),
		Config{MaxUploadBytes: 1024},
	)
	return f
}

func TestUploadCreatesRecordAndStoresFile(t *testing.T) {
	f := newFixture(t)
	f.docRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Document")).Return(nil)

	title := "Course Notes"
	doc, err := f.svc.Upload(context.Background(), UploadInput{
		Filename: "notes.pdf",
		MimeType: "application/pdf",
		Size:     100,
		Content:  strings.NewReader("pdf bytes"),
		Title:    &title,
	})

	require.NoError(t, err)
	assert.Equal(t, "notes.pdf", doc.Filename)
	assert.Equal(t, &title, doc.Title)
	assert.False(t, doc.IsProcessed)
	assert.True(t, f.files.Exists(doc.Filepath))
	f.docRepo.AssertExpectations(t)
}

func TestUploadRejectsMissingFile(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Upload(context.Background(), UploadInput{})

	assert.ErrorIs(t, err, services.ErrNoFileProvided)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Upload(context.Background(), UploadInput{
		Filename: "notes.docx",
		MimeType: "application/msword",
		Size:     100,
		Content:  strings.NewReader("bytes"),
	})

	assert.ErrorIs(t, err, services.ErrNotPDF)
}

func TestUploadRejectsPDFExtensionWithWrongContentType(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Upload(context.Background(), UploadInput{
		Filename: "disguised.pdf",
		MimeType: "application/octet-stream",
		Size:     100,
		Content:  strings.NewReader("bytes"),
	})

	assert.ErrorIs(t, err, services.ErrNotPDF)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Upload(context.Background(), UploadInput{
		Filename: "big.pdf",
		MimeType: "application/pdf",
		Size:     2048,
		Content:  strings.NewReader("bytes"),
	})

	assert.ErrorIs(t, err, services.ErrFileTooLarge)
}

func TestUploadRemovesFileWhenCreateFails(t *testing.T) {
	f := newFixture(t)
	f.docRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("insert failed"))

	_, err := f.svc.Upload(context.Background(), UploadInput{
		Filename: "notes.pdf",
		MimeType: "application/pdf",
		Size:     100,
		Content:  strings.NewReader("pdf bytes"),
	})

	require.Error(t, err)
	// No orphaned files left behind.
	entries, globErr := filepath.Glob(filepath.Join(f.uploadDir, "*"))
	require.NoError(t, globErr)
	assert.Empty(t, entries)
}

func TestProcessSuccess(t *testing.T) {
	f := newFixture(t)
	doc := models.NewDocument("notes.pdf", "/tmp/notes.pdf", 100, "application/pdf")

	var stored []*models.DocumentChunk
	f.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	f.chunkRepo.On("DeleteByDocumentID", mock.Anything, doc.ID).Return(nil)
	f.chunkRepo.On("CreateBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).([]*models.DocumentChunk)
		}).Return(nil)
	f.docRepo.On("Update", mock.Anything, doc).Return(nil)

	result := f.svc.Process(context.Background(), doc.ID)

	require.True(t, result.Success, "unexpected failure: %s", result.Error)
	assert.Equal(t, 1, result.ChunksCreated)
	assert.Equal(t, 2, result.TotalPages)

	require.Len(t, stored, 1)
	assert.Equal(t, "First sentence. Second sentence.", stored[0].Content)
	assert.Equal(t, []float64{1, 0}, stored[0].Embedding)
	assert.Equal(t, 0, stored[0].ChunkIndex)

	assert.True(t, doc.IsProcessed)
	require.NotNil(t, doc.ProcessedAt)
	assert.Equal(t, 2, doc.TotalPages)
	assert.Equal(t, 1, doc.TotalChunks)
}

func TestProcessIsIdempotentInShape(t *testing.T) {
	f := newFixture(t)
	doc := models.NewDocument("notes.pdf", "/tmp/notes.pdf", 100, "application/pdf")

	f.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	f.chunkRepo.On("DeleteByDocumentID", mock.Anything, doc.ID).Return(nil)
	f.chunkRepo.On("CreateBatch", mock.Anything, mock.Anything).Return(nil)
	f.docRepo.On("Update", mock.Anything, doc).Return(nil)

	first := f.svc.Process(context.Background(), doc.ID)
	second := f.svc.Process(context.Background(), doc.ID)

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, first.ChunksCreated, second.ChunksCreated)
}

func TestProcessExtractionFailure(t *testing.T) {
	f := newFixture(t)
	doc := models.NewDocument("broken.pdf", "/tmp/broken.pdf", 100, "application/pdf")
	f.extractor.extraction = nil
	f.extractor.err = errors.New("corrupt xref table")

	f.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)

	result := f.svc.Process(context.Background(), doc.ID)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "text extraction failed")
	assert.False(t, doc.IsProcessed)
	f.chunkRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestProcessEmbeddingFailureLeavesDocumentUnprocessed(t *testing.T) {
	f := newFixture(t)
	doc := models.NewDocument("notes.pdf", "/tmp/notes.pdf", 100, "application/pdf")
	f.embedder.err = errors.New("provider unavailable")

	f.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)

	result := f.svc.Process(context.Background(), doc.ID)

	assert.False(t, result.Success)
	assert.False(t, doc.IsProcessed)
	f.chunkRepo.AssertNotCalled(t, "DeleteByDocumentID", mock.Anything, mock.Anything)
	f.chunkRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestProcessAbortsWhenDocumentDeletedMidFlight(t *testing.T) {
	f := newFixture(t)
	doc := models.NewDocument("notes.pdf", "/tmp/notes.pdf", 100, "application/pdf")

	// The document exists when processing starts but is gone by the time
	// the chunk replacement transaction re-reads it.
	f.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil).Once()
	f.docRepo.On("GetByID", mock.Anything, doc.ID).Return(nil, services.ErrDocumentNotFound).Once()

	result := f.svc.Process(context.Background(), doc.ID)

	assert.False(t, result.Success)
	f.chunkRepo.AssertNotCalled(t, "DeleteByDocumentID", mock.Anything, mock.Anything)
	f.chunkRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestProcessEmptyText(t *testing.T) {
	f := newFixture(t)
	doc := models.NewDocument("blank.pdf", "/tmp/blank.pdf", 100, "application/pdf")
	f.extractor.extraction = &pdftext.Extraction{Text: "   \n\n  ", TotalPages: 1}

	f.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)

	result := f.svc.Process(context.Background(), doc.ID)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no extractable text")
}

func TestReprocessUnknownDocument(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	f.docRepo.On("GetByID", mock.Anything, id).Return(nil, services.ErrDocumentNotFound)

	_, err := f.svc.Reprocess(context.Background(), id)

	assert.ErrorIs(t, err, services.ErrDocumentNotFound)
}

func TestUpdateAppliesPartialChanges(t *testing.T) {
	f := newFixture(t)
	doc := models.NewDocument("notes.pdf", "/tmp/notes.pdf", 100, "application/pdf")
	original := "Old Title"
	doc.Title = &original

	f.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	f.docRepo.On("Update", mock.Anything, doc).Return(nil)

	desc := "Updated description"
	updated, err := f.svc.Update(context.Background(), doc.ID, UpdateInput{Description: &desc})

	require.NoError(t, err)
	assert.Equal(t, &original, updated.Title)
	assert.Equal(t, &desc, updated.Description)
}

func TestDeleteRemovesRecordAndFile(t *testing.T) {
	f := newFixture(t)

	path, err := f.files.Save(strings.NewReader("pdf bytes"), "notes.pdf")
	require.NoError(t, err)

	doc := models.NewDocument("notes.pdf", path, 100, "application/pdf")
	f.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	f.docRepo.On("Delete", mock.Anything, doc.ID).Return(nil)

	require.NoError(t, f.svc.Delete(context.Background(), doc.ID))
	assert.False(t, f.files.Exists(path))
	f.docRepo.AssertExpectations(t)
}

func TestDeleteUnknownDocument(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	f.docRepo.On("GetByID", mock.Anything, id).Return(nil, services.ErrDocumentNotFound)

	err := f.svc.Delete(context.Background(), id)

	assert.ErrorIs(t, err, services.ErrDocumentNotFound)
}
