package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dec-learning/platform-backend/middleware"
	"github.com/dec-learning/platform-backend/models"
	"github.com/dec-learning/platform-backend/services"
	"github.com/dec-learning/platform-backend/services/documents"
	"github.com/dec-learning/platform-backend/services/retrieval"
	"github.com/dec-learning/platform-backend/utils"
)

// UpdateDocumentRequest represents a partial document metadata update
type UpdateDocumentRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// DocumentResponse represents a document in API responses
type DocumentResponse struct {
	Document *models.Document        `json:"document"`
	Chunks   []*models.DocumentChunk `json:"chunks,omitempty"`
}

// UploadResponse is returned after a successful upload while processing
// continues in the background.
type UploadResponse struct {
	Document *models.Document `json:"document"`
	Message  string           `json:"message"`
}

// ReprocessResponse reports the outcome of a synchronous reprocessing run
type ReprocessResponse struct {
	Result *models.ProcessingResult `json:"result"`
}

// DocumentHandler handles document-related HTTP requests
type DocumentHandler struct {
	service   *documents.Service
	processor *documents.Processor
	retriever *retrieval.Service
	logger    *zap.Logger
	maxBytes  int64
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(
	service *documents.Service,
	processor *documents.Processor,
	retriever *retrieval.Service,
	logger *zap.Logger,
	maxBytes int64,
) *DocumentHandler {
	if maxBytes <= 0 {
		maxBytes = 50 * 1024 * 1024
	}
	return &DocumentHandler{
		service:   service,
		processor: processor,
		retriever: retriever,
		logger:    logger,
		maxBytes:  maxBytes,
	}
}

// HandleUpload handles POST /v1/documents/upload
func (h *DocumentHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			_ = utils.WritePayloadTooLarge(w, "uploaded file exceeds the size limit")
			return
		}
		_ = utils.WriteBadRequest(w, "invalid multipart form", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		HandleServiceError(w, services.ErrNoFileProvided, h.logger)
		return
	}
	defer file.Close()

	input := documents.UploadInput{
		Filename:    header.Filename,
		MimeType:    header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
		Title:       optionalFormValue(r, "title"),
		Description: optionalFormValue(r, "description"),
	}

	doc, err := h.service.Upload(ctx, input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := h.processor.Enqueue(doc.ID); err != nil {
		h.logger.Warn("failed to enqueue document for processing",
			zap.String("request_id", requestID),
			zap.String("document_id", doc.ID.String()),
			zap.Error(err))
	}

	h.logger.Info("document upload accepted",
		zap.String("request_id", requestID),
		zap.String("document_id", doc.ID.String()),
		zap.String("filename", doc.Filename))

	_ = utils.WriteCreated(w, UploadResponse{
		Document: doc,
		Message:  "document uploaded, processing started",
	})
}

// HandleList handles GET /v1/documents
func (h *DocumentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, docs)
}

// HandleStats handles GET /v1/documents/stats
func (h *DocumentHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, stats)
}

// HandleSearch handles GET /v1/documents/search
func (h *DocumentHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			HandleServiceError(w, services.ErrInvalidLimit, h.logger)
			return
		}
		limit = parsed
	}

	results, err := h.retriever.Search(r.Context(), query, limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, results)
}

// HandleGet handles GET /v1/documents/{id}
func (h *DocumentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	doc, chunks, err := h.service.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, DocumentResponse{Document: doc, Chunks: chunks})
}

// HandleUpdate handles PATCH /v1/documents/{id}
func (h *DocumentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	var req UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "invalid JSON body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	doc, err := h.service.Update(r.Context(), id, documents.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, DocumentResponse{Document: doc})
}

// HandleDelete handles DELETE /v1/documents/{id}
func (h *DocumentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleReprocess handles POST /v1/documents/{id}/reprocess
func (h *DocumentHandler) HandleReprocess(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	result, err := h.service.Reprocess(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, ReprocessResponse{Result: result})
}

// documentID parses the {id} URL parameter, writing a 400 on failure.
func (h *DocumentHandler) documentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		_ = utils.WriteBadRequest(w, "invalid document id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func optionalFormValue(r *http.Request, key string) *string {
	value := r.FormValue(key)
	if value == "" {
		return nil
	}
	return &value
}
