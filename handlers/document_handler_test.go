package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDocumentHandler() *DocumentHandler {
	return NewDocumentHandler(nil, nil, nil, zap.NewNop(), 1024)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestHandleGetInvalidID(t *testing.T) {
	h := newDocumentHandler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/not-a-uuid", nil)
	h.HandleGet(rec, withURLParam(req, "id", "not-a-uuid"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid document id")
}

func TestHandleUploadInvalidForm(t *testing.T) {
	h := newDocumentHandler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload",
		strings.NewReader("not a multipart body"))
	req.Header.Set("Content-Type", "text/plain")
	h.HandleUpload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid multipart form")
}

func TestHandleUploadMissingFile(t *testing.T) {
	h := newDocumentHandler()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("title", "Notes"))
	require.NoError(t, writer.Close())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	h.HandleUpload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no file provided")
}

func TestHandleUploadPayloadTooLarge(t *testing.T) {
	h := newDocumentHandler()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "big.pdf")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), 4096))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	h.HandleUpload(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandleSearchInvalidLimit(t *testing.T) {
	h := newDocumentHandler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/search?query=ethics&limit=abc", nil)
	h.HandleSearch(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUpdateInvalidBody(t *testing.T) {
	h := newDocumentHandler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/documents/6f9c2b9e-9a0f-4d3c-8a6e-1f2b3c4d5e6f",
		strings.NewReader(`{broken`))
	h.HandleUpdate(rec, withURLParam(req, "id", "6f9c2b9e-9a0f-4d3c-8a6e-1f2b3c4d5e6f"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON body")
}

func TestHandleUpdateTitleTooLong(t *testing.T) {
	h := newDocumentHandler()

	long := strings.Repeat("a", 300)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/documents/6f9c2b9e-9a0f-4d3c-8a6e-1f2b3c4d5e6f",
		strings.NewReader(`{"title": "`+long+`"}`))
	h.HandleUpdate(rec, withURLParam(req, "id", "6f9c2b9e-9a0f-4d3c-8a6e-1f2b3c4d5e6f"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
