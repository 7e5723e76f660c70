package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dec-learning/platform-backend/services"
	"github.com/dec-learning/platform-backend/utils"
)

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var body utils.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "not found",
			err:        services.ErrDocumentNotFound,
			wantStatus: http.StatusNotFound,
			wantError:  "not_found",
		},
		{
			name:       "validation",
			err:        services.ErrNotPDF,
			wantStatus: http.StatusBadRequest,
			wantError:  "bad_request",
		},
		{
			name:       "unauthorized",
			err:        services.ErrInvalidToken,
			wantStatus: http.StatusUnauthorized,
			wantError:  "unauthorized",
		},
		{
			name:       "forbidden",
			err:        services.ErrForbidden,
			wantStatus: http.StatusForbidden,
			wantError:  "forbidden",
		},
		{
			name:       "provider failure",
			err:        services.WrapProvider("embedding request failed", errors.New("429 too many requests")),
			wantStatus: http.StatusBadGateway,
			wantError:  "bad_gateway",
		},
		{
			name:       "configuration",
			err:        services.ErrProviderNotConfigured,
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal_error",
		},
		{
			name:       "internal",
			err:        services.WrapInternal("query failed", errors.New("connection reset")),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal_error",
		},
		{
			name:       "plain error",
			err:        errors.New("something odd"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleServiceError(rec, tt.err, zap.NewNop())

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeErrorResponse(t, rec)
			assert.Equal(t, tt.wantError, body.Error)
		})
	}
}

func TestHandleServiceErrorDoesNotLeakInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleServiceError(rec, services.WrapInternal("query failed", errors.New("password=hunter2")), zap.NewNop())

	body := decodeErrorResponse(t, rec)
	assert.Equal(t, "an unexpected error occurred", body.Message)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestHandleServiceErrorIncludesValidationDetails(t *testing.T) {
	err := services.NewDomainError(services.ErrorTypeValidation, "invalid limit", nil).
		WithDetail("limit", 50)

	rec := httptest.NewRecorder()
	HandleServiceError(rec, err, zap.NewNop())

	body := decodeErrorResponse(t, rec)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, float64(50), body.Details["limit"])
}

func TestHandleServiceErrorNil(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleServiceError(rec, nil, zap.NewNop())

	assert.Empty(t, rec.Body.String())
}

func TestHandleValidationError(t *testing.T) {
	type payload struct {
		Message string `validate:"required"`
	}
	err := utils.ValidateStruct(payload{})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	HandleValidationError(rec, err, zap.NewNop())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(t, rec)
	assert.Equal(t, "bad_request", body.Error)
	assert.Contains(t, body.Details, "Message")
}
