package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dec-learning/platform-backend/services"
	"github.com/dec-learning/platform-backend/utils"
)

// HandleServiceError maps domain errors to HTTP responses.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)

	switch {
	case services.IsNotFoundError(err):
		if writeErr := utils.WriteNotFound(w, err.Error()); writeErr != nil {
			logger.Error("failed to write not found response", zap.Error(writeErr))
		}

	case services.IsValidationError(err):
		if writeErr := utils.WriteBadRequest(w, err.Error(), details); writeErr != nil {
			logger.Error("failed to write bad request response", zap.Error(writeErr))
		}

	case services.IsUnauthorizedError(err):
		if writeErr := utils.WriteUnauthorized(w, err.Error()); writeErr != nil {
			logger.Error("failed to write unauthorized response", zap.Error(writeErr))
		}

	case services.IsForbiddenError(err):
		if writeErr := utils.WriteForbidden(w, err.Error()); writeErr != nil {
			logger.Error("failed to write forbidden response", zap.Error(writeErr))
		}

	case services.IsProviderError(err):
		// Upstream provider failures surface as 502 so clients can retry.
		if writeErr := utils.WriteBadGateway(w, err.Error(), details); writeErr != nil {
			logger.Error("failed to write bad gateway response", zap.Error(writeErr))
		}

	case services.IsConfigurationError(err):
		logger.Error("configuration error", zap.Error(err))
		if writeErr := utils.WriteInternalServerError(w, "service is not configured correctly"); writeErr != nil {
			logger.Error("failed to write internal error response", zap.Error(writeErr))
		}

	default:
		// Internal, dimension mismatch and unknown errors all collapse to
		// 500 without leaking detail.
		logger.Error("internal service error",
			zap.String("error_type", string(services.GetErrorType(err))),
			zap.Error(err))
		if writeErr := utils.WriteInternalServerError(w, "an unexpected error occurred"); writeErr != nil {
			logger.Error("failed to write internal error response", zap.Error(writeErr))
		}
	}
}

// HandleValidationError maps request validation failures to 400 responses.
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	fields := utils.GetValidationFields(err)
	details := make(map[string]interface{}, len(fields))
	for field, message := range fields {
		details[field] = message
	}
	if writeErr := utils.WriteBadRequest(w, err.Error(), details); writeErr != nil {
		logger.Error("failed to write validation error response", zap.Error(writeErr))
	}
}
