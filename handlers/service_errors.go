package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/coffee-shop/services"
	"github.com/upb/coffee-shop/utils"
)

// HandleServiceError maps domain errors to HTTP responses. Internal error text
// is logged, never written.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var (
		writeErr error
		domErr   *services.DomainError
		message  = err.Error()
		details  = services.GetErrorDetails(err)
	)
	if de, ok := err.(*services.DomainError); ok {
		domErr = de
		message = de.Message
	}
	if len(details) == 0 {
		details = nil
	}

	switch {
	case services.IsNotFoundError(err):
		writeErr = utils.WriteNotFound(w, "")

	case services.IsValidationError(err):
		// validation failures answer 422 "unprocessable"
		writeErr = utils.WriteUnprocessable(w, "", details)

	case services.IsForbiddenError(err):
		writeErr = utils.WriteForbidden(w, message)

	case services.IsConflictError(err):
		writeErr = utils.WriteConflict(w, message, details)

	case services.IsUnavailableError(err):
		writeErr = utils.WriteServiceUnavailable(w, message)

	case services.IsExternalError(err):
		logger.Warn("upstream service error", zap.Error(err))
		writeErr = utils.WriteBadGateway(w, "")

	case services.IsInternalError(err):
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "")

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}

	if domErr != nil {
		logger.Debug("handled service error",
			zap.String("type", string(domErr.Type)),
			zap.String("message", domErr.Message),
			zap.Any("details", domErr.Details))
	}
}

// HandleDecodeError answers a request whose body could not be decoded
func HandleDecodeError(w http.ResponseWriter, err error, logger *zap.Logger) {
	logger.Debug("request body rejected", zap.Error(err))
	if writeErr := utils.WriteUnprocessable(w, "", map[string]interface{}{"body": err.Error()}); writeErr != nil {
		logger.Error("failed to write unprocessable response", zap.Error(writeErr))
	}
}
