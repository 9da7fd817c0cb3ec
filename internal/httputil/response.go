// Package httputil holds the gin helpers shared by every handler: error responses, caller
// identity, multipart uploads and pagination.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/esign/internal/errors"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// errorMapping binds a base sentinel to its response. Messages are fixed unless exposeMessage is
// set, in which case the wrapped error text (already user-facing) is returned.
type errorMapping struct {
	sentinel      error
	status        int
	code          string
	message       string
	exposeMessage bool
}

// errorMappings is checked in order; the first sentinel in the chain wins.
var errorMappings = []errorMapping{
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found", "The requested resource was not found", false},
	{apperrors.ErrConflict, http.StatusConflict, "conflict", "A conflict occurred with existing data", false},
	{apperrors.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input", "", true},
	{
		apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized",
		"The presented password or secret is not valid", false,
	},
	{apperrors.ErrInvalidState, http.StatusConflict, "invalid_state", "", true},
	{
		apperrors.ErrUnavailable, http.StatusServiceUnavailable, "service_unavailable",
		"A dependent service failed, try again later", false,
	},
	{
		apperrors.ErrForbidden, http.StatusForbidden, "forbidden",
		"You don't have permission to access this resource", false,
	},
}

// HandleErrorGin writes the JSON error response for err. Unmapped errors become a 500 whose body
// never includes the error text; the full chain is logged instead.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	status := http.StatusInternalServerError
	response := ErrorResponse{Error: "internal_error", Message: "An internal error occurred"}
	for _, m := range errorMappings {
		if !apperrors.Is(err, m.sentinel) {
			continue
		}
		status = m.status
		response = ErrorResponse{Error: m.code, Message: m.message}
		if m.exposeMessage {
			response.Message = err.Error()
		}
		break
	}

	if logger != nil {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c, level, "request failed",
			slog.Int("status_code", status),
			slog.String("error_code", response.Error),
			slog.Any("error", err),
		)
	}

	c.JSON(status, response)
}

// HandleBadRequestGin answers 400 for bodies or parameters that cannot be decoded.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: err.Error()})
}

// HandleValidationErrorGin answers 422 for decoded input that fails validation.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}

	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation_error", Message: err.Error()})
}
