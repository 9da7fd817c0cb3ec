// Package http provides HTTP handlers for the caller's signed documents.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/esign/internal/document/http/dto"
	documentUseCase "github.com/allisson/esign/internal/document/usecase"
	"github.com/allisson/esign/internal/httputil"
)

// DocumentHandler handles HTTP requests for signed documents.
type DocumentHandler struct {
	documentUseCase documentUseCase.DocumentUseCase
	logger          *slog.Logger
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(useCase documentUseCase.DocumentUseCase, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentUseCase: useCase,
		logger:          logger,
	}
}

// ListHandler lists the caller's signed documents.
// GET /v1/documents?offset=0&limit=50
func (h *DocumentHandler) ListHandler(c *gin.Context) {
	ownerID, ok := httputil.RequireCaller(c, h.logger)
	if !ok {
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	docs, err := h.documentUseCase.List(c.Request.Context(), ownerID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDocumentsToListResponse(docs))
}

// GetHandler returns the decrypted PDF.
// GET /v1/documents/:id
func (h *DocumentHandler) GetHandler(c *gin.Context) {
	ownerID, ok := httputil.RequireCaller(c, h.logger)
	if !ok {
		return
	}
	id, ok := httputil.UUIDParam(c, "id", h.logger)
	if !ok {
		return
	}

	content, err := h.documentUseCase.Open(c.Request.Context(), id, &ownerID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", content.FileName))
	c.Data(http.StatusOK, "application/pdf", content.Data)
}

// DeleteHandler removes a signed document.
// DELETE /v1/documents/:id - Returns 204 No Content.
func (h *DocumentHandler) DeleteHandler(c *gin.Context) {
	ownerID, ok := httputil.RequireCaller(c, h.logger)
	if !ok {
		return
	}
	id, ok := httputil.UUIDParam(c, "id", h.logger)
	if !ok {
		return
	}

	if err := h.documentUseCase.Delete(c.Request.Context(), ownerID, id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}
