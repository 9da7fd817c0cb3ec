// Package http provides HTTP handlers for signing requests.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	documentDomain "github.com/allisson/esign/internal/document/domain"
	"github.com/allisson/esign/internal/httputil"
	signingDomain "github.com/allisson/esign/internal/signing/domain"
	"github.com/allisson/esign/internal/signing/http/dto"
	signingUseCase "github.com/allisson/esign/internal/signing/usecase"
	customValidation "github.com/allisson/esign/internal/validation"
)

// maxPDFSize bounds replacement documents uploaded with a signature.
const maxPDFSize = 50 << 20

// SigningHandler handles HTTP requests for signing requests.
type SigningHandler struct {
	signingUseCase signingUseCase.SigningUseCase
	logger         *slog.Logger
}

// NewSigningHandler creates a new signing handler.
func NewSigningHandler(useCase signingUseCase.SigningUseCase, logger *slog.Logger) *SigningHandler {
	return &SigningHandler{
		signingUseCase: useCase,
		logger:         logger,
	}
}

// SendHandler creates a signing request.
// POST /v1/signing-requests - Returns 201 Created.
func (h *SigningHandler) SendHandler(c *gin.Context) {
	senderID, ok := httputil.RequireCaller(c, h.logger)
	if !ok {
		return
	}

	var req dto.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	request, err := h.signingUseCase.Send(c.Request.Context(), req.ToInput(senderID))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapRequestToResponse(request))
}

// ListReceivedHandler lists requests addressed to the caller.
// GET /v1/signing-requests/received?offset=0&limit=50
func (h *SigningHandler) ListReceivedHandler(c *gin.Context) {
	h.list(c, h.signingUseCase.ListReceived)
}

// ListSentHandler lists requests created by the caller.
// GET /v1/signing-requests/sent?offset=0&limit=50
func (h *SigningHandler) ListSentHandler(c *gin.Context) {
	h.list(c, h.signingUseCase.ListSent)
}

// GetHandler returns one request.
// GET /v1/signing-requests/:id
func (h *SigningHandler) GetHandler(c *gin.Context) {
	userID, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	request, err := h.signingUseCase.Get(c.Request.Context(), id, userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRequestToResponse(request))
}

// SourceHandler returns the PDF the recipient is asked to sign.
// GET /v1/signing-requests/:id/source
func (h *SigningHandler) SourceHandler(c *gin.Context) {
	userID, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	content, err := h.signingUseCase.SourceDocument(c.Request.Context(), id, userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	writePDF(c, content)
}

// SignHandler signs the request's document with one of the caller's credentials.
// POST /v1/signing-requests/:id/sign - multipart fields "credential_id", "password" and an
// optional "pdf" replacing the source document.
func (h *SigningHandler) SignHandler(c *gin.Context) {
	signerID, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	credentialID, err := uuid.Parse(c.PostForm("credential_id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("credential_id: must be a valid UUID"), h.logger)
		return
	}
	password := c.PostForm("password")
	if password == "" {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("password: cannot be blank"), h.logger)
		return
	}

	var pdf []byte
	if _, err := c.FormFile("pdf"); !errors.Is(err, http.ErrMissingFile) {
		pdf, _, err = httputil.ReadFormFile(c, "pdf", maxPDFSize)
		if err != nil {
			httputil.HandleValidationErrorGin(c, err, h.logger)
			return
		}
	}

	result, err := h.signingUseCase.Sign(c.Request.Context(), signingUseCase.SignInput{
		RequestID:    id,
		SignerID:     signerID,
		CredentialID: credentialID,
		Password:     password,
		PDF:          pdf,
	})
	cryptoDomain.Zero(pdf)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSignResultToResponse(result))
}

// RejectHandler rejects the request.
// POST /v1/signing-requests/:id/reject
func (h *SigningHandler) RejectHandler(c *gin.Context) {
	signerID, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	var req dto.RejectRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	request, err := h.signingUseCase.Reject(c.Request.Context(), signingUseCase.RejectInput{
		RequestID: id,
		SignerID:  signerID,
		Reason:    req.Reason,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRequestToResponse(request))
}

// DeleteHandler removes a pending request.
// DELETE /v1/signing-requests/:id - Returns 204 No Content.
func (h *SigningHandler) DeleteHandler(c *gin.Context) {
	senderID, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	if err := h.signingUseCase.Delete(c.Request.Context(), id, senderID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// DownloadHandler returns the signed PDF.
// GET /v1/signing-requests/:id/document
func (h *SigningHandler) DownloadHandler(c *gin.Context) {
	userID, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	content, err := h.signingUseCase.DownloadSigned(c.Request.Context(), id, userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	writePDF(c, content)
}

type listFunc func(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*signingDomain.SigningRequest, error)

func (h *SigningHandler) list(c *gin.Context, fn listFunc) {
	userID, ok := httputil.RequireCaller(c, h.logger)
	if !ok {
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	requests, err := fn(c.Request.Context(), userID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRequestsToListResponse(requests))
}

func (h *SigningHandler) callerAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := httputil.RequireCaller(c, h.logger)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, ok := httputil.UUIDParam(c, "id", h.logger)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

func writePDF(c *gin.Context, content *documentDomain.Content) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", content.FileName))
	c.Data(http.StatusOK, "application/pdf", content.Data)
}
