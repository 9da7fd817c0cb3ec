// Package http provides HTTP handlers for user signing credentials.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	credentialDomain "github.com/allisson/esign/internal/credential/domain"
	"github.com/allisson/esign/internal/credential/http/dto"
	credentialUseCase "github.com/allisson/esign/internal/credential/usecase"
	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	"github.com/allisson/esign/internal/httputil"
	customValidation "github.com/allisson/esign/internal/validation"
)

// maxBundleSize bounds uploaded PKCS#12 bundles.
const maxBundleSize = 1 << 20

// CredentialHandler handles HTTP requests for the caller's signing credentials.
type CredentialHandler struct {
	credentialUseCase credentialUseCase.CredentialUseCase
	logger            *slog.Logger
}

// NewCredentialHandler creates a new credential handler.
func NewCredentialHandler(useCase credentialUseCase.CredentialUseCase, logger *slog.Logger) *CredentialHandler {
	return &CredentialHandler{
		credentialUseCase: useCase,
		logger:            logger,
	}
}

// UploadHandler stores a PKCS#12 bundle issued by the CA.
// POST /v1/credentials - multipart fields "file" and "password". Returns 201 Created.
func (h *CredentialHandler) UploadHandler(c *gin.Context) {
	ownerID, ok := httputil.RequireCaller(c, h.logger)
	if !ok {
		return
	}

	bundle, fileName, err := httputil.ReadFormFile(c, "file", maxBundleSize)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(bundle)

	credential, err := h.credentialUseCase.Upload(c.Request.Context(), &credentialDomain.UploadInput{
		OwnerID:  ownerID,
		FileName: fileName,
		Bundle:   bundle,
		Password: c.PostForm("password"),
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapCredentialToResponse(credential))
}

// ListHandler lists the caller's credentials.
// GET /v1/credentials?offset=0&limit=50
func (h *CredentialHandler) ListHandler(c *gin.Context) {
	ownerID, ok := httputil.RequireCaller(c, h.logger)
	if !ok {
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	credentials, err := h.credentialUseCase.List(c.Request.Context(), ownerID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCredentialsToListResponse(credentials))
}

// UnlockHandler checks the credential password.
// POST /v1/credentials/:id/unlock - Returns 204 No Content, or 401 for a wrong password.
func (h *CredentialHandler) UnlockHandler(c *gin.Context) {
	ownerID, ok := httputil.RequireCaller(c, h.logger)
	if !ok {
		return
	}
	id, ok := httputil.UUIDParam(c, "id", h.logger)
	if !ok {
		return
	}
	req, ok := h.bindPassword(c)
	if !ok {
		return
	}

	if err := h.credentialUseCase.Unlock(c.Request.Context(), ownerID, id, req.Password); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// DownloadHandler returns the decrypted bundle.
// POST /v1/credentials/:id/download
func (h *CredentialHandler) DownloadHandler(c *gin.Context) {
	ownerID, ok := httputil.RequireCaller(c, h.logger)
	if !ok {
		return
	}
	id, ok := httputil.UUIDParam(c, "id", h.logger)
	if !ok {
		return
	}
	req, ok := h.bindPassword(c)
	if !ok {
		return
	}

	bundle, err := h.credentialUseCase.Download(c.Request.Context(), ownerID, id, req.Password)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(bundle.Content)

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", bundle.FileName))
	c.Data(http.StatusOK, "application/x-pkcs12", bundle.Content)
}

// DeleteHandler removes a credential.
// DELETE /v1/credentials/:id - Returns 204 No Content.
func (h *CredentialHandler) DeleteHandler(c *gin.Context) {
	ownerID, ok := httputil.RequireCaller(c, h.logger)
	if !ok {
		return
	}
	id, ok := httputil.UUIDParam(c, "id", h.logger)
	if !ok {
		return
	}

	if err := h.credentialUseCase.Delete(c.Request.Context(), ownerID, id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

func (h *CredentialHandler) bindPassword(c *gin.Context) (*dto.PasswordRequest, bool) {
	var req dto.PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return nil, false
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return nil, false
	}
	return &req, true
}
