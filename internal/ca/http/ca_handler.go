// Package http provides HTTP handlers for certificate authority administration and the
// certificate request queue.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	caDomain "github.com/allisson/esign/internal/ca/domain"
	"github.com/allisson/esign/internal/ca/http/dto"
	caUseCase "github.com/allisson/esign/internal/ca/usecase"
	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	"github.com/allisson/esign/internal/httputil"
	pkiDomain "github.com/allisson/esign/internal/pki/domain"
	customValidation "github.com/allisson/esign/internal/validation"
)

// maxCertificateSize bounds uploaded PEM certificates.
const maxCertificateSize = 64 << 10

// CAHandler handles HTTP requests for CA operations.
// The CA master secret is loaded at startup and handed to the use case per call.
type CAHandler struct {
	caUseCase caUseCase.CAUseCase
	master    *cryptoDomain.MasterSecret
	logger    *slog.Logger
}

// NewCAHandler creates a new CA handler.
func NewCAHandler(
	useCase caUseCase.CAUseCase,
	master *cryptoDomain.MasterSecret,
	logger *slog.Logger,
) *CAHandler {
	return &CAHandler{
		caUseCase: useCase,
		master:    master,
		logger:    logger,
	}
}

// BootstrapHandler creates the CA root.
// POST /v1/ca/bootstrap - admin only. Returns 201 Created with the root certificate.
func (h *CAHandler) BootstrapHandler(c *gin.Context) {
	ca, err := h.caUseCase.BootstrapCA(c.Request.Context(), h.master)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapCAToResponse(ca))
}

// InfoHandler returns the CA certificate details.
// GET /v1/ca
func (h *CAHandler) InfoHandler(c *gin.Context) {
	info, err := h.caUseCase.GetCAInfo(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCAInfoToResponse(info))
}

// IssueHandler creates a key pair and CSR for a user.
// POST /v1/ca/identities - admin only. Returns 201 Created with the pending identity.
func (h *CAHandler) IssueHandler(c *gin.Context) {
	var req dto.IssueCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	identity, err := h.caUseCase.IssueUserCredential(c.Request.Context(), &caDomain.IssueInput{
		Username: req.Username,
		Subject: pkiDomain.SubjectFields{
			Country:            req.Country,
			State:              req.State,
			Locality:           req.Locality,
			OrganizationalUnit: req.OrganizationalUnit,
			Email:              req.Email,
		},
		RequesterID: req.RequesterID(),
	}, h.master)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapIdentityToResponse(identity))
}

// ListIdentitiesHandler lists identities awaiting signing or export.
// GET /v1/ca/identities - admin only.
func (h *CAHandler) ListIdentitiesHandler(c *gin.Context) {
	identities, err := h.caUseCase.ListIdentities(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapIdentitiesToListResponse(identities))
}

// SignHandler signs the pending CSR of an identity.
// POST /v1/ca/identities/:username/sign - admin only. Returns the certificate PEM.
func (h *CAHandler) SignHandler(c *gin.Context) {
	cert, err := h.caUseCase.SignUserCSR(c.Request.Context(), c.Param("username"), h.master)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusOK, "application/x-pem-file", cert)
}

// ExportHandler returns the identity's PKCS#12 bundle and removes the identity.
// POST /v1/ca/identities/:username/export - admin only. The bundle can be fetched once.
func (h *CAHandler) ExportHandler(c *gin.Context) {
	var req dto.ExportCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	username := c.Param("username")
	p12, err := h.caUseCase.ExportCredentialBundle(c.Request.Context(), username, req.Password, h.master)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(p12)

	fileName, _ := caDomain.SanitizeUsername(username)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.p12"`, fileName))
	c.Data(http.StatusOK, "application/x-pkcs12", p12)
}

// VerifyHandler checks an uploaded certificate against the CA.
// POST /v1/ca/verify - multipart field "certificate". Untrusted certificates yield 422.
func (h *CAHandler) VerifyHandler(c *gin.Context) {
	cert, _, err := httputil.ReadFormFile(c, "certificate", maxCertificateSize)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.caUseCase.VerifyAgainstCA(c.Request.Context(), cert); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.VerifyResponse{Trusted: true})
}
