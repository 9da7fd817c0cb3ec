package http

import (
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

// CertificateRequestHandler handles the certificate request queue. Users submit and list their
// own requests; administrators review them.
type CertificateRequestHandler struct {
	useCase caUseCase.CertificateRequestUseCase
	master  *cryptoDomain.MasterSecret
	logger  *slog.Logger
}

// NewCertificateRequestHandler creates a new certificate request handler.
func NewCertificateRequestHandler(
	useCase caUseCase.CertificateRequestUseCase,
	master *cryptoDomain.MasterSecret,
	logger *slog.Logger,
) *CertificateRequestHandler {
	return &CertificateRequestHandler{
		useCase: useCase,
		master:  master,
		logger:  logger,
	}
}

// SubmitHandler queues a certificate request for the caller.
// POST /v1/ca/certificate-requests - Returns 201 Created with the pending request.
func (h *CertificateRequestHandler) SubmitHandler(c *gin.Context) {
	userID, ok := httputil.RequireCaller(c, h.logger)
	if !ok {
		return
	}

	var req dto.SubmitCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	request, err := h.useCase.Submit(c.Request.Context(), &caDomain.SubmitInput{
		UserID:   userID,
		Username: req.Username,
		Subject: pkiDomain.SubjectFields{
			Country:            req.Country,
			State:              req.State,
			Locality:           req.Locality,
			OrganizationalUnit: req.OrganizationalUnit,
			Email:              req.Email,
		},
	}, h.master)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapCertificateRequestToResponse(request))
}

// ListMineHandler lists the caller's requests, newest first.
// GET /v1/ca/certificate-requests/mine?offset=0&limit=50
func (h *CertificateRequestHandler) ListMineHandler(c *gin.Context) {
	userID, ok := httputil.RequireCaller(c, h.logger)
	if !ok {
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	requests, err := h.useCase.ListMine(c.Request.Context(), userID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCertificateRequestsToListResponse(requests))
}

// ListHandler lists requests by status, oldest first. Status defaults to pending.
// GET /v1/ca/certificate-requests?status=pending&offset=0&limit=50 - admin only.
func (h *CertificateRequestHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	status := caDomain.RequestStatus(c.DefaultQuery("status", string(caDomain.RequestPending)))
	requests, err := h.useCase.ListByStatus(c.Request.Context(), status, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCertificateRequestsToListResponse(requests))
}

// ApproveHandler signs the request's CSR and marks it approved.
// POST /v1/ca/certificate-requests/:id/approve - admin only.
func (h *CertificateRequestHandler) ApproveHandler(c *gin.Context) {
	input, ok := h.reviewInput(c)
	if !ok {
		return
	}

	request, err := h.useCase.Approve(c.Request.Context(), input, h.master)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCertificateRequestToResponse(request))
}

// RejectHandler marks the request rejected and discards its pending key pair.
// POST /v1/ca/certificate-requests/:id/reject - admin only.
func (h *CertificateRequestHandler) RejectHandler(c *gin.Context) {
	input, ok := h.reviewInput(c)
	if !ok {
		return
	}

	request, err := h.useCase.Reject(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCertificateRequestToResponse(request))
}

func (h *CertificateRequestHandler) reviewInput(c *gin.Context) (*caDomain.ReviewInput, bool) {
	adminID, ok := httputil.RequireCaller(c, h.logger)
	if !ok {
		return nil, false
	}
	id, ok := httputil.UUIDParam(c, "id", h.logger)
	if !ok {
		return nil, false
	}

	var req dto.ReviewCertificateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return nil, false
		}
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return nil, false
	}

	return &caDomain.ReviewInput{RequestID: id, AdminID: adminID, Comment: req.Comment}, true
}
