package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	caDomain "github.com/allisson/esign/internal/ca/domain"
	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	"github.com/allisson/esign/internal/database"
	notificationDomain "github.com/allisson/esign/internal/notification/domain"
)

// certificateRequestUseCase implements CertificateRequestUseCase.
type certificateRequestUseCase struct {
	txManager     database.TxManager
	requests      CertificateRequestRepository
	ca            CAUseCase
	identityStore IdentityStore
	notifier      Notifier
	logger        *slog.Logger
}

func (u *certificateRequestUseCase) Submit(
	ctx context.Context,
	input *caDomain.SubmitInput,
	master *cryptoDomain.MasterSecret,
) (*caDomain.CertificateRequest, error) {
	pending, err := u.requests.HasPending(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, caDomain.ErrCertificateRequestPending
	}

	identity, err := u.ca.IssueUserCredential(ctx, &caDomain.IssueInput{
		Username:    input.Username,
		Subject:     input.Subject,
		RequesterID: input.UserID,
	}, master)
	if err != nil {
		return nil, err
	}

	request, err := caDomain.NewCertificateRequest(input.UserID, identity, time.Now())
	if err == nil {
		err = u.requests.Create(ctx, request)
	}
	if err != nil {
		u.discardIdentity(ctx, identity.Username)
		return nil, err
	}

	u.logger.Info("certificate request submitted",
		slog.String("request_id", request.ID.String()),
		slog.String("username", request.Username),
	)
	return request, nil
}

func (u *certificateRequestUseCase) Approve(
	ctx context.Context,
	input *caDomain.ReviewInput,
	master *cryptoDomain.MasterSecret,
) (*caDomain.CertificateRequest, error) {
	var request *caDomain.CertificateRequest

	err := u.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		request, err = u.requests.GetForUpdate(ctx, input.RequestID)
		if err != nil {
			return err
		}
		if err := request.Approve(input.AdminID, input.Comment, time.Now()); err != nil {
			return err
		}

		// A certificate left by an approval whose status update rolled back is reused.
		_, err = u.ca.SignUserCSR(ctx, request.Username, master)
		if errors.Is(err, caDomain.ErrCertificateAlreadyIssued) {
			u.notify(ctx, issuedEvent(request))
		} else if err != nil {
			return err
		}

		return u.requests.Update(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	u.logger.Info("certificate request approved",
		slog.String("request_id", request.ID.String()),
		slog.String("admin_id", input.AdminID.String()),
	)
	return request, nil
}

func (u *certificateRequestUseCase) Reject(
	ctx context.Context,
	input *caDomain.ReviewInput,
) (*caDomain.CertificateRequest, error) {
	var request *caDomain.CertificateRequest

	err := u.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		request, err = u.requests.GetForUpdate(ctx, input.RequestID)
		if err != nil {
			return err
		}
		if err := request.Reject(input.AdminID, input.Comment, time.Now()); err != nil {
			return err
		}
		return u.requests.Update(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	u.discardIdentity(ctx, request.Username)
	u.logger.Info("certificate request rejected",
		slog.String("request_id", request.ID.String()),
		slog.String("admin_id", input.AdminID.String()),
	)

	message := fmt.Sprintf("Your certificate request for %s was rejected.", request.Username)
	if request.AdminComment != "" {
		message = fmt.Sprintf("Your certificate request for %s was rejected: %s", request.Username, request.AdminComment)
	}
	u.notify(ctx, notificationDomain.NewEvent(
		request.UserID,
		notificationDomain.EventCertificateRequestRejected,
		"Certificate request rejected",
		message,
		requestData(request),
	))
	return request, nil
}

func (u *certificateRequestUseCase) ListByStatus(
	ctx context.Context,
	status caDomain.RequestStatus,
	offset, limit int,
) ([]*caDomain.CertificateRequest, error) {
	if !status.Valid() {
		return nil, caDomain.ErrInvalidRequestStatus
	}
	return u.requests.ListByStatus(ctx, status, offset, limit)
}

func (u *certificateRequestUseCase) ListMine(
	ctx context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]*caDomain.CertificateRequest, error) {
	return u.requests.ListByUser(ctx, userID, offset, limit)
}

func (u *certificateRequestUseCase) discardIdentity(ctx context.Context, username string) {
	if err := u.identityStore.Delete(context.WithoutCancel(ctx), username); err != nil {
		u.logger.Error("failed to remove requested identity",
			slog.String("username", username),
			slog.Any("error", err),
		)
	}
}

func (u *certificateRequestUseCase) notify(ctx context.Context, event notificationDomain.Event) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.Notify(ctx, event); err != nil {
		u.logger.Warn("failed to notify certificate request review",
			slog.String("event_type", string(event.Type)),
			slog.Any("error", err),
		)
	}
}

func issuedEvent(request *caDomain.CertificateRequest) notificationDomain.Event {
	return notificationDomain.NewEvent(
		request.UserID,
		notificationDomain.EventCertificateIssued,
		"Certificate issued",
		fmt.Sprintf("The certificate for %s has been issued and is ready for export.", request.Username),
		requestData(request),
	)
}

func requestData(request *caDomain.CertificateRequest) map[string]string {
	return map[string]string{
		"certificate_request_id": request.ID.String(),
		"username":               request.Username,
	}
}

// NewCertificateRequestUseCase creates a new CertificateRequestUseCase.
func NewCertificateRequestUseCase(
	txManager database.TxManager,
	requests CertificateRequestRepository,
	ca CAUseCase,
	identityStore IdentityStore,
	notifier Notifier,
	logger *slog.Logger,
) CertificateRequestUseCase {
	return &certificateRequestUseCase{
		txManager:     txManager,
		requests:      requests,
		ca:            ca,
		identityStore: identityStore,
		notifier:      notifier,
		logger:        logger,
	}
}
