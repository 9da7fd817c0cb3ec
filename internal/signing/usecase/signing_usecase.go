package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	"github.com/allisson/esign/internal/database"
	documentDomain "github.com/allisson/esign/internal/document/domain"
	apperrors "github.com/allisson/esign/internal/errors"
	notificationDomain "github.com/allisson/esign/internal/notification/domain"
	signingDomain "github.com/allisson/esign/internal/signing/domain"
	userDomain "github.com/allisson/esign/internal/user/domain"
)

const pdfMagic = "%PDF-"

// Config holds signing workflow configuration.
type Config struct {
	// DefaultTTL is the lifetime of a request sent without an explicit expiry.
	DefaultTTL time.Duration
	// BatchSize bounds the rows handled per sweep.
	BatchSize int
}

// signingUseCase implements SigningUseCase.
type signingUseCase struct {
	config       Config
	txManager    database.TxManager
	requestRepo  SigningRequestRepository
	reminderRepo ReminderRepository
	users        UserDirectory
	credentials  CredentialOpener
	documents    DocumentStore
	unsigned     UnsignedDocumentReader
	signer       PDFSigner
	notifier     Notifier
	logger       *slog.Logger
}

func (s *signingUseCase) Send(ctx context.Context, input SendInput) (*signingDomain.SigningRequest, error) {
	recipient, err := s.resolveRecipient(ctx, input)
	if err != nil {
		return nil, err
	}

	if _, _, err := s.loadSource(ctx, input.DocumentID, input.DocumentType, input.SenderID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := input.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(s.config.DefaultTTL)
	}

	request, err := signingDomain.NewSigningRequest(
		input.DocumentID,
		input.DocumentType,
		input.SenderID,
		recipient.ID,
		input.Message,
		expiresAt,
		now,
	)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := s.requestRepo.Create(ctx, request); err != nil {
			return err
		}
		for _, reminder := range signingDomain.ScheduleReminders(request, now) {
			if err := s.reminderRepo.Create(ctx, reminder); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("signing request sent",
		slog.String("request_id", request.ID.String()),
		slog.String("sender_id", request.SenderID.String()),
		slog.String("recipient_id", request.RecipientID.String()),
	)

	s.notify(ctx, notificationDomain.NewEvent(
		request.RecipientID,
		notificationDomain.EventSignatureRequestReceived,
		"New signing request",
		fmt.Sprintf("%s sent you a document to sign", s.displayName(ctx, request.SenderID)),
		requestData(request),
	))
	return request, nil
}

func (s *signingUseCase) Get(ctx context.Context, id, userID uuid.UUID) (*signingDomain.SigningRequest, error) {
	request, err := s.requestRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !request.Participant(userID) {
		return nil, signingDomain.ErrRequestNotFound
	}
	return s.refresh(ctx, request), nil
}

func (s *signingUseCase) ListReceived(
	ctx context.Context,
	recipientID uuid.UUID,
	offset, limit int,
) ([]*signingDomain.SigningRequest, error) {
	requests, err := s.requestRepo.ListByRecipient(ctx, recipientID, offset, limit)
	if err != nil {
		return nil, err
	}
	for i, request := range requests {
		requests[i] = s.refresh(ctx, request)
	}
	return requests, nil
}

func (s *signingUseCase) ListSent(
	ctx context.Context,
	senderID uuid.UUID,
	offset, limit int,
) ([]*signingDomain.SigningRequest, error) {
	requests, err := s.requestRepo.ListBySender(ctx, senderID, offset, limit)
	if err != nil {
		return nil, err
	}
	for i, request := range requests {
		requests[i] = s.refresh(ctx, request)
	}
	return requests, nil
}

func (s *signingUseCase) SourceDocument(
	ctx context.Context,
	id, recipientID uuid.UUID,
) (*documentDomain.Content, error) {
	request, err := s.requestRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.RecipientID != recipientID {
		return nil, signingDomain.ErrRequestNotFound
	}
	request = s.refresh(ctx, request)
	switch request.Status {
	case signingDomain.StatusPending:
	case signingDomain.StatusExpired:
		return nil, signingDomain.ErrRequestExpired
	default:
		return nil, signingDomain.ErrInvalidState
	}

	pdf, fileName, err := s.loadSource(ctx, request.DocumentID, request.DocumentType, request.SenderID)
	if err != nil {
		return nil, err
	}
	return &documentDomain.Content{FileName: fileName, Data: pdf}, nil
}

func (s *signingUseCase) Sign(ctx context.Context, input SignInput) (*SignResult, error) {
	if len(input.PDF) > 0 && !bytes.HasPrefix(input.PDF, []byte(pdfMagic)) {
		return nil, signingDomain.ErrInvalidPDF
	}

	var (
		result  *SignResult
		expired bool
	)

	err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
		request, err := s.requestRepo.GetForUpdate(ctx, input.RequestID)
		if err != nil {
			return err
		}
		if request.RecipientID != input.SignerID {
			return signingDomain.ErrRequestNotFound
		}
		if request.Status.Terminal() {
			return signingDomain.ErrInvalidState
		}

		now := time.Now().UTC()
		if request.Overdue(now) {
			expired = true
			return s.expireLocked(ctx, request, now)
		}

		p12, err := s.credentials.Open(ctx, input.SignerID, input.CredentialID, input.Password)
		if err != nil {
			return err
		}
		defer cryptoDomain.Zero(p12)

		pdf, fileName, err := s.loadSource(ctx, request.DocumentID, request.DocumentType, request.SenderID)
		if err != nil {
			return err
		}
		if len(input.PDF) > 0 {
			pdf = input.PDF
		}

		signed, err := s.signer.Sign(ctx, pdf, p12, input.Password)
		if err != nil {
			return err
		}

		document, err := s.documents.Store(ctx, input.SignerID, signedFileName(fileName), signed)
		if err != nil {
			return err
		}

		if err := request.Sign(time.Now().UTC(), document.ID); err != nil {
			return err
		}
		if err := s.requestRepo.Update(ctx, request); err != nil {
			return err
		}
		if err := s.reminderRepo.DeleteUnsent(ctx, request.ID); err != nil {
			return err
		}

		siblings, err := s.requestRepo.ListByDocument(ctx, request.SenderID, request.DocumentID, request.DocumentType)
		if err != nil {
			return err
		}

		result = &SignResult{Request: request, SignedDocumentID: document.ID}
		result.SignedCount, result.TotalSigners = signingProgress(request, siblings)
		result.AllSigned = result.SignedCount == result.TotalSigners
		return nil
	})
	if err != nil {
		if errors.Is(err, cryptoDomain.ErrAuthenticationFailed) {
			s.logger.Warn("signing rejected: credential could not be unlocked",
				slog.String("request_id", input.RequestID.String()),
				slog.String("signer_id", input.SignerID.String()),
			)
		}
		return nil, err
	}
	if expired {
		return nil, signingDomain.ErrRequestExpired
	}

	request := result.Request
	s.logger.Info("signing request signed",
		slog.String("request_id", request.ID.String()),
		slog.String("signed_document_id", result.SignedDocumentID.String()),
		slog.Bool("all_signed", result.AllSigned),
	)

	if result.AllSigned {
		s.notify(ctx, notificationDomain.NewEvent(
			request.SenderID,
			notificationDomain.EventAllSigned,
			"Document fully signed",
			"All signers have completed the document. It is available under signed documents.",
			requestData(request),
		))
	} else {
		s.notify(ctx, notificationDomain.NewEvent(
			request.SenderID,
			notificationDomain.EventSignatureRequestSigned,
			"Document signed",
			fmt.Sprintf("%s signed the document (%d/%d)",
				s.displayName(ctx, request.RecipientID), result.SignedCount, result.TotalSigners),
			requestData(request),
		))
	}
	return result, nil
}

func (s *signingUseCase) Reject(ctx context.Context, input RejectInput) (*signingDomain.SigningRequest, error) {
	var (
		request *signingDomain.SigningRequest
		expired bool
	)

	err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		request, err = s.requestRepo.GetForUpdate(ctx, input.RequestID)
		if err != nil {
			return err
		}
		if request.RecipientID != input.SignerID {
			return signingDomain.ErrRequestNotFound
		}

		now := time.Now().UTC()
		if request.Overdue(now) {
			expired = true
			return s.expireLocked(ctx, request, now)
		}
		if err := request.Reject(now, input.Reason); err != nil {
			return err
		}
		if err := s.requestRepo.Update(ctx, request); err != nil {
			return err
		}
		return s.reminderRepo.DeleteUnsent(ctx, request.ID)
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, signingDomain.ErrRequestExpired
	}

	s.logger.Info("signing request rejected", slog.String("request_id", request.ID.String()))

	message := fmt.Sprintf("%s rejected your signing request", s.displayName(ctx, request.RecipientID))
	if request.RejectionReason != "" {
		message += ": " + request.RejectionReason
	}
	s.notify(ctx, notificationDomain.NewEvent(
		request.SenderID,
		notificationDomain.EventSignatureRequestRejected,
		"Signing request rejected",
		message,
		requestData(request),
	))
	return request, nil
}

func (s *signingUseCase) Delete(ctx context.Context, id, senderID uuid.UUID) error {
	return s.txManager.WithTx(ctx, func(ctx context.Context) error {
		request, err := s.requestRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if request.SenderID != senderID {
			return signingDomain.ErrRequestNotFound
		}
		if request.Status != signingDomain.StatusPending {
			return signingDomain.ErrInvalidState
		}
		if err := s.reminderRepo.DeleteUnsent(ctx, id); err != nil {
			return err
		}
		return s.requestRepo.Delete(ctx, id)
	})
}

func (s *signingUseCase) DownloadSigned(
	ctx context.Context,
	id, userID uuid.UUID,
) (*documentDomain.Content, error) {
	request, err := s.requestRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !request.Participant(userID) {
		return nil, signingDomain.ErrRequestNotFound
	}
	if request.Status != signingDomain.StatusSigned || request.SignedDocumentID == nil {
		return nil, signingDomain.ErrSignedDocumentNotReady
	}

	// Participants were checked above; the document belongs to the recipient.
	return s.documents.Open(ctx, *request.SignedDocumentID, nil)
}

func (s *signingUseCase) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.requestRepo.ListOverdue(ctx, now, s.batchSize())
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range overdue {
		var request *signingDomain.SigningRequest
		err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
			locked, err := s.requestRepo.GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if !locked.Overdue(now) {
				return nil
			}
			request = locked
			return s.expireLocked(ctx, locked, now)
		})
		if err != nil {
			if ctx.Err() != nil {
				return expired, ctx.Err()
			}
			s.logger.Error("failed to expire signing request",
				slog.String("request_id", candidate.ID.String()),
				slog.Any("error", err),
			)
			continue
		}
		if request == nil {
			continue
		}

		expired++
		s.notify(ctx, notificationDomain.NewEvent(
			request.SenderID,
			notificationDomain.EventSignatureRequestExpired,
			"Signing request expired",
			fmt.Sprintf("%s did not sign before the request expired", s.displayName(ctx, request.RecipientID)),
			requestData(request),
		))
	}

	if expired > 0 {
		s.logger.Info("expired stale signing requests", slog.Int("count", expired))
	}
	return expired, nil
}

func (s *signingUseCase) ProcessReminders(ctx context.Context, now time.Time) (int, error) {
	var events []notificationDomain.Event

	err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
		events = events[:0]

		due, err := s.reminderRepo.ListDue(ctx, now, s.batchSize())
		if err != nil {
			return err
		}

		for _, reminder := range due {
			request, err := s.requestRepo.Get(ctx, reminder.RequestID)
			if err != nil && !errors.Is(err, signingDomain.ErrRequestNotFound) {
				return err
			}
			if err := s.reminderRepo.MarkSent(ctx, reminder.ID, now); err != nil {
				return err
			}
			if request == nil || request.Status != signingDomain.StatusPending || request.Overdue(now) {
				continue
			}
			events = append(events, s.reminderEvent(ctx, reminder, request))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, event := range events {
		s.notify(ctx, event)
	}
	if len(events) > 0 {
		s.logger.Info("sent signing reminders", slog.Int("count", len(events)))
	}
	return len(events), nil
}

// refresh persists a lazy expiry observed on read. Reads still report the expired view
// when the write fails.
func (s *signingUseCase) refresh(ctx context.Context, request *signingDomain.SigningRequest) *signingDomain.SigningRequest {
	now := time.Now().UTC()
	if !request.Overdue(now) {
		return request
	}

	var persisted *signingDomain.SigningRequest
	err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
		locked, err := s.requestRepo.GetForUpdate(ctx, request.ID)
		if err != nil {
			return err
		}
		persisted = locked
		if !locked.Overdue(now) {
			return nil
		}
		return s.expireLocked(ctx, locked, now)
	})
	if err != nil {
		s.logger.Warn("failed to persist signing request expiry",
			slog.String("request_id", request.ID.String()),
			slog.Any("error", err),
		)
		request.RefreshExpiry(now)
		return request
	}
	return persisted
}

// expireLocked moves a locked overdue request to expired and drops its pending reminders.
func (s *signingUseCase) expireLocked(ctx context.Context, request *signingDomain.SigningRequest, now time.Time) error {
	if err := request.Expire(now); err != nil {
		return err
	}
	if err := s.requestRepo.Update(ctx, request); err != nil {
		return err
	}
	return s.reminderRepo.DeleteUnsent(ctx, request.ID)
}

func (s *signingUseCase) resolveRecipient(ctx context.Context, input SendInput) (*userDomain.User, error) {
	var (
		recipient *userDomain.User
		err       error
	)
	switch {
	case input.RecipientID != uuid.Nil:
		recipient, err = s.users.GetByID(ctx, input.RecipientID)
	case strings.TrimSpace(input.RecipientEmail) != "":
		recipient, err = s.users.GetByEmail(ctx, strings.TrimSpace(input.RecipientEmail))
	default:
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "recipient is required")
	}
	if errors.Is(err, userDomain.ErrUserNotFound) {
		return nil, signingDomain.ErrRecipientNotFound
	}
	return recipient, err
}

// loadSource returns the document a request points at, checking it belongs to senderID.
func (s *signingUseCase) loadSource(
	ctx context.Context,
	documentID uuid.UUID,
	documentType signingDomain.DocumentType,
	senderID uuid.UUID,
) ([]byte, string, error) {
	switch documentType {
	case signingDomain.DocumentTypeUnsigned:
		document, err := s.unsigned.Get(ctx, documentID)
		if err != nil {
			return nil, "", err
		}
		if document.OwnerID != senderID {
			return nil, "", documentDomain.ErrUnsignedDocumentNotFound
		}
		return document.Content, document.FileName, nil
	case signingDomain.DocumentTypeSigned:
		content, err := s.documents.Open(ctx, documentID, &senderID)
		if err != nil {
			return nil, "", err
		}
		return content.Data, content.FileName, nil
	default:
		return nil, "", signingDomain.ErrInvalidDocumentType
	}
}

func (s *signingUseCase) reminderEvent(
	ctx context.Context,
	reminder *signingDomain.Reminder,
	request *signingDomain.SigningRequest,
) notificationDomain.Event {
	sender := s.displayName(ctx, request.SenderID)
	message := fmt.Sprintf("You have a pending signing request from %s", sender)
	if reminder.Type == signingDomain.ReminderExpirationWarning {
		message = fmt.Sprintf("Your signing request from %s expires soon", sender)
	}

	data := requestData(request)
	data["reminder_type"] = string(reminder.Type)
	return notificationDomain.NewEvent(
		reminder.UserID,
		notificationDomain.EventSignatureRequestReminder,
		"Signing reminder",
		message,
		data,
	)
}

func (s *signingUseCase) displayName(ctx context.Context, userID uuid.UUID) string {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil || user.Name == "" {
		return "A user"
	}
	return user.Name
}

func (s *signingUseCase) notify(ctx context.Context, event notificationDomain.Event) {
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn("failed to deliver notification",
			slog.String("event_type", string(event.Type)),
			slog.String("user_id", event.UserID.String()),
			slog.Any("error", err),
		)
	}
}

func (s *signingUseCase) batchSize() int {
	if s.config.BatchSize <= 0 {
		return 100
	}
	return s.config.BatchSize
}

// signingProgress counts signed requests among the document's requests, using the
// in-transaction state of current.
func signingProgress(current *signingDomain.SigningRequest, siblings []*signingDomain.SigningRequest) (int, int) {
	signed, total := 0, 0
	seen := false
	for _, sibling := range siblings {
		status := sibling.Status
		if sibling.ID == current.ID {
			status = current.Status
			seen = true
		}
		total++
		if status == signingDomain.StatusSigned {
			signed++
		}
	}
	if !seen {
		total++
		signed++
	}
	return signed, total
}

func signedFileName(source string) string {
	name := strings.TrimSuffix(source, ".pdf")
	if name == "" {
		name = "document"
	}
	return "signed_" + name + ".pdf"
}

func requestData(request *signingDomain.SigningRequest) map[string]string {
	return map[string]string{
		"request_id":  request.ID.String(),
		"document_id": request.DocumentID.String(),
		"status":      string(request.Status),
	}
}

// NewSigningUseCase creates a new SigningUseCase.
func NewSigningUseCase(
	config Config,
	txManager database.TxManager,
	requestRepo SigningRequestRepository,
	reminderRepo ReminderRepository,
	users UserDirectory,
	credentials CredentialOpener,
	documents DocumentStore,
	unsigned UnsignedDocumentReader,
	signer PDFSigner,
	notifier Notifier,
	logger *slog.Logger,
) SigningUseCase {
	return &signingUseCase{
		config:       config,
		txManager:    txManager,
		requestRepo:  requestRepo,
		reminderRepo: reminderRepo,
		users:        users,
		credentials:  credentials,
		documents:    documents,
		unsigned:     unsigned,
		signer:       signer,
		notifier:     notifier,
		logger:       logger,
	}
}
