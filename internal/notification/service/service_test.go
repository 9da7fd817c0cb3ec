package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/gomail.v2"

	apperrors "github.com/allisson/esign/internal/errors"
	"github.com/allisson/esign/internal/notification/domain"
	outboxDomain "github.com/allisson/esign/internal/outbox/domain"
	userDomain "github.com/allisson/esign/internal/user/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestEvent(userID uuid.UUID) domain.Event {
	return domain.NewEvent(
		userID,
		domain.EventSignatureRequestReceived,
		"New signature request",
		"Ana sent you contract.pdf to sign.",
		map[string]string{"request_id": uuid.Must(uuid.NewV7()).String()},
	)
}

func TestCloudEvent(t *testing.T) {
	t.Run("Success_RoundTrip", func(t *testing.T) {
		event := newTestEvent(uuid.Must(uuid.NewV7()))

		payload, err := EncodeCloudEvent(event)
		require.NoError(t, err)
		assert.Contains(t, string(payload), `"specversion":"1.0"`)
		assert.Contains(t, string(payload), `"source":"esign/notifications"`)
		assert.Contains(t, string(payload), `"type":"signature_request.received"`)

		decoded, err := DecodeCloudEvent(payload)
		require.NoError(t, err)
		assert.Equal(t, event.ID, decoded.ID)
		assert.Equal(t, event.UserID, decoded.UserID)
		assert.Equal(t, event.Message, decoded.Message)
		assert.Equal(t, event.Data, decoded.Data)
		assert.True(t, event.OccurredAt.Equal(decoded.OccurredAt))
	})

	t.Run("Error_NotJSON", func(t *testing.T) {
		_, err := DecodeCloudEvent([]byte("not json"))
		assert.ErrorIs(t, err, ErrInvalidCloudEvent)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Error_MissingAttributes", func(t *testing.T) {
		_, err := DecodeCloudEvent([]byte(`{"specversion":"1.0","data":{}}`))
		assert.ErrorIs(t, err, ErrInvalidCloudEvent)
	})

	t.Run("Error_SubjectMismatch", func(t *testing.T) {
		event := newTestEvent(uuid.Must(uuid.NewV7()))
		payload, err := EncodeCloudEvent(event)
		require.NoError(t, err)

		other := uuid.Must(uuid.NewV7()).String()
		tampered := strings.Replace(string(payload), event.UserID.String(), other, 1)
		require.NotEqual(t, string(payload), tampered)

		_, err = DecodeCloudEvent([]byte(tampered))
		assert.ErrorIs(t, err, ErrInvalidCloudEvent)
	})
}

func TestHub(t *testing.T) {
	t.Run("Success_PublishToRecipientOnly", func(t *testing.T) {
		hub := NewHub(4)
		ana, bob := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())

		anaEvents, anaCancel := hub.Subscribe(ana)
		defer anaCancel()
		bobEvents, bobCancel := hub.Subscribe(bob)
		defer bobCancel()

		event := newTestEvent(ana)
		assert.Equal(t, 1, hub.Publish(event))

		assert.Equal(t, event, <-anaEvents)
		assert.Empty(t, bobEvents)
	})

	t.Run("Success_MultipleSubscriptions", func(t *testing.T) {
		hub := NewHub(4)
		userID := uuid.Must(uuid.NewV7())

		first, cancelFirst := hub.Subscribe(userID)
		defer cancelFirst()
		second, cancelSecond := hub.Subscribe(userID)
		defer cancelSecond()

		require.NoError(t, hub.Notify(context.Background(), newTestEvent(userID)))
		assert.Len(t, first, 1)
		assert.Len(t, second, 1)
	})

	t.Run("Success_FullSubscriberDropsEvent", func(t *testing.T) {
		hub := NewHub(1)
		userID := uuid.Must(uuid.NewV7())
		events, cancel := hub.Subscribe(userID)
		defer cancel()

		assert.Equal(t, 1, hub.Publish(newTestEvent(userID)))
		assert.Equal(t, 0, hub.Publish(newTestEvent(userID)))
		assert.Len(t, events, 1)
	})

	t.Run("Success_UnsubscribeClosesChannel", func(t *testing.T) {
		hub := NewHub(0)
		userID := uuid.Must(uuid.NewV7())
		events, cancel := hub.Subscribe(userID)
		assert.Equal(t, 1, hub.Subscribers(userID))

		cancel()
		cancel()

		_, open := <-events
		assert.False(t, open)
		assert.Equal(t, 0, hub.Subscribers(userID))
		assert.Equal(t, 0, hub.Publish(newTestEvent(userID)))
	})

	t.Run("Success_ConcurrentPublishAndUnsubscribe", func(t *testing.T) {
		hub := NewHub(8)
		userID := uuid.Must(uuid.NewV7())

		var wg sync.WaitGroup
		for range 10 {
			events, cancel := hub.Subscribe(userID)
			wg.Add(2)
			go func() {
				defer wg.Done()
				for range events {
				}
			}()
			go func() {
				defer wg.Done()
				for range 20 {
					hub.Publish(newTestEvent(userID))
				}
				cancel()
			}()
		}
		wg.Wait()
		assert.Equal(t, 0, hub.Subscribers(userID))
	})
}

type mockOutboxWriter struct {
	mock.Mock
}

func (m *mockOutboxWriter) Create(ctx context.Context, event *outboxDomain.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func TestOutboxNotifier_Notify(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		writer := &mockOutboxWriter{}
		event := newTestEvent(uuid.Must(uuid.NewV7()))

		writer.On("Create", ctx, mock.MatchedBy(func(e *outboxDomain.OutboxEvent) bool {
			decoded, err := DecodeCloudEvent([]byte(e.Payload))
			return err == nil &&
				e.EventType == "signature_request.received" &&
				e.Status == outboxDomain.OutboxEventStatusPending &&
				decoded.ID == event.ID
		})).Return(nil).Once()

		require.NoError(t, NewOutboxNotifier(writer).Notify(ctx, event))
		writer.AssertExpectations(t)
	})

	t.Run("Error_Create", func(t *testing.T) {
		writer := &mockOutboxWriter{}
		writer.On("Create", ctx, mock.Anything).Return(errors.New("db down")).Once()

		err := NewOutboxNotifier(writer).Notify(ctx, newTestEvent(uuid.Must(uuid.NewV7())))
		assert.EqualError(t, err, "db down")
	})
}

type sentMail struct {
	from string
	to   []string
}

func newCapturingMailer(sent *[]sentMail, err error) *SMTPMailer {
	mailer := NewSMTPMailer(SMTPConfig{
		Host:    "localhost",
		Port:    2525,
		From:    "no-reply@esign.test",
		BaseURL: "https://app.esign.test/",
	})
	mailer.sender = gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		if err != nil {
			return err
		}
		_, _ = msg.WriteTo(io.Discard)
		*sent = append(*sent, sentMail{from: from, to: to})
		return nil
	})
	return mailer
}

func TestSMTPMailer(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Send", func(t *testing.T) {
		var sent []sentMail
		mailer := newCapturingMailer(&sent, nil)

		require.NoError(t, mailer.Send(ctx, "bob@example.com", "Bob", newTestEvent(uuid.Must(uuid.NewV7()))))
		require.Len(t, sent, 1)
		assert.Equal(t, "no-reply@esign.test", sent[0].from)
		assert.Equal(t, []string{"bob@example.com"}, sent[0].to)
	})

	t.Run("Success_RenderEscapesAndLinks", func(t *testing.T) {
		mailer := newCapturingMailer(&[]sentMail{}, nil)
		event := newTestEvent(uuid.Must(uuid.NewV7()))
		event.Message = "<script>alert(1)</script>"

		body, err := mailer.render("Bob", event)
		require.NoError(t, err)
		assert.Contains(t, body, "Hello Bob,")
		assert.Contains(t, body, "&lt;script&gt;")
		assert.Contains(t, body, "https://app.esign.test/signing-requests/"+event.Data["request_id"])
	})

	t.Run("Success_RenderWithoutRequest", func(t *testing.T) {
		mailer := newCapturingMailer(&[]sentMail{}, nil)
		event := domain.NewEvent(uuid.Must(uuid.NewV7()), domain.EventCertificateIssued, "Certificate issued", "Ready.", nil)

		body, err := mailer.render("Bob", event)
		require.NoError(t, err)
		assert.NotContains(t, body, "href")
	})

	t.Run("Error_SendFails", func(t *testing.T) {
		mailer := newCapturingMailer(&[]sentMail{}, errors.New("connection refused"))

		err := mailer.Send(ctx, "bob@example.com", "Bob", newTestEvent(uuid.Must(uuid.NewV7())))
		assert.ErrorContains(t, err, "failed to send notification email")
	})

	t.Run("Error_ContextCanceled", func(t *testing.T) {
		var sent []sentMail
		mailer := newCapturingMailer(&sent, nil)
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		err := mailer.Send(canceled, "bob@example.com", "Bob", newTestEvent(uuid.Must(uuid.NewV7())))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, sent)
	})
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, to, name string, event domain.Event) error {
	args := m.Called(ctx, to, name, event)
	return args.Error(0)
}

type mockUserDirectory struct {
	mock.Mock
}

func (m *mockUserDirectory) GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

func newOutboxEvent(t *testing.T, event domain.Event) *outboxDomain.OutboxEvent {
	t.Helper()
	payload, err := EncodeCloudEvent(event)
	require.NoError(t, err)
	return outboxDomain.NewOutboxEvent(string(event.Type), payload)
}

func TestDispatcher_Process(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	user := &userDomain.User{
		ID:        uuid.Must(uuid.NewV7()),
		Name:      "Bob",
		Email:     "bob@example.com",
		CreatedAt: time.Now().UTC(),
	}

	t.Run("Success_PublishAndMail", func(t *testing.T) {
		hub := NewHub(1)
		events, cancel := hub.Subscribe(user.ID)
		defer cancel()
		mailer := &mockMailer{}
		users := &mockUserDirectory{}
		event := newTestEvent(user.ID)

		users.On("GetByID", ctx, user.ID).Return(user, nil).Once()
		mailer.On("Send", ctx, "bob@example.com", "Bob", mock.MatchedBy(func(e domain.Event) bool {
			return e.ID == event.ID
		})).Return(nil).Once()

		require.NoError(t, NewDispatcher(hub, mailer, users, logger).Process(ctx, newOutboxEvent(t, event)))
		assert.Equal(t, event.ID, (<-events).ID)
		mailer.AssertExpectations(t)
		users.AssertExpectations(t)
	})

	t.Run("Success_MailDisabled", func(t *testing.T) {
		hub := NewHub(1)
		events, cancel := hub.Subscribe(user.ID)
		defer cancel()
		users := &mockUserDirectory{}

		require.NoError(t, NewDispatcher(hub, nil, users, logger).Process(ctx, newOutboxEvent(t, newTestEvent(user.ID))))
		assert.Len(t, events, 1)
		users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("Success_RetrySkipsHub", func(t *testing.T) {
		hub := NewHub(1)
		events, cancel := hub.Subscribe(user.ID)
		defer cancel()
		mailer := &mockMailer{}
		users := &mockUserDirectory{}
		outboxEvent := newOutboxEvent(t, newTestEvent(user.ID))
		outboxEvent.Retries = 1

		users.On("GetByID", ctx, user.ID).Return(user, nil).Once()
		mailer.On("Send", ctx, user.Email, user.Name, mock.Anything).Return(nil).Once()

		require.NoError(t, NewDispatcher(hub, mailer, users, logger).Process(ctx, outboxEvent))
		assert.Empty(t, events)
	})

	t.Run("Success_UnknownRecipient", func(t *testing.T) {
		mailer := &mockMailer{}
		users := &mockUserDirectory{}
		users.On("GetByID", ctx, user.ID).Return(nil, userDomain.ErrUserNotFound).Once()

		err := NewDispatcher(NewHub(1), mailer, users, logger).Process(ctx, newOutboxEvent(t, newTestEvent(user.ID)))
		assert.NoError(t, err)
		mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_MailFails", func(t *testing.T) {
		mailer := &mockMailer{}
		users := &mockUserDirectory{}
		users.On("GetByID", ctx, user.ID).Return(user, nil).Once()
		mailer.On("Send", ctx, user.Email, user.Name, mock.Anything).Return(errors.New("smtp down")).Once()

		err := NewDispatcher(NewHub(1), mailer, users, logger).Process(ctx, newOutboxEvent(t, newTestEvent(user.ID)))
		assert.EqualError(t, err, "smtp down")
	})

	t.Run("Error_UserLookup", func(t *testing.T) {
		users := &mockUserDirectory{}
		users.On("GetByID", ctx, user.ID).Return(nil, errors.New("db down")).Once()

		err := NewDispatcher(NewHub(1), &mockMailer{}, users, logger).
			Process(ctx, newOutboxEvent(t, newTestEvent(user.ID)))
		assert.EqualError(t, err, "db down")
	})

	t.Run("Error_InvalidPayload", func(t *testing.T) {
		outboxEvent := outboxDomain.NewOutboxEvent("signature_request.received", []byte("{}"))

		err := NewDispatcher(NewHub(1), nil, &mockUserDirectory{}, logger).Process(ctx, outboxEvent)
		assert.ErrorIs(t, err, ErrInvalidCloudEvent)
	})
}
