package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	documentDomain "github.com/allisson/esign/internal/document/domain"
	"github.com/allisson/esign/internal/httputil"
	signingDomain "github.com/allisson/esign/internal/signing/domain"
	"github.com/allisson/esign/internal/signing/http/dto"
	signingUseCase "github.com/allisson/esign/internal/signing/usecase"
	signingMocks "github.com/allisson/esign/internal/signing/usecase/mocks"
)

func setupTestHandler(t *testing.T) (*SigningHandler, *signingMocks.MockSigningUseCase) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	useCase := &signingMocks.MockSigningUseCase{}
	t.Cleanup(func() { useCase.AssertExpectations(t) })

	return NewSigningHandler(useCase, slog.New(slog.NewTextHandler(io.Discard, nil))), useCase
}

func newContext(
	method, path string,
	body io.Reader,
	contentType string,
	caller uuid.UUID,
) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, body)
	if contentType != "" {
		c.Request.Header.Set("Content-Type", contentType)
	}
	if caller != uuid.Nil {
		c.Request = c.Request.WithContext(httputil.WithCaller(c.Request.Context(), caller))
	}
	return c, w
}

func jsonBody(v any) io.Reader {
	raw, _ := json.Marshal(v)
	return bytes.NewReader(raw)
}

func newRequest(sender, recipient uuid.UUID) *signingDomain.SigningRequest {
	now := time.Now().UTC()
	return &signingDomain.SigningRequest{
		ID:           uuid.Must(uuid.NewV7()),
		DocumentID:   uuid.Must(uuid.NewV7()),
		DocumentType: signingDomain.DocumentTypeUnsigned,
		SenderID:     sender,
		RecipientID:  recipient,
		Status:       signingDomain.StatusPending,
		ExpiresAt:    now.Add(24 * time.Hour),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestSigningHandler_SendHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		sender, recipient := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())
		request := newRequest(sender, recipient)

		useCase.On("Send", mock.Anything, mock.MatchedBy(func(in signingUseCase.SendInput) bool {
			return in.SenderID == sender && in.RecipientID == recipient &&
				in.DocumentID == request.DocumentID && in.DocumentType == signingDomain.DocumentTypeUnsigned &&
				in.ExpiresAt.IsZero()
		})).Return(request, nil).Once()

		c, w := newContext(http.MethodPost, "/v1/signing-requests", jsonBody(map[string]string{
			"recipient_id":  recipient.String(),
			"document_id":   request.DocumentID.String(),
			"document_type": "unsigned",
			"message":       "please sign",
		}), "application/json", sender)
		handler.SendHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response dto.SigningRequestResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, request.ID.String(), response.ID)
		assert.Equal(t, "pending", response.Status)
	})

	t.Run("Success_RecipientEmail", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		sender := uuid.Must(uuid.NewV7())
		request := newRequest(sender, uuid.Must(uuid.NewV7()))

		useCase.On("Send", mock.Anything, mock.MatchedBy(func(in signingUseCase.SendInput) bool {
			return in.RecipientEmail == "bruno@example.com" && in.RecipientID == uuid.Nil
		})).Return(request, nil).Once()

		c, w := newContext(http.MethodPost, "/v1/signing-requests", jsonBody(map[string]string{
			"recipient_email": "bruno@example.com",
			"document_id":     request.DocumentID.String(),
			"document_type":   "signed",
		}), "application/json", sender)
		handler.SendHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	for _, tc := range []struct {
		name string
		body map[string]string
	}{
		{"MissingRecipient", map[string]string{"document_id": uuid.NewString(), "document_type": "unsigned"}},
		{"BothRecipients", map[string]string{
			"recipient_id": uuid.NewString(), "recipient_email": "a@example.com",
			"document_id": uuid.NewString(), "document_type": "unsigned",
		}},
		{"BadDocumentType", map[string]string{
			"recipient_id": uuid.NewString(), "document_id": uuid.NewString(), "document_type": "draft",
		}},
		{"BadDocumentID", map[string]string{
			"recipient_id": uuid.NewString(), "document_id": "42", "document_type": "unsigned",
		}},
	} {
		t.Run("Error_"+tc.name, func(t *testing.T) {
			handler, _ := setupTestHandler(t)
			c, w := newContext(http.MethodPost, "/v1/signing-requests", jsonBody(tc.body), "application/json",
				uuid.Must(uuid.NewV7()))
			handler.SendHandler(c)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		})
	}

	t.Run("Error_RecipientNotFound", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		useCase.On("Send", mock.Anything, mock.Anything).Return(nil, signingDomain.ErrRecipientNotFound).Once()

		c, w := newContext(http.MethodPost, "/v1/signing-requests", jsonBody(map[string]string{
			"recipient_email": "nobody@example.com",
			"document_id":     uuid.NewString(),
			"document_type":   "unsigned",
		}), "application/json", uuid.Must(uuid.NewV7()))
		handler.SendHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Error_NoCaller", func(t *testing.T) {
		handler, _ := setupTestHandler(t)
		c, w := newContext(http.MethodPost, "/v1/signing-requests", jsonBody(map[string]string{}), "application/json",
			uuid.Nil)
		handler.SendHandler(c)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestSigningHandler_ListHandlers(t *testing.T) {
	handler, useCase := setupTestHandler(t)
	caller := uuid.Must(uuid.NewV7())
	request := newRequest(uuid.Must(uuid.NewV7()), caller)

	useCase.On("ListReceived", mock.Anything, caller, 0, 10).
		Return([]*signingDomain.SigningRequest{request}, nil).Once()
	useCase.On("ListSent", mock.Anything, caller, 0, 50).
		Return([]*signingDomain.SigningRequest{}, nil).Once()

	c, w := newContext(http.MethodGet, "/v1/signing-requests/received?offset=0&limit=10", nil, "", caller)
	handler.ListReceivedHandler(c)
	assert.Equal(t, http.StatusOK, w.Code)
	var received dto.ListSigningRequestsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &received))
	require.Len(t, received.Data, 1)
	assert.Equal(t, request.ID.String(), received.Data[0].ID)

	c, w = newContext(http.MethodGet, "/v1/signing-requests/sent", nil, "", caller)
	handler.ListSentHandler(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}

func TestSigningHandler_GetHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		caller := uuid.Must(uuid.NewV7())
		request := newRequest(caller, uuid.Must(uuid.NewV7()))
		useCase.On("Get", mock.Anything, request.ID, caller).Return(request, nil).Once()

		c, w := newContext(http.MethodGet, "/v1/signing-requests/"+request.ID.String(), nil, "", caller)
		c.Params = gin.Params{{Key: "id", Value: request.ID.String()}}
		handler.GetHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Error_InvalidID", func(t *testing.T) {
		handler, _ := setupTestHandler(t)
		c, w := newContext(http.MethodGet, "/v1/signing-requests/nope", nil, "", uuid.Must(uuid.NewV7()))
		c.Params = gin.Params{{Key: "id", Value: "nope"}}
		handler.GetHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		useCase.On("Get", mock.Anything, id, mock.Anything).Return(nil, signingDomain.ErrRequestNotFound).Once()

		c, w := newContext(http.MethodGet, "/v1/signing-requests/"+id.String(), nil, "", uuid.Must(uuid.NewV7()))
		c.Params = gin.Params{{Key: "id", Value: id.String()}}
		handler.GetHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSigningHandler_SignHandler(t *testing.T) {
	signForm := func(t *testing.T, fields map[string]string, pdf []byte) (*bytes.Buffer, string) {
		t.Helper()
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		for k, v := range fields {
			require.NoError(t, writer.WriteField(k, v))
		}
		if pdf != nil {
			part, err := writer.CreateFormFile("pdf", "stamped.pdf")
			require.NoError(t, err)
			_, err = part.Write(pdf)
			require.NoError(t, err)
		}
		require.NoError(t, writer.Close())
		return &body, writer.FormDataContentType()
	}

	t.Run("Success", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		caller, credentialID := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())
		request := newRequest(uuid.Must(uuid.NewV7()), caller)
		request.Status = signingDomain.StatusSigned
		result := &signingUseCase.SignResult{
			Request:          request,
			SignedDocumentID: uuid.Must(uuid.NewV7()),
			AllSigned:        true,
			SignedCount:      1,
			TotalSigners:     1,
		}

		useCase.On("Sign", mock.Anything, mock.MatchedBy(func(in signingUseCase.SignInput) bool {
			return in.RequestID == request.ID && in.SignerID == caller && in.CredentialID == credentialID &&
				in.Password == "secret" && in.PDF == nil
		})).Return(result, nil).Once()

		body, contentType := signForm(t, map[string]string{
			"credential_id": credentialID.String(),
			"password":      "secret",
		}, nil)
		c, w := newContext(http.MethodPost, "/v1/signing-requests/"+request.ID.String()+"/sign", body, contentType, caller)
		c.Params = gin.Params{{Key: "id", Value: request.ID.String()}}
		handler.SignHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.SignResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response.AllSigned)
		assert.Equal(t, result.SignedDocumentID.String(), response.SignedDocumentID)
	})

	t.Run("Success_ReplacementPDF", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		caller, id := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())
		request := newRequest(uuid.Must(uuid.NewV7()), caller)

		useCase.On("Sign", mock.Anything, mock.MatchedBy(func(in signingUseCase.SignInput) bool {
			return bytes.Equal(in.PDF, []byte("%PDF-1.4 stamped"))
		})).Return(&signingUseCase.SignResult{Request: request}, nil).Once()

		body, contentType := signForm(t, map[string]string{
			"credential_id": uuid.NewString(),
			"password":      "secret",
		}, []byte("%PDF-1.4 stamped"))
		c, w := newContext(http.MethodPost, "/v1/signing-requests/"+id.String()+"/sign", body, contentType, caller)
		c.Params = gin.Params{{Key: "id", Value: id.String()}}
		handler.SignHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Error_MissingCredential", func(t *testing.T) {
		handler, _ := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		body, contentType := signForm(t, map[string]string{"password": "secret"}, nil)
		c, w := newContext(http.MethodPost, "/v1/signing-requests/"+id.String()+"/sign", body, contentType,
			uuid.Must(uuid.NewV7()))
		c.Params = gin.Params{{Key: "id", Value: id.String()}}
		handler.SignHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	for _, tc := range []struct {
		name string
		err  error
		code int
	}{
		{"WrongPassword", cryptoDomain.ErrAuthenticationFailed, http.StatusUnauthorized},
		{"Expired", signingDomain.ErrRequestExpired, http.StatusConflict},
		{"SignerUnavailable", signingDomain.ErrSigningFailed, http.StatusServiceUnavailable},
	} {
		t.Run("Error_"+tc.name, func(t *testing.T) {
			handler, useCase := setupTestHandler(t)
			id := uuid.Must(uuid.NewV7())
			useCase.On("Sign", mock.Anything, mock.Anything).Return(nil, tc.err).Once()

			body, contentType := signForm(t, map[string]string{
				"credential_id": uuid.NewString(),
				"password":      "secret",
			}, nil)
			c, w := newContext(http.MethodPost, "/v1/signing-requests/"+id.String()+"/sign", body, contentType,
				uuid.Must(uuid.NewV7()))
			c.Params = gin.Params{{Key: "id", Value: id.String()}}
			handler.SignHandler(c)

			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestSigningHandler_RejectHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		caller := uuid.Must(uuid.NewV7())
		request := newRequest(uuid.Must(uuid.NewV7()), caller)
		request.Status = signingDomain.StatusRejected
		request.RejectionReason = "wrong amount"

		useCase.On("Reject", mock.Anything, signingUseCase.RejectInput{
			RequestID: request.ID, SignerID: caller, Reason: "wrong amount",
		}).Return(request, nil).Once()

		c, w := newContext(http.MethodPost, "/v1/signing-requests/"+request.ID.String()+"/reject",
			jsonBody(map[string]string{"reason": "wrong amount"}), "application/json", caller)
		c.Params = gin.Params{{Key: "id", Value: request.ID.String()}}
		handler.RejectHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"rejection_reason":"wrong amount"`)
	})

	t.Run("Success_EmptyBody", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		caller := uuid.Must(uuid.NewV7())
		request := newRequest(uuid.Must(uuid.NewV7()), caller)

		useCase.On("Reject", mock.Anything, signingUseCase.RejectInput{RequestID: request.ID, SignerID: caller}).
			Return(request, nil).Once()

		c, w := newContext(http.MethodPost, "/v1/signing-requests/"+request.ID.String()+"/reject", nil, "", caller)
		c.Params = gin.Params{{Key: "id", Value: request.ID.String()}}
		handler.RejectHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Error_AlreadySigned", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		useCase.On("Reject", mock.Anything, mock.Anything).Return(nil, signingDomain.ErrInvalidState).Once()

		c, w := newContext(http.MethodPost, "/v1/signing-requests/"+id.String()+"/reject", nil, "",
			uuid.Must(uuid.NewV7()))
		c.Params = gin.Params{{Key: "id", Value: id.String()}}
		handler.RejectHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestSigningHandler_DeleteHandler(t *testing.T) {
	handler, useCase := setupTestHandler(t)
	caller, id := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())
	useCase.On("Delete", mock.Anything, id, caller).Return(nil).Once()

	c, w := newContext(http.MethodDelete, "/v1/signing-requests/"+id.String(), nil, "", caller)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	handler.DeleteHandler(c)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSigningHandler_PDFHandlers(t *testing.T) {
	content := &documentDomain.Content{FileName: "signed_contract.pdf", Data: []byte("%PDF-1.4 signed")}

	t.Run("Success_Download", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		caller, id := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())
		useCase.On("DownloadSigned", mock.Anything, id, caller).Return(content, nil).Once()

		c, w := newContext(http.MethodGet, "/v1/signing-requests/"+id.String()+"/document", nil, "", caller)
		c.Params = gin.Params{{Key: "id", Value: id.String()}}
		handler.DownloadHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "signed_contract.pdf")
		assert.Equal(t, content.Data, w.Body.Bytes())
	})

	t.Run("Error_DownloadNotSigned", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		id := uuid.Must(uuid.NewV7())
		useCase.On("DownloadSigned", mock.Anything, id, mock.Anything).
			Return(nil, signingDomain.ErrSignedDocumentNotReady).Once()

		c, w := newContext(http.MethodGet, "/v1/signing-requests/"+id.String()+"/document", nil, "",
			uuid.Must(uuid.NewV7()))
		c.Params = gin.Params{{Key: "id", Value: id.String()}}
		handler.DownloadHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Success_Source", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		caller, id := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())
		useCase.On("SourceDocument", mock.Anything, id, caller).Return(content, nil).Once()

		c, w := newContext(http.MethodGet, "/v1/signing-requests/"+id.String()+"/source", nil, "", caller)
		c.Params = gin.Params{{Key: "id", Value: id.String()}}
		handler.SourceHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, content.Data, w.Body.Bytes())
	})
}
