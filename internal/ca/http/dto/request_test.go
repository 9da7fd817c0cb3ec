package dto

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIssueCredentialRequest_Validate(t *testing.T) {
	t.Run("Success_Minimal", func(t *testing.T) {
		req := IssueCredentialRequest{Username: "ana"}
		assert.NoError(t, req.Validate())
		assert.Equal(t, uuid.Nil, req.RequesterID())
	})

	t.Run("Success_WithUserID", func(t *testing.T) {
		userID := uuid.Must(uuid.NewV7())
		req := IssueCredentialRequest{Username: "ana", Country: "EC", UserID: userID.String()}
		assert.NoError(t, req.Validate())
		assert.Equal(t, userID, req.RequesterID())
	})

	t.Run("Error_InjectedSubject", func(t *testing.T) {
		req := IssueCredentialRequest{Username: "ana", State: "X/CN=evil"}
		assert.Error(t, req.Validate())
	})

	t.Run("Error_BadCountry", func(t *testing.T) {
		req := IssueCredentialRequest{Username: "ana", Country: "ECU"}
		assert.Error(t, req.Validate())
	})

	t.Run("Error_BadUserID", func(t *testing.T) {
		req := IssueCredentialRequest{Username: "ana", UserID: "42"}
		assert.Error(t, req.Validate())
	})

	t.Run("Error_MissingUsername", func(t *testing.T) {
		req := IssueCredentialRequest{}
		assert.Error(t, req.Validate())
	})
}

func TestExportCredentialRequest_Validate(t *testing.T) {
	assert.NoError(t, (&ExportCredentialRequest{Password: "Export123"}).Validate())
	assert.Error(t, (&ExportCredentialRequest{Password: "short"}).Validate())
	assert.Error(t, (&ExportCredentialRequest{Password: "alllowercase1"}).Validate())
	assert.Error(t, (&ExportCredentialRequest{}).Validate())
}
