// Package dto provides data transfer objects for document HTTP responses.
package dto

import (
	"time"

	documentDomain "github.com/allisson/esign/internal/document/domain"
)

// DocumentResponse is the public view of a signed document.
type DocumentResponse struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}

// ListDocumentsResponse wraps document listings.
type ListDocumentsResponse struct {
	Data []DocumentResponse `json:"data"`
}

// MapDocumentsToListResponse converts documents to a list response.
func MapDocumentsToListResponse(docs []*documentDomain.Document) ListDocumentsResponse {
	data := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		data = append(data, DocumentResponse{
			ID:        doc.ID.String(),
			FileName:  doc.FileName,
			CreatedAt: doc.CreatedAt,
		})
	}
	return ListDocumentsResponse{Data: data}
}
