package httputil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/esign/internal/errors"
)

// callerKey is a context key type for storing the calling user's ID.
type callerKey struct{}

// WithCaller stores the calling user's ID in the context.
// This is called by the caller identity middleware after parsing the trusted header.
func WithCaller(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, callerKey{}, userID)
}

// CallerID retrieves the calling user's ID from the context.
// Returns (uuid.Nil, false) when no caller was set.
func CallerID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(callerKey{}).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

// RequireCaller returns the caller's ID or writes 401 and returns false.
func RequireCaller(c *gin.Context, logger *slog.Logger) (uuid.UUID, bool) {
	userID, ok := CallerID(c.Request.Context())
	if !ok {
		HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
		return uuid.Nil, false
	}
	return userID, true
}

// UUIDParam parses a UUID path parameter or writes 422 and returns false.
func UUIDParam(c *gin.Context, name string, logger *slog.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		HandleValidationErrorGin(c, fmt.Errorf("invalid %s parameter: must be a UUID", name), logger)
		return uuid.Nil, false
	}
	return id, true
}
