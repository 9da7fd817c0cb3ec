package httputil

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCallerID(t *testing.T) {
	t.Run("Success_RoundTrip", func(t *testing.T) {
		userID := uuid.Must(uuid.NewV7())

		got, ok := CallerID(WithCaller(context.Background(), userID))
		assert.True(t, ok)
		assert.Equal(t, userID, got)
	})

	t.Run("Error_Missing", func(t *testing.T) {
		_, ok := CallerID(context.Background())
		assert.False(t, ok)
	})

	t.Run("Error_NilUUID", func(t *testing.T) {
		_, ok := CallerID(WithCaller(context.Background(), uuid.Nil))
		assert.False(t, ok)
	})
}

func TestRequireCaller(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		c, _ := newTestContext()
		userID := uuid.Must(uuid.NewV7())
		c.Request = c.Request.WithContext(WithCaller(c.Request.Context(), userID))

		got, ok := RequireCaller(c, nil)
		assert.True(t, ok)
		assert.Equal(t, userID, got)
	})

	t.Run("Error_Anonymous", func(t *testing.T) {
		c, w := newTestContext()

		_, ok := RequireCaller(c, nil)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestUUIDParam(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		c, _ := newTestContext()
		id := uuid.Must(uuid.NewV7())
		c.Params = gin.Params{{Key: "id", Value: id.String()}}

		got, ok := UUIDParam(c, "id", nil)
		assert.True(t, ok)
		assert.Equal(t, id, got)
	})

	t.Run("Error_Invalid", func(t *testing.T) {
		c, w := newTestContext()
		c.Params = gin.Params{{Key: "id", Value: "42"}}

		_, ok := UUIDParam(c, "id", nil)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
