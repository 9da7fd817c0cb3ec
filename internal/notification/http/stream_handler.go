// Package http streams notifications to connected clients as server-sent events.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/esign/internal/httputil"
	"github.com/allisson/esign/internal/notification/domain"
)

const defaultKeepAlive = 25 * time.Second

// Subscriber registers listeners for a user's notifications.
type Subscriber interface {
	Subscribe(userID uuid.UUID) (<-chan domain.Event, func())
}

// StreamHandler serves the notification stream.
type StreamHandler struct {
	hub       Subscriber
	keepAlive time.Duration
	logger    *slog.Logger
}

// NewStreamHandler creates a new StreamHandler. A ping event is sent every keepAlive.
func NewStreamHandler(hub Subscriber, keepAlive time.Duration, logger *slog.Logger) *StreamHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &StreamHandler{
		hub:       hub,
		keepAlive: keepAlive,
		logger:    logger,
	}
}

// StreamHandler sends the caller's notifications until the client disconnects.
// GET /v1/notifications/stream - Requires caller identity.
// Each event is named after its type and carries the notification as JSON.
func (h *StreamHandler) StreamHandler(c *gin.Context) {
	userID, ok := httputil.RequireCaller(c, h.logger)
	if !ok {
		return
	}

	events, unsubscribe := h.hub.Subscribe(userID)
	defer unsubscribe()

	// The server write timeout would otherwise cut long-lived streams.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			c.SSEvent(string(event.Type), event)
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"time": time.Now().UTC()})
		}
		c.Writer.Flush()
	}
}
