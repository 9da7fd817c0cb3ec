package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/esign/internal/errors"
	"github.com/allisson/esign/internal/httputil"
)

// CallerHeader carries the authenticated user's ID, set by the fronting authentication proxy.
const CallerHeader = "X-User-ID"

// CustomLoggerMiddleware logs every request with its request ID.
func CustomLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		attrs := []any{
			slog.String("request_id", requestid.Get(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		if callerID, ok := httputil.CallerID(c.Request.Context()); ok {
			attrs = append(attrs, slog.String("user_id", callerID.String()))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("http request", attrs...)
		default:
			logger.Info("http request", attrs...)
		}
	}
}

// CallerMiddleware stores the caller identity from CallerHeader in the request context.
// Requests without the header continue anonymously; a malformed header is rejected.
func CallerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(CallerHeader)
		if raw == "" {
			c.Next()
			return
		}

		userID, err := uuid.Parse(raw)
		if err != nil || userID == uuid.Nil {
			logger.Debug("rejected malformed caller header", slog.String("value", raw))
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(httputil.WithCaller(c.Request.Context(), userID))
		c.Next()
	}
}

// AdminMiddleware only lets the listed users through.
func AdminMiddleware(adminIDs []uuid.UUID, logger *slog.Logger) gin.HandlerFunc {
	admins := make(map[uuid.UUID]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}

	return func(c *gin.Context) {
		userID, ok := httputil.RequireCaller(c, logger)
		if !ok {
			c.Abort()
			return
		}
		if _, ok := admins[userID]; !ok {
			logger.Warn("admin route denied", slog.String("user_id", userID.String()), slog.String("path", c.FullPath()))
			httputil.HandleErrorGin(c, apperrors.ErrForbidden, logger)
			c.Abort()
			return
		}
		c.Next()
	}
}
