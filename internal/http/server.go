// Package http provides the API server, the metrics server and their middleware.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	caHTTP "github.com/allisson/esign/internal/ca/http"
	credentialHTTP "github.com/allisson/esign/internal/credential/http"
	documentHTTP "github.com/allisson/esign/internal/document/http"
	"github.com/allisson/esign/internal/metrics"
	notificationHTTP "github.com/allisson/esign/internal/notification/http"
	signingHTTP "github.com/allisson/esign/internal/signing/http"
)

// Server is the API server.
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// RouterConfig holds the cross-cutting router settings.
type RouterConfig struct {
	CORSEnabled      bool
	CORSAllowOrigins string

	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	// AdminUserIDs may operate the CA.
	AdminUserIDs []uuid.UUID

	MetricsProvider  *metrics.Provider
	MetricsNamespace string
}

// Handlers groups the route handlers of every module.
type Handlers struct {
	CA                  *caHTTP.CAHandler
	CertificateRequests *caHTTP.CertificateRequestHandler
	Credentials         *credentialHTTP.CredentialHandler
	Documents           *documentHTTP.DocumentHandler
	Signing             *signingHTTP.SigningHandler
	Notifications       *notificationHTTP.StreamHandler
}

// NewServer creates a new Server. db backs the readiness check.
func NewServer(db *sql.DB, host string, port int, logger *slog.Logger) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// SetupRouter registers the middleware and every route. ctx bounds the background cleanup
// of the rate limiter.
func (s *Server) SetupRouter(ctx context.Context, cfg RouterConfig, h Handlers) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))
	if cors := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); cors != nil {
		router.Use(cors)
	}
	if cfg.MetricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(cfg.MetricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	limit := func(c *gin.Context) { c.Next() }
	if cfg.RateLimitEnabled {
		limit = RateLimitMiddleware(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, s.logger)
	}
	admin := AdminMiddleware(cfg.AdminUserIDs, s.logger)

	v1 := router.Group("/v1")
	v1.Use(CallerMiddleware(s.logger))

	ca := v1.Group("/ca")
	{
		ca.GET("", h.CA.InfoHandler)
		ca.POST("/verify", h.CA.VerifyHandler)
		ca.POST("/bootstrap", admin, h.CA.BootstrapHandler)
		ca.GET("/identities", admin, h.CA.ListIdentitiesHandler)
		ca.POST("/identities", admin, h.CA.IssueHandler)
		ca.POST("/identities/:username/sign", admin, h.CA.SignHandler)
		ca.POST("/identities/:username/export", admin, limit, h.CA.ExportHandler)

		ca.POST("/certificate-requests", limit, h.CertificateRequests.SubmitHandler)
		ca.GET("/certificate-requests/mine", h.CertificateRequests.ListMineHandler)
		ca.GET("/certificate-requests", admin, h.CertificateRequests.ListHandler)
		ca.POST("/certificate-requests/:id/approve", admin, h.CertificateRequests.ApproveHandler)
		ca.POST("/certificate-requests/:id/reject", admin, h.CertificateRequests.RejectHandler)
	}

	credentials := v1.Group("/credentials")
	{
		credentials.POST("", limit, h.Credentials.UploadHandler)
		credentials.GET("", h.Credentials.ListHandler)
		credentials.POST("/:id/unlock", limit, h.Credentials.UnlockHandler)
		credentials.POST("/:id/download", limit, h.Credentials.DownloadHandler)
		credentials.DELETE("/:id", h.Credentials.DeleteHandler)
	}

	documents := v1.Group("/documents")
	{
		documents.GET("", h.Documents.ListHandler)
		documents.GET("/:id", h.Documents.GetHandler)
		documents.DELETE("/:id", h.Documents.DeleteHandler)
	}

	requests := v1.Group("/signing-requests")
	{
		requests.POST("", h.Signing.SendHandler)
		requests.GET("/received", h.Signing.ListReceivedHandler)
		requests.GET("/sent", h.Signing.ListSentHandler)
		requests.GET("/:id", h.Signing.GetHandler)
		requests.GET("/:id/source", h.Signing.SourceHandler)
		requests.GET("/:id/document", h.Signing.DownloadHandler)
		requests.POST("/:id/sign", limit, h.Signing.SignHandler)
		requests.POST("/:id/reject", h.Signing.RejectHandler)
		requests.DELETE("/:id", h.Signing.DeleteHandler)
	}

	v1.GET("/notifications/stream", h.Notifications.StreamHandler)

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured")
	}
	s.server.Handler = s.router
	// Long-lived notification streams end when ctx does instead of holding up Shutdown.
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the database answers.
func (s *Server) readinessHandler(c *gin.Context) {
	database := "ok"
	if s.db == nil {
		database = "error"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn("readiness check failed", slog.Any("error", err))
			database = "error"
		}
	}

	if database != "ok" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": database},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": database},
	})
}
