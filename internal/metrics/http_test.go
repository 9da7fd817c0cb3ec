package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	provider, _ := newTestBusinessMetrics(t, "api")

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "api"))
	router.GET("/v1/signing-requests/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.POST("/v1/signing-requests/:id/sign", func(c *gin.Context) {
		c.Status(http.StatusConflict)
	})

	for _, path := range []string{"/v1/signing-requests/a", "/v1/signing-requests/b"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/signing-requests/a/sign", nil))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	output := scrape(t, provider)
	assertSample(t, output, `api_http_requests_total`,
		`method="GET".*path="/v1/signing-requests/:id".*status_code="200"`, `2`)
	assertSample(t, output, `api_http_requests_total`,
		`method="POST".*path="/v1/signing-requests/:id/sign".*status_code="409"`, `1`)
	assertSample(t, output, `api_http_requests_total`,
		`method="GET".*path="unmatched".*status_code="404"`, `1`)
	assertSample(t, output, `api_http_request_duration_seconds_count`,
		`method="GET".*path="/v1/signing-requests/:id".*status_code="200"`, `2`)
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/v1/credentials/:id", routeLabel("/v1/credentials/:id"))
	assert.Equal(t, "unmatched", routeLabel(""))
}
