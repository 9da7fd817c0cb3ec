package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"Empty", "", nil},
		{"Blanks", " , ,", nil},
		{"Single", "https://esign.example.org", []string{"https://esign.example.org"}},
		{
			"TrimsWhitespace",
			" https://esign.example.org , https://admin.example.org ",
			[]string{"https://esign.example.org", "https://admin.example.org"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseOrigins(tt.input))
		})
	}
}

func TestCreateCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const origin = "https://esign.example.org"

	newRouter := func(middleware gin.HandlerFunc) *gin.Engine {
		router := gin.New()
		if middleware != nil {
			router.Use(middleware)
		}
		router.POST("/v1/signing-requests", func(c *gin.Context) {
			c.Status(http.StatusCreated)
		})
		return router
	}

	t.Run("Success_DisabledIsNil", func(t *testing.T) {
		assert.Nil(t, createCORSMiddleware(false, origin, testLogger()))
	})

	t.Run("Success_NoOriginsIsNil", func(t *testing.T) {
		assert.Nil(t, createCORSMiddleware(true, " , ", testLogger()))
	})

	t.Run("Success_AllowsConfiguredOrigin", func(t *testing.T) {
		router := newRouter(createCORSMiddleware(true, origin, testLogger()))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/signing-requests", nil)
		req.Header.Set("Origin", origin)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
	})

	t.Run("Success_Preflight", func(t *testing.T) {
		router := newRouter(createCORSMiddleware(true, origin, testLogger()))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/v1/signing-requests", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", CallerHeader)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), CallerHeader)
	})

	t.Run("Success_NoHeadersWhenDisabled", func(t *testing.T) {
		router := newRouter(createCORSMiddleware(false, origin, testLogger()))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/signing-requests", nil)
		req.Header.Set("Origin", origin)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
