// file: internal/server/middleware/request_size_test.go
// version: 2.0.0
// guid: 8f5ed221-2f04-49aa-86f7-f63fa1732b2d

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMethodHasBody(t *testing.T) {
	t.Parallel()

	assert.True(t, methodHasBody(http.MethodPost))
	assert.True(t, methodHasBody(http.MethodPut))
	assert.True(t, methodHasBody(http.MethodPatch))
	assert.False(t, methodHasBody(http.MethodGet))
	assert.False(t, methodHasBody(http.MethodDelete))
}

func TestSelectBodyLimit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(10), selectBodyLimit("/api/v1/profiles/import", 1, 10))
	assert.Equal(t, int64(1), selectBodyLimit("/api/v1/rank", 1, 10))
	assert.Equal(t, int64(1), selectBodyLimit("/api/v1/importer", 1, 10))
}

func TestMaxRequestBodySizeMiddleware(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MaxRequestBodySize(8, 16))
	router.POST("/api/v1/rank", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/api/v1/profiles/import", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/rank", func(c *gin.Context) { c.Status(http.StatusOK) })

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/rank", bytes.NewReader(bytes.Repeat([]byte("a"), 9))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/profiles/import", bytes.NewReader(bytes.Repeat([]byte("b"), 12))))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/rank", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}
