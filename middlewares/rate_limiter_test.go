package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strictLimiterRouter(perMinute int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", NewStrictRateLimiter(perMinute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func hitFrom(t *testing.T, r *gin.Engine, remoteAddr string) int {
	t.Helper()
	req, err := http.NewRequest("POST", "/login", nil)
	require.NoError(t, err)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestStrictRateLimiterThrottlesPerIP(t *testing.T) {
	r := strictLimiterRouter(3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hitFrom(t, r, "10.0.0.1:1234"))
	}
	assert.Equal(t, http.StatusTooManyRequests, hitFrom(t, r, "10.0.0.1:1234"))

	// A different client keeps its own budget.
	assert.Equal(t, http.StatusOK, hitFrom(t, r, "10.0.0.2:1234"))
}
