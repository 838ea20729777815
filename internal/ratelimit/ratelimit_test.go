package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_AllowWithinWindow(t *testing.T) {
	now := time.Now()
	l := NewLimiter(time.Minute, 3)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("1.2.3.4")
		assert.True(t, ok, "request %d should pass", i+1)
	}
	ok, retryAfter := l.Allow("1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retryAfter, "oldest request leaves the window after a full minute")

	// Other clients are tracked separately.
	ok, _ = l.Allow("5.6.7.8")
	assert.True(t, ok)
}

func TestLimiter_WindowSlides(t *testing.T) {
	now := time.Now()
	l := NewLimiter(time.Minute, 2)
	l.now = func() time.Time { return now }

	l.Allow("c")
	l.Allow("c")
	ok, _ := l.Allow("c")
	require.False(t, ok)

	now = now.Add(61 * time.Second)
	ok, _ = l.Allow("c")
	assert.True(t, ok, "requests outside the window no longer count")
}

func TestMiddleware_Returns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewLimiter(time.Minute, 1)

	router := gin.New()
	router.Use(l.Middleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "rate limit exceeded")
}
