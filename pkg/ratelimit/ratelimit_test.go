package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(2, time.Minute)
	limiter.now = func() time.Time { return clock }
	ctx := context.Background()

	allowed, _ := limiter.Allow(ctx, "1.2.3.4")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "1.2.3.4")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "1.2.3.4")
	assert.False(t, allowed)

	allowed, _ = limiter.Allow(ctx, "5.6.7.8")
	assert.True(t, allowed, "keys are independent")

	clock = clock.Add(time.Minute)
	allowed, _ = limiter.Allow(ctx, "1.2.3.4")
	assert.True(t, allowed, "new window resets the count")
}

func TestMemoryLimiterPrunesExpiredWindows(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(1, time.Minute)
	limiter.now = func() time.Time { return clock }

	limiter.Allow(context.Background(), "a")
	limiter.Allow(context.Background(), "b")
	clock = clock.Add(2 * time.Minute)
	limiter.Allow(context.Background(), "c")

	assert.Len(t, limiter.windows, 1)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func newRouter(limiter Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := gin.New()
	r.POST("/limited", Middleware(limiter, "test", logger), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	r := newRouter(NewMemoryLimiter(1, time.Minute))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/limited", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/limited", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
}

func TestMiddlewareFailsOpen(t *testing.T) {
	r := newRouter(failingLimiter{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/limited", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
