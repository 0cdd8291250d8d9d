package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rsi-website-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMemoryStoreFixedWindow(t *testing.T) {
	store := newMemoryStore(time.Minute)
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 1; i <= 6; i++ {
		count, resetAt := store.incr("rl:contact:1.2.3.4", start.Add(time.Duration(i)*time.Second))
		assert.Equal(t, i, count)
		assert.Equal(t, start.Add(time.Second+time.Minute), resetAt)
	}

	// other clients have their own counter
	count, _ := store.incr("rl:contact:5.6.7.8", start)
	assert.Equal(t, 1, count)

	// a new window starts once the old one has passed
	count, _ = store.incr("rl:contact:1.2.3.4", start.Add(2*time.Minute))
	assert.Equal(t, 1, count)
}

func TestMemoryStoreSweepsExpiredEntries(t *testing.T) {
	store := newMemoryStore(time.Minute)
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	store.incr("a", start)
	store.incr("b", start.Add(5*time.Minute))

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.NotContains(t, store.entries, "a")
	assert.Contains(t, store.entries, "b")
}

func TestRateLimitMiddlewareRejectsOverLimit(t *testing.T) {
	r := gin.New()
	r.POST("/contact", RateLimitMiddleware(RateLimitConfig{
		Limit:  2,
		Window: time.Minute,
		Events: security.NopLogger(),
	}), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/contact", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://www.rsi-xray.com/"}, false))
	r.POST("/v1/contact", func(c *gin.Context) { c.Status(http.StatusOK) })

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/v1/contact", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := preflight("https://www.rsi-xray.com")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://www.rsi-xray.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = preflight("https://evil.example")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = preflight("http://localhost:3000")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCORSMiddlewareAllowsLocalhostInDevelopment(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware(nil, true))
	r.POST("/v1/contact", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/v1/contact", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var fromCtx string
	r.GET("/", func(c *gin.Context) {
		fromCtx = security.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	id := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, fromCtx)

	inbound := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, inbound)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, inbound, w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid\r\ninjected")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotContains(t, w.Header().Get(RequestIDHeader), "injected")
}
