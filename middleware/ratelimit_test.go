package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestIPRateLimiter_PerIP(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(0.001), 2)

	a := limiter.GetLimiter("10.0.0.1")
	assert.Same(t, a, limiter.GetLimiter("10.0.0.1"))
	assert.True(t, a.Allow())
	assert.True(t, a.Allow())
	assert.False(t, a.Allow())

	assert.True(t, limiter.GetLimiter("10.0.0.2").Allow())
}

func TestIPRateLimiter_PrunesIdleEntries(t *testing.T) {
	now := time.Date(2025, 8, 16, 12, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(rate.Limit(1), 1)
	limiter.now = func() time.Time { return now }

	for i := 0; i <= cleanupThreshold; i++ {
		limiter.GetLimiter(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	assert.Len(t, limiter.ips, cleanupThreshold+1)

	now = now.Add(maxIdleAge + time.Minute)
	limiter.GetLimiter("192.168.0.1")
	assert.Len(t, limiter.ips, 1)
}

func TestRateLimit(t *testing.T) {
	handler := RateLimit(NewIPRateLimiter(rate.Limit(0.001), 1))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/matches/m/score", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:5000").Code)

	rec := send("10.0.0.1:5001")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// RealIP leaves a bare address behind.
	assert.Equal(t, http.StatusNoContent, send("10.0.0.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.2").Code)
}
