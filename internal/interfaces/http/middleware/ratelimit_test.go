package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2025, 1, 18, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	ok, remaining := rl.Allow("a")
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
	ok, remaining = rl.Allow("a")
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)
	ok, _ = rl.Allow("a")
	assert.False(t, ok)

	ok, _ = rl.Allow("b")
	assert.True(t, ok, "keys are limited independently")

	now = now.Add(time.Minute)
	ok, _ = rl.Allow("a")
	assert.True(t, ok, "window reset")
}

func TestRateLimiter_Cleanup(t *testing.T) {
	now := time.Date(2025, 1, 18, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }
	rl.Allow("idle")

	now = now.Add(3 * time.Minute)
	rl.cleanup()

	assert.Empty(t, rl.callers)
}

func TestRateLimit_PerPharmacy(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	pharmacyA, pharmacyB := uuid.New(), uuid.New()

	router := gin.New()
	router.Use(RequestID())
	router.Use(func(c *gin.Context) {
		id, _ := uuid.Parse(c.GetHeader(PharmacyHeaderKey))
		c.Set(PharmacyIDKey, id)
		c.Next()
	})
	router.Use(RateLimit(rl))
	router.GET("/test", okHandler)

	call := func(pharmacyID uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(PharmacyHeaderKey, pharmacyID.String())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, call(pharmacyA).Code)
	limited := call(pharmacyA)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))
	assert.Equal(t, dto.ErrCodeRateLimited, decodeError(t, limited).Code)
	assert.Equal(t, http.StatusOK, call(pharmacyB).Code)
}
