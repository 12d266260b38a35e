package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	redisStore "bch-paywall/internal/adapter/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func rateLimitTestRouter(t *testing.T, rule RateLimitRule) *gin.Engine {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := redisStore.NewRateLimitStore(client)

	r := gin.New()
	r.GET("/limited", RateLimiter(store, "test_group", rule, zerolog.Nop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	r := rateLimitTestRouter(t, RateLimitRule{Limit: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	r := rateLimitTestRouter(t, RateLimitRule{Limit: 2, Window: time.Minute})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_001")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimiter_RedisDownDegradesOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := redisStore.NewRateLimitStore(client)
	mr.Close()

	r := gin.New()
	r.GET("/limited", RateLimiter(store, "test_group", RateLimitRule{Limit: 1, Window: time.Minute}, zerolog.Nop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
