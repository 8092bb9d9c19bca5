package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/fitquest/config"
	"github.com/cppla/fitquest/utils"
)

func setup(t *testing.T, perMinute int) {
	t.Helper()
	cfg := config.Defaults()
	cfg.JWTSecret = "middleware-test-secret"
	cfg.RateLimitPerMinute = perMinute
	config.Use(cfg)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	utils.SetRedis(rdb)
	t.Cleanup(func() {
		utils.SetRedis(nil)
		rdb.Close()
	})
	gin.SetMode(gin.TestMode)
}

func authRouter() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthRequired(), func(ctx *gin.Context) {
		id, _ := ctx.Get(ContextUserIDKey)
		ctx.JSON(http.StatusOK, gin.H{"id": id})
	})
	return r
}

func get(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	setup(t, 60)
	r := authRouter()

	token, err := utils.GenerateToken(5, "ana", time.Hour)
	require.NoError(t, err)

	w := get(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":5}`, w.Body.String())

	for _, h := range []string{"", "Token abc", "Bearer ", "Bearer not-a-jwt"} {
		w := get(r, h)
		assert.Equal(t, http.StatusUnauthorized, w.Code, h)
	}
}

func TestAuthRequiredRejectsRevokedToken(t *testing.T) {
	setup(t, 60)
	r := authRouter()

	token, err := utils.GenerateToken(5, "ana", time.Hour)
	require.NoError(t, err)
	utils.BlacklistToken(token, time.Now().Add(time.Hour))

	w := get(r, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":40104`)
}

func TestAuthRequiredRejectsExpiredToken(t *testing.T) {
	setup(t, 60)
	token, err := utils.GenerateToken(5, "ana", -time.Minute)
	require.NoError(t, err)

	w := get(authRouter(), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":40105`)
}

func TestLimiterSetBuckets(t *testing.T) {
	s := newLimiterSet(4) // burst 2
	now := time.Now()

	assert.True(t, s.allow("a", now))
	assert.True(t, s.allow("a", now))
	assert.False(t, s.allow("a", now))
	assert.True(t, s.allow("b", now), "separate key has its own bucket")

	// one token every 15s
	assert.True(t, s.allow("a", now.Add(16*time.Second)))
}

func TestLimiterSetEvictsIdleKeys(t *testing.T) {
	s := newLimiterSet(60)
	now := time.Now()
	s.allow("a", now)
	s.allow("b", now.Add(limiterIdleTTL+time.Second))
	assert.Len(t, s.limiters, 1)
}

func TestRateLimitMiddleware(t *testing.T) {
	setup(t, 2) // burst 1
	r := gin.New()
	r.Use(RateLimitMiddleware())
	r.GET("/ping", func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })

	do := func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		return w.Code
	}
	assert.Equal(t, http.StatusNoContent, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}
