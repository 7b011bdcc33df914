package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"qrcode-platform/internal/config"
)

func newEngine(t *testing.T, proxies []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router, err := NewEngine(
		&config.Server{TrustedProxies: proxies},
		&config.Limit{Enabled: true, Requests: 60, Burst: 1},
		zap.NewNop(),
	)
	require.NoError(t, err)
	router.GET("/ip", func(c *gin.Context) { c.String(http.StatusOK, c.ClientIP()) })
	return router
}

// httptest.NewRequest 的连接地址固定为 192.0.2.1
func getIP(router *gin.Engine, forwarded string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	if forwarded != "" {
		req.Header.Set("X-Forwarded-For", forwarded)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestNewEngine_IgnoresForwardedForByDefault(t *testing.T) {
	router := newEngine(t, nil)

	w := getIP(router, "203.0.113.7")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "192.0.2.1", w.Body.String())

	// 伪造的来源地址不能换出新的令牌桶
	assert.Equal(t, http.StatusTooManyRequests, getIP(router, "203.0.113.8").Code)
}

func TestNewEngine_TrustsConfiguredProxy(t *testing.T) {
	router := newEngine(t, []string{"192.0.2.1"})

	w := getIP(router, "203.0.113.7")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "203.0.113.7", w.Body.String())

	assert.Equal(t, http.StatusOK, getIP(router, "203.0.113.8").Code)
	assert.Equal(t, http.StatusTooManyRequests, getIP(router, "203.0.113.8").Code)
}

func TestNewEngine_RejectsInvalidProxy(t *testing.T) {
	_, err := NewEngine(&config.Server{TrustedProxies: []string{"not-an-ip"}}, &config.Limit{}, zap.NewNop())
	assert.Error(t, err)
}
