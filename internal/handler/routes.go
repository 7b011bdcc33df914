package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrcode-platform/internal/config"
	"qrcode-platform/internal/middleware"
	"qrcode-platform/internal/model"
)

// NewEngine 创建带公共中间件的引擎.
// 只有 server.TrustedProxies 中的代理转发的 X-Forwarded-For 会被采信, 限流和扫码 IP 都基于 ClientIP.
func NewEngine(server *config.Server, limit *config.Limit, logger *zap.Logger) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("可信代理配置无效: %w", err)
	}
	router.Use(middleware.GinZapRecovery(logger, true))
	router.Use(middleware.GinZapLogger(logger))
	router.Use(middleware.RateLimit(limit))
	return router, nil
}

// Handlers 全部业务处理器, Live 为 nil 时不注册实时推送
type Handlers struct {
	QRCode    *QRCodeHandler
	Auth      *AuthHandler
	Analytics *AnalyticsHandler
	APIKeys   *APIKeyHandler
	PublicAPI *PublicAPIHandler
	Account   *AccountHandler
	Ops       *OpsHandler
	Live      *LiveHandler
}

// Guards 认证中间件
type Guards struct {
	Auth   gin.HandlerFunc
	Admin  gin.HandlerFunc
	APIKey gin.HandlerFunc
}

// RegisterRoutes 注册业务路由
func RegisterRoutes(router *gin.Engine, h Handlers, g Guards) {
	router.GET("/health", h.QRCode.HealthCheck)
	router.GET("/r/:code", h.QRCode.Redirect)
	router.GET("/api/qrcodes/resolve/:code", h.QRCode.ResolveCode)
	router.POST("/internal/cron/cleanup", h.Ops.CronCleanup)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/register", h.Auth.Register)
	}

	v1 := router.Group("/api/v1")
	v1.Use(g.APIKey, middleware.RequirePermission(model.PermAnalyticsRead))
	{
		v1.GET("/analytics", h.PublicAPI.Analytics)
		v1.GET("/scans", h.PublicAPI.Scans)
	}

	api := router.Group("/api")
	api.Use(g.Auth)
	{
		api.GET("/me", h.Auth.GetCurrentUser)

		api.POST("/qrcodes", h.QRCode.CreateQRCode)
		api.GET("/qrcodes", h.QRCode.ListQRCodes)
		api.GET("/qrcodes/:id", h.QRCode.GetQRCode)
		api.PUT("/qrcodes/:id", h.QRCode.UpdateQRCode)
		api.DELETE("/qrcodes/:id", h.QRCode.DeleteQRCode)

		api.GET("/analytics", h.Analytics.Overview)
		api.GET("/analytics/export", h.Analytics.Export)
		api.GET("/analytics/:qrCodeId", h.Analytics.ForQRCode)

		api.POST("/keys", h.APIKeys.CreateKey)
		api.GET("/keys", h.APIKeys.ListKeys)
		api.DELETE("/keys/:id", h.APIKeys.RevokeKey)

		api.DELETE("/account", h.Account.DeleteAccount)
		api.GET("/account/export", h.Account.ExportAccount)

		if h.Live != nil {
			api.GET("/live", h.Live.Connect)
		}
	}

	admin := api.Group("/admin")
	admin.Use(g.Admin)
	{
		admin.PUT("/users/:id/subscription", h.Ops.UpdateSubscription)
	}
}
