package handler

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"qrcode-platform/internal/middleware"
	"qrcode-platform/internal/notify"
)

// LiveHandler 看板实时更新
type LiveHandler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger
}

// NewLiveHandler allowedOrigins 为空时接受任意来源
func NewLiveHandler(hub *notify.Hub, allowedOrigins []string, logger *zap.SugaredLogger) *LiveHandler {
	return &LiveHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
			},
		},
		logger: logger.Named("live"),
	}
}

// Connect godoc
// @Summary 实时扫码推送
// @Description 升级为 websocket, 有新扫码时推送 {type:"scan", data:{...}}. 浏览器可通过 token 查询参数传递令牌
// @Tags Live
// @Security ApiKeyAuth
// @Param   token  query  string  false  "JWT 令牌"
// @Success 101 "切换协议"
// @Router /api/live [get]
func (h *LiveHandler) Connect(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写入了错误响应
		h.logger.Warnf("websocket 升级失败: %v", err)
		return
	}

	client := notify.NewClient(h.hub, userID, conn, h.logger)
	client.Start()
	h.logger.Debugf("用户 %d 建立实时连接, 当前 %d 个", userID, h.hub.Subscribers(userID))
}
