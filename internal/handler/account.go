package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"qrcode-platform/internal/account"
	"qrcode-platform/internal/middleware"
)

// AccountHandler 账号注销与数据导出
type AccountHandler struct {
	svc *account.Service
}

func NewAccountHandler(svc *account.Service) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// DeleteAccount godoc
// @Summary 注销账号
// @Description 删除全部二维码、扫码、会话、密钥和订阅, 并匿名化用户记录
// @Tags Account
// @Security ApiKeyAuth
// @Success 200 {object} map[string]string "注销成功"
// @Router /api/account [delete]
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	if err := h.svc.Delete(c.Request.Context(), userID); err != nil {
		respondRepoError(c, err, "用户不存在")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "账号已注销"})
}

// ExportAccount godoc
// @Summary 导出个人数据
// @Description 导出全部二维码 (包括已删除的) 及其扫码记录
// @Tags Account
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} account.Archive "导出内容"
// @Router /api/account/export [get]
func (h *AccountHandler) ExportAccount(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	archive, err := h.svc.Export(c.Request.Context(), userID)
	if err != nil {
		respondRepoError(c, err, "用户不存在")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="account-%d-%s.json"`, userID, time.Now().UTC().Format("20060102")))
	c.JSON(http.StatusOK, archive)
}
