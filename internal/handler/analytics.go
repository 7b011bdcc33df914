package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrcode-platform/internal/analytics"
	"qrcode-platform/internal/entitlement"
	"qrcode-platform/internal/middleware"
)

// AnalyticsHandler 看板统计接口
type AnalyticsHandler struct {
	svc *analytics.Service
}

func NewAnalyticsHandler(svc *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// Overview godoc
// @Summary 账号统计
// @Description 统计当前用户全部未删除二维码的扫码, 仅付费套餐可用
// @Tags Analytics
// @Security ApiKeyAuth
// @Produce  json
// @Param   timeRange  query  string  false  "时间范围 1h|1d|7d|30d|90d|1y"  default(30d)
// @Success 200 {object} analytics.Report "成功响应"
// @Failure 403 {object} map[string]interface{} "套餐不支持"
// @Router /api/analytics [get]
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	h.report(c, "overview", nil)
}

// ForQRCode godoc
// @Summary 单个二维码统计
// @Tags Analytics
// @Security ApiKeyAuth
// @Produce  json
// @Param   qrCodeId   path   int     true   "二维码 ID"
// @Param   timeRange  query  string  false  "时间范围 1h|1d|7d|30d|90d|1y"  default(30d)
// @Success 200 {object} analytics.Report "成功响应"
// @Failure 403 {object} map[string]interface{} "套餐不支持"
// @Failure 404 {object} map[string]string "二维码不存在"
// @Router /api/analytics/{qrCodeId} [get]
func (h *AnalyticsHandler) ForQRCode(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("qrCodeId"), 10, 64)
	if err != nil || id == 0 {
		// 先校验套餐, 免费用户无论参数如何都得到 403
		if h.authorize(c) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的二维码 ID"})
		}
		return
	}
	qrID := uint(id)
	h.report(c, "qrcode", &qrID)
}

// Export godoc
// @Summary 导出扫码记录
// @Description format=csv 导出明细, format=pdf 导出文本报告
// @Tags Analytics
// @Security ApiKeyAuth
// @Produce  text/csv
// @Param   format     query  string  false  "csv|pdf"  default(csv)
// @Param   timeRange  query  string  false  "时间范围"  default(30d)
// @Param   qrCodeId   query  int     false  "二维码 ID"
// @Success 200 {string} string "导出文件"
// @Failure 403 {object} map[string]interface{} "套餐不支持"
// @Router /api/analytics/export [get]
func (h *AnalyticsHandler) Export(c *gin.Context) {
	if !h.authorize(c) {
		return
	}

	userID, _ := middleware.UserID(c)
	q := analytics.Query{UserID: userID, Range: analytics.ParseTimeRange(c.Query("timeRange"))}
	if raw := c.Query("qrCodeId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的二维码 ID"})
			return
		}
		qrID := uint(id)
		q.QRCodeID = &qrID
	}

	ctx := c.Request.Context()
	stamp := time.Now().UTC().Format("20060102")

	switch c.DefaultQuery("format", "csv") {
	case "csv":
		scans, _, err := h.svc.Scans(ctx, q)
		if err != nil {
			respondRepoError(c, err, "二维码不存在")
			return
		}
		names, err := h.svc.Names(ctx, scans)
		if err != nil {
			respondRepoError(c, err, "二维码不存在")
			return
		}
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="scans-%s.csv"`, stamp))
		c.Status(http.StatusOK)
		if err := analytics.WriteCSV(c.Writer, scans, names); err != nil {
			zap.S().Errorf("写出 CSV 失败: %v", err)
		}
	case "pdf":
		report, err := h.svc.Report(ctx, "export", q)
		if err != nil {
			respondRepoError(c, err, "二维码不存在")
			return
		}
		// 暂以纯文本报告代替 PDF
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%s.txt"`, stamp))
		c.Status(http.StatusOK)
		if err := analytics.WriteTextReport(c.Writer, report); err != nil {
			zap.S().Errorf("写出报告失败: %v", err)
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "不支持的导出格式"})
	}
}

func (h *AnalyticsHandler) report(c *gin.Context, endpoint string, qrCodeID *uint) {
	if !h.authorize(c) {
		return
	}

	userID, _ := middleware.UserID(c)
	q := analytics.Query{
		UserID:   userID,
		QRCodeID: qrCodeID,
		Range:    analytics.ParseTimeRange(c.Query("timeRange")),
	}
	report, err := h.svc.Report(c.Request.Context(), endpoint, q)
	if err != nil {
		respondRepoError(c, err, "二维码不存在")
		return
	}
	c.JSON(http.StatusOK, report)
}

// authorize 校验套餐, 无权时写入 403 和套餐状态
func (h *AnalyticsHandler) authorize(c *gin.Context) bool {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return false
	}
	return checkEntitlement(c, h.svc, userID)
}

// checkEntitlement 供看板和 API 共用
func checkEntitlement(c *gin.Context, svc *analytics.Service, userID uint) bool {
	state, err := svc.Authorize(c.Request.Context(), userID)
	if errors.Is(err, entitlement.ErrPlanRequired) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "subscription": state})
		return false
	}
	if err != nil {
		zap.S().Errorf("查询订阅失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return false
	}
	return true
}
