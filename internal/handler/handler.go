package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrcode-platform/internal/metrics"
	"qrcode-platform/internal/middleware"
	"qrcode-platform/internal/model"
	"qrcode-platform/internal/repository"
	"qrcode-platform/internal/scan"
	"qrcode-platform/internal/shortlink"
)

// QRCodeHandler 二维码管理与短链接跳转
type QRCodeHandler struct {
	codes    *repository.QRCodeRepository
	scans    *repository.ScanRepository
	links    *shortlink.Service
	recorder *scan.Recorder
}

// NewQRCodeHandler 创建处理器实例
func NewQRCodeHandler(codes *repository.QRCodeRepository, scans *repository.ScanRepository, links *shortlink.Service, recorder *scan.Recorder) *QRCodeHandler {
	return &QRCodeHandler{
		codes:    codes,
		scans:    scans,
		links:    links,
		recorder: recorder,
	}
}

// HealthCheck 健康检查
func (h *QRCodeHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC()})
}

// QRCodeRequest 创建或更新二维码的请求
type QRCodeRequest struct {
	Name      string `json:"name" binding:"required,max=200" example:"店铺菜单"`
	Type      string `json:"type" binding:"required" example:"url"`
	Content   string `json:"content" binding:"required" example:"https://example.com/menu"`
	IsDynamic bool   `json:"isDynamic" example:"true"`
	Settings  string `json:"settings" example:"{\"foreground\":\"#000000\"}"`
}

// QRCodeResponse 二维码及写入图片的内容
type QRCodeResponse struct {
	model.QRCode
	EffectiveContent string `json:"effectiveContent"`
	ScanCount        int64  `json:"scanCount"`
}

// ResolveResponse 短码解析结果
type ResolveResponse struct {
	ID      uint   `json:"id" example:"1"`
	Type    string `json:"type" example:"url"`
	Content string `json:"content" example:"https://qr.example.com/r/aB3dE7x"`
}

// CreateQRCode godoc
// @Summary 创建二维码
// @Description 创建静态或动态二维码, 动态码会分配短链接
// @Tags QRCode
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   qrcode  body   QRCodeRequest  true  "二维码信息"
// @Success 201 {object} QRCodeResponse "成功响应"
// @Failure 400 {object} map[string]string "请求无效"
// @Failure 500 {object} map[string]string "服务器内部错误"
// @Router /api/qrcodes [post]
func (h *QRCodeHandler) CreateQRCode(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var req QRCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据: " + err.Error()})
		return
	}
	if !model.ValidQRType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不支持的二维码类型: " + req.Type})
		return
	}

	qr := &model.QRCode{
		UserID:    userID,
		Name:      req.Name,
		Type:      req.Type,
		Content:   req.Content,
		IsDynamic: req.IsDynamic,
		Settings:  req.Settings,
	}
	if err := h.links.Create(c.Request.Context(), qr); err != nil {
		zap.S().Errorf("创建二维码失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建二维码失败"})
		return
	}

	c.JSON(http.StatusCreated, QRCodeResponse{QRCode: *qr, EffectiveContent: qr.EffectiveContent()})
}

// ListQRCodes godoc
// @Summary 二维码列表
// @Tags QRCode
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {array} QRCodeResponse "成功响应"
// @Router /api/qrcodes [get]
func (h *QRCodeHandler) ListQRCodes(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	codes, err := h.codes.ListByUser(c.Request.Context(), userID)
	if err != nil {
		zap.S().Errorf("获取二维码列表失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取二维码失败"})
		return
	}

	out := make([]QRCodeResponse, 0, len(codes))
	for i := range codes {
		out = append(out, QRCodeResponse{QRCode: codes[i], EffectiveContent: codes[i].EffectiveContent()})
	}
	c.JSON(http.StatusOK, out)
}

// GetQRCode godoc
// @Summary 二维码详情
// @Tags QRCode
// @Security ApiKeyAuth
// @Produce  json
// @Param   id  path  int  true  "二维码 ID"
// @Success 200 {object} QRCodeResponse "成功响应"
// @Failure 404 {object} map[string]string "二维码不存在"
// @Router /api/qrcodes/{id} [get]
func (h *QRCodeHandler) GetQRCode(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	id, ok := pathID(c)
	if !ok {
		return
	}

	qr, err := h.codes.FindForUser(c.Request.Context(), id, userID)
	if err != nil {
		respondRepoError(c, err, "二维码不存在")
		return
	}
	count, err := h.scans.CountForQRCode(c.Request.Context(), qr.ID)
	if err != nil {
		zap.S().Errorf("统计扫码次数失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, QRCodeResponse{QRCode: *qr, EffectiveContent: qr.EffectiveContent(), ScanCount: count})
}

// UpdateQRCode godoc
// @Summary 更新二维码
// @Description 动态码更新内容后短链接保持不变, 已印刷的二维码会跳转到新地址
// @Tags QRCode
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   id      path  int            true  "二维码 ID"
// @Param   qrcode  body  QRCodeRequest  true  "二维码信息"
// @Success 200 {object} QRCodeResponse "成功响应"
// @Failure 404 {object} map[string]string "二维码不存在"
// @Router /api/qrcodes/{id} [put]
func (h *QRCodeHandler) UpdateQRCode(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req QRCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据: " + err.Error()})
		return
	}
	if !model.ValidQRType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不支持的二维码类型: " + req.Type})
		return
	}

	ctx := c.Request.Context()
	existing, err := h.codes.FindForUser(ctx, id, userID)
	if err != nil {
		respondRepoError(c, err, "二维码不存在")
		return
	}
	// 动态属性在创建时确定, 短链接一旦印刷不能再变
	if req.IsDynamic != existing.IsDynamic {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不能修改二维码的动态属性"})
		return
	}

	fields := map[string]any{
		"name":       req.Name,
		"type":       req.Type,
		"content":    req.Content,
		"settings":   req.Settings,
		"updated_at": time.Now().UTC(),
	}
	if err := h.codes.Update(ctx, id, userID, fields); err != nil {
		respondRepoError(c, err, "二维码不存在")
		return
	}

	qr, err := h.codes.FindForUser(ctx, id, userID)
	if err != nil {
		respondRepoError(c, err, "二维码不存在")
		return
	}
	c.JSON(http.StatusOK, QRCodeResponse{QRCode: *qr, EffectiveContent: qr.EffectiveContent()})
}

// DeleteQRCode godoc
// @Summary 删除二维码
// @Description 软删除, 扫码记录保留但不再参与统计, 短链接失效
// @Tags QRCode
// @Security ApiKeyAuth
// @Param   id  path  int  true  "二维码 ID"
// @Success 200 {object} map[string]string "删除成功"
// @Failure 404 {object} map[string]string "二维码不存在"
// @Router /api/qrcodes/{id} [delete]
func (h *QRCodeHandler) DeleteQRCode(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.codes.SoftDelete(c.Request.Context(), id, userID); err != nil {
		respondRepoError(c, err, "二维码不存在")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "删除成功"})
}

// ResolveCode godoc
// @Summary 解析短码
// @Description 返回二维码类型和写入图片的内容, 供重新生成图片使用, 不记录扫码
// @Tags Redirect
// @Produce  json
// @Param   code  path  string  true  "短码"
// @Success 200 {object} ResolveResponse "成功响应"
// @Failure 404 {object} map[string]string "短链接不存在"
// @Router /api/qrcodes/resolve/{code} [get]
func (h *QRCodeHandler) ResolveCode(c *gin.Context) {
	res, err := h.links.Resolve(c.Request.Context(), c.Param("code"))
	if errors.Is(err, shortlink.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "短链接不存在"})
		return
	}
	if err != nil {
		zap.S().Errorf("解析短码失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	c.JSON(http.StatusOK, ResolveResponse{ID: res.QRCodeID, Type: res.Type, Content: res.Content})
}

// Redirect godoc
// @Summary 短链接跳转
// @Description 解析短码并记录一次扫码. 网址和菜单 302 跳转, 邮箱跳转到 mailto, 其他类型返回 JSON
// @Tags Redirect
// @Produce  json
// @Param   code  path  string  true  "短码"
// @Success 302 "跳转"
// @Success 200 {object} map[string]string "非跳转类型的内容"
// @Failure 404 {object} map[string]string "短链接不存在"
// @Router /r/{code} [get]
func (h *QRCodeHandler) Redirect(c *gin.Context) {
	ctx := c.Request.Context()

	res, err := h.links.Resolve(ctx, c.Param("code"))
	if errors.Is(err, shortlink.ErrNotFound) {
		metrics.Redirects.WithLabelValues("not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": "短链接不存在或已删除"})
		return
	}
	if err != nil {
		metrics.Redirects.WithLabelValues("error").Inc()
		zap.S().Errorf("解析短码失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	visit := scan.Visit{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referrer:  c.Request.Referer(),
	}
	if _, err := h.recorder.Record(ctx, res, visit); err != nil {
		metrics.Redirects.WithLabelValues("error").Inc()
		zap.S().Errorf("记录扫码失败 qr=%d: %v", res.QRCodeID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	switch res.Type {
	case model.QRTypeURL, model.QRTypeMenu:
		metrics.Redirects.WithLabelValues("redirect").Inc()
		c.Redirect(http.StatusFound, res.Target)
	case model.QRTypeEmail:
		target := res.Target
		if !strings.HasPrefix(strings.ToLower(target), "mailto:") {
			target = "mailto:" + target
		}
		metrics.Redirects.WithLabelValues("redirect").Inc()
		c.Redirect(http.StatusFound, target)
	default:
		metrics.Redirects.WithLabelValues("json").Inc()
		c.JSON(http.StatusOK, gin.H{"type": res.Type, "content": res.Target})
	}
}

// pathID 解析路径中的 id 参数, 失败时已写入 400 响应
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 ID"})
		return 0, false
	}
	return uint(id), true
}

// respondRepoError 记录不存在返回 404, 其余返回 500
func respondRepoError(c *gin.Context, err error, notFoundMsg string) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMsg})
		return
	}
	zap.S().Errorf("数据库操作失败: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
}
