package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"qrcode-platform/internal/middleware"
	"qrcode-platform/internal/model"
	"qrcode-platform/internal/repository"
)

// APIKeyHandler API 密钥管理
type APIKeyHandler struct {
	keys *repository.APIKeyRepository
}

func NewAPIKeyHandler(keys *repository.APIKeyRepository) *APIKeyHandler {
	return &APIKeyHandler{keys: keys}
}

// CreateKeyRequest 创建密钥请求
type CreateKeyRequest struct {
	Name          string   `json:"name" binding:"required,max=100" example:"BI 同步"`
	Permissions   []string `json:"permissions" example:"analytics:read"`
	ExpiresInDays int      `json:"expiresInDays" binding:"min=0,max=3650" example:"90"`
}

// CreateKeyResponse 明文密钥只在创建时返回一次
type CreateKeyResponse struct {
	Key    string       `json:"key" example:"qr_0123456789abcdef0123456789abcdef"`
	APIKey model.APIKey `json:"apiKey"`
}

var knownPermissions = map[string]bool{
	"*":                     true,
	model.PermAnalyticsRead: true,
	model.PermScansRead:     true,
	model.PermQRCodesRead:   true,
}

// CreateKey godoc
// @Summary 创建 API 密钥
// @Description 明文密钥只返回一次, 服务端只保存哈希
// @Tags APIKey
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   key  body  CreateKeyRequest  true  "密钥信息"
// @Success 201 {object} CreateKeyResponse "成功响应"
// @Failure 400 {object} map[string]string "请求无效"
// @Router /api/keys [post]
func (h *APIKeyHandler) CreateKey(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var req CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据: " + err.Error()})
		return
	}
	if len(req.Permissions) == 0 {
		req.Permissions = []string{model.PermAnalyticsRead}
	}
	for _, p := range req.Permissions {
		if !knownPermissions[p] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "未知的权限: " + p})
			return
		}
	}

	raw := middleware.APIKeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	key := &model.APIKey{
		UserID:      userID,
		Name:        req.Name,
		KeyHash:     middleware.HashAPIKey(raw),
		KeyPrefix:   raw[:8],
		Permissions: req.Permissions,
		IsActive:    true,
	}
	if req.ExpiresInDays > 0 {
		expires := time.Now().UTC().AddDate(0, 0, req.ExpiresInDays)
		key.ExpiresAt = &expires
	}

	if err := h.keys.Create(c.Request.Context(), key); err != nil {
		zap.S().Errorf("创建 API 密钥失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建 API 密钥失败"})
		return
	}
	c.JSON(http.StatusCreated, CreateKeyResponse{Key: raw, APIKey: *key})
}

// ListKeys godoc
// @Summary API 密钥列表
// @Tags APIKey
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {array} model.APIKey "成功响应"
// @Router /api/keys [get]
func (h *APIKeyHandler) ListKeys(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	keys, err := h.keys.ListByUser(c.Request.Context(), userID)
	if err != nil {
		zap.S().Errorf("获取 API 密钥失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	c.JSON(http.StatusOK, keys)
}

// RevokeKey godoc
// @Summary 吊销 API 密钥
// @Tags APIKey
// @Security ApiKeyAuth
// @Param   id  path  int  true  "密钥 ID"
// @Success 200 {object} map[string]string "吊销成功"
// @Failure 404 {object} map[string]string "密钥不存在"
// @Router /api/keys/{id} [delete]
func (h *APIKeyHandler) RevokeKey(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.keys.Revoke(c.Request.Context(), id, userID); err != nil {
		respondRepoError(c, err, "密钥不存在")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "吊销成功"})
}
