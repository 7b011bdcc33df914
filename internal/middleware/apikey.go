package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrcode-platform/internal/model"
	"qrcode-platform/internal/repository"
)

// APIKeyPrefix 明文密钥前缀
const APIKeyPrefix = "qr_"

const ctxAPIKey = "api_key"

// HashAPIKey 计算密钥哈希, 数据库只保存哈希
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// APIKeyAuth 校验 X-API-Key 或 Bearer qr_... 形式的 API 密钥
func APIKeyAuth(keys *repository.APIKeyRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-API-Key")
		if raw == "" {
			if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer "+APIKeyPrefix) {
				raw = strings.TrimPrefix(h, "Bearer ")
			}
		}
		if !strings.HasPrefix(raw, APIKeyPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "缺少 API 密钥"})
			return
		}

		key, err := keys.FindActiveByHash(c.Request.Context(), HashAPIKey(raw))
		if errors.Is(err, repository.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的 API 密钥"})
			return
		}
		if err != nil {
			zap.S().Errorf("查询 API 密钥失败: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
			return
		}

		now := time.Now().UTC()
		if key.Expired(now) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API 密钥已过期"})
			return
		}

		// 最近使用时间只做尽力更新
		go func(id uint) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := keys.TouchLastUsed(ctx, id, now); err != nil {
				zap.S().Warnf("更新 API 密钥使用时间失败: %v", err)
			}
		}(key.ID)

		c.Set(ctxAPIKey, key)
		c.Set(CtxUserID, key.UserID)
		c.Next()
	}
}

// RequirePermission 要求 API 密钥拥有指定权限
func RequirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(ctxAPIKey)
		key, _ := v.(*model.APIKey)
		if !ok || key == nil || !key.HasPermission(perm) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "API 密钥缺少权限", "required": perm})
			return
		}
		c.Next()
	}
}
