package model

import (
	"slices"
	"time"
)

// API 权限
const (
	PermAnalyticsRead = "analytics:read"
	PermScansRead     = "scans:read"
	PermQRCodesRead   = "qrcodes:read"
)

// APIKey 外部集成使用的 API 密钥, 只保存哈希
type APIKey struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"userId"`
	Name        string     `gorm:"size:100" json:"name"`
	KeyHash     string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	KeyPrefix   string     `gorm:"size:16" json:"keyPrefix"`
	Permissions []string   `gorm:"serializer:json;type:text" json:"permissions"`
	IsActive    bool       `gorm:"default:true" json:"isActive"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// HasPermission 判断密钥是否拥有指定权限, "*" 表示全部
func (k *APIKey) HasPermission(perm string) bool {
	return slices.Contains(k.Permissions, perm) || slices.Contains(k.Permissions, "*")
}

// Expired 判断密钥是否过期
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}
