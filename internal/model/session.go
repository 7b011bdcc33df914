package model

import "time"

// Session 登录会话, 与签发的 JWT 一一对应
type Session struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	TokenID   string    `gorm:"size:64;uniqueIndex;not null" json:"tokenId"`
	IPAddress string    `gorm:"size:45" json:"ipAddress"`
	UserAgent string    `gorm:"type:text" json:"userAgent"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}
