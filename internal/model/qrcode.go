package model

import (
	"time"
)

// 二维码类型
const (
	QRTypeURL     = "url"
	QRTypeText    = "text"
	QRTypeWiFi    = "wifi"
	QRTypeContact = "contact"
	QRTypeEmail   = "email"
	QRTypeMenu    = "menu"
)

// ValidQRType 判断二维码类型是否受支持
func ValidQRType(t string) bool {
	switch t {
	case QRTypeURL, QRTypeText, QRTypeWiFi, QRTypeContact, QRTypeEmail, QRTypeMenu:
		return true
	}
	return false
}

// QRCode 二维码模型, 删除为软删除
type QRCode struct {
	ID        uint    `gorm:"primarykey" json:"id"`
	UserID    uint    `gorm:"not null;index" json:"userId"`
	Name      string  `gorm:"size:200" json:"name"`
	Type      string  `gorm:"size:20;not null" json:"type"`
	Content   string  `gorm:"type:text;not null" json:"content"`
	IsDynamic bool    `gorm:"default:false" json:"isDynamic"`
	ShortURL  *string `gorm:"size:255;uniqueIndex" json:"shortUrl,omitempty"`
	// 渲染参数 (颜色、尺寸等), 原样保存的 JSON
	Settings  string     `gorm:"type:text" json:"settings,omitempty"`
	IsDeleted bool       `gorm:"default:false;index" json:"isDeleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// TableName 指定表名
func (QRCode) TableName() string {
	return "qr_codes"
}

// EffectiveContent 返回写入二维码图片的内容:
// 动态码 (联系人除外) 使用短链接, 其余使用原始内容
func (q *QRCode) EffectiveContent() string {
	if q.IsDynamic && q.Type != QRTypeContact && q.ShortURL != nil && *q.ShortURL != "" {
		return *q.ShortURL
	}
	return q.Content
}
