package model

import (
	"time"
)

// Scan 扫码记录, 只追加不修改
type Scan struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	QRCodeID  uint      `gorm:"column:qr_code_id;not null;index" json:"qrCodeId"`
	ScannedAt time.Time `gorm:"not null;index" json:"scannedAt"`
	Device    *string   `gorm:"size:50" json:"device"`
	OS        *string   `gorm:"column:os;size:100" json:"os"`
	Browser   *string   `gorm:"size:100" json:"browser"`
	Country   *string   `gorm:"size:100" json:"country"`
	City      *string   `gorm:"size:100" json:"city"`
	IPAddress string    `gorm:"size:45" json:"ipAddress"`
	UserAgent string    `gorm:"type:text" json:"userAgent"`
	Referrer  string    `gorm:"type:text" json:"referrer"`
}

func (Scan) TableName() string {
	return "scans"
}
