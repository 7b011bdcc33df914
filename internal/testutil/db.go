// Package testutil 提供测试共用的内存数据库和数据构造函数
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"qrcode-platform/internal/model"
	"qrcode-platform/pkg/database"
	auth "qrcode-platform/pkg/jwt"
)

// NewDB 为每个测试创建独立的内存 SQLite 库
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.InitSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateUser 创建用户并写入指定套餐的订阅
func CreateUser(t *testing.T, db *gorm.DB, username, plan string) *model.User {
	t.Helper()

	user := &model.User{Username: username, Email: username + "@example.com", Role: model.RoleUser, IsActive: true}
	require.NoError(t, user.SetPassword("password123"))
	require.NoError(t, db.Create(user).Error)

	sub := &model.Subscription{UserID: user.ID, Plan: plan, Status: model.StatusActive}
	require.NoError(t, db.Create(sub).Error)
	return user
}

// CreateQRCode 创建动态二维码, shortURL 为空时创建静态码
func CreateQRCode(t *testing.T, db *gorm.DB, userID uint, name, shortURL string) *model.QRCode {
	t.Helper()

	qr := &model.QRCode{
		UserID:    userID,
		Name:      name,
		Type:      model.QRTypeURL,
		Content:   "https://example.com/" + name,
		IsDynamic: shortURL != "",
		ShortURL:  model.StringPtr(shortURL),
	}
	require.NoError(t, db.Create(qr).Error)
	return qr
}

// CreateScan 写入一条扫码记录
func CreateScan(t *testing.T, db *gorm.DB, qrCodeID uint, at time.Time, device, country, browser string) *model.Scan {
	t.Helper()

	scan := &model.Scan{
		QRCodeID:  qrCodeID,
		ScannedAt: at.UTC(),
		Device:    model.StringPtr(device),
		Country:   model.StringPtr(country),
		Browser:   model.StringPtr(browser),
	}
	require.NoError(t, db.Create(scan).Error)
	return scan
}

// IssueToken 为用户签发令牌并写入对应的会话
func IssueToken(t *testing.T, db *gorm.DB, tokens *auth.TokenManager, user *model.User) string {
	t.Helper()

	token, tokenID, expiresAt, err := tokens.GenerateToken(user.ID, user.Username, user.Role)
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.Session{UserID: user.ID, TokenID: tokenID, ExpiresAt: expiresAt.UTC()}).Error)
	return token
}
