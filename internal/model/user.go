package model

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// 用户角色
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User 用户模型
type User struct {
	gorm.Model
	Username     string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"type:varchar(150);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	Role         string     `gorm:"type:varchar(20);default:'user'" json:"role"`
	IsActive     bool       `gorm:"default:true" json:"isActive"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	// 账号注销后只保留匿名化的用户行
	AnonymizedAt *time.Time `json:"anonymizedAt,omitempty"`
}

// SetPassword 加密并设置密码
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword 校验密码
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}
