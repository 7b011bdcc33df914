package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"qrcode-platform/internal/model"
)

// UserRepository 用户数据访问
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx 返回绑定到事务的副本
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// FindByLogin 按用户名或邮箱查询
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("username = ? OR email = ?", login, login).First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// Exists 判断用户名或邮箱是否已注册
func (r *UserRepository) Exists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("last_login", at).Error
}

// Anonymize 清除用户身份信息, 只保留一行占位记录
func (r *UserRepository) Anonymize(ctx context.Context, id uint, at time.Time) error {
	tag := fmt.Sprintf("deleted-%d-%d", id, at.Unix())
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(map[string]any{
		"username":      tag,
		"email":         tag + "@deleted.invalid",
		"password_hash": "",
		"is_active":     false,
		"last_login":    nil,
		"anonymized_at": at,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
