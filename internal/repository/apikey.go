package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"qrcode-platform/internal/model"
)

// APIKeyRepository API 密钥数据访问
type APIKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Create(ctx context.Context, key *model.APIKey) error {
	return r.db.WithContext(ctx).Create(key).Error
}

// FindActiveByHash 按哈希查询未吊销的密钥
func (r *APIKeyRepository) FindActiveByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.WithContext(ctx).Where("key_hash = ? AND is_active = ?", hash, true).First(&key).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &key, nil
}

func (r *APIKeyRepository) ListByUser(ctx context.Context, userID uint) ([]model.APIKey, error) {
	var keys []model.APIKey
	err := r.db.WithContext(ctx).Where("user_id = ? AND is_active = ?", userID, true).Order("id DESC").Find(&keys).Error
	return keys, err
}

// Revoke 吊销用户自己的密钥
func (r *APIKeyRepository) Revoke(ctx context.Context, id, userID uint) error {
	res := r.db.WithContext(ctx).Model(&model.APIKey{}).
		Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.APIKey{}).Where("id = ?", id).Update("last_used_at", at).Error
}

// WithTx 返回绑定到事务的副本
func (r *APIKeyRepository) WithTx(tx *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: tx}
}

func (r *APIKeyRepository) DeleteAllForUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.APIKey{}).Error
}
