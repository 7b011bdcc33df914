package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"qrcode-platform/internal/model"
)

// SessionRepository 登录会话数据访问
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// WithTx 返回绑定到事务的副本
func (r *SessionRepository) WithTx(tx *gorm.DB) *SessionRepository {
	return &SessionRepository{db: tx}
}

func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// DeleteExpired 删除已过期的会话, 返回删除条数
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.Session{})
	return res.RowsAffected, res.Error
}

func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Session{}).Error
}

// Active 查询未过期的会话, 不存在或已过期时返回 ErrNotFound
func (r *SessionRepository) Active(ctx context.Context, tokenID string, now time.Time) (*model.Session, error) {
	var s model.Session
	err := r.db.WithContext(ctx).
		Where("token_id = ? AND expires_at > ?", tokenID, now).
		First(&s).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}
